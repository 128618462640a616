package json

import (
	"context"
	"time"

	"github.com/go-git/go-billy/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/errors"
	"github.com/olusolaa/sandbox-differ/internal/reporting"
)

const SinkTypeJSON = "json"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink writes a machine-readable copy of each report next to the text one.
type Sink struct {
	output billy.Filesystem
	logger ports.Logger
}

var _ ports.ReportSink = (*Sink)(nil)

func NewSink(output billy.Filesystem, logger ports.Logger) *Sink {
	return &Sink{output: output, logger: logger}
}

type jsonReport struct {
	ID                string                    `json:"id"`
	Target            domain.Target             `json:"target"`
	CreatedAt         time.Time                 `json:"created_at"`
	BaselineCreatedAt time.Time                 `json:"baseline_created_at"`
	Summary           jsonSummary               `json:"summary"`
	Added             []domain.ChangeRecord     `json:"added"`
	Removed           []domain.ChangeRecord     `json:"removed"`
	Modified          []domain.ChangeRecord     `json:"modified"`
	Preferences       []domain.PreferenceChange `json:"preference_changes"`
	Databases         []domain.DatabaseChange   `json:"database_changes"`
}

type jsonSummary struct {
	Added       int `json:"added"`
	Removed     int `json:"removed"`
	Modified    int `json:"modified"`
	Preferences int `json:"preference_changes"`
	Databases   int `json:"database_changes"`
}

func (s *Sink) Type() string { return SinkTypeJSON }

func (s *Sink) Write(ctx context.Context, report *domain.ComparisonReport) (string, error) {
	if err := ctx.Err(); err != nil {
		s.logger.Warnf(ctx, "JSON report generation cancelled.")
		return "", err
	}

	out := jsonReport{
		ID:                report.ID,
		Target:            report.Target,
		CreatedAt:         report.CreatedAt.UTC(),
		BaselineCreatedAt: report.BaselineCreatedAt.UTC(),
		Added:             nonNil(report.Added()),
		Removed:           nonNil(report.Removed()),
		Modified:          nonNil(report.Modified()),
		Preferences:       nonNil(report.Preferences),
		Databases:         nonNil(report.Databases),
	}
	out.Summary = jsonSummary{
		Added:       len(out.Added),
		Removed:     len(out.Removed),
		Modified:    len(out.Modified),
		Preferences: len(out.Preferences),
		Databases:   len(out.Databases),
	}

	data, err := jsonAPI.MarshalIndent(out, "", "  ")
	if err != nil {
		s.logger.Errorf(ctx, err, "Failed to encode JSON report")
		return "", errors.Wrap(err, errors.CodeInternal, "encoding JSON report")
	}
	data = append(data, '\n')

	location, err := reporting.WriteArtifact(s.output, reporting.ArtifactPath(report, ".json"), data)
	if err != nil {
		return "", err
	}
	s.logger.Debugf(ctx, "JSON report written to %s", location)
	return location, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
