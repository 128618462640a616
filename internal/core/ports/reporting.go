package ports

import (
	"context"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
)

//go:generate mockery --name ReportSink --output ./mocks --outpkg mocks --case underscore

// ReportSink persists a comparison report and returns where it went.
type ReportSink interface {
	Type() string
	Write(ctx context.Context, report *domain.ComparisonReport) (string, error)
}
