package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/olusolaa/sandbox-differ/internal/adapters/acquisition/local"
	"github.com/olusolaa/sandbox-differ/internal/adapters/remote/s3"
	"github.com/olusolaa/sandbox-differ/internal/adapters/store/fsstore"
	"github.com/olusolaa/sandbox-differ/internal/log"
	"github.com/olusolaa/sandbox-differ/internal/reporting/json"
	"github.com/olusolaa/sandbox-differ/internal/reporting/text"
	"github.com/olusolaa/sandbox-differ/internal/structured"
)

// TargetPlaceholder is replaced by the target name in SourceTemplate.
const TargetPlaceholder = "{target}"

type Config struct {
	Settings    SettingsConfig       `mapstructure:"settings"`
	Store       fsstore.Config       `mapstructure:"store"`
	Acquisition AcquisitionConfig    `mapstructure:"acquisition"`
	Structured  structured.Locations `mapstructure:"structured"`
	Reporting   ReportingConfig      `mapstructure:"reporting"`
	// Metadata holds environment facts recorded with every new baseline.
	Metadata map[string]string `mapstructure:"metadata"`
}

type SettingsConfig struct {
	LogLevel      log.Level  `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat     log.Format `mapstructure:"log_format" validate:"required,oneof=text json"`
	Concurrency   int        `mapstructure:"concurrency" validate:"min=1,max=256"`
	KeepSnapshots bool       `mapstructure:"keep_snapshots"`
}

type AcquisitionConfig struct {
	Type string `mapstructure:"type" validate:"required,oneof=local"`
	// Timeout bounds fetching the current tree. Zero disables it.
	Timeout        time.Duration `mapstructure:"timeout" validate:"min=0s"`
	SourceTemplate string        `mapstructure:"source_template" validate:"required,contains={target}"`
	Local          local.Config  `mapstructure:"local"`
}

type ReportingConfig struct {
	// Sinks lists the report outputs. The text artifact is always written.
	Sinks []string    `mapstructure:"sinks" validate:"dive,oneof=text json s3"`
	Text  text.Config `mapstructure:"text"`
	S3    s3.Config   `mapstructure:"s3"`
}

// SourcePath resolves the device path of target's private storage tree.
func (a AcquisitionConfig) SourcePath(target string) string {
	return strings.ReplaceAll(a.SourceTemplate, TargetPlaceholder, target)
}

// Enabled reports whether the named sink is configured. Text is implicit.
func (r ReportingConfig) Enabled(sink string) bool {
	if sink == text.SinkTypeText {
		return true
	}
	for _, s := range r.Sinks {
		if s == sink {
			return true
		}
	}
	return false
}

func (c *Config) BaselineDir() string {
	return filepath.Join(c.Store.Dir, "baselines")
}

func (c *Config) ReportDir() string {
	return filepath.Join(c.Store.Dir, "reports")
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:    log.LevelInfo,
			LogFormat:   log.FormatText,
			Concurrency: 8,
		},
		Store: fsstore.Config{Dir: "sandbox-differ-output"},
		Acquisition: AcquisitionConfig{
			Type:           local.FetcherTypeLocal,
			Timeout:        10 * time.Minute,
			SourceTemplate: "/data/data/" + TargetPlaceholder,
			Local:          local.Config{MountRoot: "/"},
		},
		Structured: structured.DefaultLocations(),
		Reporting: ReportingConfig{
			Sinks: []string{text.SinkTypeText},
			Text:  text.Config{NoColor: false},
		},
		Metadata: map[string]string{},
	}
}

// SinkTypes lists every sink name a configuration may enable.
func SinkTypes() []string {
	return []string{text.SinkTypeText, json.SinkTypeJSON, s3.SinkTypeS3}
}
