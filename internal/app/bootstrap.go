package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/olusolaa/sandbox-differ/internal/adapters/acquisition/local"
	"github.com/olusolaa/sandbox-differ/internal/adapters/metadata/static"
	"github.com/olusolaa/sandbox-differ/internal/adapters/remote/s3"
	"github.com/olusolaa/sandbox-differ/internal/adapters/store/fsstore"
	"github.com/olusolaa/sandbox-differ/internal/config"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/core/service"
	"github.com/olusolaa/sandbox-differ/internal/errors"
	"github.com/olusolaa/sandbox-differ/internal/log"
	"github.com/olusolaa/sandbox-differ/internal/reporting/json"
	"github.com/olusolaa/sandbox-differ/internal/reporting/text"
)

// Options carries what the command line knows that the config file does not.
type Options struct {
	// Console receives the human-readable run summary. Defaults to stdout.
	Console io.Writer
	// LogOutput defaults to stderr.
	LogOutput io.Writer
	// Metadata overrides configured environment facts (--meta).
	Metadata map[string]string
}

// RegisterDefaults seeds v with every configuration key so that environment
// variables resolve even when no config file mentions the key.
func RegisterDefaults(v *viper.Viper) {
	var raw map[string]any
	if err := mapstructure.Decode(config.DefaultConfig(), &raw); err != nil {
		return
	}
	for key, value := range flatten("", raw) {
		v.SetDefault(key, value)
	}
}

func flatten(prefix string, in map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := asMap(val); ok && len(nested) > 0 {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	var m map[string]any
	if err := mapstructure.Decode(v, &m); err != nil {
		return nil, false
	}
	return m, true
}

// LoadConfig decodes v over the defaults and validates the result.
func LoadConfig(ctx context.Context, v *viper.Viper) (*config.Config, error) {
	cfg := config.DefaultConfig()
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, errors.WrapUserFacing(err, errors.CodeConfigParseError,
			"failed to parse configuration", "Check the types of the values in your configuration file.")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(ctx, cfg); err != nil {
		var details strings.Builder
		details.WriteString("Configuration validation failed:")
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range validationErrors {
				details.WriteString(fmt.Sprintf("\n - Field '%s': Failed on '%s' validation (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			details.WriteString(" " + err.Error())
		}
		return nil, errors.NewUserFacing(errors.CodeConfigValidation, details.String(), "Please check your configuration file or flags.")
	}
	return cfg, nil
}

func BuildApplicationFromViper(ctx context.Context, v *viper.Viper, opts Options) (*Application, error) {
	cfg, err := LoadConfig(ctx, v)
	if err != nil {
		return nil, err
	}

	logger, err := log.NewLogger(log.Config{Level: cfg.Settings.LogLevel, Format: cfg.Settings.LogFormat, Output: opts.LogOutput})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	} else {
		logger.Debugf(ctx, "No configuration file found, using defaults/env/flags.")
	}

	registry := service.NewComponentRegistry()

	switch cfg.Acquisition.Type {
	case local.FetcherTypeLocal:
		fetcher, err := local.NewFetcher(cfg.Acquisition.Local, logger)
		if err != nil {
			return nil, err
		}
		if err := registry.RegisterFetcher(fetcher); err != nil {
			return nil, err
		}
		logger.Debugf(ctx, "Using local acquisition from %s", cfg.Acquisition.Local.MountRoot)
	default:
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("unsupported acquisition type: %s", cfg.Acquisition.Type), "Supported: local")
	}

	if err := registerSinks(ctx, registry, cfg, opts, logger); err != nil {
		return nil, err
	}

	baselineDir, err := filepath.Abs(cfg.BaselineDir())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, "resolving store directory")
	}
	store := fsstore.New(osfs.New(baselineDir), logger)
	logger.Debugf(ctx, "Baselines stored in %s", baselineDir)

	engine, err := service.NewEngine(
		registry,
		store,
		static.New(cfg.Metadata, opts.Metadata),
		service.Settings{
			FetcherType:        cfg.Acquisition.Type,
			AcquisitionTimeout: cfg.Acquisition.Timeout,
			KeepSnapshots:      cfg.Settings.KeepSnapshots,
			Concurrency:        cfg.Settings.Concurrency,
			Locations:          cfg.Structured,
		},
		logger.WithFields(map[string]any{"component": "engine"}),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize comparison engine")
	}

	logger.Debugf(ctx, "Application bootstrap complete")
	return NewApplication(engine, logger, cfg), nil
}

func registerSinks(ctx context.Context, registry *service.ComponentRegistry, cfg *config.Config, opts Options, logger ports.Logger) error {
	reportDir, err := filepath.Abs(cfg.ReportDir())
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigValidation, "resolving report directory")
	}
	reports := osfs.New(reportDir)

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if err := registry.RegisterSink(text.NewSink(cfg.Reporting.Text, reports, console, logger)); err != nil {
		return err
	}

	if cfg.Reporting.Enabled(json.SinkTypeJSON) {
		if err := registry.RegisterSink(json.NewSink(reports, logger)); err != nil {
			return err
		}
	}

	if cfg.Reporting.Enabled(s3.SinkTypeS3) {
		awsCfg, err := s3.LoadAWSConfig(ctx, cfg.Reporting.S3.Region)
		if err != nil {
			return err
		}
		sink, err := s3.NewSink(awsCfg, cfg.Reporting.S3, logger)
		if err != nil {
			return errors.WrapUserFacing(err, errors.CodeConfigValidation,
				"the s3 report sink is enabled but not configured", "Set reporting.s3.bucket.")
		}
		if err := registry.RegisterSink(sink); err != nil {
			return err
		}
		logger.Debugf(ctx, "Mirroring reports to s3://%s/%s", cfg.Reporting.S3.Bucket, cfg.Reporting.S3.Prefix)
	}
	return nil
}
