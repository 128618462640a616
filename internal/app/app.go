package app

import (
	"context"

	"github.com/olusolaa/sandbox-differ/internal/config"
	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
)

// Application ties the configured engine to the command line.
type Application struct {
	Engine ports.Orchestrator
	Logger ports.Logger
	Config *config.Config
}

func NewApplication(engine ports.Orchestrator, logger ports.Logger, cfg *config.Config) *Application {
	return &Application{
		Engine: engine,
		Logger: logger,
		Config: cfg,
	}
}

// SourcePath returns override when set, otherwise the configured template
// filled in for target.
func (a *Application) SourcePath(target domain.Target, override string) string {
	if override != "" {
		return override
	}
	return a.Config.Acquisition.SourcePath(target.String())
}

func (a *Application) CreateBaseline(ctx context.Context, target domain.Target, source string, overwrite bool) (*domain.Baseline, error) {
	a.Logger.Infof(ctx, "Starting baseline capture for %s...", target)

	baseline, err := a.Engine.CreateBaseline(ctx, ports.CreateRequest{
		Target:     target,
		SourcePath: a.SourcePath(target, source),
		Overwrite:  overwrite,
	})
	if err != nil {
		return nil, err
	}

	a.Logger.Infof(ctx, "Baseline capture for %s completed successfully", target)
	return baseline, nil
}

func (a *Application) Compare(ctx context.Context, target domain.Target, source string) (*domain.ComparisonReport, error) {
	a.Logger.Infof(ctx, "Starting comparison for %s...", target)

	report, err := a.Engine.Compare(ctx, ports.CompareRequest{
		Target:     target,
		SourcePath: a.SourcePath(target, source),
	})
	if err != nil {
		return nil, err
	}

	a.Logger.Infof(ctx, "Comparison for %s completed successfully", target)
	return report, nil
}
