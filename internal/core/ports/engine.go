package ports

import (
	"context"
	"iter"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
)

type CompareRequest struct {
	Target     domain.Target
	SourcePath string
}

type CreateRequest struct {
	Target     domain.Target
	SourcePath string
	Overwrite  bool
}

// Orchestrator drives baseline creation and comparison runs. Runs for the same
// target are serialized; runs for different targets are independent.
type Orchestrator interface {
	HasBaseline(ctx context.Context, target domain.Target) (bool, error)
	CreateBaseline(ctx context.Context, req CreateRequest) (*domain.Baseline, error)
	Compare(ctx context.Context, req CompareRequest) (*domain.ComparisonReport, error)
	ListBaselines(ctx context.Context) iter.Seq2[domain.BaselineSummary, error]
	RemoveBaseline(ctx context.Context, target domain.Target) error
}
