package ports

import (
	"context"
	"iter"

	"github.com/go-git/go-billy/v5"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
)

type SaveRequest struct {
	Target       domain.Target
	Fingerprints domain.FingerprintSet
	Tree         billy.Filesystem
	Metadata     domain.Metadata
	// Overwrite confirms replacing an existing baseline.
	Overwrite bool
}

type BaselineStore interface {
	Save(ctx context.Context, req SaveRequest) (*domain.Baseline, error)
	Load(ctx context.Context, target domain.Target) (*domain.Baseline, error)
	Exists(ctx context.Context, target domain.Target) (bool, error)
	List(ctx context.Context) iter.Seq2[domain.BaselineSummary, error]
	Remove(ctx context.Context, target domain.Target) error
}
