package structured

import (
	"context"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
)

// DatabaseComparer flags embedded database files whose bytes changed. The
// databases themselves are never opened.
type DatabaseComparer struct {
	location FormatLocation
	logger   ports.Logger
}

func NewDatabaseComparer(location FormatLocation, logger ports.Logger) *DatabaseComparer {
	return &DatabaseComparer{
		location: location,
		logger:   logger.WithFields(map[string]any{"component": "database_comparer"}),
	}
}

func (c *DatabaseComparer) Compare(ctx context.Context, baseline, current domain.FingerprintSet) ([]domain.DatabaseChange, error) {
	var changes []domain.DatabaseChange

	for _, p := range c.location.pairedFiles(baseline, current) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		newHash := current[p]
		oldHash, ok := baseline[p]
		switch {
		case !ok:
			changes = append(changes, domain.DatabaseChange{Path: p, New: true, NewHash: newHash})
		case oldHash != newHash:
			changes = append(changes, domain.DatabaseChange{Path: p, OldHash: oldHash, NewHash: newHash})
		}
	}

	c.logger.Debugf(ctx, "Database comparison produced %d changes", len(changes))
	return changes, nil
}
