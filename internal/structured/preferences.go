package structured

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
)

const diffContextLines = 3

// PreferenceComparer line-diffs key-value preference files found under paired
// preference directories.
type PreferenceComparer struct {
	location FormatLocation
	logger   ports.Logger
}

func NewPreferenceComparer(location FormatLocation, logger ports.Logger) *PreferenceComparer {
	return &PreferenceComparer{
		location: location,
		logger:   logger.WithFields(map[string]any{"component": "preference_comparer"}),
	}
}

// Compare never writes to either tree. Unreadable files are logged and
// treated as absent; only cancellation is returned as an error.
func (c *PreferenceComparer) Compare(
	ctx context.Context,
	baselineTree, currentTree billy.Filesystem,
	baseline, current domain.FingerprintSet,
) ([]domain.PreferenceChange, error) {
	var changes []domain.PreferenceChange

	for _, p := range c.location.pairedFiles(baseline, current) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		oldHash, inBaseline := baseline[p]
		if inBaseline && oldHash == current[p] {
			continue
		}

		newContent, err := util.ReadFile(currentTree, p)
		if err != nil {
			c.logger.Warnf(ctx, "Skipping unreadable current preference file %s: %v", p, err)
			continue
		}

		if !inBaseline {
			changes = append(changes, domain.PreferenceChange{Path: p, New: true})
			continue
		}

		oldContent, err := util.ReadFile(baselineTree, p)
		if err != nil {
			c.logger.Warnf(ctx, "Baseline preference file %s unreadable, treating as new: %v", p, err)
			changes = append(changes, domain.PreferenceChange{Path: p, New: true})
			continue
		}

		diff, err := lineDiff(p, string(oldContent), string(newContent))
		if err != nil {
			c.logger.Warnf(ctx, "Could not diff preference file %s: %v", p, err)
			continue
		}
		if diff == "" {
			continue
		}
		changes = append(changes, domain.PreferenceChange{Path: p, Diff: diff})
	}

	c.logger.Debugf(ctx, "Preference comparison produced %d changes", len(changes))
	return changes, nil
}

func lineDiff(p, before, after string) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "baseline/" + p,
		ToFile:   "current/" + p,
		Context:  diffContextLines,
	})
	if err != nil {
		return "", fmt.Errorf("unified diff: %w", err)
	}
	return diff, nil
}
