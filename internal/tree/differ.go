package tree

import (
	"sort"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
)

// Diff reconciles two fingerprint sets keyed by relative path. Unchanged paths
// are omitted. Records come grouped as added, removed, then modified, each
// group sorted by path. Renames surface as one removal plus one addition.
func Diff(baseline, current domain.FingerprintSet) []domain.ChangeRecord {
	var added, removed, modified []domain.ChangeRecord

	for p, newHash := range current {
		oldHash, ok := baseline[p]
		switch {
		case !ok:
			added = append(added, domain.ChangeRecord{Kind: domain.ChangeAdded, Path: p, NewHash: newHash})
		case oldHash != newHash:
			modified = append(modified, domain.ChangeRecord{Kind: domain.ChangeModified, Path: p, OldHash: oldHash, NewHash: newHash})
		}
	}
	for p, oldHash := range baseline {
		if _, ok := current[p]; !ok {
			removed = append(removed, domain.ChangeRecord{Kind: domain.ChangeRemoved, Path: p, OldHash: oldHash})
		}
	}

	sortByPath(added)
	sortByPath(removed)
	sortByPath(modified)

	records := make([]domain.ChangeRecord, 0, len(added)+len(removed)+len(modified))
	records = append(records, added...)
	records = append(records, removed...)
	return append(records, modified...)
}

func sortByPath(records []domain.ChangeRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
}
