package domain

import (
	"time"

	"github.com/go-git/go-billy/v5"
)

type Metadata struct {
	CreatedAt   time.Time         `json:"created_at"`
	Environment map[string]string `json:"environment"`
}

// Baseline is the persisted reference snapshot of a Target. Tree is a view on
// the store's raw copy and must be treated as read-only.
type Baseline struct {
	Target       Target
	Metadata     Metadata
	Fingerprints FingerprintSet
	Tree         billy.Filesystem
}

type BaselineSummary struct {
	Target   Target
	Metadata Metadata
}
