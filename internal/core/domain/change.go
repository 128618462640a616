package domain

import "github.com/opencontainers/go-digest"

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "ADDED"
	ChangeRemoved  ChangeKind = "REMOVED"
	ChangeModified ChangeKind = "MODIFIED"
)

func (k ChangeKind) String() string {
	return string(k)
}

// ChangeRecord is one path-level difference. OldHash is empty for ADDED,
// NewHash is empty for REMOVED.
type ChangeRecord struct {
	Kind    ChangeKind    `json:"kind"`
	Path    string        `json:"path"`
	OldHash digest.Digest `json:"old_hash,omitempty"`
	NewHash digest.Digest `json:"new_hash,omitempty"`
}

// PreferenceChange describes a key-value store file under a paired preference
// directory. Diff holds a unified line diff unless New is set.
type PreferenceChange struct {
	Path string `json:"path"`
	New  bool   `json:"new"`
	Diff string `json:"diff,omitempty"`
}

// DatabaseChange is hash-level only; the database contents are never parsed.
type DatabaseChange struct {
	Path    string        `json:"path"`
	New     bool          `json:"new"`
	OldHash digest.Digest `json:"old_hash,omitempty"`
	NewHash digest.Digest `json:"new_hash"`
}
