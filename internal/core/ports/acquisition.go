package ports

import (
	"context"

	"github.com/go-git/go-billy/v5"
)

// Snapshot is a transient local copy of the current tree. Cleanup releases any
// scratch space; it is safe to call more than once.
type Snapshot struct {
	Root    billy.Filesystem
	Dir     string
	Cleanup func() error
}

//go:generate mockery --name TreeFetcher --output ./mocks --outpkg mocks --case underscore

// TreeFetcher acquires a device tree into local storage. Failures carry
// errors.CodeTransport or errors.CodePermission.
type TreeFetcher interface {
	Type() string
	FetchTree(ctx context.Context, sourcePath string) (*Snapshot, error)
}

//go:generate mockery --name MetadataProvider --output ./mocks --outpkg mocks --case underscore

// MetadataProvider supplies opaque environment facts attached to a baseline.
type MetadataProvider interface {
	Collect(ctx context.Context, target string) (map[string]string, error)
}
