package domain

import (
	"sort"

	"github.com/opencontainers/go-digest"
)

// FingerprintSet maps a forward-slash path, relative to the tree root, to the
// digest of the file's bytes. Only regular files are present.
type FingerprintSet map[string]digest.Digest

// Paths returns the keys in lexicographic order.
func (f FingerprintSet) Paths() []string {
	paths := make([]string, 0, len(f))
	for p := range f {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (f FingerprintSet) Lookup(path string) (digest.Digest, bool) {
	d, ok := f[path]
	return d, ok
}
