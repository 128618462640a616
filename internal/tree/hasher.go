package tree

import (
	"context"
	_ "crypto/sha256"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

const defaultConcurrency = 8

// Hasher fingerprints every regular file of a tree.
type Hasher struct {
	concurrency int
	logger      ports.Logger
}

func NewHasher(concurrency int, logger ports.Logger) *Hasher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Hasher{
		concurrency: concurrency,
		logger:      logger.WithFields(map[string]any{"component": "hasher"}),
	}
}

// Hash walks root depth-first and digests the content of each regular file.
// Symlinks and special files are skipped, never followed. File metadata does
// not influence the result. The call fails as a whole: on any error no
// partial set is returned.
func (h *Hasher) Hash(ctx context.Context, root billy.Filesystem) (domain.FingerprintSet, error) {
	paths, err := h.listRegularFiles(ctx, root, "")
	if err != nil {
		return nil, err
	}
	h.logger.Debugf(ctx, "Hashing %d regular files", len(paths))

	digests := make([]digest.Digest, len(paths))
	g, childCtx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)

	for i, p := range paths {
		g.Go(func() error {
			if childCtx.Err() != nil {
				return childCtx.Err()
			}
			d, err := hashFile(root, p)
			if err != nil {
				return err
			}
			digests[i] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	set := make(domain.FingerprintSet, len(paths))
	for i, p := range paths {
		set[p] = digests[i]
	}
	return set, nil
}

// listRegularFiles returns the sorted relative paths of all regular files
// below dir.
func (h *Hasher) listRegularFiles(ctx context.Context, fs billy.Filesystem, dir string) ([]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	entries, err := fs.ReadDir(dirName(dir))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("reading directory %q", dirName(dir)))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var paths []string
	for _, entry := range entries {
		rel := path.Join(dir, entry.Name())
		mode := entry.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			h.logger.Debugf(ctx, "Skipping symlink %s", rel)
		case entry.IsDir():
			sub, err := h.listRegularFiles(ctx, fs, rel)
			if err != nil {
				return nil, err
			}
			paths = append(paths, sub...)
		case mode.IsRegular():
			paths = append(paths, rel)
		default:
			h.logger.Debugf(ctx, "Skipping special file %s (%s)", rel, mode.Type())
		}
	}
	return paths, nil
}

func hashFile(fs billy.Filesystem, name string) (digest.Digest, error) {
	f, err := fs.Open(name)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeIO, fmt.Sprintf("opening %q", name))
	}
	defer f.Close()

	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeIO, fmt.Sprintf("reading %q", name))
	}
	return d, nil
}

func dirName(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
