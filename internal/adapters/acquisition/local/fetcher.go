package local

import (
	"context"
	stderrs "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

const FetcherTypeLocal = "local"

type Config struct {
	// MountRoot is where the device filesystem is exposed locally, e.g. an
	// adb-pulled or FUSE-mounted copy. Source paths resolve below it.
	MountRoot      string `mapstructure:"mount_root" validate:"required"`
	BytesPerSecond int    `mapstructure:"bytes_per_second" validate:"min=0"`
	ScratchDir     string `mapstructure:"scratch_dir"`
}

// Fetcher copies a source tree from the local mount into a private scratch
// directory, so later steps never read a tree that is still changing on the
// device.
type Fetcher struct {
	cfg     Config
	limiter *byteLimiter
	logger  ports.Logger
}

var _ ports.TreeFetcher = (*Fetcher)(nil)

func NewFetcher(cfg Config, logger ports.Logger) (*Fetcher, error) {
	if cfg.MountRoot == "" {
		return nil, errors.New(errors.CodeConfigValidation, "local fetcher requires a mount root")
	}
	log := logger.WithFields(map[string]any{"fetcher": FetcherTypeLocal, "mount_root": cfg.MountRoot})
	if cfg.BytesPerSecond > 0 {
		log.Debugf(context.Background(), "Throttling acquisition to %d bytes/s", cfg.BytesPerSecond)
	}
	return &Fetcher{
		cfg:     cfg,
		limiter: newByteLimiter(cfg.BytesPerSecond),
		logger:  log,
	}, nil
}

func (f *Fetcher) Type() string { return FetcherTypeLocal }

func (f *Fetcher) FetchTree(ctx context.Context, sourcePath string) (*ports.Snapshot, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	src := filepath.Join(f.cfg.MountRoot, filepath.FromSlash(sourcePath))
	info, err := os.Stat(src)
	if err != nil {
		return nil, classifySourceError(err, src)
	}
	if !info.IsDir() {
		return nil, errors.NewUserFacing(errors.CodeTransport,
			fmt.Sprintf("source %s is not a directory", src),
			"Point --source at the application's data directory.")
	}

	scratch, err := os.MkdirTemp(f.cfg.ScratchDir, "sandbox-differ-snapshot-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "creating snapshot scratch directory")
	}

	f.logger.Infof(ctx, "Acquiring %s into %s", src, scratch)
	dst := osfs.New(scratch)
	files, err := f.copyDir(ctx, osfs.New(src), dst, "")
	if err != nil {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			f.logger.Warnf(ctx, "Failed to remove scratch directory %s: %v", scratch, rmErr)
		}
		return nil, err
	}
	f.logger.Debugf(ctx, "Acquired %d files from %s", files, src)

	var once sync.Once
	var cleanupErr error
	return &ports.Snapshot{
		Root: dst,
		Dir:  scratch,
		Cleanup: func() error {
			once.Do(func() { cleanupErr = os.RemoveAll(scratch) })
			return cleanupErr
		},
	}, nil
}

func (f *Fetcher) copyDir(ctx context.Context, src, dst billy.Filesystem, dir string) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	name := dir
	if name == "" {
		name = "."
	}
	entries, err := src.ReadDir(name)
	if err != nil {
		return 0, classifySourceError(err, name)
	}
	if err := dst.MkdirAll(name, 0o755); err != nil {
		return 0, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("creating %s in snapshot", name))
	}

	copied := 0
	for _, entry := range entries {
		rel := path.Join(dir, entry.Name())
		switch {
		case entry.Mode()&os.ModeSymlink != 0:
			f.logger.Debugf(ctx, "Not following symlink %s", rel)
		case entry.IsDir():
			n, err := f.copyDir(ctx, src, dst, rel)
			if err != nil {
				return copied, err
			}
			copied += n
		case entry.Mode().IsRegular():
			if err := f.copyFile(ctx, src, dst, rel, entry.Mode().Perm()); err != nil {
				return copied, err
			}
			copied++
		default:
			f.logger.Debugf(ctx, "Skipping special file %s", rel)
		}
	}
	return copied, nil
}

func (f *Fetcher) copyFile(ctx context.Context, src, dst billy.Filesystem, rel string, perm os.FileMode) error {
	in, err := src.Open(rel)
	if err != nil {
		return classifySourceError(err, rel)
	}
	defer in.Close()

	out, err := dst.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, fmt.Sprintf("creating %s in snapshot", rel))
	}

	_, copyErr := io.Copy(out, &throttledReader{ctx: ctx, r: in, limiter: f.limiter})
	closeErr := out.Close()
	if copyErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classifySourceError(copyErr, rel)
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, errors.CodeIO, fmt.Sprintf("closing %s in snapshot", rel))
	}
	return nil
}

func classifySourceError(err error, name string) error {
	switch {
	case stderrs.Is(err, fs.ErrPermission):
		return errors.WrapUserFacing(err, errors.CodePermission,
			fmt.Sprintf("insufficient privileges to read %s", name),
			"Acquire the tree with elevated privileges (root or run-as) and retry.")
	case stderrs.Is(err, fs.ErrNotExist):
		return errors.WrapUserFacing(err, errors.CodeTransport,
			fmt.Sprintf("source tree %s is not reachable", name),
			"Check that the device is connected and its data directory is mounted.")
	default:
		return errors.Wrap(err, errors.CodeTransport, fmt.Sprintf("reading %s from device", name))
	}
}
