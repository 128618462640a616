package tree_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/errors"
	"github.com/olusolaa/sandbox-differ/internal/log"
	"github.com/olusolaa/sandbox-differ/internal/tree"
)

func writeTree(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
}

// vanishingFS lists gone like any other file but fails to open it, as if it
// was deleted between the directory walk and hashing.
type vanishingFS struct {
	billy.Filesystem
	gone string
}

func (v vanishingFS) Open(name string) (billy.File, error) {
	if name == v.gone {
		return nil, os.ErrNotExist
	}
	return v.Filesystem.Open(name)
}

func TestHasher_Hash(t *testing.T) {
	ctx := context.Background()
	hasher := tree.NewHasher(4, log.NewDiscardLogger())

	t.Run("Nested Tree", func(t *testing.T) {
		fs := memfs.New()
		writeTree(t, fs, map[string]string{
			"a.txt":                   "v1",
			"shared_prefs/prefs.xml":  "<map/>",
			"databases/app.db":        "SQLite format 3",
			"files/deep/nested/x.bin": "x",
		})

		set, err := hasher.Hash(ctx, fs)
		require.NoError(t, err)
		assert.Equal(t, domain.FingerprintSet{
			"a.txt":                   digest.FromString("v1"),
			"shared_prefs/prefs.xml":  digest.FromString("<map/>"),
			"databases/app.db":        digest.FromString("SQLite format 3"),
			"files/deep/nested/x.bin": digest.FromString("x"),
		}, set)
	})

	t.Run("Empty Tree", func(t *testing.T) {
		set, err := hasher.Hash(ctx, memfs.New())
		require.NoError(t, err)
		assert.Empty(t, set)
	})

	t.Run("Stable Across Calls", func(t *testing.T) {
		fs := memfs.New()
		writeTree(t, fs, map[string]string{"a": "1", "b/c": "2", "b/d": "3"})

		first, err := hasher.Hash(ctx, fs)
		require.NoError(t, err)
		second, err := hasher.Hash(ctx, fs)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Skips Symlinks", func(t *testing.T) {
		fs := memfs.New()
		writeTree(t, fs, map[string]string{"real.txt": "data"})
		require.NoError(t, fs.Symlink("real.txt", "link.txt"))
		require.NoError(t, fs.Symlink(".", "loop"))

		set, err := hasher.Hash(ctx, fs)
		require.NoError(t, err)
		assert.Equal(t, []string{"real.txt"}, set.Paths())
	})

	t.Run("Missing Root", func(t *testing.T) {
		fs := osfs.New(filepath.Join(t.TempDir(), "does-not-exist"))
		set, err := hasher.Hash(ctx, fs)
		require.Error(t, err)
		assert.Nil(t, set)
		assert.True(t, errors.Is(err, errors.CodeIO))
	})

	t.Run("File Vanishes Mid-Walk", func(t *testing.T) {
		fs := memfs.New()
		writeTree(t, fs, map[string]string{"a/kept.txt": "1", "b/gone.txt": "2", "c.txt": "3"})

		set, err := hasher.Hash(ctx, vanishingFS{Filesystem: fs, gone: "b/gone.txt"})
		require.Error(t, err)
		assert.Nil(t, set)
		assert.True(t, errors.Is(err, errors.CodeIO))
		assert.Contains(t, err.Error(), "b/gone.txt")
	})

	t.Run("Context Cancelled", func(t *testing.T) {
		fs := memfs.New()
		writeTree(t, fs, map[string]string{"a": "1"})
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		set, err := hasher.Hash(cancelCtx, fs)
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, set)
	})
}

func TestHasher_IgnoresFileMetadata(t *testing.T) {
	ctx := context.Background()
	hasher := tree.NewHasher(2, log.NewDiscardLogger())

	dirA := t.TempDir()
	dirB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "same.txt"), []byte("payload"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "same.txt"), []byte("payload"), 0o644))
	old := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dirB, "same.txt"), old, old))

	setA, err := hasher.Hash(ctx, osfs.New(dirA))
	require.NoError(t, err)
	setB, err := hasher.Hash(ctx, osfs.New(dirB))
	require.NoError(t, err)

	assert.Equal(t, setA, setB)
	assert.Equal(t, digest.FromString("payload"), setA["same.txt"])
}

func TestHasher_OSSymlinkNotFollowed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "f.txt"), []byte("f"), 0o644))
	require.NoError(t, os.Symlink(dir, filepath.Join(dir, "sub", "cycle")))

	set, err := tree.NewHasher(1, log.NewDiscardLogger()).Hash(context.Background(), osfs.New(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/f.txt"}, set.Paths())
}
