package reporting_test

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/reporting"
)

func TestArtifactName(t *testing.T) {
	local := time.FixedZone("UTC+2", 2*3600)
	r := &domain.ComparisonReport{
		ID:        "1f0c2a9b-7e55-4b7e-9a49-0f4d3f1a2b3c",
		Target:    "app.x",
		CreatedAt: time.Date(2026, 10, 19, 12, 15, 0, 0, local),
	}
	assert.Equal(t, "20261019T101500Z_1f0c2a9b", reporting.ArtifactName(r))
	assert.Equal(t, "app.x/20261019T101500Z_1f0c2a9b.txt", reporting.ArtifactPath(r, ".txt"))

	r.ID = "ab"
	assert.Equal(t, "20261019T101500Z_ab", reporting.ArtifactName(r))
}

func TestWriteArtifact(t *testing.T) {
	t.Run("memfs", func(t *testing.T) {
		fs := memfs.New()
		location, err := reporting.WriteArtifact(fs, "app.x/r.txt", []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, "/app.x/r.txt", location)
		got, err := util.ReadFile(fs, "app.x/r.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got))
	})

	t.Run("osfs", func(t *testing.T) {
		dir := t.TempDir()
		location, err := reporting.WriteArtifact(osfs.New(dir), "app.x/r.txt", []byte("hello"))
		require.NoError(t, err)
		assert.FileExists(t, location)
	})
}
