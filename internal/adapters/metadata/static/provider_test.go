package static_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/sandbox-differ/internal/adapters/metadata/static"
	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

func TestProvider_Collect(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults Required Keys", func(t *testing.T) {
		got, err := static.New(nil, nil).Collect(ctx, "app.x")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			domain.KeyDevice:        domain.UnknownValue,
			domain.KeyOSVersion:     domain.UnknownValue,
			domain.KeyTargetVersion: domain.UnknownValue,
		}, got)
	})

	t.Run("Overrides Win", func(t *testing.T) {
		p := static.New(
			map[string]string{domain.KeyDevice: "emulator", "lab": "east"},
			map[string]string{domain.KeyDevice: "pixel-7", domain.KeyOSVersion: "14"},
		)
		got, err := p.Collect(ctx, "app.x")
		require.NoError(t, err)
		assert.Equal(t, "pixel-7", got[domain.KeyDevice])
		assert.Equal(t, "14", got[domain.KeyOSVersion])
		assert.Equal(t, domain.UnknownValue, got[domain.KeyTargetVersion])
		assert.Equal(t, "east", got["lab"])
	})

	t.Run("Blank Value Is Unknown", func(t *testing.T) {
		got, err := static.New(map[string]string{domain.KeyOSVersion: "  "}, nil).Collect(ctx, "app.x")
		require.NoError(t, err)
		assert.Equal(t, domain.UnknownValue, got[domain.KeyOSVersion])
	})

	t.Run("Returns A Copy", func(t *testing.T) {
		p := static.New(map[string]string{"lab": "east"}, nil)
		first, err := p.Collect(ctx, "app.x")
		require.NoError(t, err)
		first["lab"] = "west"
		second, err := p.Collect(ctx, "app.x")
		require.NoError(t, err)
		assert.Equal(t, "east", second["lab"])
	})

	t.Run("Cancelled", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := static.New(nil, nil).Collect(cancelCtx, "app.x")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParsePairs(t *testing.T) {
	got, err := static.ParsePairs([]string{"device=pixel-7", "os_version = 14", "note=a=b", "device=pixel-8"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"device": "pixel-8", "os_version": "14", "note": "a=b"}, got)

	for _, bad := range []string{"device", "=x", ""} {
		_, err := static.ParsePairs([]string{bad})
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, errors.CodeValidation))
	}
}
