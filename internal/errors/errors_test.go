package errors_test

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/sandbox-differ/internal/errors"
)

func TestWrap(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, errors.Wrap(nil, errors.CodeIO, "ignored"))
	})

	t.Run("plain error", func(t *testing.T) {
		cause := stderrs.New("disk full")
		err := errors.Wrap(cause, errors.CodeIO, "writing fingerprints")
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeIO, err.Code)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "[IO_ERROR] writing fingerprints: disk full", err.Error())
		assert.False(t, err.IsUserFacing)
	})

	t.Run("keeps innermost classification", func(t *testing.T) {
		inner := errors.New(errors.CodeTransport, "device offline")
		err := errors.Wrap(fmt.Errorf("fetch: %w", inner), errors.CodeIO, "outer")
		assert.Equal(t, errors.CodeTransport, err.Code)
		assert.Same(t, inner, err)
	})
}

func TestWrapUserFacing(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		err := errors.WrapUserFacing(context.DeadlineExceeded, errors.CodeTimeout, "acquisition timed out", "Retry later.")
		assert.Equal(t, errors.CodeTimeout, err.Code)
		assert.True(t, err.IsUserFacing)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("app error keeps code", func(t *testing.T) {
		inner := errors.New(errors.CodeBaselineNotFound, "no baseline for app.x")
		err := errors.WrapUserFacing(inner, errors.CodeInternal, "No baseline exists for target app.x", "Create one first.")
		assert.Equal(t, errors.CodeBaselineNotFound, err.Code)
		assert.Equal(t, inner.Error(), err.InternalDetails)
		assert.True(t, errors.Is(err, errors.CodeBaselineNotFound))
	})
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrs.New("x")))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(nil))
	wrapped := fmt.Errorf("ctx: %w", errors.New(errors.CodeBaselineConflict, "exists"))
	assert.Equal(t, errors.CodeBaselineConflict, errors.GetCode(wrapped))
}

func TestGetUserFacingMessage(t *testing.T) {
	t.Run("not user facing", func(t *testing.T) {
		msg, suggestion, ok := errors.GetUserFacingMessage(errors.New(errors.CodeIO, "boom"))
		assert.False(t, ok)
		assert.Equal(t, "An unexpected error occurred.", msg)
		assert.Equal(t, "Check logs for more details.", suggestion)
	})

	t.Run("nested user facing", func(t *testing.T) {
		uf := errors.NewUserFacing(errors.CodePermission, "cannot read /data/data/app.x", "Grant root access.")
		err := fmt.Errorf("run failed: %w", errors.Wrap(uf, errors.CodeIO, "ignored"))
		msg, suggestion, ok := errors.GetUserFacingMessage(err)
		require.True(t, ok)
		assert.Equal(t, "cannot read /data/data/app.x", msg)
		assert.Equal(t, "Grant root access.", suggestion)
	})
}
