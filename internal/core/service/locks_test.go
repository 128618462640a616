package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	ctx := context.Background()

	unlockA, err := k.Lock(ctx, "app.a")
	require.NoError(t, err)

	unlockB, err := k.Lock(ctx, "app.b")
	require.NoError(t, err, "different keys must not contend")
	unlockB()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(waitCtx, "app.a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlockA()
	unlockA2, err := k.Lock(ctx, "app.a")
	require.NoError(t, err)
	unlockA2()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
