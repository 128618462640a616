package local

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteLimiter(t *testing.T) {
	assert.Nil(t, newByteLimiter(0))
	assert.Nil(t, newByteLimiter(-5))
	assert.Equal(t, minBurstBytes, newByteLimiter(10).burst)
	assert.Equal(t, maxBurstBytes, newByteLimiter(10<<20).burst)
	assert.Equal(t, 64*1024, newByteLimiter(64*1024).burst)
}

func TestByteLimiter_WaitLargerThanBurst(t *testing.T) {
	l := newByteLimiter(1 << 30)
	require.NoError(t, l.wait(context.Background(), 3*maxBurstBytes+1))
}

func TestByteLimiter_NilIsUnlimited(t *testing.T) {
	var l *byteLimiter
	require.NoError(t, l.wait(context.Background(), 1<<30))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.wait(ctx, 1), context.Canceled)
}

func TestThrottledReader(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 10_000)
	r := &throttledReader{ctx: context.Background(), r: bytes.NewReader(payload), limiter: newByteLimiter(1 << 30)}
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
