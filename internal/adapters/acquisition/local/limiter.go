package local

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const (
	// Largest single reservation; WaitN rejects requests above the burst.
	maxBurstBytes = 256 * 1024
	minBurstBytes = 4 * 1024
)

// byteLimiter caps copy throughput so pulling a large tree does not saturate
// the device link. A nil limiter means unlimited.
type byteLimiter struct {
	limiter *rate.Limiter
	burst   int
}

func newByteLimiter(bytesPerSecond int) *byteLimiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := bytesPerSecond
	if burst > maxBurstBytes {
		burst = maxBurstBytes
	}
	if burst < minBurstBytes {
		burst = minBurstBytes
	}
	return &byteLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		burst:   burst,
	}
}

func (l *byteLimiter) wait(ctx context.Context, n int) error {
	if l == nil {
		return ctx.Err()
	}
	for n > 0 {
		chunk := min(n, l.burst)
		if err := l.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *byteLimiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.wait(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
