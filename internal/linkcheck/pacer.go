package linkcheck

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay is the pause taken before every probe to stay polite to
// remote servers.
const DefaultDelay = 500 * time.Millisecond

// Pacer decides how long to wait before the next probe.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay sleeps for the same duration before every probe.
type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoDelay returns a Pacer that never waits. Intended for tests.
func NoDelay() Pacer { return FixedDelay(0) }

// RateLimit spaces probes with a token bucket shared by all workers, so
// the request rate holds regardless of parallelism.
type RateLimit struct {
	limiter *rate.Limiter
}

// NewRateLimit allows perSecond probes per second with the given burst.
func NewRateLimit(perSecond float64, burst int) *RateLimit {
	if burst < 1 {
		burst = 1
	}
	return &RateLimit{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimit) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
