package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out successive requests to the same site.
// The first Wait returns immediately; later ones block until interval has
// passed since the previous one. A zero interval disables throttling.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle allowing one request per interval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
