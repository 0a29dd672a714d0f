// Package pacing spaces outbound sync calls with a token-bucket limiter.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
)

// Ensure Interval implements the interface.
var _ driven.Pacer = (*Interval)(nil)

// Interval enforces a fixed minimum spacing between calls.
// The first call passes immediately; each later call waits until delay has
// elapsed since the previous one.
type Interval struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewInterval creates a pacer with the given spacing.
// A non-positive delay disables pacing.
func NewInterval(delay time.Duration) *Interval {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Interval{
		limiter: rate.NewLimiter(limit, 1),
		delay:   delay,
	}
}

// Wait blocks until the next call may be issued or ctx ends.
func (p *Interval) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Delay returns the configured spacing.
func (p *Interval) Delay() time.Duration {
	return p.delay
}
