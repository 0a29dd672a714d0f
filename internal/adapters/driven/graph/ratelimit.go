package graph

import (
	"context"
	"sync"
	"time"
)

// DefaultThrottleBackoff is used when a 429 carries no usable Retry-After.
const DefaultThrottleBackoff = 30 * time.Second

// throttle holds back requests after the server signals throttling.
// It never retries a request; it only delays the next one.
type throttle struct {
	mu      sync.Mutex
	retryAt time.Time
	now     func() time.Time
}

func newThrottle() *throttle {
	return &throttle{now: time.Now}
}

// Wait blocks until any recorded backoff has passed.
func (t *throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	retryAt := t.retryAt
	t.mu.Unlock()

	d := retryAt.Sub(t.now())
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Record sets a backoff of d, or the default when d is not positive.
// A later existing deadline is kept.
func (t *throttle) Record(d time.Duration) {
	if d <= 0 {
		d = DefaultThrottleBackoff
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if at := t.now().Add(d); at.After(t.retryAt) {
		t.retryAt = at
	}
}

// Until returns the remaining backoff.
func (t *throttle) Until() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d := t.retryAt.Sub(t.now()); d > 0 {
		return d
	}
	return 0
}
