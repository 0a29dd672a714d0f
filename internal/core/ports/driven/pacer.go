package driven

import "context"

// Pacer spaces consecutive outbound sync calls.
type Pacer interface {
	// Wait blocks until the next call may be issued.
	// It returns ctx.Err() if the context ends first.
	Wait(ctx context.Context) error
}
