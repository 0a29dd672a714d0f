package driving

import (
	"context"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// BulkSyncOrchestrator resolves target devices and triggers sync on each.
//
// Runs are strictly sequential: sync calls are issued one at a time, in
// order, spaced by the configured pacing interval. Only sync calls are
// paced: a name without a matching device is recorded at once and never
// waits.
type BulkSyncOrchestrator interface {
	// SyncByNames syncs each named device in the given order.
	// Names without a matching device are recorded as not found.
	// Duplicates are processed independently.
	SyncByNames(ctx context.Context, names []string, opts SyncOptions) (*domain.ResultReport, error)

	// SyncByPlatform syncs every device of a platform.
	SyncByPlatform(ctx context.Context, platform domain.Platform, opts SyncOptions) (*domain.ResultReport, error)

	// SyncAllPlatforms runs SyncByPlatform for each platform in order.
	// A fetch failure for one platform does not abort the others.
	SyncAllPlatforms(ctx context.Context, platforms []domain.Platform, opts SyncOptions) (*domain.AggregateReport, error)
}

// SyncOptions tunes a single run.
type SyncOptions struct {
	// Progress, if set, receives an event after each device is processed.
	// It is called synchronously from the run.
	Progress func(domain.ProgressEvent)
}

// Emit sends an event to the progress callback, if any.
func (o SyncOptions) Emit(ev domain.ProgressEvent) {
	if o.Progress != nil {
		o.Progress(ev)
	}
}
