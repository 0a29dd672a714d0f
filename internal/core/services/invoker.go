package services

import (
	"context"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
)

// SyncInvoker issues the remote sync trigger for one device.
type SyncInvoker struct {
	client driven.DeviceClient
}

// NewSyncInvoker creates an invoker backed by client.
func NewSyncInvoker(client driven.DeviceClient) *SyncInvoker {
	return &SyncInvoker{client: client}
}

// TriggerSync makes exactly one action call for deviceID.
// Any failure is returned as a *domain.SyncError and is not retried.
func (i *SyncInvoker) TriggerSync(ctx context.Context, deviceID string) error {
	if err := i.client.TriggerSync(ctx, deviceID); err != nil {
		return &domain.SyncError{DeviceID: deviceID, Err: asTransport("sync device", err)}
	}
	return nil
}
