package driven

import (
	"context"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// DeviceClient talks to the remote device-management API.
// There is exactly one wire implementation; tests supply fakes.
type DeviceClient interface {
	// ListDevices returns every managed device visible to the session,
	// narrowed by query when the client supports server-side filtering.
	// Failures are returned as *domain.TransportError.
	ListDevices(ctx context.Context, query domain.DeviceQuery) ([]domain.Device, error)

	// TriggerSync enqueues a sync for one device. Success means the server
	// accepted the request, not that the device has checked in.
	// Exactly one outbound call is made per invocation.
	TriggerSync(ctx context.Context, deviceID string) error

	// Capabilities returns what this client supports.
	Capabilities() ClientCapabilities
}

// ClientCapabilities describes optional DeviceClient behaviour.
type ClientCapabilities struct {
	// SupportsPlatformFilter indicates ListDevices honours DeviceQuery.Tags.
	SupportsPlatformFilter bool
}
