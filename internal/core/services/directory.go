package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/logger"
)

// DeviceDirectory is a read-through accessor over the remote device list.
//
// A single bulk fetch per run is shared by every name lookup in that run;
// lookups are linear scans over the snapshot.
type DeviceDirectory struct {
	client driven.DeviceClient
	now    func() time.Time
}

// NewDeviceDirectory creates a directory backed by client.
func NewDeviceDirectory(client driven.DeviceClient) *DeviceDirectory {
	return &DeviceDirectory{
		client: client,
		now:    time.Now,
	}
}

// FetchAll retrieves every managed device visible to the session.
// Failures are returned as transport errors; there is no retry.
func (d *DeviceDirectory) FetchAll(ctx context.Context) (*domain.DeviceSnapshot, error) {
	devices, err := d.client.ListDevices(ctx, domain.DeviceQuery{})
	if err != nil {
		return nil, asTransport("list devices", err)
	}
	logger.Debug("Fetched %d devices", len(devices))
	return domain.NewDeviceSnapshot(devices, d.now()), nil
}

// FetchByPlatform retrieves the devices of one platform.
// The server-side filter is used when the client supports it; the result
// is filtered locally either way.
func (d *DeviceDirectory) FetchByPlatform(ctx context.Context, platform domain.Platform) ([]domain.Device, error) {
	query := domain.DeviceQuery{}
	if d.client.Capabilities().SupportsPlatformFilter {
		query.Tags = platform.Tags()
	}

	devices, err := d.client.ListDevices(ctx, query)
	if err != nil {
		return nil, asTransport("list devices", err)
	}

	matched := domain.FilterByPlatform(devices, platform)
	logger.Debug("Fetched %d %s devices (%d listed)", len(matched), platform, len(devices))
	return matched, nil
}

// FindByName returns the first device in snapshot named name, or nil.
func (d *DeviceDirectory) FindByName(snapshot *domain.DeviceSnapshot, name string) *domain.Device {
	return snapshot.FindByName(name)
}

// FindByPlatform returns every device in snapshot belonging to platform.
func (d *DeviceDirectory) FindByPlatform(snapshot *domain.DeviceSnapshot, platform domain.Platform) []domain.Device {
	return snapshot.FindByPlatform(platform)
}

// asTransport ensures err matches domain.ErrTransport.
// Context errors are passed through unchanged.
func asTransport(op string, err error) error {
	if errors.Is(err, domain.ErrTransport) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewTransportError(op, err)
}
