package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// Ensure DeviceService implements the interface.
var _ driving.DeviceService = (*DeviceService)(nil)

// DeviceService lists devices and inspects sessions without syncing anything.
type DeviceService struct {
	sessions driven.SessionProvider
}

// NewDeviceService creates a new device service.
func NewDeviceService(sessions driven.SessionProvider) *DeviceService {
	return &DeviceService{sessions: sessions}
}

// List returns every managed device, or only those of platform when set.
func (s *DeviceService) List(ctx context.Context, platform domain.Platform) ([]domain.Device, error) {
	if platform != "" && !platform.IsValid() {
		return nil, fmt.Errorf("%w: unknown platform %q", domain.ErrConfiguration, platform)
	}

	session, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(session)

	directory := NewDeviceDirectory(session.Client())
	if platform != "" {
		devices, err := directory.FetchByPlatform(ctx, platform)
		if err != nil {
			return nil, fmt.Errorf("fetch %s devices: %w", platform, err)
		}
		return devices, nil
	}

	snapshot, err := directory.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch devices: %w", err)
	}
	return snapshot.Devices, nil
}

// Whoami acquires a session, describes it, and releases it.
func (s *DeviceService) Whoami(ctx context.Context) (*driving.SessionInfo, error) {
	session, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(session)

	return &driving.SessionInfo{
		Principal: session.Principal(),
		Method:    session.Method(),
		Roles:     session.Roles(),
	}, nil
}

func (s *DeviceService) acquire(ctx context.Context) (driven.Session, error) {
	if s.sessions == nil {
		return nil, fmt.Errorf("acquire session: %w", domain.ErrAuthRequired)
	}
	session, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return session, nil
}
