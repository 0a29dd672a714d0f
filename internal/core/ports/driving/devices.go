package driving

import (
	"context"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// DeviceService lists managed devices without syncing them.
type DeviceService interface {
	// List returns all managed devices, or only those of platform when it is non-empty.
	List(ctx context.Context, platform domain.Platform) ([]domain.Device, error)

	// Whoami acquires and releases a session and describes it.
	Whoami(ctx context.Context) (*SessionInfo, error)
}

// SessionInfo describes an authenticated session.
type SessionInfo struct {
	Principal string
	Method    domain.AuthMethod
	Roles     []string
}
