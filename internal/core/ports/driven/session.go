package driven

import (
	"context"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// SessionProvider acquires authenticated API sessions.
// Credential acquisition and permission checks happen in Acquire, so a
// returned session is ready for its first call.
type SessionProvider interface {
	// Acquire returns a ready session or an error before any API call.
	Acquire(ctx context.Context) (Session, error)
}

// Session is a scoped, authenticated handle to the remote API.
// It is used read-only for one run and released with Close on every exit path.
type Session interface {
	// Client returns the device client bound to this session.
	Client() DeviceClient

	// Principal identifies the authenticated caller for audit records.
	Principal() string

	// Method returns how the session was authenticated.
	Method() domain.AuthMethod

	// Roles returns the application roles granted to the session, if known.
	Roles() []string

	// Close releases the session. Calls after Close fail with
	// domain.ErrSessionClosed. Close is idempotent.
	Close() error
}
