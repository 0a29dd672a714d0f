package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration indicates invalid input detected before any remote call.
	// Examples: an empty name list, an unknown platform, a missing CSV column.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrTransport indicates the network or API layer failed.
	// Match with errors.Is; the concrete error is usually a *TransportError.
	ErrTransport = errors.New("transport error")

	// ErrSyncInProgress indicates a run is already in flight.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrAuditUnavailable indicates the audit store is not configured.
	// Run history is disabled.
	ErrAuditUnavailable = errors.New("audit store unavailable")

	// Authentication Errors.

	// ErrAuthRequired indicates no credentials are configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the credentials were rejected.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrPermissionMissing indicates the token lacks a required application role.
	ErrPermissionMissing = errors.New("permission missing")

	// ErrSessionClosed indicates a call was made on a released session.
	ErrSessionClosed = errors.New("session closed")
)

// TransportError wraps a network, HTTP or authorization failure from the
// remote device-management API.
type TransportError struct {
	// Op names the remote operation, e.g. "list devices".
	Op string
	// Err is the underlying failure.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError wraps err as a TransportError for op.
// A nil err yields nil.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) && te.Op == op {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// SyncError is the failure of a single sync trigger.
// It is terminal for that device within a run.
type SyncError struct {
	DeviceID string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync device %s: %v", e.DeviceID, e.Err)
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Reason returns the underlying message for audit logging.
func (e *SyncError) Reason() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}
