package mcp

import (
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Sync runs bulk syncs.
	Sync driving.BulkSyncOrchestrator

	// Devices lists managed devices.
	Devices driving.DeviceService

	// Reports reads run history.
	Reports driving.ReportService

	// Settings supplies the default platform list.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Sync == nil {
		return ErrMissingSyncOrchestrator
	}
	// Devices, Reports and Settings are optional
	return nil
}
