// Package tui provides a live terminal progress view for sync runs.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Sync runs the bulk sync.
	Sync driving.BulkSyncOrchestrator
}

// NewPorts creates a new Ports aggregate.
func NewPorts(sync driving.BulkSyncOrchestrator) *Ports {
	return &Ports{Sync: sync}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Sync == nil {
		return ErrMissingSyncOrchestrator
	}
	return nil
}

// JobKind selects which orchestrator operation a Job runs.
type JobKind int

const (
	// JobNames syncs devices by name.
	JobNames JobKind = iota
	// JobPlatform syncs every device of one platform.
	JobPlatform
	// JobAllPlatforms syncs several platforms in turn.
	JobAllPlatforms
)

// Job describes one sync run.
type Job struct {
	Kind      JobKind
	Names     []string
	Platform  domain.Platform
	Platforms []domain.Platform
}

// Validate checks that the job carries the input its kind needs.
func (j Job) Validate() error {
	switch j.Kind {
	case JobNames:
		if len(j.Names) == 0 {
			return fmt.Errorf("%w: no device names", ErrInvalidJob)
		}
	case JobPlatform:
		if j.Platform == "" {
			return fmt.Errorf("%w: no platform", ErrInvalidJob)
		}
	case JobAllPlatforms:
		if len(j.Platforms) == 0 {
			return fmt.Errorf("%w: no platforms", ErrInvalidJob)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidJob, j.Kind)
	}
	return nil
}

// Title describes the job for the view header.
func (j Job) Title() string {
	switch j.Kind {
	case JobNames:
		if len(j.Names) == 1 {
			return "Syncing 1 device"
		}
		return fmt.Sprintf("Syncing %d devices", len(j.Names))
	case JobPlatform:
		return fmt.Sprintf("Syncing all %s devices", j.Platform)
	case JobAllPlatforms:
		names := make([]string, len(j.Platforms))
		for i, p := range j.Platforms {
			names[i] = p.String()
		}
		return "Syncing " + strings.Join(names, ", ")
	}
	return "Syncing"
}

// Run executes the job against sync and packages the outcome as a message.
func (j Job) Run(ctx context.Context, sync driving.BulkSyncOrchestrator, opts driving.SyncOptions) messages.RunFinished {
	switch j.Kind {
	case JobNames:
		report, err := sync.SyncByNames(ctx, j.Names, opts)
		return messages.RunFinished{Report: report, Err: err}
	case JobPlatform:
		report, err := sync.SyncByPlatform(ctx, j.Platform, opts)
		return messages.RunFinished{Report: report, Err: err}
	case JobAllPlatforms:
		agg, err := sync.SyncAllPlatforms(ctx, j.Platforms, opts)
		return messages.RunFinished{Aggregate: agg, Err: err}
	}
	return messages.RunFinished{Err: j.Validate()}
}
