// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// ProgressReceived carries one per-device progress event from a running sync.
type ProgressReceived struct {
	Event domain.ProgressEvent
}

// RunFinished is sent once when the sync returns.
// Exactly one of Report or Aggregate is set for a run that produced output.
type RunFinished struct {
	Report    *domain.ResultReport
	Aggregate *domain.AggregateReport
	Err       error
}

// Cancelled reports whether the run stopped early.
func (m RunFinished) Cancelled() bool {
	if m.Report != nil && m.Report.Cancelled {
		return true
	}
	if m.Aggregate != nil {
		for i := range m.Aggregate.Reports {
			if m.Aggregate.Reports[i].Cancelled {
				return true
			}
		}
	}
	return false
}

// CancelRequested is sent when the user asks to stop the run.
type CancelRequested struct{}
