package tui

import "errors"

// ErrMissingSyncOrchestrator is returned when the sync orchestrator is not provided.
var ErrMissingSyncOrchestrator = errors.New("tui: sync orchestrator is required")

// ErrInvalidJob is returned when a job does not describe a runnable sync.
var ErrInvalidJob = errors.New("tui: invalid job")

// ErrInterrupted is returned when the view exits before the run reported back.
var ErrInterrupted = errors.New("tui: interrupted before the run finished")
