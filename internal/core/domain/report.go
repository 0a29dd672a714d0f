package domain

import "time"

// OutcomeKind is the terminal state of one requested device in a run.
type OutcomeKind string

// Outcome kinds. Exactly one is recorded per requested device.
const (
	OutcomeSynced   OutcomeKind = "synced"
	OutcomeFailed   OutcomeKind = "failed"
	OutcomeNotFound OutcomeKind = "not_found"
)

// IsValid returns true if the kind is recognised.
func (k OutcomeKind) IsValid() bool {
	switch k {
	case OutcomeSynced, OutcomeFailed, OutcomeNotFound:
		return true
	default:
		return false
	}
}

// Description returns a human-readable label.
func (k OutcomeKind) Description() string {
	switch k {
	case OutcomeSynced:
		return "Synced"
	case OutcomeFailed:
		return "Failed"
	case OutcomeNotFound:
		return "Not found"
	default:
		return "Unknown"
	}
}

// DeviceOutcome is the result for one requested name or resolved device.
type DeviceOutcome struct {
	// Name is the requested name (name mode) or the device name (platform mode).
	Name string `json:"name"`

	// DeviceID is empty for NotFound outcomes.
	DeviceID string `json:"device_id,omitempty"`

	// Platform is the raw tag of the resolved device.
	Platform string `json:"platform,omitempty"`

	// Owner is the assigned user of the resolved device.
	Owner string `json:"owner,omitempty"`

	// LastSyncAt is the device's check-in time at snapshot time.
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`

	Kind OutcomeKind `json:"kind"`

	// Reason carries the failure message for Failed outcomes.
	Reason string `json:"reason,omitempty"`
}

// Counts are the aggregate tallies of a run.
type Counts struct {
	Requested int `json:"requested"`
	Found     int `json:"found"`
	NotFound  int `json:"not_found"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Requested: c.Requested + o.Requested,
		Found:     c.Found + o.Found,
		NotFound:  c.NotFound + o.NotFound,
		Synced:    c.Synced + o.Synced,
		Failed:    c.Failed + o.Failed,
	}
}

// Processed returns the number of outcomes recorded so far.
func (c Counts) Processed() int {
	return c.NotFound + c.Synced + c.Failed
}

// RunMode identifies how the target set of a run was chosen.
type RunMode string

// Run modes.
const (
	RunModeNames    RunMode = "names"
	RunModePlatform RunMode = "platform"
)

// ResultReport summarises one orchestration run. It is created when the run
// finishes and is not modified afterwards.
type ResultReport struct {
	ID   string  `json:"id"`
	Mode RunMode `json:"mode"`

	// Platform is set for platform runs.
	Platform Platform `json:"platform,omitempty"`

	// Principal identifies the authenticated caller.
	Principal string `json:"principal,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Counts

	// Outcomes are in processing order (input order for name runs).
	Outcomes []DeviceOutcome `json:"outcomes"`

	// Cancelled is true when the run stopped early; the counts cover
	// only the devices processed before cancellation.
	Cancelled bool `json:"cancelled,omitempty"`

	// FetchError records why a platform's device set could not be fetched
	// during a multi-platform run.
	FetchError string `json:"fetch_error,omitempty"`
}

// Duration returns how long the run took.
func (r *ResultReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasProblems returns true if any device failed or was not found,
// or the device set could not be fetched.
func (r *ResultReport) HasProblems() bool {
	return r.Failed > 0 || r.NotFound > 0 || r.FetchError != ""
}

// AggregateReport is the result of syncing several platforms in turn.
type AggregateReport struct {
	Reports []ResultReport `json:"reports"`
	Total   Counts         `json:"total"`
}

// NewAggregateReport totals the given per-platform reports.
func NewAggregateReport(reports []ResultReport) *AggregateReport {
	agg := &AggregateReport{Reports: reports}
	for i := range reports {
		agg.Total = agg.Total.Add(reports[i].Counts)
	}
	return agg
}

// HasProblems returns true if any contained report has problems.
func (a *AggregateReport) HasProblems() bool {
	for i := range a.Reports {
		if a.Reports[i].HasProblems() {
			return true
		}
	}
	return false
}

// ProgressEvent is emitted after each device is processed.
type ProgressEvent struct {
	// Index is the 1-based position of the device in the run.
	Index int `json:"index"`

	// Total is the number of devices the run will process.
	Total int `json:"total"`

	Outcome DeviceOutcome `json:"outcome"`

	// Counts is a snapshot of the running tally.
	Counts Counts `json:"counts"`

	// Platform is set for platform runs.
	Platform Platform `json:"platform,omitempty"`
}

// Tally accumulates outcomes during a run and produces the final report.
// It is not safe for concurrent use; runs are single-threaded.
type Tally struct {
	report ResultReport
}

// NewTally starts a tally for a run.
func NewTally(id string, mode RunMode, requested int, startedAt time.Time) *Tally {
	return &Tally{
		report: ResultReport{
			ID:        id,
			Mode:      mode,
			StartedAt: startedAt,
			Counts:    Counts{Requested: requested},
			Outcomes:  make([]DeviceOutcome, 0, requested),
		},
	}
}

// SetPlatform records the platform for platform runs.
func (t *Tally) SetPlatform(p Platform) {
	t.report.Platform = p
}

// SetPrincipal records the authenticated caller.
func (t *Tally) SetPrincipal(principal string) {
	t.report.Principal = principal
}

// SetFetchError records a device-set fetch failure.
func (t *Tally) SetFetchError(err error) {
	if err != nil {
		t.report.FetchError = err.Error()
	}
}

// MarkCancelled flags the run as stopped early.
func (t *Tally) MarkCancelled() {
	t.report.Cancelled = true
}

// Record adds one outcome and returns the updated counts.
func (t *Tally) Record(o DeviceOutcome) Counts {
	switch o.Kind {
	case OutcomeNotFound:
		t.report.NotFound++
	case OutcomeSynced:
		t.report.Found++
		t.report.Synced++
	case OutcomeFailed:
		t.report.Found++
		t.report.Failed++
	}
	t.report.Outcomes = append(t.report.Outcomes, o)
	return t.report.Counts
}

// Counts returns the running counts.
func (t *Tally) Counts() Counts {
	return t.report.Counts
}

// Report finalises the run and returns an independent copy.
func (t *Tally) Report(finishedAt time.Time) *ResultReport {
	r := t.report
	r.FinishedAt = finishedAt
	r.Outcomes = make([]DeviceOutcome, len(t.report.Outcomes))
	copy(r.Outcomes, t.report.Outcomes)
	return &r
}
