package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
)

// Ensure ReportStore implements the interface.
var _ driven.ReportStore = (*ReportStore)(nil)

// ReportStore is an in-memory implementation of driven.ReportStore.
// History is lost when the process exits.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]domain.ResultReport
	order   []string
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]domain.ResultReport),
	}
}

// Save stores or replaces a report. The store keeps its own copy.
func (s *ReportStore) Save(_ context.Context, report *domain.ResultReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("%w: missing report id", domain.ErrConfiguration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; !exists {
		s.order = append(s.order, report.ID)
	}
	s.reports[report.ID] = copyReport(*report)
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(_ context.Context, id string) (*domain.ResultReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyReport(report)
	return &out, nil
}

// List returns the most recent reports first, without outcomes.
// Reports with equal start times are returned newest-saved first.
func (s *ReportStore) List(_ context.Context, limit int) ([]domain.ResultReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ResultReport, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.reports[s.order[i]]
		r.Outcomes = nil
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyReport(r domain.ResultReport) domain.ResultReport {
	if r.Outcomes != nil {
		outcomes := make([]domain.DeviceOutcome, len(r.Outcomes))
		copy(outcomes, r.Outcomes)
		r.Outcomes = outcomes
	}
	return r
}
