package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// Ensure ReportService implements the interface.
var _ driving.ReportService = (*ReportService)(nil)

// ReportService reads persisted run reports.
type ReportService struct {
	store driven.ReportStore
}

// NewReportService creates a new report service.
// A nil store disables history; every call returns domain.ErrAuditUnavailable.
func NewReportService(store driven.ReportStore) *ReportService {
	return &ReportService{store: store}
}

// List returns the most recent reports first.
func (s *ReportService) List(ctx context.Context, limit int) ([]domain.ResultReport, error) {
	if s.store == nil {
		return nil, domain.ErrAuditUnavailable
	}
	if limit <= 0 {
		limit = domain.DefaultHistoryListLimit
	}
	reports, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Get returns one report with its outcomes.
func (s *ReportService) Get(ctx context.Context, id string) (*domain.ResultReport, error) {
	if s.store == nil {
		return nil, domain.ErrAuditUnavailable
	}
	if id == "" {
		return nil, fmt.Errorf("%w: report id required", domain.ErrConfiguration)
	}
	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return report, nil
}
