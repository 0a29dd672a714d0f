package driving

import (
	"context"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// ReportService reads the audit history of past runs.
type ReportService interface {
	// List returns the most recent reports first.
	// A non-positive limit uses the default.
	List(ctx context.Context, limit int) ([]domain.ResultReport, error)

	// Get returns one report with its per-device outcomes.
	Get(ctx context.Context, id string) (*domain.ResultReport, error)
}
