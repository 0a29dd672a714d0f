package driven

import (
	"context"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// ReportStore persists run reports for auditing.
type ReportStore interface {
	// Save stores a finished report and its outcomes.
	Save(ctx context.Context, report *domain.ResultReport) error

	// Get retrieves a report by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.ResultReport, error)

	// List returns the most recent reports first, without outcomes.
	List(ctx context.Context, limit int) ([]domain.ResultReport, error)
}
