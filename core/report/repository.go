package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/skillustad/proctor/core"
)

var ErrNotFound = errors.New("report not found")

// Filter narrows a report listing.
type Filter struct {
	CandidateEmail string
	Technology     string
	Ordering       []core.DBOrdering
}

// Repository persists compiled reports.
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id uuid.UUID) (*Report, error)
	Filter(ctx context.Context, f Filter) ([]*Report, error)
	// DeleteBefore purges reports generated before cutoff and returns how
	// many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
