package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"payout-service/internal/domain/payout"
)

// PayoutFilter narrows and orders a payout listing.
type PayoutFilter struct {
	Search   string
	Status   payout.Status
	Currency payout.Currency
	Ordering string
	Page     int
	Limit    int
}

type PayoutRepository interface {
	Create(ctx context.Context, p *payout.Payout) error
	GetByID(ctx context.Context, id uuid.UUID) (payout.Payout, error)
	List(ctx context.Context, filter PayoutFilter) ([]payout.Payout, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Update writes every mutable field of p, provided the stored status still
	// equals expected. ErrConflict is returned when it has moved on.
	Update(ctx context.Context, p *payout.Payout, expected payout.Status) error

	// TransitionStatus moves a payout from one status to another in a single
	// compare-and-swap. The returned payout is the stored record after the
	// attempt; the bool reports whether this call performed the write.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to payout.Status) (payout.Payout, bool, error)

	ListStale(ctx context.Context, status payout.Status, updatedBefore time.Time, limit int) ([]payout.Payout, error)
}
