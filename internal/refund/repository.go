package refund

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested refund does not exist.
	ErrNotFound = errors.New("refund not found")

	// ErrConflict indicates a write lost the optimistic-concurrency race.
	ErrConflict = errors.New("refund was concurrently modified")
)

// Repository persists refunds.
type Repository interface {
	Create(ctx context.Context, r *Refund) error
	Get(ctx context.Context, id int64) (*Refund, error)
	GetByExternalID(ctx context.Context, externalID string) (*Refund, error)
	// Update writes mutable fields compare-and-swapped on Version; a
	// mismatch returns ErrConflict.
	Update(ctx context.Context, r *Refund) error
	ListByChargeExternalID(ctx context.Context, chargeExternalID string) ([]*Refund, error)
}
