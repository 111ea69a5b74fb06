package charge

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested charge does not exist.
	ErrNotFound = errors.New("charge not found")

	// ErrConflict indicates a write lost the optimistic-concurrency race:
	// the stored version no longer matches the version the caller read.
	ErrConflict = errors.New("charge was concurrently modified")
)

// Repository persists charges and their events.
type Repository interface {
	Create(ctx context.Context, c *Charge) error
	GetByExternalID(ctx context.Context, externalID string) (*Charge, error)
	// GetByProviderTransactionID resolves a charge from a provider
	// notification; (provider, transaction id) pairs are unique.
	GetByProviderTransactionID(ctx context.Context, provider, transactionID string) (*Charge, error)
	// Update writes mutable fields compare-and-swapped on Version; a
	// mismatch returns ErrConflict. On success the in-memory Version is
	// bumped to the stored one.
	Update(ctx context.Context, c *Charge) error
	// UpdateWithEvent applies Update and records the transition event in
	// one transaction; either both persist or neither does.
	UpdateWithEvent(ctx context.Context, c *Charge, ev Event) error
	AppendEvent(ctx context.Context, ev Event) error

	// FindForCapture selects up to batchSize charges awaiting capture that
	// were never attempted or last attempted more than retryInterval ago,
	// excluding charges past maxRetries.
	FindForCapture(ctx context.Context, batchSize int, retryInterval time.Duration, maxRetries int) ([]*Charge, error)
	CountForCapture(ctx context.Context, retryInterval time.Duration, maxRetries int) (int64, error)
	// CountOverCaptureRetryCap counts charges stuck past maxRetries; these
	// need manual intervention and are surfaced, not silently dropped.
	CountOverCaptureRetryCap(ctx context.Context, maxRetries int) (int64, error)

	// FindForExpunge returns one charge older than minAge whose last parity
	// check (if any) is older than excludeCheckedWithin, or ErrNotFound
	// when none remain.
	FindForExpunge(ctx context.Context, minAge, excludeCheckedWithin time.Duration) (*Charge, error)
	UpdateParityCheckedAt(ctx context.Context, chargeID int64, checkedAt time.Time) error
	// Expunge hard-removes the charge and its dependent rows.
	Expunge(ctx context.Context, chargeID int64) error
}
