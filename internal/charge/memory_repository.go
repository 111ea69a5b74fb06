package charge

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cardforge/connector/internal/status"
)

// MemoryRepository is an in-memory Repository for tests. It enforces the
// same version compare-and-swap discipline as the PostgreSQL implementation.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	charges map[int64]Charge
	events  map[int64][]Event
	// AccountProviders maps gateway account ids to provider names so
	// GetByProviderTransactionID can resolve without an accounts table.
	AccountProviders map[int64]string
	// EventErr, when set, fails UpdateWithEvent before anything is
	// written, simulating an event insert failure.
	EventErr error
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		charges:          make(map[int64]Charge),
		events:           make(map[int64][]Event),
		AccountProviders: make(map[int64]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, c *Charge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	c.Version = 1
	r.charges[c.ID] = snapshot(c)
	return nil
}

func (r *MemoryRepository) GetByExternalID(_ context.Context, externalID string) (*Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.charges {
		if c.ExternalID == externalID {
			return r.withEvents(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) GetByProviderTransactionID(_ context.Context, provider, transactionID string) (*Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.charges {
		if c.GatewayTransactionID == transactionID && r.AccountProviders[c.GatewayAccountID] == provider {
			return r.withEvents(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) Update(_ context.Context, c *Charge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.charges[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != c.Version {
		return ErrConflict
	}
	c.Version++
	r.charges[c.ID] = snapshot(c)
	return nil
}

func (r *MemoryRepository) UpdateWithEvent(_ context.Context, c *Charge, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.charges[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != c.Version {
		return ErrConflict
	}
	if r.EventErr != nil {
		return r.EventErr
	}
	c.Version++
	r.charges[c.ID] = snapshot(c)
	ev.ID = int64(len(r.events[ev.ChargeID]) + 1)
	r.events[ev.ChargeID] = append(r.events[ev.ChargeID], ev)
	return nil
}

func (r *MemoryRepository) AppendEvent(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events[ev.ChargeID]) + 1)
	r.events[ev.ChargeID] = append(r.events[ev.ChargeID], ev)
	return nil
}

func (r *MemoryRepository) FindForCapture(_ context.Context, batchSize int, retryInterval time.Duration, maxRetries int) ([]*Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var eligible []*Charge
	for _, c := range r.charges {
		if r.captureEligible(c, retryInterval, maxRetries) {
			eligible = append(eligible, r.withEvents(c))
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].CreatedAt.Before(eligible[j].CreatedAt) })
	if len(eligible) > batchSize {
		eligible = eligible[:batchSize]
	}
	return eligible, nil
}

func (r *MemoryRepository) CountForCapture(_ context.Context, retryInterval time.Duration, maxRetries int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.charges {
		if r.captureEligible(c, retryInterval, maxRetries) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CountOverCaptureRetryCap(_ context.Context, maxRetries int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.charges {
		if c.Status == status.CaptureReady && c.CaptureAttempts > maxRetries {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) FindForExpunge(_ context.Context, minAge, excludeCheckedWithin time.Duration) (*Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var oldest *Charge
	for _, c := range r.charges {
		if c.CreatedAt.After(now.Add(-minAge)) {
			continue
		}
		if c.ParityCheckedAt != nil && c.ParityCheckedAt.After(now.Add(-excludeCheckedWithin)) {
			continue
		}
		candidate := r.withEvents(c)
		if oldest == nil || candidate.CreatedAt.Before(oldest.CreatedAt) {
			oldest = candidate
		}
	}
	if oldest == nil {
		return nil, ErrNotFound
	}
	return oldest, nil
}

func (r *MemoryRepository) UpdateParityCheckedAt(_ context.Context, chargeID int64, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.charges[chargeID]
	if !ok {
		return ErrNotFound
	}
	t := checkedAt.UTC()
	c.ParityCheckedAt = &t
	r.charges[chargeID] = c
	return nil
}

func (r *MemoryRepository) Expunge(_ context.Context, chargeID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.charges[chargeID]; !ok {
		return ErrNotFound
	}
	delete(r.charges, chargeID)
	delete(r.events, chargeID)
	return nil
}

func (r *MemoryRepository) captureEligible(c Charge, retryInterval time.Duration, maxRetries int) bool {
	if c.Status != status.CaptureReady || c.CaptureAttempts > maxRetries {
		return false
	}
	return c.LastCaptureAttempt == nil || c.LastCaptureAttempt.Before(time.Now().UTC().Add(-retryInterval))
}

func (r *MemoryRepository) withEvents(c Charge) *Charge {
	copied := c
	copied.Events = append([]Event(nil), r.events[c.ID]...)
	return &copied
}

func snapshot(c *Charge) Charge {
	copied := *c
	copied.Events = nil
	return copied
}
