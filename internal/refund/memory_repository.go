package refund

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory Repository for tests, enforcing the same
// version compare-and-swap as the PostgreSQL implementation.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	refunds map[int64]Refund
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{refunds: make(map[int64]Refund)}
}

func (r *MemoryRepository) Create(_ context.Context, ref *Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ref.ID = r.nextID
	ref.Version = 1
	r.refunds[ref.ID] = *ref
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refunds[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := ref
	return &copied, nil
}

func (r *MemoryRepository) GetByExternalID(_ context.Context, externalID string) (*Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range r.refunds {
		if ref.ExternalID == externalID {
			copied := ref
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) Update(_ context.Context, ref *Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.refunds[ref.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != ref.Version {
		return ErrConflict
	}
	ref.Version++
	r.refunds[ref.ID] = *ref
	return nil
}

func (r *MemoryRepository) ListByChargeExternalID(_ context.Context, chargeExternalID string) ([]*Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Refund
	for _, ref := range r.refunds {
		if ref.ChargeExternalID == chargeExternalID {
			copied := ref
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
