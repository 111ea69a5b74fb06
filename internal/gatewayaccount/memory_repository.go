package gatewayaccount

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[int64]Account
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository(accounts ...Account) Repository {
	r := &memoryRepository{accounts: make(map[int64]Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}
