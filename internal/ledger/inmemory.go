package ledger

import (
	"context"
	"sync"
)

// InMemory is a Reader backed by a map. Used in tests and local development
// where no ledger service runs.
type InMemory struct {
	mu           sync.RWMutex
	transactions map[string]Transaction
}

// NewInMemory constructs an empty in-memory reader.
func NewInMemory() *InMemory {
	return &InMemory{transactions: make(map[string]Transaction)}
}

// Put stores or replaces a transaction.
func (m *InMemory) Put(tx Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.TransactionID] = tx
}

// Delete removes a transaction if present.
func (m *InMemory) Delete(externalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transactions, externalID)
}

func (m *InMemory) GetTransaction(_ context.Context, externalID string) (Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[externalID]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return tx, nil
}
