package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/quizgen/internal/store"
)

// MockTransactor implements store.Transactor by calling fn with a nil
// transaction. The store mocks ignore the transaction in WithTx.
type MockTransactor struct {
	RunInTransactionFn func(ctx context.Context, fn store.TxFn) error

	Calls struct {
		mu    sync.Mutex
		Count int
	}
}

var _ store.Transactor = (*MockTransactor)(nil)

// RunInTransaction implements store.Transactor.
func (m *MockTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	m.Calls.mu.Lock()
	m.Calls.Count++
	m.Calls.mu.Unlock()

	if m.RunInTransactionFn != nil {
		return m.RunInTransactionFn(ctx, fn)
	}
	return fn(ctx, nil)
}
