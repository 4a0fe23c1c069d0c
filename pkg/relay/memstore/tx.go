package memstore

import (
	"context"
	"sync"

	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
)

type txKey struct{}

// tx buffers inserts until commit, like a database transaction would hide
// them from concurrent readers.
type tx struct {
	mu       sync.Mutex
	commits  []func()
	rollback []func()
	closed   bool
}

func (t *tx) add(commit, rollback func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return persistence.ErrNoTransaction
	}
	t.commits = append(t.commits, commit)
	t.rollback = append(t.rollback, rollback)
	return nil
}

func (t *tx) finish(commit bool) {
	t.mu.Lock()
	ops := t.rollback
	if commit {
		ops = t.commits
	}
	t.commits, t.rollback = nil, nil
	t.closed = true
	t.mu.Unlock()

	for _, op := range ops {
		op()
	}
}

func txFromContext(ctx context.Context) (*tx, bool) {
	t, ok := ctx.Value(txKey{}).(*tx)
	return t, ok
}

type txManager struct{}

// NewTxManager returns a persistence.TxManager for memstore stores. Nested
// calls join the outer transaction.
func NewTxManager() persistence.TxManager {
	return txManager{}
}

func (txManager) WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (result any, err error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	t := &tx{}
	defer func() {
		if p := recover(); p != nil {
			t.finish(false)
			panic(p)
		}
	}()

	result, err = fn(context.WithValue(ctx, txKey{}, t))
	if err != nil {
		t.finish(false)
		return nil, err
	}
	t.finish(true)
	return result, nil
}
