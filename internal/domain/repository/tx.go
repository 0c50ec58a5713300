package repository

import (
	"context"
	"sync"
)

// Transactor runs fn inside one database transaction. Repositories called with the ctx
// passed to fn take part in it. fn's error rolls the transaction back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type hooksKey struct{}

// TxHooks collects callbacks to run once a transaction has committed.
type TxHooks struct {
	mu    sync.Mutex
	hooks []func(context.Context)
}

// WithTxHooks attaches a fresh hook list to ctx. Transactor implementations call it
// when a transaction begins.
func WithTxHooks(ctx context.Context) (context.Context, *TxHooks) {
	h := &TxHooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// InTx reports whether ctx belongs to a running transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(hooksKey{}).(*TxHooks)
	return ok
}

// AfterCommit defers fn until the transaction carried by ctx commits. Outside a
// transaction fn runs immediately. Hooks are dropped on rollback.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if h, ok := ctx.Value(hooksKey{}).(*TxHooks); ok {
		h.mu.Lock()
		h.hooks = append(h.hooks, fn)
		h.mu.Unlock()
		return
	}
	fn(ctx)
}

// Run executes the registered hooks in registration order.
func (h *TxHooks) Run(ctx context.Context) {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}
