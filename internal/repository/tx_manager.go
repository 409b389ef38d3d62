package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// txState is the transaction bound to a context plus the work deferred until it commits.
type txState struct {
	db          *gorm.DB
	afterCommit []func()
}

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// RunInTx runs fn inside a transaction. A call made with a context that already
// carries a transaction joins it instead of opening a nested one. Callbacks
// registered with AfterCommit run once the outermost transaction commits.
func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	state := &txState{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.db = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
	if err != nil {
		return err
	}

	for _, f := range state.afterCommit {
		f()
	}
	return nil
}

// AfterCommit defers f until the transaction carried by ctx commits. Without a
// transaction f runs immediately. Rolled back transactions drop their callbacks.
func AfterCommit(ctx context.Context, f func()) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.afterCommit = append(state.afterCommit, f)
		return
	}
	f()
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.db.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
