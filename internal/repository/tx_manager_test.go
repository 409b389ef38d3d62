package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommit_WithoutTransactionRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommit_DeferredUntilCommit(t *testing.T) {
	state := &txState{}
	ctx := context.WithValue(context.Background(), txKey{}, state)

	ran := 0
	AfterCommit(ctx, func() { ran++ })
	AfterCommit(ctx, func() { ran++ })

	assert.Equal(t, 0, ran)
	assert.Len(t, state.afterCommit, 2)
	for _, f := range state.afterCommit {
		f()
	}
	assert.Equal(t, 2, ran)
}

func TestRunInTx_JoinsOuterTransaction(t *testing.T) {
	state := &txState{}
	ctx := context.WithValue(context.Background(), txKey{}, state)
	tm := &transactionManager{}

	var inner context.Context
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		inner = txCtx
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, ctx, inner)
}
