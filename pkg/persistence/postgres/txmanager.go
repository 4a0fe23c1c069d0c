package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type txKey struct{}

// TxFromContext returns the transaction started by TxManager, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

// ContextWithTx attaches tx to ctx. Callers managing their own pgx
// transaction use it to let stores join that transaction.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txManager struct {
	db  txBeginner
	log *zap.Logger
}

// NewTxManager returns a TxManager that begins transactions on pool.
// Nested calls join the outer transaction.
func NewTxManager(pool *pgxpool.Pool, log *zap.Logger) persistence.TxManager {
	return &txManager{db: pool, log: log}
}

func (t *txManager) WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (result any, err error) {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	result, err = fn(ContextWithTx(ctx, tx))
	if err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			t.log.Warn("rollback failed", zap.Error(rbErr))
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// Querier returns the transaction in ctx, or persistence.ErrNoTransaction.
func Querier(ctx context.Context) (DBTX, error) {
	if tx, ok := TxFromContext(ctx); ok {
		return tx, nil
	}
	return nil, persistence.ErrNoTransaction
}
