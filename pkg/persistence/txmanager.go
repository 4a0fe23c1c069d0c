package persistence

import "context"

// TxManager runs fn inside a database transaction. The context passed to fn
// carries the transaction; repositories that must join it read it from there.
// fn's error rolls the transaction back and is returned unchanged.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (any, error)
}
