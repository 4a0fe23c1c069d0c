package relay

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderReplayOf marks a record created by Admin.Replay with the id of the
// dead record it copies.
const HeaderReplayOf = "relay-replay-of"

// Admin inspects and replays dead-lettered records of one table.
type Admin struct {
	store     Store
	tx        persistence.TxManager
	writer    *Writer
	dbTimeout time.Duration
	opts      options
}

func NewAdmin(store Store, tx persistence.TxManager, dbTimeout time.Duration, opts ...Option) *Admin {
	return &Admin{
		store:     store,
		tx:        tx,
		writer:    NewWriter(store, opts...),
		dbTimeout: dbTimeout,
		opts:      newOptions(opts),
	}
}

// ListDead returns up to limit DEAD records, oldest first.
func (a *Admin) ListDead(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	c, cancel := context.WithTimeout(ctx, a.dbTimeout)
	defer cancel()

	records, err := a.store.ListByStatus(c, StatusDead, limit)
	if err != nil {
		return nil, storageError("list dead", err)
	}
	return records, nil
}

// Replay appends a new PENDING copy of the DEAD record id. The dead record
// is left untouched, so replaying twice yields two new records.
func (a *Admin) Replay(ctx context.Context, id uuid.UUID) (*Record, error) {
	c, cancel := context.WithTimeout(ctx, a.dbTimeout)
	defer cancel()

	dead, err := a.store.Get(c, id)
	if err != nil {
		return nil, storageError("get", err)
	}
	if dead.Status != StatusDead {
		return nil, fmt.Errorf("%w: record %s is %s, only DEAD records can be replayed", ErrInvalidArgument, id, dead.Status)
	}

	headers := maps.Clone(dead.Headers)
	if headers == nil {
		headers = make(map[string]string)
	}
	headers[HeaderReplayOf] = dead.ID.String()

	result, err := a.tx.WithTransaction(c, func(txCtx context.Context) (any, error) {
		return a.writer.Append(txCtx, Message{
			Type:    dead.Type,
			Payload: dead.Payload,
			Headers: headers,
		})
	})
	if err != nil {
		return nil, err
	}

	replayed := result.(*Record)
	a.opts.log.Info("dead record replayed",
		zap.String("table", a.opts.table),
		zap.Stringer("dead_id", dead.ID),
		zap.Stringer("new_id", replayed.ID),
		zap.String("type", dead.Type),
	)
	return replayed, nil
}

// Purge deletes every record of the table.
func (a *Admin) Purge(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, a.dbTimeout)
	defer cancel()
	if err := a.store.Purge(c); err != nil {
		return storageError("purge", err)
	}
	a.opts.log.Warn("table purged", zap.String("table", a.opts.table))
	return nil
}
