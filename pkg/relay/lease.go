package relay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LeaseManager claims batches of eligible records for a worker.
type LeaseManager struct {
	store     Store
	dbTimeout time.Duration
	opts      options
}

func NewLeaseManager(store Store, dbTimeout time.Duration, opts ...Option) *LeaseManager {
	return &LeaseManager{store: store, dbTimeout: dbTimeout, opts: newOptions(opts)}
}

// AcquireBatch leases up to batchSize records that are PENDING and due, or
// LEASED with an expired lease, to workerID until now+leaseDuration.
// A partial or empty batch is not an error. Taking over an expired lease
// does not count as a delivery attempt. Records claimed before a store
// failure are released back to PENDING.
func (m *LeaseManager) AcquireBatch(ctx context.Context, workerID string, batchSize int, leaseDuration time.Duration) ([]*Record, error) {
	switch {
	case workerID == "":
		return nil, fmt.Errorf("%w: worker id is required", ErrInvalidArgument)
	case batchSize <= 0:
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidArgument, batchSize)
	case leaseDuration <= 0:
		return nil, fmt.Errorf("%w: lease duration must be positive, got %s", ErrInvalidArgument, leaseDuration)
	}

	now := m.opts.clock()
	c, cancel := context.WithTimeout(ctx, m.dbTimeout)
	defer cancel()

	records, err := m.store.Acquire(c, AcquireRequest{
		Owner:      workerID,
		Limit:      batchSize,
		Now:        now,
		LeaseUntil: now.Add(leaseDuration),
	})
	if err != nil {
		m.release(ctx, records)
		return nil, storageError("acquire", err)
	}

	for _, rec := range records {
		if rec.ReclaimedFrom != "" {
			m.opts.log.Info("reclaimed expired lease",
				zap.String("table", m.opts.table),
				zap.Stringer("id", rec.ID),
				zap.String("previous_owner", rec.ReclaimedFrom),
				zap.Int("attempts", rec.Attempts),
				zap.NamedError("reason", ErrLeaseExpired),
			)
		}
	}
	return records, nil
}

// release hands claimed records back without spending an attempt. A failed
// release is left to lease expiry.
func (m *LeaseManager) release(ctx context.Context, records []*Record) {
	if len(records) == 0 {
		return
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.dbTimeout)
	defer cancel()

	for _, rec := range records {
		err := m.store.Apply(c, Transition{
			ID:          rec.ID,
			Owner:       rec.LeaseOwner,
			To:          StatusPending,
			Attempts:    rec.Attempts,
			AvailableAt: rec.AvailableAt,
			LastError:   rec.LastError,
		})
		if err != nil {
			m.opts.log.Warn("failed to release lease after acquire error",
				zap.String("table", m.opts.table),
				zap.Stringer("id", rec.ID),
				zap.Error(err),
			)
		}
	}
}
