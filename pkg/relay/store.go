package relay

import (
	"context"

	"github.com/google/uuid"
)

// Store persists the records of one table. Implementations must make
// Acquire atomic across processes: two concurrent calls never return the
// same record while its lease is live.
type Store interface {
	// Insert adds a PENDING record inside the transaction carried by ctx.
	Insert(ctx context.Context, rec *Record) error
	// Acquire leases up to req.Limit eligible records for req.Owner.
	Acquire(ctx context.Context, req AcquireRequest) ([]*Record, error)
	// Apply performs t if the record is still LEASED by t.Owner, else returns ErrLeaseExpired.
	Apply(ctx context.Context, t Transition) error
	// Get returns a record by id or ErrRecordNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListByStatus returns up to limit records in status, oldest first.
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Record, error)
	// Purge deletes every record of the table.
	Purge(ctx context.Context) error
}

// Stores groups the two tables handled by the relay.
type Stores struct {
	Outbox   Store
	Commands Store
}

// Sink delivers a record to its destination. Implementations must be safe
// for concurrent use and must put rec.ID on the wire for deduplication.
type Sink interface {
	Deliver(ctx context.Context, rec *Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec *Record) error

func (f SinkFunc) Deliver(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}
