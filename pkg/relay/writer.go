package relay

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Writer appends records to one table inside the caller's transaction.
// It never delivers; the relay picks the record up after commit.
type Writer struct {
	store Store
	opts  options
}

func NewWriter(store Store, opts ...Option) *Writer {
	return &Writer{store: store, opts: newOptions(opts)}
}

// Append inserts msg as a PENDING record in the transaction carried by ctx
// and returns the stored record. The trace context of ctx is saved in the
// record headers.
func (w *Writer) Append(ctx context.Context, msg Message) (*Record, error) {
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: message type is required", ErrInvalidArgument)
	}

	id := msg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	now := w.opts.clock()
	availableAt := msg.AvailableAt
	if availableAt.IsZero() {
		availableAt = now
	}

	rec := &Record{
		ID:          id,
		Type:        msg.Type,
		Payload:     append([]byte(nil), msg.Payload...),
		Headers:     InjectTraceContext(ctx, msg.Headers),
		Status:      StatusPending,
		AvailableAt: availableAt.UTC(),
		CreatedAt:   now,
	}

	if err := w.store.Insert(ctx, rec); err != nil {
		return nil, storageError("append", err)
	}

	w.opts.log.Debug("record appended",
		zap.String("table", w.opts.table),
		zap.Stringer("id", rec.ID),
		zap.String("type", rec.Type),
		zap.Time("available_at", rec.AvailableAt),
	)
	return rec, nil
}
