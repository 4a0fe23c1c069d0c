package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.DeliveryTimeout = 200 * time.Millisecond
	cfg.DBTimeout = time.Second
	cfg.LeaseDuration = 5 * time.Second
	cfg.Backoff.Jitter = 0
	return cfg
}

func newTestDispatcher(t *testing.T, store Store, opts ...Option) *Dispatcher {
	t.Helper()
	cfg := testConfig()
	policy, err := NewBackoffPolicy(cfg.Backoff, 1)
	require.NoError(t, err)
	return NewDispatcher(store, policy, cfg, append([]Option{WithClock(fixedClock)}, opts...)...)
}

func leasedRecord(attempts int) *Record {
	until := fixedNow.Add(time.Minute)
	return &Record{
		ID:             uuid.New(),
		Type:           "order.placed",
		Payload:        []byte(`{"orderId":1}`),
		Status:         StatusLeased,
		LeaseOwner:     "worker-a",
		LeaseExpiresAt: &until,
		Attempts:       attempts,
		AvailableAt:    fixedNow.Add(-time.Second),
		CreatedAt:      fixedNow.Add(-time.Minute),
	}
}

func TestDispatcher_DispatchOne_Delivered(t *testing.T) {
	// Arrange
	store := newMockStore()
	sink := &mockSink{}
	d := newTestDispatcher(t, store)
	rec := leasedRecord(0)

	// Act
	outcome, err := d.DispatchOne(context.Background(), rec, sink)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)
	assert.Equal(t, 1, sink.Calls())

	applied := store.Applied()
	require.Len(t, applied, 1)
	assert.Equal(t, StatusDelivered, applied[0].To)
	assert.Equal(t, "worker-a", applied[0].Owner)
	assert.Equal(t, 0, applied[0].Attempts)
	require.NotNil(t, applied[0].ProcessedAt)
	assert.Equal(t, fixedNow, *applied[0].ProcessedAt)

	assert.Equal(t, StatusDelivered, rec.Status)
	assert.Empty(t, rec.LeaseOwner)
	assert.Nil(t, rec.LeaseExpiresAt)
}

func TestDispatcher_DispatchOne_FailureSchedulesRetry(t *testing.T) {
	store := newMockStore()
	sink := &mockSink{errs: []error{errors.New("broker down")}}
	d := newTestDispatcher(t, store)
	rec := leasedRecord(1)

	outcome, err := d.DispatchOne(context.Background(), rec, sink)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryScheduled, outcome)
	applied := store.Applied()
	require.Len(t, applied, 1)
	assert.Equal(t, StatusPending, applied[0].To)
	assert.Equal(t, 2, applied[0].Attempts)
	assert.Equal(t, fixedNow.Add(2*time.Second), applied[0].AvailableAt)
	assert.Contains(t, applied[0].LastError, "broker down")
	assert.Nil(t, applied[0].ProcessedAt)
}

func TestDispatcher_DispatchOne_DeadAtMaxAttempts(t *testing.T) {
	store := newMockStore()
	sink := &mockSink{errs: []error{errors.New("still down")}}
	d := newTestDispatcher(t, store)
	rec := leasedRecord(2)

	outcome, err := d.DispatchOne(context.Background(), rec, sink)

	require.NoError(t, err)
	assert.Equal(t, OutcomeDeadLettered, outcome)
	applied := store.Applied()
	require.Len(t, applied, 1)
	assert.Equal(t, StatusDead, applied[0].To)
	assert.Equal(t, 3, applied[0].Attempts)
	require.NotNil(t, applied[0].ProcessedAt)
}

func TestDispatcher_DispatchOne_PermanentFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"permanent", Permanent(errors.New("schema rejected"))},
		{"unknown command", ErrUnknownCommandType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			d := newTestDispatcher(t, store)

			outcome, err := d.DispatchOne(context.Background(), leasedRecord(0), &mockSink{errs: []error{tt.err}})

			require.NoError(t, err)
			assert.Equal(t, OutcomeDeadLettered, outcome)
			applied := store.Applied()
			require.Len(t, applied, 1)
			assert.Equal(t, StatusDead, applied[0].To)
			assert.Equal(t, 1, applied[0].Attempts)
		})
	}
}

func TestDispatcher_DispatchOne_SinkUnavailableReleasesLease(t *testing.T) {
	store := newMockStore()
	sink := &mockSink{errs: []error{ErrSinkUnavailable}}
	d := newTestDispatcher(t, store)

	outcome, err := d.DispatchOne(context.Background(), leasedRecord(2), sink)

	require.NoError(t, err)
	assert.Equal(t, OutcomeReleased, outcome)
	applied := store.Applied()
	require.Len(t, applied, 1)
	assert.Equal(t, StatusPending, applied[0].To)
	assert.Equal(t, 2, applied[0].Attempts)
	assert.Equal(t, fixedNow.Add(2*time.Second), applied[0].AvailableAt)
}

func TestDispatcher_DispatchOne_TimeoutIsFailure(t *testing.T) {
	store := newMockStore()
	sink := &mockSink{fn: func(ctx context.Context, rec *Record) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	d := newTestDispatcher(t, store)

	outcome, err := d.DispatchOne(context.Background(), leasedRecord(0), sink)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryScheduled, outcome)
	applied := store.Applied()
	require.Len(t, applied, 1)
	assert.Equal(t, 1, applied[0].Attempts)
	assert.Contains(t, applied[0].LastError, "timed out")
}

func TestDispatcher_DispatchOne_SinkPanicIsFailure(t *testing.T) {
	store := newMockStore()
	sink := &mockSink{fn: func(context.Context, *Record) error { panic("boom") }}
	d := newTestDispatcher(t, store)

	outcome, err := d.DispatchOne(context.Background(), leasedRecord(0), sink)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryScheduled, outcome)
	assert.Contains(t, store.Applied()[0].LastError, "boom")
}

func TestDispatcher_DispatchOne_CancelledBeforeDelivery(t *testing.T) {
	store := newMockStore()
	sink := &mockSink{}
	d := newTestDispatcher(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := d.DispatchOne(ctx, leasedRecord(1), sink)

	require.NoError(t, err)
	assert.Equal(t, OutcomeReleased, outcome)
	assert.Zero(t, sink.Calls())
	applied := store.Applied()
	require.Len(t, applied, 1)
	assert.Equal(t, 1, applied[0].Attempts)
	assert.Equal(t, fixedNow, applied[0].AvailableAt)
}

func TestDispatcher_DispatchOne_SkipsTerminal(t *testing.T) {
	for _, status := range []Status{StatusDelivered, StatusDead, StatusPending} {
		t.Run(status.String(), func(t *testing.T) {
			store := newMockStore()
			sink := &mockSink{}
			d := newTestDispatcher(t, store)
			rec := leasedRecord(0)
			rec.Status = status

			outcome, err := d.DispatchOne(context.Background(), rec, sink)

			require.NoError(t, err)
			assert.Equal(t, OutcomeSkipped, outcome)
			assert.Zero(t, sink.Calls())
			assert.Empty(t, store.Applied())
		})
	}
}

func TestDispatcher_DispatchOne_LeaseLost(t *testing.T) {
	// Given
	core, logs := observer.New(zap.WarnLevel)
	store := newMockStore()
	store.applyErr = ErrLeaseExpired
	d := newTestDispatcher(t, store, WithLogger(zap.New(core)))

	// When
	outcome, err := d.DispatchOne(context.Background(), leasedRecord(0), &mockSink{})

	// Then
	require.NoError(t, err)
	assert.Equal(t, OutcomeLeaseLost, outcome)
	assert.Equal(t, 1, logs.FilterMessage("lease lost before outcome was recorded").Len())
}

func TestDispatcher_DispatchOne_ExpiredLeaseNotDelivered(t *testing.T) {
	// Given
	core, logs := observer.New(zap.WarnLevel)
	store := newMockStore()
	sink := &mockSink{}
	d := newTestDispatcher(t, store, WithLogger(zap.New(core)))
	rec := leasedRecord(1)
	expired := fixedNow.Add(-time.Second)
	rec.LeaseExpiresAt = &expired

	// When
	outcome, err := d.DispatchOne(context.Background(), rec, sink)

	// Then
	require.NoError(t, err)
	assert.Equal(t, OutcomeLeaseLost, outcome)
	assert.Zero(t, sink.Calls())
	assert.Empty(t, store.Applied())
	assert.Equal(t, StatusLeased, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, 1, logs.FilterMessage("lease expired before delivery, skipping").Len())
}

func TestDispatcher_DispatchOne_StorageError(t *testing.T) {
	store := newMockStore()
	store.applyErr = errors.New("connection reset")
	d := newTestDispatcher(t, store)

	_, err := d.DispatchOne(context.Background(), leasedRecord(0), &mockSink{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "apply", se.Op)
}

func TestDispatcher_DispatchOne_SinkGetsCopy(t *testing.T) {
	store := newMockStore()
	sink := &mockSink{fn: func(_ context.Context, rec *Record) error {
		rec.Payload[0] = 'X'
		rec.Attempts = 99
		return nil
	}}
	d := newTestDispatcher(t, store)
	rec := leasedRecord(0)

	_, err := d.DispatchOne(context.Background(), rec, sink)

	require.NoError(t, err)
	assert.Equal(t, byte('{'), rec.Payload[0])
	assert.Equal(t, 0, rec.Attempts)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "delivered", OutcomeDelivered.String())
	assert.Equal(t, "retried", OutcomeRetryScheduled.String())
	assert.Equal(t, "dead", OutcomeDeadLettered.String())
	assert.Equal(t, "released", OutcomeReleased.String())
	assert.Equal(t, "lease_lost", OutcomeLeaseLost.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "unknown", OutcomeUnknown.String())
}
