package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Outcome is what DispatchOne did with a record.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	// OutcomeDelivered: the sink accepted the record, now DELIVERED.
	OutcomeDelivered
	// OutcomeRetryScheduled: delivery failed, record is PENDING again.
	OutcomeRetryScheduled
	// OutcomeDeadLettered: attempts exhausted or permanent failure, record is DEAD.
	OutcomeDeadLettered
	// OutcomeReleased: the sink was unavailable or the worker stopped; the
	// lease was returned without spending an attempt.
	OutcomeReleased
	// OutcomeLeaseLost: another worker took the record over before the
	// outcome could be recorded.
	OutcomeLeaseLost
	// OutcomeSkipped: the record was not leased, nothing was done.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeRetryScheduled:
		return "retried"
	case OutcomeDeadLettered:
		return "dead"
	case OutcomeReleased:
		return "released"
	case OutcomeLeaseLost:
		return "lease_lost"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

const shutdownError = "delivery interrupted by shutdown"

// Dispatcher delivers one leased record and records the outcome.
type Dispatcher struct {
	store           Store
	policy          *BackoffPolicy
	maxAttempts     int
	deliveryTimeout time.Duration
	dbTimeout       time.Duration
	opts            options
	tracer          *tracePropagator
	metrics         *relayMetrics
}

func NewDispatcher(store Store, policy *BackoffPolicy, cfg Config, opts ...Option) *Dispatcher {
	o := newOptions(opts)
	return &Dispatcher{
		store:           store,
		policy:          policy,
		maxAttempts:     cfg.MaxAttempts,
		deliveryTimeout: cfg.DeliveryTimeout,
		dbTimeout:       cfg.DBTimeout,
		opts:            o,
		tracer:          newTracePropagator(o.tracerProvider, o.table),
		metrics:         mustRelayMetrics(o.meterProvider, o.table, o.log),
	}
}

// DispatchOne hands rec to sink and applies the resulting transition.
// Only a *StorageError is returned; every delivery problem is recorded on
// the row instead. On success rec reflects the stored state.
//
// A record whose lease already ran out by the dispatcher clock is not handed
// to the sink. A lease that expires during delivery still lets the sink see
// the record twice once another worker takes it over.
func (d *Dispatcher) DispatchOne(ctx context.Context, rec *Record, sink Sink) (Outcome, error) {
	started := time.Now()
	log := d.opts.log.With(
		zap.String("table", d.opts.table),
		zap.Stringer("id", rec.ID),
		zap.String("type", rec.Type),
	)

	if rec.Status != StatusLeased {
		log.Debug("record not leased, skipping", zap.Stringer("status", rec.Status))
		d.metrics.recordOutcome(ctx, OutcomeSkipped, rec.Type, time.Since(started))
		return OutcomeSkipped, nil
	}
	if rec.LeaseExpired(d.opts.clock()) {
		log.Warn("lease expired before delivery, skipping",
			zap.String("owner", rec.LeaseOwner),
			zap.Timep("leaseExpiresAt", rec.LeaseExpiresAt),
		)
		d.metrics.recordOutcome(ctx, OutcomeLeaseLost, rec.Type, time.Since(started))
		return OutcomeLeaseLost, nil
	}

	ctx, span := d.tracer.StartDispatchSpan(ctx, rec)
	defer span.End()
	log = tracing.WithTraceFields(ctx, log)

	var deliverErr error
	if ctx.Err() != nil {
		deliverErr = ctx.Err()
	} else {
		deliverErr = d.deliver(ctx, rec, sink)
	}
	t, outcome := d.decide(ctx, rec, deliverErr)

	// The outcome is recorded even when the worker is stopping.
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.dbTimeout)
	defer cancel()

	if err := d.store.Apply(c, t); err != nil {
		if errors.Is(err, ErrLeaseExpired) {
			log.Warn("lease lost before outcome was recorded",
				zap.String("owner", rec.LeaseOwner),
				zap.String("intended", t.To.String()),
			)
			span.SetAttributes(attribute.String("relay.outcome", OutcomeLeaseLost.String()))
			d.metrics.recordOutcome(ctx, OutcomeLeaseLost, rec.Type, time.Since(started))
			return OutcomeLeaseLost, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "record outcome")
		return OutcomeUnknown, storageError("apply", err)
	}

	applyTransition(rec, t)
	span.SetAttributes(attribute.String("relay.outcome", outcome.String()))
	if deliverErr != nil {
		span.RecordError(deliverErr)
		span.SetStatus(codes.Error, "delivery failed")
	}
	d.logOutcome(log, outcome, rec, deliverErr)
	d.metrics.recordOutcome(ctx, outcome, rec.Type, time.Since(started))
	return outcome, nil
}

func (d *Dispatcher) deliver(ctx context.Context, rec *Record, sink Sink) (err error) {
	c, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
		if err != nil {
			err = &DeliveryFailure{
				RecordID: rec.ID,
				Err:      err,
				TimedOut: errors.Is(c.Err(), context.DeadlineExceeded) && ctx.Err() == nil,
			}
		}
	}()

	return sink.Deliver(c, rec.Clone())
}

func (d *Dispatcher) decide(ctx context.Context, rec *Record, deliverErr error) (Transition, Outcome) {
	now := d.opts.clock()
	t := Transition{
		ID:          rec.ID,
		Owner:       rec.LeaseOwner,
		Attempts:    rec.Attempts,
		AvailableAt: rec.AvailableAt,
		LastError:   rec.LastError,
	}

	switch {
	case deliverErr == nil:
		t.To = StatusDelivered
		t.ProcessedAt = &now
		return t, OutcomeDelivered

	case ctx.Err() != nil:
		t.To = StatusPending
		t.AvailableAt = now
		t.LastError = shutdownError
		return t, OutcomeReleased

	case errors.Is(deliverErr, ErrSinkUnavailable):
		t.To = StatusPending
		t.AvailableAt = now.Add(d.policy.NextAttemptDelay(rec.Attempts))
		t.LastError = deliverErr.Error()
		return t, OutcomeReleased
	}

	t.Attempts = rec.Attempts + 1
	t.LastError = deliverErr.Error()
	if IsPermanent(deliverErr) || t.Attempts >= d.maxAttempts {
		t.To = StatusDead
		t.ProcessedAt = &now
		return t, OutcomeDeadLettered
	}

	t.To = StatusPending
	t.AvailableAt = now.Add(d.policy.NextAttemptDelay(t.Attempts))
	return t, OutcomeRetryScheduled
}

func (d *Dispatcher) logOutcome(log *zap.Logger, outcome Outcome, rec *Record, deliverErr error) {
	switch outcome {
	case OutcomeDelivered:
		log.Debug("record delivered", zap.Int("attempts", rec.Attempts))
	case OutcomeRetryScheduled:
		log.Warn("delivery failed, retry scheduled",
			zap.Int("attempts", rec.Attempts),
			zap.Time("available_at", rec.AvailableAt),
			zap.Error(deliverErr),
		)
	case OutcomeDeadLettered:
		log.Error("record dead-lettered",
			zap.Int("attempts", rec.Attempts),
			zap.Bool("permanent", IsPermanent(deliverErr)),
			zap.Error(deliverErr),
		)
	case OutcomeReleased:
		log.Info("lease released without attempt",
			zap.Time("available_at", rec.AvailableAt),
			zap.Error(deliverErr),
		)
	}
}

// applyTransition mirrors a successful Apply on the in-memory record.
func applyTransition(rec *Record, t Transition) {
	rec.Status = t.To
	rec.Attempts = t.Attempts
	rec.AvailableAt = t.AvailableAt
	rec.LastError = t.LastError
	rec.ProcessedAt = t.ProcessedAt
	rec.LeaseOwner = ""
	rec.LeaseExpiresAt = nil
}
