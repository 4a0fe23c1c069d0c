package relay

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

type relayMetrics struct {
	outcomes      metric.Int64Counter
	claimed       metric.Int64Counter
	reclaimed     metric.Int64Counter
	batchSize     metric.Int64Histogram
	dispatchTime  metric.Float64Histogram
	acquireErrors metric.Int64Counter
	table         attribute.KeyValue
}

func newRelayMetrics(mp metric.MeterProvider, table string) (*relayMetrics, error) {
	meter := mp.Meter(instrumentationName)
	m := &relayMetrics{table: attribute.String("relay.table", table)}

	var err error
	if m.outcomes, err = meter.Int64Counter("relay.records.dispatched",
		metric.WithDescription("Dispatch attempts by outcome (delivered, retried, dead, released, lease_lost, skipped)"),
		metric.WithUnit("{record}"),
	); err != nil {
		return nil, fmt.Errorf("create relay.records.dispatched counter: %w", err)
	}
	if m.claimed, err = meter.Int64Counter("relay.records.claimed",
		metric.WithDescription("Records leased by this worker"),
		metric.WithUnit("{record}"),
	); err != nil {
		return nil, fmt.Errorf("create relay.records.claimed counter: %w", err)
	}
	if m.reclaimed, err = meter.Int64Counter("relay.records.reclaimed",
		metric.WithDescription("Records taken over from expired leases"),
		metric.WithUnit("{record}"),
	); err != nil {
		return nil, fmt.Errorf("create relay.records.reclaimed counter: %w", err)
	}
	if m.batchSize, err = meter.Int64Histogram("relay.batch.size",
		metric.WithDescription("Records claimed per poll"),
		metric.WithUnit("{record}"),
	); err != nil {
		return nil, fmt.Errorf("create relay.batch.size histogram: %w", err)
	}
	if m.dispatchTime, err = meter.Float64Histogram("relay.dispatch.duration",
		metric.WithDescription("Time spent delivering one record and recording the outcome"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create relay.dispatch.duration histogram: %w", err)
	}
	if m.acquireErrors, err = meter.Int64Counter("relay.acquire.errors",
		metric.WithDescription("Failed lease acquisitions"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("create relay.acquire.errors counter: %w", err)
	}
	return m, nil
}

// mustRelayMetrics falls back to no-op instruments when the provider rejects
// an instrument, so metrics never block delivery.
func mustRelayMetrics(mp metric.MeterProvider, table string, log *zap.Logger) *relayMetrics {
	m, err := newRelayMetrics(mp, table)
	if err != nil {
		log.Warn("relay metrics disabled", zap.Error(err))
		m, _ = newRelayMetrics(noop.NewMeterProvider(), table)
	}
	return m
}

func (m *relayMetrics) recordOutcome(ctx context.Context, outcome Outcome, recordType string, took time.Duration) {
	attrs := metric.WithAttributes(m.table, attribute.String("relay.outcome", outcome.String()), attribute.String("relay.record.type", recordType))
	m.outcomes.Add(ctx, 1, attrs)
	m.dispatchTime.Record(ctx, took.Seconds(), attrs)
}

func (m *relayMetrics) recordBatch(ctx context.Context, claimed, reclaimed int) {
	attrs := metric.WithAttributes(m.table)
	m.batchSize.Record(ctx, int64(claimed), attrs)
	if claimed > 0 {
		m.claimed.Add(ctx, int64(claimed), attrs)
	}
	if reclaimed > 0 {
		m.reclaimed.Add(ctx, int64(reclaimed), attrs)
	}
}

func (m *relayMetrics) recordAcquireError(ctx context.Context) {
	m.acquireErrors.Add(ctx, 1, metric.WithAttributes(m.table))
}
