package relay

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult summarizes one poll.
type BatchResult struct {
	Claimed   int
	Reclaimed int
	Outcomes  map[Outcome]int
}

// Relay drives one table: lease a batch, dispatch it with bounded
// concurrency, sleep, repeat.
type Relay struct {
	workerID   string
	cfg        Config
	sink       Sink
	leases     *LeaseManager
	dispatcher *Dispatcher
	opts       options
	throttler  *logger.LogThrottler
	metrics    *relayMetrics
}

func NewRelay(store Store, sink Sink, policy *BackoffPolicy, cfg Config, opts ...Option) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || sink == nil || policy == nil {
		return nil, fmt.Errorf("%w: relay needs a store, a sink and a backoff policy", ErrInvalidArgument)
	}

	o := newOptions(opts)
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = DefaultWorkerID()
	}

	return &Relay{
		workerID:   workerID,
		cfg:        cfg,
		sink:       sink,
		leases:     NewLeaseManager(store, cfg.DBTimeout, opts...),
		dispatcher: NewDispatcher(store, policy, cfg, opts...),
		opts:       o,
		throttler:  logger.NewLogThrottler(o.log, time.Minute),
		metrics:    mustRelayMetrics(o.meterProvider, o.table, o.log),
	}, nil
}

// DefaultWorkerID returns hostname-pid-<8 random hex chars>.
func DefaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "relay"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

func (r *Relay) WorkerID() string {
	return r.workerID
}

// Run polls until ctx is cancelled. Storage errors never stop the loop;
// they are logged (throttled) and followed by error-backoff.
func (r *Relay) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).With(zap.String("table", r.opts.table), zap.String("worker_id", r.workerID))
	log.Info("relay started",
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Int("concurrency", r.cfg.Concurrency),
		zap.Duration("lease_duration", r.cfg.LeaseDuration),
	)
	defer log.Info("relay stopped")

	for {
		res, err := r.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		var wait time.Duration
		switch {
		case err != nil:
			r.throttler.Warn("poll:"+r.opts.table, "relay poll failed", zap.String("table", r.opts.table), zap.Error(err))
			wait = r.cfg.ErrorBackoff
		case res.Claimed < r.cfg.BatchSize:
			wait = r.cfg.PollInterval
		}

		if wait == 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce leases one batch and dispatches it. The first storage error is
// returned after the whole batch has been attempted.
func (r *Relay) RunOnce(ctx context.Context) (BatchResult, error) {
	res := BatchResult{Outcomes: make(map[Outcome]int)}

	records, err := r.leases.AcquireBatch(ctx, r.workerID, r.cfg.BatchSize, r.cfg.LeaseDuration)
	if err != nil {
		r.metrics.recordAcquireError(ctx)
		return res, err
	}

	res.Claimed = len(records)
	for _, rec := range records {
		if rec.ReclaimedFrom != "" {
			res.Reclaimed++
		}
	}
	r.metrics.recordBatch(ctx, res.Claimed, res.Reclaimed)
	if res.Claimed == 0 {
		return res, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.cfg.Concurrency)
	for _, rec := range records {
		g.Go(func() error {
			outcome, err := r.dispatcher.DispatchOne(ctx, rec, r.sink)
			mu.Lock()
			res.Outcomes[outcome]++
			mu.Unlock()
			return err
		})
	}
	return res, g.Wait()
}
