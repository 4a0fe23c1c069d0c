package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/core/health"
	"github.com/Sokol111/ecommerce-relay/pkg/core/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type worker interface {
	Start()
	Stop(ctx context.Context) error
}

// runnable is a type whose Run blocks until ctx is cancelled (nil) or a fatal error occurs.
type runnable interface {
	Run(ctx context.Context) error
}

// pendingLogInterval is how often a worker blocked on readiness reports
// the components it is still waiting for.
const pendingLogInterval = 10 * time.Second

type Options struct {
	WaitReady       bool
	ShutdownOnError bool
}

type Option func(*Options)

// WithReady makes the worker wait for all components to be ready before starting.
func WithReady() Option {
	return func(o *Options) {
		o.WaitReady = true
	}
}

// WithShutdown makes the worker trigger application shutdown on fatal error or panic.
func WithShutdown() Option {
	return func(o *Options) {
		o.ShutdownOnError = true
	}
}

type baseWorker struct {
	name       string
	cancelFunc context.CancelFunc
	done       chan struct{}
	startOnce  sync.Once
	log        *zap.Logger
	runFunc    func(ctx context.Context) error
	shutdowner fx.Shutdowner
	readiness  health.ReadinessWaiter
	options    Options
}

// Start runs the worker in its own goroutine. The run context carries a
// logger tagged with the worker name.
func (w *baseWorker) Start() {
	w.startOnce.Do(func() {
		w.log.Info("starting worker")
		ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), w.log))
		w.cancelFunc = cancel
		w.done = make(chan struct{})
		go func() {
			defer close(w.done)
			w.run(ctx)
		}()
	})
}

func (w *baseWorker) run(ctx context.Context) {
	if w.options.WaitReady {
		if err := w.awaitReadiness(ctx); err != nil {
			w.log.Info("worker stopped while waiting for readiness")
			return
		}
	}

	err := w.safeRun(ctx)
	if err == nil {
		w.log.Info("worker stopped")
		return
	}

	if !w.options.ShutdownOnError {
		w.log.Error("worker stopped with error", zap.Error(err))
		return
	}

	w.log.Error("worker fatal error, initiating shutdown", zap.Error(err))
	if shutdownErr := w.shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
		w.log.Error("failed to initiate shutdown", zap.Error(shutdownErr))
	}
}

func (w *baseWorker) awaitReadiness(ctx context.Context) error {
	ready := make(chan error, 1)
	go func() { ready <- w.readiness.WaitReady(ctx) }()

	ticker := time.NewTicker(pendingLogInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-ready:
			return err
		case <-ticker.C:
			w.log.Info("waiting for components", zap.Strings("pending", w.readiness.Pending()))
		}
	}
}

func (w *baseWorker) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %s panicked: %v\n%s", w.name, r, debug.Stack())
		}
	}()
	return w.runFunc(ctx)
}

// Stop cancels the run context and waits for the goroutine, bounded by ctx.
func (w *baseWorker) Stop(ctx context.Context) error {
	if w.cancelFunc == nil {
		return nil
	}
	w.log.Info("stopping worker")
	w.cancelFunc()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker %s did not stop in time: %w", w.name, ctx.Err())
	}
}

func registerWorker(lc fx.Lifecycle, w worker) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.Start()
			return nil
		},
		OnStop: w.Stop,
	})
}

// Register creates an fx.Annotate that provides a worker for the given dependency type.
// The dependency must have a Run(ctx context.Context) error method.
//
// Example:
//
//	fx.Provide(worker.Register[*relay.OutboxRelay]("outbox-relay", worker.WithReady(), worker.WithShutdown()))
func Register[T runnable](name string, opts ...Option) any {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	return fx.Annotate(
		func(lc fx.Lifecycle, log *zap.Logger, shutdowner fx.Shutdowner, readiness health.ReadinessWaiter, dep T) worker {
			w := &baseWorker{
				name:       name,
				log:        log.With(zap.String("worker", name)),
				runFunc:    dep.Run,
				shutdowner: shutdowner,
				readiness:  readiness,
				options:    options,
			}
			registerWorker(lc, w)
			return w
		},
		fx.ResultTags(`group:"workers"`),
	)
}

// InvokeWorkers forces construction of every registered worker.
func InvokeWorkers() fx.Option {
	return fx.Invoke(fx.Annotate(func([]worker) {}, fx.ParamTags(`group:"workers"`)))
}
