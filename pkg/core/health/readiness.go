package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

type component struct {
	ready     bool
	startedAt time.Time
}

type readiness struct {
	mu         sync.Mutex
	components map[string]*component
	readyChan  chan struct{}
	readyOnce  sync.Once
	log        *zap.Logger
}

func newReadiness(log *zap.Logger) *readiness {
	return &readiness{
		components: make(map[string]*component),
		readyChan:  make(chan struct{}),
		log:        log,
	}
}

func (r *readiness) AddComponent(name string) func() {
	if name == "" {
		panic("health: component name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		r.log.Warn("component already registered", zap.String("component", name))
	} else {
		r.components[name] = &component{startedAt: time.Now()}
	}
	return func() { r.markReady(name) }
}

func (r *readiness) markReady(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, exists := r.components[name]
	if !exists || comp.ready {
		return
	}
	comp.ready = true
	r.log.Debug("component ready",
		zap.String("component", name),
		zap.Duration("took", time.Since(comp.startedAt)),
	)

	for _, c := range r.components {
		if !c.ready {
			return
		}
	}
	r.readyOnce.Do(func() {
		close(r.readyChan)
		r.log.Info("all components ready", zap.Int("components", len(r.components)))
	})
}

func (r *readiness) IsReady() bool {
	select {
	case <-r.readyChan:
		return true
	default:
		return false
	}
}

func (r *readiness) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []string
	for name, c := range r.components {
		if !c.ready {
			pending = append(pending, name)
		}
	}
	slices.Sort(pending)
	return pending
}

func (r *readiness) WaitReady(ctx context.Context) error {
	select {
	case <-r.readyChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
