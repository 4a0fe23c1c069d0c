package health

import "context"

// ComponentManager registers a component that must start before the relay
// loops run (database pool, broker connection, telemetry exporters).
type ComponentManager interface {
	// AddComponent returns the function that marks name as ready.
	AddComponent(name string) func()
}

// ReadinessWaiter blocks background workers until every registered
// component is ready.
type ReadinessWaiter interface {
	WaitReady(ctx context.Context) error
	// Pending lists components not ready yet, sorted by name.
	Pending() []string
}
