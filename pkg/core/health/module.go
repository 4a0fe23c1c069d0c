package health

import (
	"context"

	"go.uber.org/fx"
)

// NewReadinessModule provides the readiness tracker. The app itself is a
// component that becomes ready after every OnStart hook has run, so the
// relay loops never start against a half-started graph.
func NewReadinessModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newReadiness,
			func(r *readiness) ComponentManager { return r },
			func(r *readiness) ReadinessWaiter { return r },
		),
		fx.Invoke(func(lc fx.Lifecycle, r *readiness) {
			markStarted := r.AddComponent("app")
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					markStarted()
					return nil
				},
			})
		}),
	)
}
