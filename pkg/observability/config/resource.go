package config

import (
	"context"
	"fmt"

	coreconfig "github.com/Sokol111/ecommerce-relay/pkg/core/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceNamespace groups every relay deployment under one namespace in the
// telemetry backend, whichever service embeds it.
const ServiceNamespace = "relay"

// Resource describes the running relay process for both exporters.
func Resource(ctx context.Context, app coreconfig.AppConfig) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(app.ServiceName),
			semconv.ServiceVersion(app.ServiceVersion),
			semconv.ServiceNamespace(ServiceNamespace),
			semconv.DeploymentEnvironmentName(app.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}
	return res, nil
}
