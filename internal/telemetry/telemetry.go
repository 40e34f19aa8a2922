// Package telemetry provides OpenTelemetry metrics for the toolgate server.
package telemetry

import (
	"context"
	"fmt"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds the configuration for initializing telemetry providers.
type Config struct {
	// ServiceName is reported as the otel service.name resource attribute.
	ServiceName string
	// Enabled controls whether real providers are created.
	// When false, Init returns disabled providers and all metrics are no-ops.
	Enabled bool
}

// Providers bundles the telemetry providers used by the server.
type Providers struct {
	Meter metric.Meter

	serviceName   string
	enabled       bool
	meterProvider *sdkmetric.MeterProvider
}

// Init sets up the OpenTelemetry metrics pipeline with a Prometheus exporter.
// If telemetry is disabled, it returns a Providers whose IsEnabled() is false
// and performs no setup.
func Init(_ context.Context, cfg *Config) (*Providers, error) {
	p := &Providers{
		serviceName: cfg.ServiceName,
		enabled:     cfg.Enabled,
	}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	// The prometheus exporter makes metrics available for scraping on /metrics.
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	p.Meter = p.meterProvider.Meter(cfg.ServiceName)

	return p, nil
}

// IsEnabled returns true if telemetry collection is active.
func (p *Providers) IsEnabled() bool {
	return p != nil && p.enabled
}

// ServiceName returns the configured otel service name.
func (p *Providers) ServiceName() string {
	return p.serviceName
}

// Shutdown flushes and stops the metric providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
