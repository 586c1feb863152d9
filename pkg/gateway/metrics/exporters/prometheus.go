// Package exporters builds the OpenTelemetry meters the gateway records on.
package exporters

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricSdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"flightgate.dev/pkg/gateway/version"
)

// Prometheus returns a meter whose instruments are collected into a fresh registry. The registry
// is returned so the caller can serve it; nothing is registered on prometheus.DefaultRegisterer.
func Prometheus(appName, appVersion string) (metric.Meter, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithoutTargetInfo(),
		otelprom.WithoutScopeInfo(),
		otelprom.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, err
	}

	meter := metricSdk.NewMeterProvider(
		metricSdk.WithReader(exporter),
		metricSdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(appName),
			attribute.String("gateway_version", version.Gateway),
		))).Meter(appName, metric.WithInstrumentationVersion(appVersion))

	return meter, registry, nil
}
