package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Errors are logged here instead of being returned so that instrumented code does not have to
// check the result of every observation.

type Manager interface {
	NewCounter(name, desc string)
	NewUpDownCounter(name, desc string)
	NewHistogram(name, desc string, buckets ...float64)
	NewGauge(name, desc string)

	IncrementCounter(ctx context.Context, name string, labels ...string)
	DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string)
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
}

type Logger interface {
	Error(args ...any)
	Errorf(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
}

const cardinalityLimit = 20

type metricsManager struct {
	meter  metric.Meter
	store  *store
	logger Logger
}

// NewMetricsManager returns a Manager that creates its instruments on meter.
func NewMetricsManager(meter metric.Meter, logger Logger) Manager {
	return &metricsManager{
		meter:  meter,
		store:  newStore(),
		logger: logger,
	}
}

// NewCounter registers a monotonically increasing counter.
//
//	Usage: m.NewCounter("app_gateway_retries_total", "Number of upstream retries")
func (m *metricsManager) NewCounter(name, desc string) {
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error(err)

		return
	}

	if err = m.store.setCounter(name, counter); err != nil {
		m.logger.Error(err)
	}
}

// NewUpDownCounter registers a counter that can move in both directions.
func (m *metricsManager) NewUpDownCounter(name, desc string) {
	upDownCounter, err := m.meter.Float64UpDownCounter(name, metric.WithDescription(desc))
	if err != nil {
		m.logger.Error(err)

		return
	}

	if err = m.store.setUpDownCounter(name, upDownCounter); err != nil {
		m.logger.Error(err)
	}
}

// NewHistogram registers a histogram with explicit bucket boundaries.
//
//	Usage:
//	 m.NewHistogram("app_gateway_upstream_response", "Upstream response time in seconds", .005, .01, .1, 1, 5)
func (m *metricsManager) NewHistogram(name, desc string, buckets ...float64) {
	histogram, err := m.meter.Float64Histogram(name, metric.WithDescription(desc),
		metric.WithExplicitBucketBoundaries(buckets...))
	if err != nil {
		m.logger.Error(err)

		return
	}

	if err = m.store.setHistogram(name, histogram); err != nil {
		m.logger.Error(err)
	}
}

// NewGauge registers a gauge. The meter reads the last value passed to SetGauge for every
// label set on each collection.
func (m *metricsManager) NewGauge(name, desc string) {
	if err := m.store.registerGauge(name); err != nil {
		m.logger.Error(err)

		return
	}

	_, err := m.meter.Float64ObservableGauge(name, metric.WithDescription(desc),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			for _, v := range m.store.gaugeValues(name) {
				o.Observe(v.value, metric.WithAttributeSet(v.attrs))
			}

			return nil
		}))
	if err != nil {
		m.logger.Error(err)
	}
}

// IncrementCounter increases the counter by 1. Labels alternate between name and value:
//
//	m.IncrementCounter(ctx, "app_gateway_retries_total", "service", "flight-service")
func (m *metricsManager) IncrementCounter(ctx context.Context, name string, labels ...string) {
	counter, err := m.store.getCounter(name)
	if err != nil {
		m.logger.Error(err)

		return
	}

	counter.Add(ctx, 1, metric.WithAttributes(m.getAttributes(name, labels...)...))
}

func (m *metricsManager) DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string) {
	upDownCounter, err := m.store.getUpDownCounter(name)
	if err != nil {
		m.logger.Error(err)

		return
	}

	upDownCounter.Add(ctx, value, metric.WithAttributes(m.getAttributes(name, labels...)...))
}

func (m *metricsManager) RecordHistogram(ctx context.Context, name string, value float64, labels ...string) {
	histogram, err := m.store.getHistogram(name)
	if err != nil {
		m.logger.Error(err)

		return
	}

	histogram.Record(ctx, value, metric.WithAttributes(m.getAttributes(name, labels...)...))
}

// SetGauge replaces the current value of the gauge for the given labels.
func (m *metricsManager) SetGauge(name string, value float64, labels ...string) {
	attrs := attribute.NewSet(m.getAttributes(name, labels...)...)

	if err := m.store.observe(name, value, attrs); err != nil {
		m.logger.Error(err)
	}
}

// getAttributes validates the given labels and convert them to corresponding otel attributes.
func (m *metricsManager) getAttributes(name string, labels ...string) []attribute.KeyValue {
	labelsCount := len(labels)
	if labelsCount%2 != 0 {
		m.logger.Warnf("Metrics %v label has invalid key-value pairs", name)
	}

	if labelsCount > cardinalityLimit {
		m.logger.Warnf("Metrics %v has high cardinality: %v", name, labelsCount)
	}

	attributes := make([]attribute.KeyValue, 0, labelsCount/2)

	for i := 0; i < len(labels)-1; i += 2 {
		attributes = append(attributes, attribute.String(labels[i], labels[i+1]))
	}

	return attributes
}
