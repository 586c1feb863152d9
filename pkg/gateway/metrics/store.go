package metrics

import (
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// gaugeValue is the latest observation for one attribute set of a gauge.
type gaugeValue struct {
	attrs attribute.Set
	value float64
}

type store struct {
	mu sync.RWMutex

	counter       map[string]metric.Int64Counter
	upDownCounter map[string]metric.Float64UpDownCounter
	histogram     map[string]metric.Float64Histogram
	gauge         map[string]map[attribute.Distinct]gaugeValue
}

func newStore() *store {
	return &store{
		counter:       make(map[string]metric.Int64Counter),
		upDownCounter: make(map[string]metric.Float64UpDownCounter),
		histogram:     make(map[string]metric.Float64Histogram),
		gauge:         make(map[string]map[attribute.Distinct]gaugeValue),
	}
}

func (s *store) getCounter(name string) (metric.Int64Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.counter[name]
	if !ok {
		return nil, metricsNotRegistered{metricsName: name}
	}

	return m, nil
}

func (s *store) getUpDownCounter(name string) (metric.Float64UpDownCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.upDownCounter[name]
	if !ok {
		return nil, metricsNotRegistered{metricsName: name}
	}

	return m, nil
}

func (s *store) getHistogram(name string) (metric.Float64Histogram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.histogram[name]
	if !ok {
		return nil, metricsNotRegistered{metricsName: name}
	}

	return m, nil
}

func (s *store) setCounter(name string, m metric.Int64Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.counter[name]; ok {
		return metricsAlreadyRegistered{metricsName: name}
	}

	s.counter[name] = m

	return nil
}

func (s *store) setUpDownCounter(name string, m metric.Float64UpDownCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.upDownCounter[name]; ok {
		return metricsAlreadyRegistered{metricsName: name}
	}

	s.upDownCounter[name] = m

	return nil
}

func (s *store) setHistogram(name string, m metric.Float64Histogram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.histogram[name]; ok {
		return metricsAlreadyRegistered{metricsName: name}
	}

	s.histogram[name] = m

	return nil
}

// registerGauge reserves name. The gauge has no values until the first observe call.
func (s *store) registerGauge(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.gauge[name]; ok {
		return metricsAlreadyRegistered{metricsName: name}
	}

	s.gauge[name] = make(map[attribute.Distinct]gaugeValue)

	return nil
}

func (s *store) observe(name string, value float64, attrs attribute.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.gauge[name]
	if !ok {
		return metricsNotRegistered{metricsName: name}
	}

	values[attrs.Equivalent()] = gaugeValue{attrs: attrs, value: value}

	return nil
}

func (s *store) gaugeValues(name string) []gaugeValue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]gaugeValue, 0, len(s.gauge[name]))
	for _, v := range s.gauge[name] {
		values = append(values, v)
	}

	return values
}
