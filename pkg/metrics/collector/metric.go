package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iotaledger/hive.go/runtime/options"
)

type MetricType uint8

const (
	// Gauge is set to the collected value.
	Gauge MetricType = iota
	// Counter adds the collected value to its current value.
	Counter
)

// Metric wraps a prometheus gauge or counter, with or without labels.
type Metric struct {
	Name string
	Type MetricType

	namespace     string
	help          string
	labels        []string
	collectFunc   func() (value float64, labelValues []string)
	initValueFunc func() (value float64, labelValues []string)

	promMetric prometheus.Collector
}

func NewMetric(name string, opts ...options.Option[Metric]) *Metric {
	return options.Apply(&Metric{
		Name: name,
	}, opts)
}

func (m *Metric) initPromMetric() {
	switch m.Type {
	case Gauge:
		opts := prometheus.GaugeOpts{Namespace: m.namespace, Name: m.Name, Help: m.help}
		if len(m.labels) > 0 {
			m.promMetric = prometheus.NewGaugeVec(opts, m.labels)
		} else {
			m.promMetric = prometheus.NewGauge(opts)
		}
	case Counter:
		opts := prometheus.CounterOpts{Namespace: m.namespace, Name: m.Name, Help: m.help}
		if len(m.labels) > 0 {
			m.promMetric = prometheus.NewCounterVec(opts, m.labels)
		} else {
			m.promMetric = prometheus.NewCounter(opts)
		}
	}
}

func (m *Metric) collect() {
	if m.collectFunc != nil {
		value, labelValues := m.collectFunc()
		m.update(value, labelValues...)
	}
}

func (m *Metric) update(value float64, labelValues ...string) {
	m.apply(labelValues, func(gauge prometheus.Gauge) {
		gauge.Set(value)
	}, func(counter prometheus.Counter) {
		counter.Add(value)
	})
}

func (m *Metric) increment(labelValues ...string) {
	m.apply(labelValues, prometheus.Gauge.Inc, prometheus.Counter.Inc)
}

// apply passes the gauge or counter addressed by labelValues to the matching func. Label values
// that do not match the defined labels are ignored.
func (m *Metric) apply(labelValues []string, gaugeFunc func(prometheus.Gauge), counterFunc func(prometheus.Counter)) {
	if len(labelValues) != len(m.labels) {
		return
	}

	// every gauge also satisfies prometheus.Counter, so gauges are matched first
	switch promMetric := m.promMetric.(type) {
	case *prometheus.GaugeVec:
		gaugeFunc(promMetric.WithLabelValues(labelValues...))
	case *prometheus.CounterVec:
		counterFunc(promMetric.WithLabelValues(labelValues...))
	case prometheus.Gauge:
		gaugeFunc(promMetric)
	case prometheus.Counter:
		counterFunc(promMetric)
	}
}

func WithType(t MetricType) options.Option[Metric] {
	return func(m *Metric) {
		m.Type = t
	}
}

func WithHelp(help string) options.Option[Metric] {
	return func(m *Metric) {
		m.help = help
	}
}

// WithLabels defines the labels of the metric. Updates pass label values in the same order.
func WithLabels(labels ...string) options.Option[Metric] {
	return func(m *Metric) {
		m.labels = labels
	}
}

// WithCollectFunc sets the func that provides the value whenever the collector is gathered.
func WithCollectFunc(collectFunc func() (value float64, labelValues []string)) options.Option[Metric] {
	return func(m *Metric) {
		m.collectFunc = collectFunc
	}
}

// WithInitValueFunc sets the func that provides the value when the metric is registered.
func WithInitValueFunc(initValueFunc func() (value float64, labelValues []string)) options.Option[Metric] {
	return func(m *Metric) {
		m.initValueFunc = initValueFunc
	}
}
