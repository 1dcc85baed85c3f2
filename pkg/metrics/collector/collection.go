package collector

import (
	"github.com/iotaledger/hive.go/runtime/options"
)

// Collection is a named set of metrics. Its name is used as the namespace of every metric in it.
type Collection struct {
	Name    string
	metrics map[string]*Metric
}

func NewCollection(name string, opts ...options.Option[Collection]) *Collection {
	return options.Apply(&Collection{
		Name:    name,
		metrics: make(map[string]*Metric),
	}, opts, func(c *Collection) {
		for _, m := range c.metrics {
			m.namespace = c.Name
			m.initPromMetric()
		}
	})
}

func (c *Collection) Metric(name string) *Metric {
	return c.metrics[name]
}

func WithMetric(metric *Metric) options.Option[Collection] {
	return func(c *Collection) {
		c.metrics[metric.Name] = metric
	}
}
