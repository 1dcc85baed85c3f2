// Package collector groups prometheus metrics into named collections whose values are pulled from
// callbacks when the registry is gathered.
package collector

import (
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iotaledger/hive.go/runtime/syncutils"
)

// Collector owns a prometheus registry and the collections registered to it.
type Collector struct {
	Registry *prometheus.Registry

	collections      map[string]*Collection
	collectionsMutex syncutils.RWMutex
}

var _ prometheus.Gatherer = &Collector{}

func New() *Collector {
	return &Collector{
		Registry:    prometheus.NewRegistry(),
		collections: make(map[string]*Collection),
	}
}

// RegisterCollection registers every metric of the collection and sets their initial values.
func (c *Collector) RegisterCollection(collection *Collection) error {
	c.collectionsMutex.Lock()
	defer c.collectionsMutex.Unlock()

	for _, m := range collection.metrics {
		if err := c.Registry.Register(m.promMetric); err != nil {
			return err
		}

		if m.initValueFunc != nil {
			value, labelValues := m.initValueFunc()
			m.update(value, labelValues...)
		}
	}

	c.collections[collection.Name] = collection

	return nil
}

// Collect refreshes every metric that has a collect func.
func (c *Collector) Collect() {
	c.collectionsMutex.RLock()
	defer c.collectionsMutex.RUnlock()

	for _, collection := range c.collections {
		for _, m := range collection.metrics {
			m.collect()
		}
	}
}

// Gather collects and then gathers the registry, so a scrape always sees fresh values.
func (c *Collector) Gather() ([]*dto.MetricFamily, error) {
	c.Collect()

	return c.Registry.Gather()
}

// Update sets (gauge) or adds to (counter) the metric of the given collection. Label values must
// follow the order the labels were defined in.
func (c *Collector) Update(collectionName string, metricName string, value float64, labelValues ...string) {
	if m := c.metric(collectionName, metricName); m != nil {
		m.update(value, labelValues...)
	}
}

// Increment increments the metric of the given collection.
func (c *Collector) Increment(collectionName string, metricName string, labelValues ...string) {
	if m := c.metric(collectionName, metricName); m != nil {
		m.increment(labelValues...)
	}
}

func (c *Collector) metric(collectionName string, metricName string) *Metric {
	c.collectionsMutex.RLock()
	defer c.collectionsMutex.RUnlock()

	collection, exists := c.collections[collectionName]
	if !exists {
		return nil
	}

	return collection.Metric(metricName)
}
