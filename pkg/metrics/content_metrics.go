// Package metrics holds the runtime counters of the content manager and exposes them as a prometheus collection.
package metrics

import (
	"go.uber.org/atomic"

	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/ledger-ipfs/pkg/metrics/collector"
)

const (
	contentNamespace = "content"

	registrations     = "registrations_total"
	filesAdded        = "files_added_total"
	filesSent         = "files_sent_total"
	fetchesScheduled  = "fetches_scheduled_total"
	fetchesPending    = "fetches_pending"
	fetchesAvailable  = "fetches_available_total"
	fetchesExpired    = "fetches_expired_total"
	fetchesTimedOut   = "fetches_timed_out_total"
	cachedRegistrants = "cached_registrations"
	cachedFiles       = "cached_files"
)

// ContentMetrics are the counters of one content manager.
type ContentMetrics struct {
	Registrations    atomic.Uint64
	FilesAdded       atomic.Uint64
	FilesSent        atomic.Uint64
	FetchesScheduled atomic.Uint64
	FetchesPending   atomic.Int64
	FetchesAvailable atomic.Uint64
	FetchesExpired   atomic.Uint64
	FetchesTimedOut  atomic.Uint64
}

// NewContentCollection exposes the counters. The cache sizes are read through the given funcs on every scrape.
func NewContentCollection(m *ContentMetrics, registrationCacheSize func() int, fileCacheSize func() int) *collector.Collection {
	return collector.NewCollection(contentNamespace,
		counterMetric(registrations, "Public keys recorded on the ledger.", &m.Registrations),
		counterMetric(filesAdded, "Files encrypted, stored and recorded.", &m.FilesAdded),
		counterMetric(filesSent, "Files re-encrypted for and recorded to another address.", &m.FilesSent),
		counterMetric(fetchesScheduled, "Object store fetches scheduled on the worker pool.", &m.FetchesScheduled),
		counterMetric(fetchesAvailable, "Fetches that resolved to an available file.", &m.FetchesAvailable),
		counterMetric(fetchesExpired, "Fetches for content the object store does not know.", &m.FetchesExpired),
		counterMetric(fetchesTimedOut, "Fetches that did not finish within the caller timeout.", &m.FetchesTimedOut),
		gaugeMetric(fetchesPending, "Fetches currently in flight.", func() float64 { return float64(m.FetchesPending.Load()) }),
		gaugeMetric(cachedRegistrants, "Entries in the registration cache.", func() float64 { return float64(registrationCacheSize()) }),
		gaugeMetric(cachedFiles, "Entries in the file cache.", func() float64 { return float64(fileCacheSize()) }),
	)
}

// counterMetric is a gauge fed from a monotonic counter so the exported value is always the absolute count.
func counterMetric(name string, help string, counter *atomic.Uint64) options.Option[collector.Collection] {
	return gaugeMetric(name, help, func() float64 { return float64(counter.Load()) })
}

func gaugeMetric(name string, help string, value func() float64) options.Option[collector.Collection] {
	return collector.WithMetric(collector.NewMetric(name,
		collector.WithType(collector.Gauge),
		collector.WithHelp(help),
		collector.WithCollectFunc(func() (float64, []string) {
			return value(), nil
		}),
	))
}
