package content

import (
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/ledger-ipfs/pkg/metrics"
)

const (
	// DefaultFetchTimeout is used when a caller does not pass a timeout.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultWorkerCount is the number of concurrent object store reads.
	DefaultWorkerCount = 12

	// DefaultMaxFetchAttempts bounds the attempts of a background fetch.
	DefaultMaxFetchAttempts = 5

	// symmetricKeyBits is the strength of the per file content key.
	symmetricKeyBits = 256
)

// Config is the configuration of a Manager.
type Config struct {
	// RootDir holds the plain, crypt and tmp directories.
	RootDir string
	// FetchTimeout is the timeout of object store fetches if the caller passes none.
	FetchTimeout time.Duration
	// WorkerCount is the number of concurrent object store reads.
	WorkerCount int
	// MaxFetchAttempts bounds the attempts of a background fetch.
	MaxFetchAttempts int
	// ReplaceExisting allows overwriting existing plain files.
	ReplaceExisting bool
}

// DefaultConfig returns the default configuration for the given root directory.
func DefaultConfig(rootDir string) Config {
	return Config{
		RootDir:          rootDir,
		FetchTimeout:     DefaultFetchTimeout,
		WorkerCount:      DefaultWorkerCount,
		MaxFetchAttempts: DefaultMaxFetchAttempts,
		ReplaceExisting:  true,
	}
}

func (c Config) fetchTimeout(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}

	if c.FetchTimeout > 0 {
		return c.FetchTimeout
	}

	return DefaultFetchTimeout
}

// WithLogger sets the logger of the manager.
func WithLogger(logger log.Logger) options.Option[Manager] {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRegistrationCache injects the registration cache, so it can be shared between managers.
func WithRegistrationCache(cache *RegistrationCache) options.Option[Manager] {
	return func(m *Manager) {
		m.registrations = cache
	}
}

// WithFileCache injects the file cache.
func WithFileCache(cache *FileCache) options.Option[Manager] {
	return func(m *Manager) {
		m.files = cache
	}
}

// WithIndexStore sets the store that keeps the index of published content.
func WithIndexStore(store kvstore.KVStore) options.Option[Manager] {
	return func(m *Manager) {
		m.optsIndexStore = store
	}
}

// WithMetrics sets the counters the manager reports to.
func WithMetrics(contentMetrics *metrics.ContentMetrics) options.Option[Manager] {
	return func(m *Manager) {
		m.metrics = contentMetrics
	}
}
