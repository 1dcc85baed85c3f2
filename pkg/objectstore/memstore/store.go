// Package memstore implements an in-memory content-addressed object store. Content ids are CIDv1
// with the raw codec over a sha2-256 multihash, so identical content always yields the same id.
package memstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"go.uber.org/atomic"

	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore"
)

// Version is reported by Store.Version.
const Version = "memstore/1.0"

// Store is an in-memory objectstore.Store.
type Store struct {
	objects      *shrinkingmap.ShrinkingMap[string, []byte]
	objectsMutex syncutils.RWMutex
	gets         atomic.Int64

	optsLatency func(cid string) time.Duration
	optsOffline bool
}

var _ objectstore.Store = &Store{}

func New(opts ...options.Option[Store]) *Store {
	return options.Apply(&Store{
		objects:     shrinkingmap.New[string, []byte](),
		optsLatency: func(string) time.Duration { return 0 },
	}, opts)
}

func (s *Store) Add(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return "", ierrors.Wrap(err, "failed to read content")
	}

	hash, err := multihash.Sum(content, multihash.SHA2_256, -1)
	if err != nil {
		return "", ierrors.Wrap(err, "failed to hash content")
	}

	contentID := cid.NewCidV1(cid.Raw, hash).String()

	s.objectsMutex.Lock()
	defer s.objectsMutex.Unlock()

	s.objects.Set(contentID, content)

	return contentID, nil
}

// Get returns the content stored under contentID. It waits for the configured latency first, a
// cancelled context aborts the wait.
func (s *Store) Get(ctx context.Context, contentID string) (io.ReadCloser, error) {
	s.gets.Inc()

	if latency := s.optsLatency(contentID); latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if err := objectstore.ValidateCID(contentID); err != nil {
		return nil, err
	}

	s.objectsMutex.RLock()
	content, exists := s.objects.Get(contentID)
	s.objectsMutex.RUnlock()

	if !exists {
		return nil, ierrors.Wrapf(objectstore.ErrNotFound, "cid %s", contentID)
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *Store) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return Version, nil
}

func (s *Store) IsUp(_ context.Context) bool {
	return !s.optsOffline
}

// Remove drops the content stored under contentID.
func (s *Store) Remove(contentID string) {
	s.objectsMutex.Lock()
	defer s.objectsMutex.Unlock()

	s.objects.Delete(contentID)
}

// Size returns the number of stored objects.
func (s *Store) Size() int {
	s.objectsMutex.RLock()
	defer s.objectsMutex.RUnlock()

	return s.objects.Size()
}

// GetCount returns the number of Get calls served so far.
func (s *Store) GetCount() int64 {
	return s.gets.Load()
}

// WithLatency delays every Get by the given duration.
func WithLatency(latency time.Duration) options.Option[Store] {
	return func(s *Store) {
		s.optsLatency = func(string) time.Duration { return latency }
	}
}

// WithLatencyFunc delays every Get by a per content id duration.
func WithLatencyFunc(latency func(cid string) time.Duration) options.Option[Store] {
	return func(s *Store) {
		s.optsLatency = latency
	}
}

// WithOffline makes IsUp report false.
func WithOffline(offline bool) options.Option[Store] {
	return func(s *Store) {
		s.optsOffline = offline
	}
}
