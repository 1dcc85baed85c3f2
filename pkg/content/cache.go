package content

import (
	"github.com/VictoriaMetrics/fastcache"
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/runtime/syncutils"
)

// DefaultRegistrationCacheSize is the memory budget of the registration cache in bytes.
const DefaultRegistrationCacheSize = 32 * 1024 * 1024

// RegistrationCache maps addresses to their registered public keys.
//
// Get, Put and Delete are safe for concurrent use. Lock serializes compound lookups of callers.
type RegistrationCache struct {
	cache      *fastcache.Cache
	scopeMutex syncutils.Mutex
}

func NewRegistrationCache(maxBytes int) *RegistrationCache {
	return &RegistrationCache{
		cache: fastcache.New(maxBytes),
	}
}

func (r *RegistrationCache) Get(address string) (*btcec.PublicKey, bool) {
	raw, exists := r.cache.HasGet(nil, []byte(address))
	if !exists {
		return nil, false
	}

	publicKey, err := btcec.ParsePubKey(raw)
	if err != nil {
		r.cache.Del([]byte(address))

		return nil, false
	}

	return publicKey, true
}

func (r *RegistrationCache) Put(address string, publicKey *btcec.PublicKey) {
	r.cache.Set([]byte(address), publicKey.SerializeCompressed())
}

func (r *RegistrationCache) Delete(address string) {
	r.cache.Del([]byte(address))
}

// Lock acquires the scope lock and returns the func releasing it.
func (r *RegistrationCache) Lock() (unlock func()) {
	r.scopeMutex.Lock()

	return r.scopeMutex.Unlock
}

func (r *RegistrationCache) Size() int {
	var stats fastcache.Stats
	r.cache.UpdateStats(&stats)

	return int(stats.EntriesCount)
}

// FileCache maps content ids to the latest handle known for them.
//
// Get, Put, Update and Delete are safe for concurrent use. Lock serializes compound operations of callers.
type FileCache struct {
	handles      *shrinkingmap.ShrinkingMap[string, *FHandle]
	handlesMutex syncutils.RWMutex
	scopeMutex   syncutils.Mutex
}

func NewFileCache() *FileCache {
	return &FileCache{
		handles: shrinkingmap.New[string, *FHandle](),
	}
}

func (f *FileCache) Get(cid string) (*FHandle, bool) {
	f.handlesMutex.RLock()
	defer f.handlesMutex.RUnlock()

	return f.handles.Get(cid)
}

func (f *FileCache) Put(handle *FHandle) {
	f.handlesMutex.Lock()
	defer f.handlesMutex.Unlock()

	f.handles.Set(handle.CID(), handle)
}

// Update replaces the handle of cid with the result of updateFunc. The argument is nil if cid is not cached.
func (f *FileCache) Update(cid string, updateFunc func(cached *FHandle) *FHandle) *FHandle {
	f.handlesMutex.Lock()
	defer f.handlesMutex.Unlock()

	cached, _ := f.handles.Get(cid)

	updated := updateFunc(cached)
	f.handles.Set(cid, updated)

	return updated
}

func (f *FileCache) Delete(cid string) {
	f.handlesMutex.Lock()
	defer f.handlesMutex.Unlock()

	f.handles.Delete(cid)
}

// DeleteOwnedExcept drops the handles of owner whose content id is not in keep and returns their ids.
func (f *FileCache) DeleteOwnedExcept(owner string, keep map[string]struct{}) []string {
	f.handlesMutex.Lock()
	defer f.handlesMutex.Unlock()

	var deleted []string
	f.handles.ForEach(func(cid string, handle *FHandle) bool {
		if handle.Owner() == nil || handle.Owner().String() != owner {
			return true
		}

		if _, kept := keep[cid]; !kept {
			deleted = append(deleted, cid)
		}

		return true
	})

	for _, cid := range deleted {
		f.handles.Delete(cid)
	}

	return deleted
}

// Lock acquires the scope lock and returns the func releasing it.
func (f *FileCache) Lock() (unlock func()) {
	f.scopeMutex.Lock()

	return f.scopeMutex.Unlock
}

func (f *FileCache) Size() int {
	f.handlesMutex.RLock()
	defer f.handlesMutex.RUnlock()

	return f.handles.Size()
}
