package content

import (
	"context"
	"io"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/runtime/workerpool"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore"
	"github.com/iotaledger/ledger-ipfs/pkg/promise"
)

// fetcher reads content from the object store on a bounded worker pool. Concurrent fetches of
// the same content id share one read.
type fetcher struct {
	store       objectstore.Store
	workerPool  *workerpool.WorkerPool
	materialize func(cid string, content io.Reader) (*FHandle, error)

	inFlight      map[string]*promise.Promise[*FHandle]
	inFlightMutex syncutils.Mutex
}

func newFetcher(store objectstore.Store, workerCount int, materialize func(cid string, content io.Reader) (*FHandle, error)) *fetcher {
	return &fetcher{
		store:       store,
		workerPool:  workerpool.New("ContentFetcher", workerpool.WithWorkerCount(workerCount)).Start(),
		materialize: materialize,
		inFlight:    make(map[string]*promise.Promise[*FHandle]),
	}
}

// Fetch returns a promise for the materialized content of cid. The read runs until it completes or
// ctx is done, independent of how long callers wait for the promise.
func (f *fetcher) Fetch(ctx context.Context, cid string) *promise.Promise[*FHandle] {
	f.inFlightMutex.Lock()
	defer f.inFlightMutex.Unlock()

	if p, exists := f.inFlight[cid]; exists {
		return p
	}

	p := promise.New[*FHandle]()
	f.inFlight[cid] = p

	f.workerPool.Submit(func() {
		handle, err := f.read(ctx, cid)

		f.inFlightMutex.Lock()
		delete(f.inFlight, cid)
		f.inFlightMutex.Unlock()

		if err != nil {
			p.Reject(err)

			return
		}

		p.Resolve(handle)
	})

	return p
}

func (f *fetcher) read(ctx context.Context, cid string) (*FHandle, error) {
	reader, err := f.store.Get(ctx, cid)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to get %s", cid)
	}
	defer reader.Close()

	return f.materialize(cid, reader)
}

func (f *fetcher) Shutdown() {
	f.workerPool.Shutdown()
	f.workerPool.ShutdownComplete.Wait()
}
