package content

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/bcdata"
	"github.com/iotaledger/ledger-ipfs/pkg/cipher"
	"github.com/iotaledger/ledger-ipfs/pkg/keys"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore"
	"github.com/iotaledger/ledger-ipfs/pkg/promise"
)

// Get fetches the content cid, decrypts it with the derived key of owner and writes the plain
// file to destPath below the plain directory of owner. A timeout of zero uses the configured one.
func (m *Manager) Get(ctx context.Context, owner *model.Address, cid string, destPath string, timeout time.Duration) (*FHandle, error) {
	if err := ValidatePath(destPath); err != nil {
		return nil, err
	}

	owner, err := m.resolveOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	fetched, err := m.fetchContent(cid, timeout)
	if err != nil {
		return nil, err
	}

	header, plaintext, err := m.decrypt(owner, fetched.LocalPath())
	if err != nil {
		return nil, err
	}

	plainPath := m.plainPath(owner, destPath)
	if _, err := m.writeFile(plainPath, bytes.NewReader(plaintext)); err != nil {
		return nil, err
	}

	m.logger.LogDebug("got content", "cid", cid, "owner", owner.String(), "path", header.Path, "dest", destPath)

	return NewLocalFHandle(owner, destPath, plainPath).WithCID(cid).WithTxID(fetched.TxID()), nil
}

// FindContent lists the content recorded for addr. Content that is not available locally is
// fetched in the background. Handles whose fetch did not finish within timeout are returned
// unavailable, the fetch keeps running and updates the cache once it completes.
func (m *Manager) FindContent(ctx context.Context, addr *model.Address, timeout time.Duration) ([]*FHandle, error) {
	if err := requireAddress(addr); err != nil {
		return nil, err
	}

	timeout = m.config.fetchTimeout(timeout)

	unlock := m.files.Lock()
	records, err := m.scan(ctx, addr, bcdata.OpFileData)
	if err != nil {
		unlock()

		return nil, err
	}

	unspent := make(map[string]struct{}, len(records))
	for _, r := range records {
		unspent[string(r.payload)] = struct{}{}
	}

	if dropped := m.files.DeleteOwnedExcept(addr.String(), unspent); len(dropped) > 0 {
		m.logger.LogDebug("dropped spent content from cache", "address", addr.String(), "cids", dropped)
	}

	handles := make([]*FHandle, 0, len(records))
	for _, r := range records {
		handles = append(handles, m.files.Update(string(r.payload), func(cached *FHandle) *FHandle {
			if cached == nil {
				return NewFHandle(string(r.payload)).WithOwner(addr).WithTxID(r.txID)
			}

			return cached.WithTxID(r.txID)
		}))
	}
	unlock()

	loops := make([]*promise.Promise[*FHandle], len(handles))
	for i, handle := range handles {
		if handle.IsMissing() {
			loops[i] = m.scheduleFetch(handle, timeout)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for i, loop := range loops {
		if loop == nil {
			continue
		}

		fetched, err := loop.Wait(waitCtx)
		if err != nil {
			m.metrics.FetchesTimedOut.Inc()

			if cached, exists := m.files.Get(handles[i].CID()); exists {
				handles[i] = cached
			}

			continue
		}

		handles[i] = fetched
	}

	return handles, nil
}

// fetchContent returns the handle of a locally available content file for cid and fetches it if needed.
func (m *Manager) fetchContent(cid string, timeout time.Duration) (*FHandle, error) {
	if err := objectstore.ValidateCID(cid); err != nil {
		return nil, err
	}

	if cached, exists := m.files.Get(cid); exists {
		switch {
		case cached.IsExpired():
			return nil, ierrors.Wrapf(objectstore.ErrNotFound, "content %s expired", cid)
		case cached.IsAvailable() && cached.LocalPath() != "":
			if _, err := os.Stat(cached.LocalPath()); err == nil {
				return cached, nil
			}
		}
	}

	start := time.Now()
	fetched, err := m.fetchOnce(cid, m.config.fetchTimeout(timeout))
	if err != nil {
		if ierrors.Is(err, objectstore.ErrNotFound) {
			m.files.Update(cid, func(cached *FHandle) *FHandle {
				return cachedOrNew(cached, cid).WithState(StateExpired).WithAttempt(time.Since(start))
			})
		}

		return nil, err
	}

	return fetched, nil
}

// scheduleFetch starts the background fetch loop of handle unless one is running and returns its promise.
func (m *Manager) scheduleFetch(handle *FHandle, timeout time.Duration) *promise.Promise[*FHandle] {
	m.fetchLoopsMutex.Lock()
	defer m.fetchLoopsMutex.Unlock()

	if loop, exists := m.fetchLoops[handle.CID()]; exists {
		return loop
	}

	if !handle.schedule() {
		// the previous loop finished between the cache read and now
		if cached, exists := m.files.Get(handle.CID()); exists && !cached.IsMissing() {
			return promise.New[*FHandle]().Resolve(cached)
		}
	}

	loop := promise.New[*FHandle]()
	m.fetchLoops[handle.CID()] = loop

	m.files.Update(handle.CID(), func(cached *FHandle) *FHandle {
		if cached == nil {
			cached = handle
		}

		return cached.WithState(StatePending)
	})
	m.metrics.FetchesScheduled.Inc()

	go m.fetchLoop(handle.CID(), timeout, loop)

	return loop
}

func (m *Manager) fetchLoop(cid string, timeout time.Duration, loop *promise.Promise[*FHandle]) {
	m.metrics.FetchesPending.Inc()
	defer m.metrics.FetchesPending.Dec()

	complete := func(handle *FHandle) {
		m.fetchLoopsMutex.Lock()
		delete(m.fetchLoops, cid)
		m.fetchLoopsMutex.Unlock()

		loop.Resolve(handle)
	}

	for attempt := 1; attempt <= m.config.MaxFetchAttempts; attempt++ {
		// an earlier attempt that timed out may have completed in the background
		if cached, exists := m.files.Get(cid); exists && cached.IsAvailable() {
			m.metrics.FetchesAvailable.Inc()
			complete(cached)

			return
		}

		start := time.Now()
		_, err := m.fetchOnce(cid, timeout)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			m.metrics.FetchesAvailable.Inc()
			complete(m.files.Update(cid, func(cached *FHandle) *FHandle {
				return cachedOrNew(cached, cid).WithAttempt(elapsed)
			}))

			return

		case ierrors.Is(err, ErrTimeout):
			m.logger.LogDebug("fetch timed out", "cid", cid, "attempt", attempt, "timeout", timeout)
			m.files.Update(cid, func(cached *FHandle) *FHandle {
				return cachedOrNew(cached, cid).WithAttempt(elapsed)
			})

			if !m.sleep(timeout / 2) {
				complete(m.unscheduled(cid, StateUnresolved))

				return
			}

		case m.ctx.Err() != nil:
			complete(m.unscheduled(cid, StateUnresolved))

			return

		default:
			if !ierrors.Is(err, objectstore.ErrNotFound) {
				m.logger.LogError("fetch failed", "cid", cid, "attempt", attempt, "err", err)
			}

			m.metrics.FetchesExpired.Inc()
			complete(m.files.Update(cid, func(cached *FHandle) *FHandle {
				return cachedOrNew(cached, cid).WithAttempt(elapsed).WithState(StateExpired)
			}))

			return
		}
	}

	m.logger.LogWarn("giving up fetch", "cid", cid, "attempts", m.config.MaxFetchAttempts)

	complete(m.unscheduled(cid, StateUnresolved))
}

// unscheduled moves the cached handle of cid to state and allows scheduling it again.
func (m *Manager) unscheduled(cid string, state State) *FHandle {
	return m.files.Update(cid, func(cached *FHandle) *FHandle {
		cached = cachedOrNew(cached, cid)
		cached.unschedule()

		// a fetch that outlived its loop may have resolved the handle already
		if cached.IsAvailable() {
			return cached
		}

		return cached.WithState(state)
	})
}

// sleep waits for d and returns false if the manager was shut down meanwhile.
func (m *Manager) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-m.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// fetchOnce waits up to timeout for the fetch of cid. The fetch is not cancelled on timeout.
func (m *Manager) fetchOnce(cid string, timeout time.Duration) (*FHandle, error) {
	ctx, cancel := context.WithTimeout(m.ctx, timeout)
	defer cancel()

	handle, err := m.fetcher.Fetch(m.ctx, cid).Wait(ctx)
	if err != nil {
		if ierrors.Is(err, context.DeadlineExceeded) && m.ctx.Err() == nil {
			return nil, ierrors.Wrapf(ErrTimeout, "%s after %s", cid, timeout)
		}

		return nil, err
	}

	return handle, nil
}

// materialize stores fetched content in the crypt directory of its owner and caches the resolved handle.
func (m *Manager) materialize(cid string, content io.Reader) (*FHandle, error) {
	tmpPath := m.tmpPath()
	if _, err := m.writeFile(tmpPath, content); err != nil {
		return nil, err
	}

	header, err := readHeaderFile(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)

		return nil, err
	}

	// the owner is only decoded here, resolving it against the wallet is left to the caller
	if _, err := btcutil.DecodeAddress(header.Owner, m.wallet.Params()); err != nil {
		_ = os.Remove(tmpPath)

		return nil, ierrors.Join(ErrInvalidAddress, ierrors.Wrapf(err, "invalid owner %q of %s", header.Owner, cid))
	}
	owner := model.NewAddress(header.Owner)

	cryptPath := m.cryptPath(owner, cid)
	if err := moveFile(tmpPath, cryptPath); err != nil {
		return nil, err
	}

	return m.files.Update(cid, func(cached *FHandle) *FHandle {
		handle := cachedOrNew(cached, cid)
		if known := handle.Owner(); known == nil || known.String() != header.Owner {
			handle = handle.WithOwner(owner)
		}

		return handle.
			WithPath(header.Path).
			WithLocalPath(cryptPath).
			WithSecretToken(header.Token).
			WithState(StateResolved)
	}), nil
}

// decrypt reads the content file at path and decrypts it with the key derived from the private key of owner.
func (m *Manager) decrypt(owner *model.Address, path string) (*Header, []byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, ierrors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	header, ciphertext, err := ReadContent(file)
	if err != nil {
		return nil, nil, err
	}

	keyPair, err := keys.DeriveKeyPair(owner.PrivateKey())
	if err != nil {
		return nil, nil, err
	}

	contentKey, err := cipher.DecodeToken(keyPair.Private, header.Token)
	if err != nil {
		return nil, nil, ierrors.Wrapf(err, "failed to decrypt content key of %s for %s", path, owner)
	}

	plaintext, err := cipher.DecryptAES(contentKey, ciphertext)
	if err != nil {
		return nil, nil, ierrors.Wrapf(err, "failed to decrypt %s", path)
	}

	return header, plaintext, nil
}

func readHeaderFile(path string) (*Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	return ReadHeader(bufio.NewReader(file))
}

func cachedOrNew(cached *FHandle, cid string) *FHandle {
	if cached == nil {
		return NewFHandle(cid)
	}

	return cached
}
