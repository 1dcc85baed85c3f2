// Package content publishes encrypted files to a content-addressed object store and records
// public keys and content ids on the ledger, so that the addressed party can discover and decrypt them.
package content

import (
	"context"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/ledger-ipfs/pkg/bcdata"
	"github.com/iotaledger/ledger-ipfs/pkg/keys"
	"github.com/iotaledger/ledger-ipfs/pkg/metrics"
	"github.com/iotaledger/ledger-ipfs/pkg/metrics/collector"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore"
	"github.com/iotaledger/ledger-ipfs/pkg/promise"
	"github.com/iotaledger/ledger-ipfs/pkg/wallet"
)

const (
	plainDirName = "plain"
	cryptDirName = "crypt"
	tmpDirName   = "tmp"
)

// Manager registers encryption keys and publishes, sends and retrieves encrypted content.
type Manager struct {
	wallet *wallet.Wallet
	store  objectstore.Store
	config Config
	logger log.Logger

	registrations *RegistrationCache
	files         *FileCache
	index         *publishedIndex
	fetcher       *fetcher
	metrics       *metrics.ContentMetrics

	fetchLoops      map[string]*promise.Promise[*FHandle]
	fetchLoopsMutex syncutils.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	optsIndexStore kvstore.KVStore
}

// New creates a Manager that records on the ledger of w and stores content in store.
func New(w *wallet.Wallet, store objectstore.Store, config Config, opts ...options.Option[Manager]) (*Manager, error) {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultWorkerCount
	}

	if config.MaxFetchAttempts <= 0 {
		config.MaxFetchAttempts = DefaultMaxFetchAttempts
	}

	m := options.Apply(&Manager{
		wallet:         w,
		store:          store,
		config:         config,
		logger:         log.NewLogger(),
		registrations:  NewRegistrationCache(DefaultRegistrationCacheSize),
		files:          NewFileCache(),
		metrics:        &metrics.ContentMetrics{},
		fetchLoops:     make(map[string]*promise.Promise[*FHandle]),
		optsIndexStore: mapdb.NewMapDB(),
	}, opts, func(m *Manager) {
		m.index = newPublishedIndex(m.optsIndexStore)
		m.ctx, m.cancel = context.WithCancel(context.Background())
		m.fetcher = newFetcher(store, config.WorkerCount, m.materialize)
	})

	for _, dir := range []string{plainDirName, cryptDirName, tmpDirName} {
		if err := os.MkdirAll(filepath.Join(config.RootDir, dir), 0o755); err != nil {
			m.Shutdown()

			return nil, ierrors.Wrapf(err, "failed to create %s directory", dir)
		}
	}

	return m, nil
}

// Shutdown stops the background fetches and waits for the fetch workers to finish.
func (m *Manager) Shutdown() {
	m.cancel()
	m.fetcher.Shutdown()
}

func (m *Manager) Wallet() *wallet.Wallet {
	return m.wallet
}

func (m *Manager) Config() Config {
	return m.config
}

func (m *Manager) Metrics() *metrics.ContentMetrics {
	return m.metrics
}

// MetricsCollection returns the prometheus collection reporting the counters and cache sizes of the manager.
func (m *Manager) MetricsCollection() *collector.Collection {
	return metrics.NewContentCollection(m.metrics, m.registrations.Size, m.files.Size)
}

// Register records the public key derived from the private key of addr on the ledger. Registering
// an already registered address returns the recorded key.
func (m *Manager) Register(ctx context.Context, addr *model.Address) (*btcec.PublicKey, error) {
	addr, err := m.resolveOwner(ctx, addr)
	if err != nil {
		return nil, err
	}

	unlock := m.registrations.Lock()
	defer unlock()

	if publicKey, err := m.FindRegistration(ctx, addr); err == nil {
		return publicKey, nil
	} else if !ierrors.Is(err, ErrNotRegistered) {
		return nil, err
	}

	keyPair, err := keys.DeriveKeyPair(addr.PrivateKey())
	if err != nil {
		return nil, err
	}

	data, err := bcdata.CreatePubKeyData(keyPair.PublicKeyBytes())
	if err != nil {
		return nil, err
	}

	outPoint, err := m.record(ctx, addr, addr, data)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to register %s", addr)
	}

	m.registrations.Put(addr.String(), keyPair.Public)
	m.metrics.Registrations.Inc()

	m.logger.LogInfo("registered address", "address", addr.String(), "label", addr.Label(), "outPoint", outPoint)

	return keyPair.Public, nil
}

// FindRegistration returns the public key recorded for addr. It returns ErrNotRegistered if there is none.
func (m *Manager) FindRegistration(ctx context.Context, addr *model.Address) (*btcec.PublicKey, error) {
	if err := requireAddress(addr); err != nil {
		return nil, err
	}

	if publicKey, exists := m.registrations.Get(addr.String()); exists {
		return publicKey, nil
	}

	records, err := m.scan(ctx, addr, bcdata.OpPubKey)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		publicKey, err := keys.ParsePublicKey(r.payload)
		if err != nil {
			m.logger.LogDebug("skipping malformed public key record", "address", addr.String(), "txID", r.txID, "err", err)

			continue
		}

		m.registrations.Put(addr.String(), publicKey)

		return publicKey, nil
	}

	return nil, ierrors.Wrapf(ErrNotRegistered, "address %s", addr)
}

// Unregister spends the registration records of addr to its change address and forgets the registration.
func (m *Manager) Unregister(ctx context.Context, addr *model.Address) error {
	addr, err := m.resolveOwner(ctx, addr)
	if err != nil {
		return err
	}

	unlock := m.registrations.Lock()
	defer unlock()

	records, err := m.scan(ctx, addr, bcdata.OpPubKey)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		txID, err := m.spendRecords(ctx, addr, records)
		if err != nil {
			return ierrors.Wrapf(err, "failed to unregister %s", addr)
		}

		m.logger.LogInfo("unregistered address", "address", addr.String(), "records", len(records), "txID", txID)
	}

	m.registrations.Delete(addr.String())

	return nil
}

// resolveOwner loads the labels and private key of addr and checks that it can own content.
func (m *Manager) resolveOwner(ctx context.Context, addr *model.Address) (*model.Address, error) {
	if err := requireAddress(addr); err != nil {
		return nil, err
	}

	if !addr.IsWalletControlled() || addr.Label() == "" {
		resolved, err := m.wallet.FindAddress(ctx, addr.String())
		if err != nil {
			return nil, ierrors.Join(ErrInvalidAddress, err)
		}

		addr = resolved
	}

	switch {
	case !addr.IsWalletControlled():
		return nil, ierrors.Wrapf(ErrInvalidAddress, "no private key for %s", addr)
	case addr.Label() == "":
		return nil, ierrors.Wrapf(ErrInvalidAddress, "%s has no label", addr)
	case addr.IsChangeAddress():
		return nil, ierrors.Wrapf(ErrInvalidAddress, "%s is a change address", addr)
	}

	return addr, nil
}

// record sends data from the outputs of the owner's label to recipient, locks the recorded output
// if the wallet controls it and redeems the change of the label.
func (m *Manager) record(ctx context.Context, owner *model.Address, recipient *model.Address, data []byte) (model.OutPoint, error) {
	var outPoint model.OutPoint
	var err error
	if recipient.Equal(owner) {
		outPoint, err = m.wallet.RecordData(ctx, owner.Label(), recipient.String(), data)
	} else {
		outPoint, err = m.wallet.RecordDataFor(ctx, owner.Label(), recipient.String(), data)
	}

	if err != nil {
		return model.OutPoint{}, err
	}

	if recipient.IsWalletControlled() {
		if err := m.wallet.LockUnspent(ctx, &model.UTXO{OutPoint: outPoint, Address: recipient.String()}, false); err != nil {
			return model.OutPoint{}, err
		}
	}

	if _, err := m.wallet.RedeemChange(ctx, owner.Label(), owner); err != nil {
		m.logger.LogWarn("failed to redeem change", "label", owner.Label(), "err", err)
	}

	return outPoint, nil
}

// spendRecords unlocks the outputs of the given records and sends them, topped up from the owner's
// label if needed, to the change address of the owner. The outputs are locked again if sending fails.
func (m *Manager) spendRecords(ctx context.Context, owner *model.Address, records []*record) (string, error) {
	recordUTXOs := make([]*model.UTXO, 0, len(records))
	for _, r := range records {
		if err := m.wallet.LockUnspent(ctx, r.utxo, true); err != nil {
			return "", err
		}

		recordUTXOs = append(recordUTXOs, r.utxo)
	}

	relock := func() {
		for _, utxo := range recordUTXOs {
			if err := m.wallet.LockUnspent(ctx, utxo, false); err != nil {
				m.logger.LogError("failed to lock record output again", "outPoint", utxo.OutPoint, "err", err)
			}
		}
	}

	utxos, err := m.addMoreUTXOsIfRequired(ctx, owner, recordUTXOs)
	if err != nil {
		relock()

		return "", err
	}

	changeAddr, err := m.wallet.GetChangeAddress(ctx, owner.Label())
	if err != nil {
		relock()

		return "", err
	}

	txID, err := m.wallet.SendToAddress(ctx, changeAddr.String(), changeAddr.String(), wallet.AllFunds, utxos)
	if err != nil {
		relock()

		return "", err
	}

	return txID, nil
}

func (m *Manager) addMoreUTXOsIfRequired(ctx context.Context, owner *model.Address, utxos []*model.UTXO) ([]*model.UTXO, error) {
	if model.SumAmounts(utxos)-m.wallet.MinTxFee() > m.wallet.DustThreshold() {
		return utxos, nil
	}

	available, err := m.wallet.ListUnspent(ctx, []*model.Address{owner})
	if err != nil {
		return nil, err
	}

	for _, utxo := range available {
		utxos = append(utxos, utxo)

		if model.SumAmounts(utxos)-m.wallet.MinTxFee() > m.wallet.DustThreshold() {
			return utxos, nil
		}
	}

	return utxos, nil
}

func requireAddress(addr *model.Address) error {
	if addr == nil {
		return ierrors.Wrap(ErrInvalidAddress, "address is nil")
	}

	return nil
}
