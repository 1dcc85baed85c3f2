// Package memledger implements an in-process ledger node on top of a kvstore. It follows the
// semantics of a bitcoind wallet node closely enough to run the content protocol end-to-end:
// outputs can be listed, locked and spent, transactions are verified with the script engine
// and become confirmed by generating blocks.
package memledger

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

const (
	// DefaultFeePerKB is the fee estimate returned by EstimateFee.
	DefaultFeePerKB = btcutil.Amount(1000)

	// DefaultBlockReward is the coinbase value of a generated block.
	DefaultBlockReward = btcutil.Amount(50 * btcutil.SatoshiPerBitcoin)
)

// ErrWalletLocked is returned by key imports of a passphrase protected wallet.
var ErrWalletLocked = ierrors.New("please enter the wallet passphrase with " + ledger.WalletPassphraseHint + " first")

// Ledger is an in-memory ledger node.
type Ledger struct {
	store     kvstore.KVStore
	storeLock syncutils.RWMutex

	optsParams       *chaincfg.Params
	optsFeePerKB     btcutil.Amount
	optsBlockReward  btcutil.Amount
	optsWalletLocked bool
	optsClock        func() time.Time
}

var _ ledger.Client = &Ledger{}

// New creates a ledger persisting its state in the given store. A nil store creates an in-memory one.
func New(store kvstore.KVStore, opts ...options.Option[Ledger]) *Ledger {
	if store == nil {
		store = mapdb.NewMapDB()
	}

	return options.Apply(&Ledger{
		store:           store,
		optsParams:      &chaincfg.RegressionNetParams,
		optsFeePerKB:    DefaultFeePerKB,
		optsBlockReward: DefaultBlockReward,
		optsClock:       time.Now,
	}, opts)
}

func (l *Ledger) Params() *chaincfg.Params {
	return l.optsParams
}

func (l *Ledger) EstimateFee(ctx context.Context) (model.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return l.optsFeePerKB, nil
}

// KVStore returns the underlying KVStore.
func (l *Ledger) KVStore() kvstore.KVStore {
	return l.store
}

func (l *Ledger) nextCounter(counter byte) (uint64, error) {
	key := []byte{storeKeyPrefixCounter, counter}

	current, err := l.readCounter(counter)
	if err != nil {
		return 0, err
	}

	value := make([]byte, 8)
	binary.LittleEndian.PutUint64(value, current+1)
	if err := l.store.Set(key, value); err != nil {
		return 0, ierrors.Wrap(err, "failed to store counter")
	}

	return current + 1, nil
}

func (l *Ledger) readCounter(counter byte) (uint64, error) {
	value, err := l.store.Get([]byte{storeKeyPrefixCounter, counter})
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, nil
		}

		return 0, ierrors.Wrap(err, "failed to load counter")
	}

	if len(value) != 8 {
		return 0, ierrors.Errorf("invalid counter length %d", len(value))
	}

	return binary.LittleEndian.Uint64(value), nil
}

// WithParams sets the network parameters.
func WithParams(params *chaincfg.Params) options.Option[Ledger] {
	return func(l *Ledger) {
		l.optsParams = params
	}
}

// WithFeePerKB sets the fee estimate.
func WithFeePerKB(fee btcutil.Amount) options.Option[Ledger] {
	return func(l *Ledger) {
		l.optsFeePerKB = fee
	}
}

// WithBlockReward sets the coinbase value of generated blocks.
func WithBlockReward(reward btcutil.Amount) options.Option[Ledger] {
	return func(l *Ledger) {
		l.optsBlockReward = reward
	}
}

// WithWalletLocked makes private key imports fail like a passphrase protected wallet.
func WithWalletLocked(locked bool) options.Option[Ledger] {
	return func(l *Ledger) {
		l.optsWalletLocked = locked
	}
}

// WithClock sets the time source for block timestamps.
func WithClock(clock func() time.Time) options.Option[Ledger] {
	return func(l *Ledger) {
		l.optsClock = clock
	}
}
