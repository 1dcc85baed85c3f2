package memledger

import (
	"context"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
)

func (l *Ledger) GetNewAddress(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return "", ierrors.Wrap(err, "failed to create private key")
	}

	l.storeLock.Lock()
	defer l.storeLock.Unlock()

	return l.storeKeyWithoutLocking(privateKey, label)
}

func (l *Ledger) ImportPrivateKey(ctx context.Context, wif *btcutil.WIF, label string, _ bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if l.optsWalletLocked {
		return ErrWalletLocked
	}

	l.storeLock.Lock()
	defer l.storeLock.Unlock()

	_, err := l.storeKeyWithoutLocking(wif.PrivKey, label)

	return err
}

func (l *Ledger) ImportAddress(ctx context.Context, encoded string, label string, _ bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := btcutil.DecodeAddress(encoded, l.optsParams); err != nil {
		return ierrors.Wrapf(err, "invalid address %s", encoded)
	}

	l.storeLock.Lock()
	defer l.storeLock.Unlock()

	if existing, err := l.readAddressWithoutLocking(encoded); err == nil {
		existing.label = label

		return l.store.Set(existing.KVStorableKey(), existing.KVStorableValue())
	}

	watchOnly := &address{encoded: encoded, label: label}

	return l.store.Set(watchOnly.KVStorableKey(), watchOnly.KVStorableValue())
}

func (l *Ledger) DumpPrivateKey(ctx context.Context, encoded string) (*btcutil.WIF, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.storeLock.RLock()
	defer l.storeLock.RUnlock()

	addr, err := l.readAddressWithoutLocking(encoded)
	if err != nil {
		return nil, err
	}

	if len(addr.privateKey) == 0 {
		return nil, ierrors.Wrapf(ledger.ErrAddressNotFound, "private key for %s is not known", encoded)
	}

	privateKey, _ := btcec.PrivKeyFromBytes(addr.privateKey)

	return btcutil.NewWIF(privateKey, l.optsParams, true)
}

func (l *Ledger) SetLabel(ctx context.Context, encoded string, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.storeLock.Lock()
	defer l.storeLock.Unlock()

	addr, err := l.readAddressWithoutLocking(encoded)
	if err != nil {
		return err
	}

	addr.label = label

	return l.store.Set(addr.KVStorableKey(), addr.KVStorableValue())
}

func (l *Ledger) GetLabel(ctx context.Context, encoded string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.storeLock.RLock()
	defer l.storeLock.RUnlock()

	addr, err := l.readAddressWithoutLocking(encoded)
	if err != nil {
		return "", err
	}

	return addr.label, nil
}

func (l *Ledger) GetAddressesByLabel(ctx context.Context, label string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.storeLock.RLock()
	defer l.storeLock.RUnlock()

	addresses := make([]string, 0)
	var innerErr error
	if err := l.store.Iterate(kvstore.KeyPrefix{storeKeyPrefixAddress}, func(key kvstore.Key, value kvstore.Value) bool {
		addr := new(address)
		if innerErr = addr.kvStorableLoad(key, value); innerErr != nil {
			return false
		}

		if addr.label == label {
			addresses = append(addresses, addr.encoded)
		}

		return true
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to iterate addresses")
	}

	if innerErr != nil {
		return nil, innerErr
	}

	sort.Strings(addresses)

	return addresses, nil
}

func (l *Ledger) storeKeyWithoutLocking(privateKey *btcec.PrivateKey, label string) (string, error) {
	pubKeyHash := btcutil.Hash160(privateKey.PubKey().SerializeCompressed())

	addressPubKeyHash, err := btcutil.NewAddressPubKeyHash(pubKeyHash, l.optsParams)
	if err != nil {
		return "", ierrors.Wrap(err, "failed to create address")
	}

	addr := &address{
		encoded:    addressPubKeyHash.EncodeAddress(),
		label:      label,
		privateKey: privateKey.Serialize(),
	}

	if err := l.store.Set(addr.KVStorableKey(), addr.KVStorableValue()); err != nil {
		return "", ierrors.Wrapf(err, "failed to store address %s", addr.encoded)
	}

	return addr.encoded, nil
}

func (l *Ledger) readAddressWithoutLocking(encoded string) (*address, error) {
	key := addressKey(encoded)

	value, err := l.store.Get(key)
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ierrors.Wrapf(ledger.ErrAddressNotFound, "address %s", encoded)
		}

		return nil, ierrors.Wrapf(err, "failed to load address %s", encoded)
	}

	addr := new(address)
	if err := addr.kvStorableLoad(key, value); err != nil {
		return nil, err
	}

	return addr, nil
}
