// Package wallet selects unspent outputs and builds, signs and broadcasts transactions on top of
// a ledger.Client. The ledger node stays the single source of truth for addresses, labels and keys.
package wallet

import (
	"context"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/ledger-ipfs/pkg/keys"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

const (
	// AllFunds selects or sends every available output.
	AllFunds model.Amount = -1

	// DefaultDustThreshold is the smallest output value worth creating.
	DefaultDustThreshold model.Amount = 1000

	// DefaultMinTxFee is the lower bound of every transaction fee.
	DefaultMinTxFee model.Amount = 1000

	// DefaultMinDataAmount is the fee reserved for a data carrying transaction.
	DefaultMinDataAmount model.Amount = 10000

	labelSeparator = ","
)

// Wallet builds and sends transactions for the addresses the ledger node knows.
type Wallet struct {
	client ledger.Client
	logger log.Logger

	optsDustThreshold model.Amount
	optsMinTxFee      model.Amount
	optsMinDataAmount model.Amount
	optsMinConf       int
	optsRescan        bool
}

// New creates a wallet on top of the given ledger node.
func New(client ledger.Client, logger log.Logger, opts ...options.Option[Wallet]) *Wallet {
	return options.Apply(&Wallet{
		client:            client,
		logger:            logger,
		optsDustThreshold: DefaultDustThreshold,
		optsMinTxFee:      DefaultMinTxFee,
		optsMinDataAmount: DefaultMinDataAmount,
	}, opts)
}

// Client returns the ledger node of the wallet.
func (w *Wallet) Client() ledger.Client {
	return w.client
}

func (w *Wallet) Params() *chaincfg.Params {
	return w.client.Params()
}

func (w *Wallet) DustThreshold() model.Amount {
	return w.optsDustThreshold
}

func (w *Wallet) MinTxFee() model.Amount {
	return w.optsMinTxFee
}

func (w *Wallet) MinDataAmount() model.Amount {
	return w.optsMinDataAmount
}

// DataAmount is the value of the output that accompanies a data output.
func (w *Wallet) DataAmount() model.Amount {
	return w.optsDustThreshold * 10
}

// NewAddress creates a new wallet-controlled address with the given label.
func (w *Wallet) NewAddress(ctx context.Context, label string) (*model.Address, error) {
	encoded, err := w.client.GetNewAddress(ctx, label)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to create address with label %s", label)
	}

	return w.FindAddress(ctx, encoded)
}

// GetChangeAddress returns the change address of the label and creates it on first use.
func (w *Wallet) GetChangeAddress(ctx context.Context, label string) (*model.Address, error) {
	changeAddresses, err := w.ChangeAddresses(ctx, label)
	if err != nil {
		return nil, err
	}

	if len(changeAddresses) > 0 {
		return changeAddresses[0], nil
	}

	return w.NewAddress(ctx, model.ChangeLabel(label))
}

// ChangeAddresses returns the change addresses of the label.
func (w *Wallet) ChangeAddresses(ctx context.Context, label string) ([]*model.Address, error) {
	return w.addressesByLabel(ctx, model.ChangeLabel(label))
}

// Addresses returns the addresses carrying the label, change addresses excluded.
func (w *Wallet) Addresses(ctx context.Context, label string) ([]*model.Address, error) {
	addresses, err := w.addressesByLabel(ctx, label)
	if err != nil {
		return nil, err
	}

	filtered := make([]*model.Address, 0, len(addresses))
	for _, addr := range addresses {
		if !addr.IsChangeAddress() {
			filtered = append(filtered, addr)
		}
	}

	return filtered, nil
}

// FindAddress resolves the labels and, if the wallet controls it, the private key of an address.
func (w *Wallet) FindAddress(ctx context.Context, encoded string) (*model.Address, error) {
	label, err := w.client.GetLabel(ctx, encoded)
	if err != nil {
		return nil, err
	}

	wif, err := w.client.DumpPrivateKey(ctx, encoded)
	if err != nil {
		if ierrors.Is(err, ledger.ErrAddressNotFound) {
			return model.NewAddress(encoded, splitLabels(label)...), nil
		}

		return nil, ierrors.Wrapf(err, "failed to resolve private key of %s", encoded)
	}

	return model.NewWalletAddress(encoded, wif.PrivKey.Serialize(), splitLabels(label)...), nil
}

// ImportPrivateKey imports a WIF or hex encoded private key. Importing a known key returns the known address.
func (w *Wallet) ImportPrivateKey(ctx context.Context, encodedKey string, labels ...string) (*model.Address, error) {
	rawPrivateKey, err := keys.DecodePrivateKey(encodedKey)
	if err != nil {
		return nil, err
	}

	wif, encoded, err := w.wifAndAddress(rawPrivateKey)
	if err != nil {
		return nil, err
	}

	if existing, err := w.FindAddress(ctx, encoded); err == nil && existing.IsWalletControlled() {
		return existing, nil
	}

	w.logger.LogInfo("import private key", "address", encoded, "labels", joinLabels(labels))

	if err := w.client.ImportPrivateKey(ctx, wif, joinLabels(labels), w.optsRescan); err != nil {
		return nil, err
	}

	return model.NewWalletAddress(encoded, rawPrivateKey, labels...), nil
}

// ImportAddress imports a watch-only address. Importing a known address returns the known address.
func (w *Wallet) ImportAddress(ctx context.Context, encoded string, labels ...string) (*model.Address, error) {
	if existing, err := w.FindAddress(ctx, encoded); err == nil {
		return existing, nil
	}

	w.logger.LogInfo("import address", "address", encoded, "labels", joinLabels(labels))

	if err := w.client.ImportAddress(ctx, encoded, joinLabels(labels), w.optsRescan); err != nil {
		return nil, err
	}

	return model.NewAddress(encoded, labels...), nil
}

// ImportAddresses imports a set of addresses. Wallet-controlled addresses are imported with their
// private key. Errors of a locked wallet are skipped, every other error aborts the import.
func (w *Wallet) ImportAddresses(ctx context.Context, addresses []*model.Address) error {
	for _, addr := range addresses {
		var err error
		if addr.IsWalletControlled() {
			_, err = w.importRawPrivateKey(ctx, addr.PrivateKey(), addr.Labels()...)
		} else {
			_, err = w.ImportAddress(ctx, addr.String(), addr.Labels()...)
		}

		if err != nil {
			if ledger.IsWalletLocked(err) {
				w.logger.LogWarn("skipping import of locked wallet", "address", addr.String(), "err", err)

				continue
			}

			return ierrors.Wrapf(err, "failed to import %s", addr.String())
		}
	}

	return nil
}

// Relabel replaces the labels of an address on the ledger node.
func (w *Wallet) Relabel(ctx context.Context, addr *model.Address, labels ...string) (*model.Address, error) {
	if err := w.client.SetLabel(ctx, addr.String(), joinLabels(labels)); err != nil {
		return nil, ierrors.Wrapf(err, "failed to relabel %s", addr.String())
	}

	return addr.WithLabels(labels...), nil
}

func (w *Wallet) importRawPrivateKey(ctx context.Context, rawPrivateKey []byte, labels ...string) (*model.Address, error) {
	wif, _, err := w.wifAndAddress(rawPrivateKey)
	if err != nil {
		return nil, err
	}

	return w.ImportPrivateKey(ctx, wif.String(), labels...)
}

func (w *Wallet) wifAndAddress(rawPrivateKey []byte) (*btcutil.WIF, string, error) {
	privateKey, publicKey := btcec.PrivKeyFromBytes(rawPrivateKey)

	wif, err := btcutil.NewWIF(privateKey, w.Params(), true)
	if err != nil {
		return nil, "", ierrors.Wrap(err, "failed to encode private key")
	}

	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(publicKey.SerializeCompressed()), w.Params())
	if err != nil {
		return nil, "", ierrors.Wrap(err, "failed to create address")
	}

	return wif, addr.EncodeAddress(), nil
}

func (w *Wallet) addressesByLabel(ctx context.Context, label string) ([]*model.Address, error) {
	encodedAddresses, err := w.client.GetAddressesByLabel(ctx, label)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to list addresses of label %s", label)
	}

	addresses := make([]*model.Address, 0, len(encodedAddresses))
	for _, encoded := range encodedAddresses {
		addr, err := w.FindAddress(ctx, encoded)
		if err != nil {
			return nil, err
		}

		addresses = append(addresses, addr)
	}

	return addresses, nil
}

func joinLabels(labels []string) string {
	return strings.Join(labels, labelSeparator)
}

func splitLabels(label string) []string {
	if label == "" {
		return nil
	}

	labels := strings.Split(label, labelSeparator)
	for i, l := range labels {
		labels[i] = strings.TrimSpace(l)
	}

	return labels
}

// WithDustThreshold sets the smallest output value worth creating.
func WithDustThreshold(dust model.Amount) options.Option[Wallet] {
	return func(w *Wallet) {
		w.optsDustThreshold = dust
	}
}

// WithMinTxFee sets the lower bound of transaction fees.
func WithMinTxFee(fee model.Amount) options.Option[Wallet] {
	return func(w *Wallet) {
		w.optsMinTxFee = fee
	}
}

// WithMinDataAmount sets the fee reserved for data carrying transactions.
func WithMinDataAmount(amount model.Amount) options.Option[Wallet] {
	return func(w *Wallet) {
		w.optsMinDataAmount = amount
	}
}

// WithMinConfirmations sets the confirmations an output needs before it is selected.
func WithMinConfirmations(minConf int) options.Option[Wallet] {
	return func(w *Wallet) {
		w.optsMinConf = minConf
	}
}

// WithRescan makes imports rescan the chain for outputs of the imported address.
func WithRescan(rescan bool) options.Option[Wallet] {
	return func(w *Wallet) {
		w.optsRescan = rescan
	}
}
