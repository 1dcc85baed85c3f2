package ledger

import (
	"context"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

var (
	// ErrTransactionNotFound is returned if the ledger node does not know a transaction.
	ErrTransactionNotFound = ierrors.New("transaction not found")

	// ErrAddressNotFound is returned if the wallet of the ledger node does not know an address.
	ErrAddressNotFound = ierrors.New("address not found")

	// ErrRejected is returned if the ledger node refuses a raw transaction.
	ErrRejected = ierrors.New("transaction rejected")
)

// WalletPassphraseHint is contained in the error message of a ledger node whose wallet needs unlocking.
const WalletPassphraseHint = "walletpassphrase"

// IsWalletLocked returns true if err was caused by a locked wallet.
func IsWalletLocked(err error) bool {
	return err != nil && strings.Contains(err.Error(), WalletPassphraseHint)
}

// Client is the capability set the ledger node has to provide. All calls block until the node answered.
type Client interface {
	// Params returns the network parameters of the ledger.
	Params() *chaincfg.Params

	// GetTransaction returns the transaction with the given id.
	GetTransaction(ctx context.Context, txID string) (*model.LedgerTx, error)

	// ListUnspent lists the unlocked unspent outputs of the given addresses in node order.
	ListUnspent(ctx context.Context, minConf int, addresses []string) ([]*model.UTXO, error)

	// ListLockUnspent lists all outputs locked with LockUnspent.
	ListLockUnspent(ctx context.Context) ([]model.OutPoint, error)

	// LockUnspent locks or unlocks the given outputs.
	LockUnspent(ctx context.Context, unlock bool, outPoints ...model.OutPoint) error

	// SendRawTransaction broadcasts a signed transaction and returns its id.
	SendRawTransaction(ctx context.Context, tx *wire.MsgTx) (string, error)

	// EstimateFee returns the fee per kilobyte.
	EstimateFee(ctx context.Context) (model.Amount, error)

	// Generate mines blocks paying the coinbase to address.
	Generate(ctx context.Context, blocks int, address string) ([]string, error)

	// GetNewAddress creates a new wallet address with the given label.
	GetNewAddress(ctx context.Context, label string) (string, error)

	// ImportPrivateKey imports a private key into the wallet of the node.
	ImportPrivateKey(ctx context.Context, wif *btcutil.WIF, label string, rescan bool) error

	// ImportAddress imports a watch-only address.
	ImportAddress(ctx context.Context, address string, label string, rescan bool) error

	// DumpPrivateKey returns the private key of a wallet address.
	DumpPrivateKey(ctx context.Context, address string) (*btcutil.WIF, error)

	// SetLabel replaces the label of an address.
	SetLabel(ctx context.Context, address string, label string) error

	// GetLabel returns the label of a wallet address.
	GetLabel(ctx context.Context, address string) (string, error)

	// GetAddressesByLabel lists the addresses carrying the given label.
	GetAddressesByLabel(ctx context.Context, label string) ([]string, error)
}
