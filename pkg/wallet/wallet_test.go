package wallet_test

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/ledger-ipfs/pkg/bcdata"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger/memledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
	"github.com/iotaledger/ledger-ipfs/pkg/wallet"
)

const (
	btc         = model.Amount(btcutil.SatoshiPerBitcoin)
	blockReward = 50 * btc
)

func newTestWallet(t *testing.T, opts ...options.Option[memledger.Ledger]) (*wallet.Wallet, *memledger.Ledger) {
	t.Helper()

	l := memledger.New(nil, opts...)

	return wallet.New(l, log.NewLogger()), l
}

func fund(t *testing.T, w *wallet.Wallet, l *memledger.Ledger, label string, blocks int) *model.Address {
	t.Helper()

	addr, err := w.NewAddress(context.Background(), label)
	require.NoError(t, err)

	_, err = l.Generate(context.Background(), blocks, addr.String())
	require.NoError(t, err)

	return addr
}

func TestWallet_Addresses(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t)

	alice, err := w.NewAddress(ctx, "Alice")
	require.NoError(t, err)
	require.True(t, alice.IsWalletControlled())
	require.Equal(t, []string{"Alice"}, alice.Labels())

	change, err := w.GetChangeAddress(ctx, "Alice")
	require.NoError(t, err)
	require.True(t, change.IsChangeAddress())

	again, err := w.GetChangeAddress(ctx, "Alice")
	require.NoError(t, err)
	require.True(t, change.Equal(again))

	addresses, err := w.Addresses(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	require.True(t, alice.Equal(addresses[0]))

	relabeled, err := w.Relabel(ctx, alice, "Alice", "Publisher")
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "Publisher"}, relabeled.Labels())

	found, err := w.FindAddress(ctx, alice.String())
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "Publisher"}, found.Labels())
}

func TestWallet_ImportPrivateKey(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t)

	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	wif, err := btcutil.NewWIF(privateKey, w.Params(), true)
	require.NoError(t, err)

	imported, err := w.ImportPrivateKey(ctx, wif.String(), "Bob")
	require.NoError(t, err)
	require.Equal(t, privateKey.Serialize(), imported.PrivateKey())

	// importing the same key twice yields the same address
	again, err := w.ImportPrivateKey(ctx, wif.String(), "Bob")
	require.NoError(t, err)
	require.True(t, imported.Equal(again))

	found, err := w.FindAddress(ctx, imported.String())
	require.NoError(t, err)
	require.True(t, found.IsWalletControlled())
}

func TestWallet_ImportAddressesSkipsLockedWallet(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t, memledger.WithWalletLocked(true))

	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	watchOnly, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160([]byte("watch")), w.Params())
	require.NoError(t, err)

	// the private key import fails because of the locked wallet and is skipped
	require.NoError(t, w.ImportAddresses(ctx, []*model.Address{
		model.NewWalletAddress("", privateKey.Serialize(), "Locked"),
		model.NewAddress(watchOnly.EncodeAddress(), "Watch"),
	}))

	found, err := w.FindAddress(ctx, watchOnly.EncodeAddress())
	require.NoError(t, err)
	require.False(t, found.IsWalletControlled())

	locked, err := w.Addresses(ctx, "Locked")
	require.NoError(t, err)
	require.Empty(t, locked)

	// any other error aborts the import
	err = w.ImportAddresses(ctx, []*model.Address{model.NewAddress("invalid", "Broken")})
	require.Error(t, err)
}

func TestWallet_SelectUnspent(t *testing.T) {
	ctx := context.Background()
	w, l := newTestWallet(t)

	addr := fund(t, w, l, "Alice", 3)

	selected, err := w.SelectUnspent(ctx, []*model.Address{addr}, 60*btc)
	require.NoError(t, err)
	require.Len(t, selected, 2)

	all, err := w.SelectUnspent(ctx, []*model.Address{addr}, wallet.AllFunds)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// selection follows the ledger order
	require.Equal(t, all[:2], selected)

	_, err = w.SelectUnspent(ctx, []*model.Address{addr}, 200*btc)
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	var insufficientFunds *wallet.InsufficientFundsError
	require.True(t, ierrors.As(err, &insufficientFunds))
	require.EqualValues(t, 200*btc, insufficientFunds.Required)
	require.EqualValues(t, 3*blockReward, insufficientFunds.Available)
	require.EqualValues(t, 50*btc, insufficientFunds.Shortfall)

	empty, err := w.SelectUnspent(ctx, nil, wallet.AllFunds)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestWallet_SendFromLabel(t *testing.T) {
	ctx := context.Background()
	w, l := newTestWallet(t)

	fund(t, w, l, "Alice", 1)
	bob, err := w.NewAddress(ctx, "Bob")
	require.NoError(t, err)

	txID, err := w.SendFromLabel(ctx, "Alice", bob.String(), btc)
	require.NoError(t, err)

	tx, err := l.GetTransaction(ctx, txID)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 2)
	require.Equal(t, bob.String(), tx.Outputs[0].Address)
	require.EqualValues(t, btcutil.SatoshiPerBitcoin, tx.Outputs[0].Amount)

	change, err := w.GetChangeAddress(ctx, "Alice")
	require.NoError(t, err)
	require.Equal(t, change.String(), tx.Outputs[1].Address)
	require.EqualValues(t, blockReward-btc-wallet.DefaultMinTxFee, tx.Outputs[1].Amount)

	balance, err := w.Balance(ctx, "Bob")
	require.NoError(t, err)
	require.EqualValues(t, btcutil.SatoshiPerBitcoin, balance)
}

func TestWallet_SendTxRequiresPrivateKey(t *testing.T) {
	ctx := context.Background()
	w, l := newTestWallet(t)

	watchOnly, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160([]byte("watch")), w.Params())
	require.NoError(t, err)

	watched, err := w.ImportAddress(ctx, watchOnly.EncodeAddress(), "Watch")
	require.NoError(t, err)

	_, err = l.Generate(ctx, 1, watched.String())
	require.NoError(t, err)

	utxos, err := w.ListUnspent(ctx, []*model.Address{watched})
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.False(t, utxos[0].Spendable)

	bob, err := w.NewAddress(ctx, "Bob")
	require.NoError(t, err)

	_, err = w.SendTx(ctx, wallet.NewTxBuilder().UnspentInputs(utxos...).Output(bob.String(), 10000).Build())
	require.ErrorIs(t, err, wallet.ErrSigning)

	var signingErr *wallet.SigningError
	require.True(t, ierrors.As(err, &signingErr))
	require.Equal(t, watched.String(), signingErr.Address)
}

func TestWallet_RecordData(t *testing.T) {
	ctx := context.Background()
	w, l := newTestWallet(t)

	alice := fund(t, w, l, "Alice", 1)

	data, err := bcdata.CreateFileData("bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku")
	require.NoError(t, err)

	outPoint, err := w.RecordData(ctx, "Alice", alice.String(), data)
	require.NoError(t, err)

	tx, err := l.GetTransaction(ctx, outPoint.TxID)
	require.NoError(t, err)

	owner, dataOutput, ok := tx.RecordOutputs()
	require.True(t, ok)
	require.Equal(t, outPoint.Index, owner.Index)
	require.Equal(t, alice.String(), owner.Address)
	require.Equal(t, w.DataAmount(), owner.Amount)

	// [change][owner][data]: the leftover stays spendable outside the locked owner output
	changeAddresses, err := w.ChangeAddresses(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, changeAddresses, 1)
	require.Len(t, tx.Outputs, 3)
	require.Equal(t, changeAddresses[0].String(), tx.Outputs[0].Address)
	require.Greater(t, tx.Outputs[0].Amount, w.DataAmount())
	require.True(t, bcdata.IsOurs(dataOutput.Script))

	opCode, ok := bcdata.ExtractOpCode(dataOutput.Script)
	require.True(t, ok)
	require.Equal(t, bcdata.OpFileData, opCode)

	// the remainder went to the change address and can be redeemed
	txID, err := w.RedeemChange(ctx, "Alice", alice)
	require.NoError(t, err)
	require.NotEmpty(t, txID)

	changeUTXOs, err := w.ListUnspent(ctx, changeAddresses)
	require.NoError(t, err)
	require.Empty(t, changeUTXOs)

	// nothing left to redeem
	txID, err = w.RedeemChange(ctx, "Alice", alice)
	require.NoError(t, err)
	require.Empty(t, txID)
}

func TestWallet_LockUnspent(t *testing.T) {
	ctx := context.Background()
	w, l := newTestWallet(t)

	alice := fund(t, w, l, "Alice", 2)

	utxos, err := w.ListUnspent(ctx, []*model.Address{alice})
	require.NoError(t, err)
	require.Len(t, utxos, 2)

	require.NoError(t, w.LockUnspent(ctx, utxos[0], false))

	locked, err := w.ListLockUnspent(ctx, []*model.Address{alice})
	require.NoError(t, err)
	require.Len(t, locked, 1)
	require.Equal(t, utxos[0].OutPoint, locked[0].OutPoint)
	require.Equal(t, utxos[0].Amount, locked[0].Amount)
	require.Equal(t, utxos[0].Script, locked[0].Script)

	balance, err := w.Balance(ctx, "Alice")
	require.NoError(t, err)
	require.EqualValues(t, blockReward, balance)

	require.NoError(t, w.LockUnspent(ctx, utxos[0], true))

	locked, err = w.ListLockUnspent(ctx, []*model.Address{alice})
	require.NoError(t, err)
	require.Empty(t, locked)
}
