package memledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger/memledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

func fundedAddress(t *testing.T, l *memledger.Ledger, label string) string {
	t.Helper()

	addr, err := l.GetNewAddress(context.Background(), label)
	require.NoError(t, err)

	_, err = l.Generate(context.Background(), 1, addr)
	require.NoError(t, err)

	return addr
}

func signedSpend(t *testing.T, l *memledger.Ledger, utxo *model.UTXO, payTo string, amount int64, extra ...*wire.TxOut) *wire.MsgTx {
	t.Helper()

	wif, err := l.DumpPrivateKey(context.Background(), utxo.Address)
	require.NoError(t, err)

	prevOut, err := utxo.OutPoint.Wire()
	require.NoError(t, err)

	dest, err := btcutil.DecodeAddress(payTo, l.Params())
	require.NoError(t, err)

	pkScript, err := txscript.PayToAddrScript(dest)
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(prevOut, nil, nil))
	tx.AddTxOut(wire.NewTxOut(amount, pkScript))
	for _, txOut := range extra {
		tx.AddTxOut(txOut)
	}

	sigScript, err := txscript.SignatureScript(tx, 0, utxo.Script, txscript.SigHashAll, wif.PrivKey, true)
	require.NoError(t, err)
	tx.TxIn[0].SignatureScript = sigScript

	return tx
}

func TestLedger_GenerateAndListUnspent(t *testing.T) {
	ctx := context.Background()
	blockTime := time.Unix(1700000000, 0)
	l := memledger.New(nil, memledger.WithClock(func() time.Time { return blockTime }))

	addr := fundedAddress(t, l, "miner")

	utxos, err := l.ListUnspent(ctx, 1, []string{addr})
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.Equal(t, memledger.DefaultBlockReward, utxos[0].Amount)
	require.EqualValues(t, 1, utxos[0].Confirmations)
	require.True(t, utxos[0].Spendable)

	_, err = l.Generate(ctx, 2, addr)
	require.NoError(t, err)

	utxos, err = l.ListUnspent(ctx, 1, []string{addr})
	require.NoError(t, err)
	require.Len(t, utxos, 3)
	require.EqualValues(t, 3, utxos[0].Confirmations)
	require.EqualValues(t, 1, utxos[2].Confirmations)

	tx, err := l.GetTransaction(ctx, utxos[0].TxID)
	require.NoError(t, err)
	require.Equal(t, blockTime, tx.BlockTime)
	require.NotEmpty(t, tx.BlockHash)
	require.Equal(t, addr, tx.Outputs[0].Address)
}

func TestLedger_SendRawTransaction(t *testing.T) {
	ctx := context.Background()
	l := memledger.New(nil)

	from := fundedAddress(t, l, "from")
	to, err := l.GetNewAddress(ctx, "to")
	require.NoError(t, err)

	utxos, err := l.ListUnspent(ctx, 1, []string{from})
	require.NoError(t, err)
	require.Len(t, utxos, 1)

	data, err := txscript.NullDataScript([]byte("payload"))
	require.NoError(t, err)

	tx := signedSpend(t, l, utxos[0], to, 10000, wire.NewTxOut(0, data))
	txID, err := l.SendRawTransaction(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, tx.TxHash().String(), txID)

	// unconfirmed outputs only show up with minConf 0
	received, err := l.ListUnspent(ctx, 1, []string{to})
	require.NoError(t, err)
	require.Empty(t, received)

	received, err = l.ListUnspent(ctx, 0, []string{to})
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.EqualValues(t, 10000, received[0].Amount)

	ledgerTx, err := l.GetTransaction(ctx, txID)
	require.NoError(t, err)
	require.Empty(t, ledgerTx.BlockHash)

	owner, dataOutput, ok := ledgerTx.RecordOutputs()
	require.True(t, ok)
	require.Equal(t, to, owner.Address)
	require.Empty(t, dataOutput.Address)

	_, err = l.Generate(ctx, 1, from)
	require.NoError(t, err)

	ledgerTx, err = l.GetTransaction(ctx, txID)
	require.NoError(t, err)
	require.NotEmpty(t, ledgerTx.BlockHash)

	received, err = l.ListUnspent(ctx, 1, []string{to})
	require.NoError(t, err)
	require.Len(t, received, 1)
}

func TestLedger_RejectsInvalidTransactions(t *testing.T) {
	ctx := context.Background()
	l := memledger.New(nil)

	from := fundedAddress(t, l, "from")
	to, err := l.GetNewAddress(ctx, "to")
	require.NoError(t, err)

	utxos, err := l.ListUnspent(ctx, 1, []string{from})
	require.NoError(t, err)

	// outputs exceeding the inputs
	tooMuch := signedSpend(t, l, utxos[0], to, int64(memledger.DefaultBlockReward)+1)
	_, err = l.SendRawTransaction(ctx, tooMuch)
	require.ErrorIs(t, err, ledger.ErrRejected)

	// broken signature
	broken := signedSpend(t, l, utxos[0], to, 1000)
	broken.TxOut[0].Value = 2000
	_, err = l.SendRawTransaction(ctx, broken)
	require.ErrorIs(t, err, ledger.ErrRejected)

	// double spend
	first := signedSpend(t, l, utxos[0], to, 1000)
	_, err = l.SendRawTransaction(ctx, first)
	require.NoError(t, err)

	second := signedSpend(t, l, utxos[0], to, 2000)
	_, err = l.SendRawTransaction(ctx, second)
	require.ErrorIs(t, err, ledger.ErrRejected)

	// unknown input
	unknown := wire.NewMsgTx(wire.TxVersion)
	unknown.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil))
	unknown.AddTxOut(wire.NewTxOut(1, []byte{txscript.OP_TRUE}))
	_, err = l.SendRawTransaction(ctx, unknown)
	require.ErrorIs(t, err, ledger.ErrRejected)
}

func TestLedger_LockUnspent(t *testing.T) {
	ctx := context.Background()
	l := memledger.New(nil)

	addr := fundedAddress(t, l, "locks")
	_, err := l.Generate(ctx, 1, addr)
	require.NoError(t, err)

	utxos, err := l.ListUnspent(ctx, 1, []string{addr})
	require.NoError(t, err)
	require.Len(t, utxos, 2)

	require.NoError(t, l.LockUnspent(ctx, false, utxos[0].OutPoint))

	locked, err := l.ListLockUnspent(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.OutPoint{utxos[0].OutPoint}, locked)

	unlocked, err := l.ListUnspent(ctx, 1, []string{addr})
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	require.Equal(t, utxos[1].OutPoint, unlocked[0].OutPoint)

	// unlocking an output that is not locked fails
	require.Error(t, l.LockUnspent(ctx, true, utxos[1].OutPoint))

	require.NoError(t, l.LockUnspent(ctx, true, utxos[0].OutPoint))
	locked, err = l.ListLockUnspent(ctx)
	require.NoError(t, err)
	require.Empty(t, locked)

	// spending a locked output removes the lock
	require.NoError(t, l.LockUnspent(ctx, false, utxos[1].OutPoint))
	_, err = l.SendRawTransaction(ctx, signedSpend(t, l, utxos[1], addr, 1000))
	require.NoError(t, err)

	locked, err = l.ListLockUnspent(ctx)
	require.NoError(t, err)
	require.Empty(t, locked)

	// locking a spent output fails
	require.Error(t, l.LockUnspent(ctx, false, utxos[1].OutPoint))
}

func TestLedger_AddressBook(t *testing.T) {
	ctx := context.Background()
	l := memledger.New(nil)

	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	wif, err := btcutil.NewWIF(privateKey, l.Params(), true)
	require.NoError(t, err)

	require.NoError(t, l.ImportPrivateKey(ctx, wif, "imported", false))

	addresses, err := l.GetAddressesByLabel(ctx, "imported")
	require.NoError(t, err)
	require.Len(t, addresses, 1)

	dumped, err := l.DumpPrivateKey(ctx, addresses[0])
	require.NoError(t, err)
	require.Equal(t, wif.String(), dumped.String())

	require.NoError(t, l.SetLabel(ctx, addresses[0], "renamed"))

	label, err := l.GetLabel(ctx, addresses[0])
	require.NoError(t, err)
	require.Equal(t, "renamed", label)

	addresses, err = l.GetAddressesByLabel(ctx, "imported")
	require.NoError(t, err)
	require.Empty(t, addresses)

	watchOnly, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160([]byte("watch")), l.Params())
	require.NoError(t, err)
	require.NoError(t, l.ImportAddress(ctx, watchOnly.EncodeAddress(), "watch", false))

	_, err = l.DumpPrivateKey(ctx, watchOnly.EncodeAddress())
	require.ErrorIs(t, err, ledger.ErrAddressNotFound)

	require.ErrorIs(t, l.SetLabel(ctx, "unknown", "label"), ledger.ErrAddressNotFound)
}

func TestLedger_WalletLocked(t *testing.T) {
	ctx := context.Background()
	l := memledger.New(nil, memledger.WithWalletLocked(true))

	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	wif, err := btcutil.NewWIF(privateKey, l.Params(), true)
	require.NoError(t, err)

	err = l.ImportPrivateKey(ctx, wif, "locked", false)
	require.True(t, ierrors.Is(err, memledger.ErrWalletLocked))
	require.True(t, ledger.IsWalletLocked(err))
}

func TestLedger_TransactionNotFound(t *testing.T) {
	l := memledger.New(nil)

	_, err := l.GetTransaction(context.Background(), chainhash.Hash{7}.String())
	require.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}
