package model

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/stringify"
)

// Amount is a ledger value in its smallest unit.
type Amount = btcutil.Amount

// OutPoint references a single output of a transaction.
type OutPoint struct {
	TxID  string
	Index uint32
}

// NewOutPoint creates an OutPoint.
func NewOutPoint(txID string, index uint32) OutPoint {
	return OutPoint{TxID: txID, Index: index}
}

// Wire converts the OutPoint into its wire representation.
func (o OutPoint) Wire() (*wire.OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(o.TxID)
	if err != nil {
		return nil, ierrors.Wrapf(err, "invalid txid %s", o.TxID)
	}

	return wire.NewOutPoint(hash, o.Index), nil
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Index)
}

// UTXO is an unspent transaction output as reported by the ledger node.
type UTXO struct {
	OutPoint

	Address       string
	Script        []byte
	Amount        Amount
	Confirmations int64
	Spendable     bool
}

func (u *UTXO) String() string {
	return stringify.Struct("UTXO",
		stringify.NewStructField("OutPoint", u.OutPoint.String()),
		stringify.NewStructField("Address", u.Address),
		stringify.NewStructField("Amount", u.Amount.String()),
	)
}

// SumAmounts returns the total value of the given outputs.
func SumAmounts(utxos []*UTXO) Amount {
	var total Amount
	for _, utxo := range utxos {
		total += utxo.Amount
	}

	return total
}
