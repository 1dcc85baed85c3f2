package model

import (
	"slices"
	"time"

	"github.com/iotaledger/hive.go/stringify"
)

// TxInput spends a previously unspent output.
type TxInput struct {
	OutPoint

	Address string
	Script  []byte
	Amount  Amount
}

// InputFromUTXO creates the input spending the given output.
func InputFromUTXO(utxo *UTXO) TxInput {
	return TxInput{
		OutPoint: utxo.OutPoint,
		Address:  utxo.Address,
		Script:   slices.Clone(utxo.Script),
		Amount:   utxo.Amount,
	}
}

// TxOutput moves Amount to Address. A non-empty Data payload is carried by an
// additional unspendable output that directly follows the value output.
type TxOutput struct {
	Address string
	Amount  Amount
	Data    []byte
}

// HasData returns true if the output carries a payload.
func (o TxOutput) HasData() bool {
	return len(o.Data) > 0
}

// Tx is an immutable transaction produced by the transaction builder.
type Tx struct {
	inputs  []TxInput
	outputs []TxOutput
}

// NewTx creates a transaction from the given inputs and outputs.
func NewTx(inputs []TxInput, outputs []TxOutput) *Tx {
	tx := &Tx{
		inputs:  slices.Clone(inputs),
		outputs: make([]TxOutput, len(outputs)),
	}

	for i, output := range outputs {
		output.Data = slices.Clone(output.Data)
		tx.outputs[i] = output
	}

	return tx
}

func (t *Tx) Inputs() []TxInput {
	return slices.Clone(t.inputs)
}

func (t *Tx) Outputs() []TxOutput {
	return slices.Clone(t.outputs)
}

// InputAmount returns the summed value of all inputs.
func (t *Tx) InputAmount() Amount {
	var total Amount
	for _, input := range t.inputs {
		total += input.Amount
	}

	return total
}

// OutputAmount returns the summed value of all outputs.
func (t *Tx) OutputAmount() Amount {
	var total Amount
	for _, output := range t.outputs {
		total += output.Amount
	}

	return total
}

// Fee is the value consumed by the transaction.
func (t *Tx) Fee() Amount {
	return t.InputAmount() - t.OutputAmount()
}

func (t *Tx) String() string {
	return stringify.Struct("Tx",
		stringify.NewStructField("Inputs", len(t.inputs)),
		stringify.NewStructField("Outputs", len(t.outputs)),
		stringify.NewStructField("Fee", t.Fee().String()),
	)
}

// RawOutput is a transaction output as seen on the ledger.
type RawOutput struct {
	Index   uint32
	Address string
	Amount  Amount
	Script  []byte
}

// LedgerTx is a transaction as returned by the ledger node.
type LedgerTx struct {
	TxID      string
	Outputs   []RawOutput
	BlockHash string
	BlockTime time.Time
}

// RecordOutputs returns the owner output and the data output following the
// two-output convention: the data output is the last output and the output
// before it identifies the owner. ok is false if the transaction has fewer than two outputs.
func (t *LedgerTx) RecordOutputs() (owner RawOutput, data RawOutput, ok bool) {
	if len(t.Outputs) < 2 {
		return RawOutput{}, RawOutput{}, false
	}

	return t.Outputs[len(t.Outputs)-2], t.Outputs[len(t.Outputs)-1], true
}
