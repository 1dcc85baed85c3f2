package wallet

import (
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// TxBuilder collects inputs and outputs. Build returns an immutable model.Tx, the builder can be
// reused afterwards without affecting transactions built before.
type TxBuilder struct {
	inputs  []model.TxInput
	outputs []model.TxOutput
}

func NewTxBuilder() *TxBuilder {
	return &TxBuilder{}
}

// UnspentInputs adds one input per output.
func (b *TxBuilder) UnspentInputs(utxos ...*model.UTXO) *TxBuilder {
	for _, utxo := range utxos {
		b.inputs = append(b.inputs, model.InputFromUTXO(utxo))
	}

	return b
}

// Output pays amount to address.
func (b *TxBuilder) Output(address string, amount model.Amount) *TxBuilder {
	b.outputs = append(b.outputs, model.TxOutput{Address: address, Amount: amount})

	return b
}

// DataOutput pays amount to address and attaches data in a following unspendable output.
func (b *TxBuilder) DataOutput(address string, amount model.Amount, data []byte) *TxBuilder {
	b.outputs = append(b.outputs, model.TxOutput{Address: address, Amount: amount, Data: data})

	return b
}

// Outputs adds the given outputs.
func (b *TxBuilder) Outputs(outputs ...model.TxOutput) *TxBuilder {
	b.outputs = append(b.outputs, outputs...)

	return b
}

func (b *TxBuilder) Build() *model.Tx {
	return model.NewTx(b.inputs, b.outputs)
}
