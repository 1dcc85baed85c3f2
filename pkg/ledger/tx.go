package ledger

import (
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// DecodeOutputs converts the outputs of a wire transaction. Outputs without a
// standard destination, like data outputs, have an empty address.
func DecodeOutputs(tx *wire.MsgTx, params *chaincfg.Params) []model.RawOutput {
	outputs := make([]model.RawOutput, len(tx.TxOut))
	for i, txOut := range tx.TxOut {
		outputs[i] = model.RawOutput{
			Index:   uint32(i),
			Address: ScriptAddress(txOut.PkScript, params),
			Amount:  btcutil.Amount(txOut.Value),
			Script:  slices.Clone(txOut.PkScript),
		}
	}

	return outputs
}

// ScriptAddress returns the single address a script pays to, or the empty string.
func ScriptAddress(pkScript []byte, params *chaincfg.Params) string {
	_, addresses, _, err := txscript.ExtractPkScriptAddrs(pkScript, params)
	if err != nil || len(addresses) != 1 {
		return ""
	}

	return addresses[0].EncodeAddress()
}
