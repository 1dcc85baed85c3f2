package wallet

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// p2pkhSignatureScriptSize is the upper bound of a signature script spending a compressed P2PKH output.
const p2pkhSignatureScriptSize = 1 + 73 + 1 + 33

// SendTx creates the raw transaction, signs every input with the key of its address and broadcasts it.
func (w *Wallet) SendTx(ctx context.Context, tx *model.Tx) (string, error) {
	msgTx, err := w.createRawTx(tx)
	if err != nil {
		return "", err
	}

	if err := w.signRawTx(ctx, msgTx, tx.Inputs()); err != nil {
		return "", err
	}

	txID, err := w.client.SendRawTransaction(ctx, msgTx)
	if err != nil {
		return "", ierrors.Wrap(err, "failed to send transaction")
	}

	w.logger.LogDebug("sent transaction", "txID", txID, "tx", tx)

	return txID, nil
}

// SendToAddress sends amount from the given outputs to an address. The remainder after fees goes
// to changeAddr if it is above dust. AllFunds sends everything except the fee.
func (w *Wallet) SendToAddress(ctx context.Context, to string, changeAddr string, amount model.Amount, utxos []*model.UTXO) (string, error) {
	utxosAmount := model.SumAmounts(utxos)
	if len(utxos) == 0 || utxosAmount-w.optsMinTxFee <= w.optsDustThreshold {
		return "", ierrors.Wrapf(ErrDustAmount, "outputs hold %s", utxosAmount)
	}

	estimate, err := w.createRawTx(NewTxBuilder().UnspentInputs(utxos...).Output(to, utxosAmount-w.optsMinTxFee).Build())
	if err != nil {
		return "", err
	}

	fee, err := w.estimateFee(ctx, estimate, len(utxos))
	if err != nil {
		return "", err
	}

	sendAmount, changeAmount := utxosAmount-fee, model.Amount(0)
	if amount != AllFunds {
		if utxosAmount < amount+fee {
			return "", newInsufficientFundsError(amount+fee, utxosAmount)
		}

		sendAmount, changeAmount = amount, utxosAmount-amount-fee
	}

	if sendAmount <= w.optsDustThreshold {
		return "", ierrors.Wrapf(ErrDustAmount, "send amount %s", sendAmount)
	}

	builder := NewTxBuilder().UnspentInputs(utxos...).Output(to, sendAmount)
	if changeAmount > w.optsDustThreshold {
		builder.Output(changeAddr, changeAmount)
	}

	w.logger.LogDebug("send to address", "to", to, "utxos", utxosAmount, "send", sendAmount, "change", changeAmount, "fee", fee)

	return w.SendTx(ctx, builder.Build())
}

// SendFromLabel sends amount to an address from the outputs of a label, returning change to the label's change address.
func (w *Wallet) SendFromLabel(ctx context.Context, label string, to string, amount model.Amount) (string, error) {
	target := amount
	if amount != AllFunds {
		target += w.optsMinTxFee
	}

	utxos, err := w.SelectUnspentByLabel(ctx, label, target)
	if err != nil {
		return "", err
	}

	changeAddr, err := w.GetChangeAddress(ctx, label)
	if err != nil {
		return "", err
	}

	return w.SendToAddress(ctx, to, changeAddr.String(), amount, utxos)
}

// RedeemChange sweeps the change outputs of a label back to the given address. It returns an
// empty txID if there is nothing worth redeeming.
func (w *Wallet) RedeemChange(ctx context.Context, label string, to *model.Address) (string, error) {
	changeAddresses, err := w.ChangeAddresses(ctx, label)
	if err != nil {
		return "", err
	}

	utxos, err := w.ListUnspent(ctx, changeAddresses)
	if err != nil {
		return "", err
	}

	txID, err := w.SendToAddress(ctx, to.String(), to.String(), AllFunds, utxos)
	if err != nil {
		if ierrors.Is(err, ErrDustAmount) {
			w.logger.LogDebug("no change to redeem", "label", label, "amount", model.SumAmounts(utxos))

			return "", nil
		}

		return "", ierrors.Wrapf(err, "failed to redeem change of %s", label)
	}

	return txID, nil
}

// RecordData sends a transaction from the outputs of label whose last two outputs are the value
// output to recipient and the data output. It returns the outpoint of the value output.
func (w *Wallet) RecordData(ctx context.Context, label string, recipient string, data []byte) (model.OutPoint, error) {
	return w.recordData(ctx, label, recipient, data, w.optsMinDataAmount)
}

// RecordDataFor is RecordData for a recipient outside the wallet of the sender. It reserves twice the data fee.
func (w *Wallet) RecordDataFor(ctx context.Context, label string, recipient string, data []byte) (model.OutPoint, error) {
	return w.recordData(ctx, label, recipient, data, 2*w.optsMinDataAmount)
}

func (w *Wallet) recordData(ctx context.Context, label string, recipient string, data []byte, dataFee model.Amount) (model.OutPoint, error) {
	feePerKB, err := w.client.EstimateFee(ctx)
	if err != nil {
		return model.OutPoint{}, ierrors.Wrap(err, "failed to estimate fee")
	}

	dataAmount := w.DataAmount()
	required := dataAmount + dataFee + feePerKB

	utxos, err := w.SelectUnspentByLabel(ctx, label, required)
	if err != nil {
		return model.OutPoint{}, err
	}

	changeAddr, err := w.GetChangeAddress(ctx, label)
	if err != nil {
		return model.OutPoint{}, err
	}

	builder := NewTxBuilder().UnspentInputs(utxos...)
	if changeAmount := model.SumAmounts(utxos) - required; changeAmount > w.optsDustThreshold {
		builder.Output(changeAddr.String(), changeAmount)
	}
	builder.DataOutput(recipient, dataAmount, data)

	tx := builder.Build()

	txID, err := w.SendTx(ctx, tx)
	if err != nil {
		return model.OutPoint{}, err
	}

	// every output before the data output is a value output, the data output adds one more
	return model.NewOutPoint(txID, uint32(len(tx.Outputs())-1)), nil
}

func (w *Wallet) estimateFee(ctx context.Context, msgTx *wire.MsgTx, inputCount int) (model.Amount, error) {
	feePerKB, err := w.client.EstimateFee(ctx)
	if err != nil {
		return 0, ierrors.Wrap(err, "failed to estimate fee")
	}

	size := msgTx.SerializeSize() + inputCount*p2pkhSignatureScriptSize
	fee := feePerKB * model.Amount(size) / 1000

	return max(fee, w.optsMinTxFee), nil
}

func (w *Wallet) createRawTx(tx *model.Tx) (*wire.MsgTx, error) {
	msgTx := wire.NewMsgTx(wire.TxVersion)

	for _, input := range tx.Inputs() {
		outPoint, err := input.OutPoint.Wire()
		if err != nil {
			return nil, err
		}

		msgTx.AddTxIn(wire.NewTxIn(outPoint, nil, nil))
	}

	for _, output := range tx.Outputs() {
		addr, err := btcutil.DecodeAddress(output.Address, w.Params())
		if err != nil {
			return nil, ierrors.Wrapf(err, "invalid output address %s", output.Address)
		}

		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, ierrors.Wrapf(err, "failed to create script for %s", output.Address)
		}

		msgTx.AddTxOut(wire.NewTxOut(int64(output.Amount), pkScript))

		if output.HasData() {
			msgTx.AddTxOut(wire.NewTxOut(0, output.Data))
		}
	}

	return msgTx, nil
}

func (w *Wallet) signRawTx(ctx context.Context, msgTx *wire.MsgTx, inputs []model.TxInput) error {
	for i, input := range inputs {
		wif, err := w.client.DumpPrivateKey(ctx, input.Address)
		if err != nil {
			if ierrors.Is(err, ledger.ErrAddressNotFound) {
				return &SigningError{Address: input.Address, OutPoint: input.OutPoint}
			}

			return ierrors.Wrapf(err, "failed to get private key of %s", input.Address)
		}

		sigScript, err := txscript.SignatureScript(msgTx, i, input.Script, txscript.SigHashAll, wif.PrivKey, true)
		if err != nil {
			return ierrors.Join(&SigningError{Address: input.Address, OutPoint: input.OutPoint}, err)
		}

		msgTx.TxIn[i].SignatureScript = sigScript
	}

	return nil
}
