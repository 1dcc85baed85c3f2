package wallet

import (
	"context"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// ListUnspent lists the unlocked unspent outputs of the given addresses in ledger order.
func (w *Wallet) ListUnspent(ctx context.Context, addresses []*model.Address) ([]*model.UTXO, error) {
	// an empty filter would list the outputs of the whole wallet
	if len(addresses) == 0 {
		return []*model.UTXO{}, nil
	}

	utxos, err := w.client.ListUnspent(ctx, w.optsMinConf, encodedAddresses(addresses))
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to list unspent outputs")
	}

	return utxos, nil
}

// ListLockUnspent lists the locked outputs that belong to the given addresses.
func (w *Wallet) ListLockUnspent(ctx context.Context, addresses []*model.Address) ([]*model.UTXO, error) {
	outPoints, err := w.client.ListLockUnspent(ctx)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to list locked outputs")
	}

	filter := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		filter[addr.String()] = struct{}{}
	}

	utxos := make([]*model.UTXO, 0, len(outPoints))
	for _, outPoint := range outPoints {
		tx, err := w.client.GetTransaction(ctx, outPoint.TxID)
		if err != nil {
			return nil, ierrors.Wrapf(err, "failed to get locked transaction %s", outPoint.TxID)
		}

		if int(outPoint.Index) >= len(tx.Outputs) {
			continue
		}

		output := tx.Outputs[outPoint.Index]
		if _, included := filter[output.Address]; !included {
			continue
		}

		utxos = append(utxos, &model.UTXO{
			OutPoint:  outPoint,
			Address:   output.Address,
			Script:    output.Script,
			Amount:    output.Amount,
			Spendable: true,
		})
	}

	return utxos, nil
}

// LockUnspent locks or unlocks an output.
func (w *Wallet) LockUnspent(ctx context.Context, utxo *model.UTXO, unlock bool) error {
	if err := w.client.LockUnspent(ctx, unlock, utxo.OutPoint); err != nil {
		return ierrors.Wrapf(err, "failed to lock output %s (unlock=%t)", utxo.OutPoint, unlock)
	}

	return nil
}

// Balance returns the value of the unlocked unspent outputs of the label, change included.
func (w *Wallet) Balance(ctx context.Context, label string) (model.Amount, error) {
	utxos, err := w.SelectUnspentByLabel(ctx, label, AllFunds)
	if err != nil {
		return 0, err
	}

	return model.SumAmounts(utxos), nil
}

// SelectUnspent accumulates the unspent outputs of the given addresses in ledger order until
// target is covered. AllFunds selects every output.
func (w *Wallet) SelectUnspent(ctx context.Context, addresses []*model.Address, target model.Amount) ([]*model.UTXO, error) {
	utxos, err := w.ListUnspent(ctx, addresses)
	if err != nil {
		return nil, err
	}

	return accumulate(utxos, target)
}

// SelectUnspentByLabel selects from the addresses of the label first and from its change addresses last.
func (w *Wallet) SelectUnspentByLabel(ctx context.Context, label string, target model.Amount) ([]*model.UTXO, error) {
	addresses, err := w.Addresses(ctx, label)
	if err != nil {
		return nil, err
	}

	changeAddresses, err := w.ChangeAddresses(ctx, label)
	if err != nil {
		return nil, err
	}

	utxos, err := w.ListUnspent(ctx, addresses)
	if err != nil {
		return nil, err
	}

	changeUTXOs, err := w.ListUnspent(ctx, changeAddresses)
	if err != nil {
		return nil, err
	}

	return accumulate(append(utxos, changeUTXOs...), target)
}

func accumulate(utxos []*model.UTXO, target model.Amount) ([]*model.UTXO, error) {
	var total model.Amount
	selected := make([]*model.UTXO, 0, len(utxos))
	for _, utxo := range utxos {
		selected = append(selected, utxo)
		total += utxo.Amount

		if target != AllFunds && total >= target {
			return selected, nil
		}
	}

	if target != AllFunds {
		return nil, newInsufficientFundsError(target, total)
	}

	return selected, nil
}

func encodedAddresses(addresses []*model.Address) []string {
	return lo.Map(addresses, func(addr *model.Address) string {
		return addr.String()
	})
}
