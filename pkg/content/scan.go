package content

import (
	"context"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/bcdata"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// record is a data record found on the ledger. utxo is the owner output that precedes the data output.
type record struct {
	utxo    *model.UTXO
	txID    string
	payload []byte
}

// scan lists the unspent records of addr with the given opcode in ledger order, locked outputs first.
// Unlocked record outputs of wallet-controlled addresses are locked again.
func (m *Manager) scan(ctx context.Context, addr *model.Address, opCode bcdata.OpCode) ([]*record, error) {
	known, err := m.wallet.FindAddress(ctx, addr.String())
	if err != nil {
		if ierrors.Is(err, ledger.ErrAddressNotFound) {
			return nil, nil
		}

		return nil, ierrors.Wrapf(err, "failed to resolve %s", addr)
	}

	addresses := []*model.Address{known}

	locked, err := m.wallet.ListLockUnspent(ctx, addresses)
	if err != nil {
		return nil, err
	}

	unlocked, err := m.wallet.ListUnspent(ctx, addresses)
	if err != nil {
		return nil, err
	}

	records := make([]*record, 0)
	seen := make(map[string]struct{})

	for i, utxo := range append(locked, unlocked...) {
		if _, exists := seen[utxo.OutPoint.String()]; exists {
			continue
		}
		seen[utxo.OutPoint.String()] = struct{}{}

		r, err := m.recordOf(ctx, known, utxo, opCode)
		if err != nil {
			return nil, err
		}

		if r == nil {
			continue
		}

		if isLocked := i < len(locked); !isLocked && known.IsWalletControlled() {
			if err := m.wallet.LockUnspent(ctx, utxo, false); err != nil {
				return nil, err
			}

			m.logger.LogInfo("locked record output again", "address", known.String(), "outPoint", utxo.OutPoint, "opCode", opCode)
		}

		records = append(records, r)
	}

	return records, nil
}

// recordOf returns the record of the transaction that created utxo, or nil if the transaction is
// not a record of addr with the given opcode.
func (m *Manager) recordOf(ctx context.Context, addr *model.Address, utxo *model.UTXO, opCode bcdata.OpCode) (*record, error) {
	tx, err := m.wallet.Client().GetTransaction(ctx, utxo.TxID)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to get transaction %s", utxo.TxID)
	}

	owner, data, ok := tx.RecordOutputs()
	if !ok || owner.Address != addr.String() || owner.Index != utxo.Index {
		return nil, nil
	}

	decoded, ok := bcdata.Decode(data.Script)
	if !ok || decoded.OpCode != opCode {
		return nil, nil
	}

	return &record{
		utxo: &model.UTXO{
			OutPoint:  utxo.OutPoint,
			Address:   owner.Address,
			Script:    owner.Script,
			Amount:    owner.Amount,
			Spendable: utxo.Spendable,
		},
		txID:    utxo.TxID,
		payload: decoded.Payload,
	}, nil
}
