package memledger

import (
	"context"
	"encoding/binary"
	"math"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

func (l *Ledger) SendRawTransaction(ctx context.Context, tx *wire.MsgTx) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.storeLock.Lock()
	defer l.storeLock.Unlock()

	if len(tx.TxIn) == 0 || len(tx.TxOut) == 0 {
		return "", ierrors.Wrap(ledger.ErrRejected, "transaction without inputs or outputs")
	}

	spent, err := l.verifyInputsWithoutLocking(tx)
	if err != nil {
		return "", err
	}

	if err := l.acceptWithoutLocking(tx, spent); err != nil {
		return "", err
	}

	return tx.TxHash().String(), nil
}

func (l *Ledger) verifyInputsWithoutLocking(tx *wire.MsgTx) ([]*output, error) {
	spent := make([]*output, 0, len(tx.TxIn))
	seen := make(map[wire.OutPoint]struct{}, len(tx.TxIn))
	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)

	var inputAmount int64
	for _, txIn := range tx.TxIn {
		if _, duplicate := seen[txIn.PreviousOutPoint]; duplicate {
			return nil, ierrors.Wrapf(ledger.ErrRejected, "duplicate input %s", txIn.PreviousOutPoint)
		}
		seen[txIn.PreviousOutPoint] = struct{}{}

		if has, err := l.store.Has(outPointKey(storeKeyPrefixUnspent, txIn.PreviousOutPoint)); err != nil || !has {
			return nil, ierrors.Wrapf(ledger.ErrRejected, "input %s is not unspent", txIn.PreviousOutPoint)
		}

		prevOut, err := l.readOutputWithoutLocking(txIn.PreviousOutPoint)
		if err != nil {
			return nil, err
		}

		prevOutFetcher.AddPrevOut(txIn.PreviousOutPoint, wire.NewTxOut(prevOut.amount, prevOut.pkScript))
		inputAmount += prevOut.amount
		spent = append(spent, prevOut)
	}

	var outputAmount int64
	for _, txOut := range tx.TxOut {
		if txOut.Value < 0 {
			return nil, ierrors.Wrap(ledger.ErrRejected, "negative output value")
		}
		outputAmount += txOut.Value
	}

	if outputAmount > inputAmount {
		return nil, ierrors.Wrapf(ledger.ErrRejected, "outputs %d exceed inputs %d", outputAmount, inputAmount)
	}

	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	for i, prevOut := range spent {
		engine, err := txscript.NewEngine(prevOut.pkScript, tx, i, txscript.StandardVerifyFlags, nil, sigHashes, prevOut.amount, prevOutFetcher)
		if err != nil {
			return nil, ierrors.Join(ledger.ErrRejected, ierrors.Wrapf(err, "failed to create script engine for input %d", i))
		}

		if err := engine.Execute(); err != nil {
			return nil, ierrors.Join(ledger.ErrRejected, ierrors.Wrapf(err, "invalid signature for input %d", i))
		}
	}

	return spent, nil
}

func (l *Ledger) acceptWithoutLocking(tx *wire.MsgTx, spent []*output) error {
	sequence, err := l.nextCounter(counterSequence)
	if err != nil {
		return err
	}

	mutations, err := l.store.Batched()
	if err != nil {
		return err
	}

	for _, prevOut := range spent {
		if err := mutations.Delete(outPointKey(storeKeyPrefixUnspent, prevOut.outPoint)); err != nil {
			mutations.Cancel()

			return err
		}

		if err := mutations.Delete(outPointKey(storeKeyPrefixLocked, prevOut.outPoint)); err != nil {
			mutations.Cancel()

			return err
		}
	}

	if err := l.storeTransactionWithoutLocking(tx, sequence, 0, mutations); err != nil {
		mutations.Cancel()

		return err
	}

	return mutations.Commit()
}

func (l *Ledger) storeTransactionWithoutLocking(tx *wire.MsgTx, sequence uint64, height uint64, mutations kvstore.BatchedMutations) error {
	if err := storeKVStorable(&transaction{sequence: sequence, height: height, tx: tx}, mutations); err != nil {
		return err
	}

	txHash := tx.TxHash()
	for index, txOut := range tx.TxOut {
		if txscript.IsUnspendable(txOut.PkScript) {
			continue
		}

		out := &output{
			outPoint: *wire.NewOutPoint(&txHash, uint32(index)),
			sequence: sequence,
			height:   height,
			amount:   txOut.Value,
			pkScript: txOut.PkScript,
		}

		if err := storeKVStorable(out, mutations); err != nil {
			return err
		}

		if err := mutations.Set(outPointKey(storeKeyPrefixUnspent, out.outPoint), []byte{}); err != nil {
			return err
		}
	}

	return nil
}

func (l *Ledger) GetTransaction(ctx context.Context, txID string) (*model.LedgerTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txHash, err := chainhash.NewHashFromStr(txID)
	if err != nil {
		return nil, ierrors.Wrapf(err, "invalid txid %s", txID)
	}

	l.storeLock.RLock()
	defer l.storeLock.RUnlock()

	txRecord, err := l.readTransactionWithoutLocking(*txHash)
	if err != nil {
		return nil, err
	}

	ledgerTx := &model.LedgerTx{
		TxID:    txID,
		Outputs: ledger.DecodeOutputs(txRecord.tx, l.optsParams),
	}

	if txRecord.height > 0 {
		blockRecord, err := l.readBlockWithoutLocking(txRecord.height)
		if err != nil {
			return nil, err
		}

		ledgerTx.BlockHash = blockRecord.hash.String()
		ledgerTx.BlockTime = time.Unix(blockRecord.time, 0)
	}

	return ledgerTx, nil
}

func (l *Ledger) ListUnspent(ctx context.Context, minConf int, addresses []string) ([]*model.UTXO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		filter[addr] = struct{}{}
	}

	l.storeLock.RLock()
	defer l.storeLock.RUnlock()

	tipHeight, err := l.readCounter(counterHeight)
	if err != nil {
		return nil, err
	}

	outPoints, err := l.outPointsWithoutLocking(storeKeyPrefixUnspent)
	if err != nil {
		return nil, err
	}

	outputs := make([]*output, 0, len(outPoints))
	for _, outPoint := range outPoints {
		if locked, err := l.store.Has(outPointKey(storeKeyPrefixLocked, outPoint)); err != nil || locked {
			continue
		}

		out, err := l.readOutputWithoutLocking(outPoint)
		if err != nil {
			return nil, err
		}

		if confirmations(out.height, tipHeight) < int64(minConf) {
			continue
		}

		outputs = append(outputs, out)
	}

	sort.Slice(outputs, func(i, j int) bool {
		if outputs[i].sequence != outputs[j].sequence {
			return outputs[i].sequence < outputs[j].sequence
		}

		return outputs[i].outPoint.Index < outputs[j].outPoint.Index
	})

	utxos := make([]*model.UTXO, 0, len(outputs))
	for _, out := range outputs {
		encoded := ledger.ScriptAddress(out.pkScript, l.optsParams)
		if _, included := filter[encoded]; len(filter) > 0 && !included {
			continue
		}

		utxos = append(utxos, &model.UTXO{
			OutPoint:      model.NewOutPoint(out.outPoint.Hash.String(), out.outPoint.Index),
			Address:       encoded,
			Script:        out.pkScript,
			Amount:        model.Amount(out.amount),
			Confirmations: confirmations(out.height, tipHeight),
			Spendable:     l.isWalletControlledWithoutLocking(encoded),
		})
	}

	return utxos, nil
}

func (l *Ledger) ListLockUnspent(ctx context.Context) ([]model.OutPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.storeLock.RLock()
	defer l.storeLock.RUnlock()

	outPoints, err := l.outPointsWithoutLocking(storeKeyPrefixLocked)
	if err != nil {
		return nil, err
	}

	outputs := make([]*output, 0, len(outPoints))
	for _, outPoint := range outPoints {
		out, err := l.readOutputWithoutLocking(outPoint)
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, out)
	}

	sort.Slice(outputs, func(i, j int) bool {
		if outputs[i].sequence != outputs[j].sequence {
			return outputs[i].sequence < outputs[j].sequence
		}

		return outputs[i].outPoint.Index < outputs[j].outPoint.Index
	})

	return lo.Map(outputs, func(out *output) model.OutPoint {
		return model.NewOutPoint(out.outPoint.Hash.String(), out.outPoint.Index)
	}), nil
}

func (l *Ledger) LockUnspent(ctx context.Context, unlock bool, outPoints ...model.OutPoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.storeLock.Lock()
	defer l.storeLock.Unlock()

	mutations, err := l.store.Batched()
	if err != nil {
		return err
	}

	for _, outPoint := range outPoints {
		wireOutPoint, err := outPoint.Wire()
		if err != nil {
			mutations.Cancel()

			return err
		}

		if unspent, err := l.store.Has(outPointKey(storeKeyPrefixUnspent, *wireOutPoint)); err != nil || !unspent {
			mutations.Cancel()

			return ierrors.Errorf("invalid parameter, expected unspent output %s", outPoint)
		}

		lockKey := outPointKey(storeKeyPrefixLocked, *wireOutPoint)
		if !unlock {
			if err := mutations.Set(lockKey, []byte{}); err != nil {
				mutations.Cancel()

				return err
			}

			continue
		}

		if locked, err := l.store.Has(lockKey); err != nil || !locked {
			mutations.Cancel()

			return ierrors.Errorf("invalid parameter, expected locked output %s", outPoint)
		}

		if err := mutations.Delete(lockKey); err != nil {
			mutations.Cancel()

			return err
		}
	}

	return mutations.Commit()
}

func (l *Ledger) Generate(ctx context.Context, blocks int, encoded string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr, err := btcutil.DecodeAddress(encoded, l.optsParams)
	if err != nil {
		return nil, ierrors.Wrapf(err, "invalid address %s", encoded)
	}

	payToScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to create script for %s", encoded)
	}

	l.storeLock.Lock()
	defer l.storeLock.Unlock()

	blockHashes := make([]string, 0, blocks)
	for range blocks {
		blockHash, err := l.generateBlockWithoutLocking(payToScript)
		if err != nil {
			return nil, err
		}

		blockHashes = append(blockHashes, blockHash.String())
	}

	return blockHashes, nil
}

func (l *Ledger) generateBlockWithoutLocking(payToScript []byte) (chainhash.Hash, error) {
	height, err := l.nextCounter(counterHeight)
	if err != nil {
		return chainhash.Hash{}, err
	}

	sequence, err := l.nextCounter(counterSequence)
	if err != nil {
		return chainhash.Hash{}, err
	}

	heightBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(heightBytes, height)

	coinbase := wire.NewMsgTx(wire.TxVersion)
	coinbase.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, math.MaxUint32), heightBytes, nil))
	coinbase.AddTxOut(wire.NewTxOut(int64(l.optsBlockReward), payToScript))

	mempool, err := l.mempoolWithoutLocking()
	if err != nil {
		return chainhash.Hash{}, err
	}

	blockContent := append([]byte{}, heightBytes...)
	for _, txRecord := range append([]*transaction{{tx: coinbase}}, mempool...) {
		txHash := txRecord.tx.TxHash()
		blockContent = append(blockContent, txHash[:]...)
	}

	blockRecord := &block{
		height: height,
		hash:   chainhash.DoubleHashH(blockContent),
		time:   l.optsClock().Unix(),
	}

	mutations, err := l.store.Batched()
	if err != nil {
		return chainhash.Hash{}, err
	}

	if err := storeKVStorable(blockRecord, mutations); err != nil {
		mutations.Cancel()

		return chainhash.Hash{}, err
	}

	if err := l.storeTransactionWithoutLocking(coinbase, sequence, height, mutations); err != nil {
		mutations.Cancel()

		return chainhash.Hash{}, err
	}

	for _, txRecord := range mempool {
		if err := l.confirmTransactionWithoutLocking(txRecord, height, mutations); err != nil {
			mutations.Cancel()

			return chainhash.Hash{}, err
		}
	}

	if err := mutations.Commit(); err != nil {
		return chainhash.Hash{}, err
	}

	return blockRecord.hash, nil
}

func (l *Ledger) confirmTransactionWithoutLocking(txRecord *transaction, height uint64, mutations kvstore.BatchedMutations) error {
	txRecord.height = height
	if err := storeKVStorable(txRecord, mutations); err != nil {
		return err
	}

	txHash := txRecord.tx.TxHash()
	for index := range txRecord.tx.TxOut {
		out, err := l.readOutputWithoutLocking(*wire.NewOutPoint(&txHash, uint32(index)))
		if err != nil {
			if ierrors.Is(err, kvstore.ErrKeyNotFound) {
				continue
			}

			return err
		}

		out.height = height
		if err := storeKVStorable(out, mutations); err != nil {
			return err
		}
	}

	return nil
}

func (l *Ledger) mempoolWithoutLocking() ([]*transaction, error) {
	mempool := make([]*transaction, 0)

	var innerErr error
	if err := l.store.Iterate(kvstore.KeyPrefix{storeKeyPrefixTransaction}, func(key kvstore.Key, value kvstore.Value) bool {
		txRecord := new(transaction)
		if innerErr = txRecord.kvStorableLoad(key, value); innerErr != nil {
			return false
		}

		if txRecord.height == 0 {
			mempool = append(mempool, txRecord)
		}

		return true
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to iterate transactions")
	}

	if innerErr != nil {
		return nil, innerErr
	}

	sort.Slice(mempool, func(i, j int) bool {
		return mempool[i].sequence < mempool[j].sequence
	})

	return mempool, nil
}

func (l *Ledger) outPointsWithoutLocking(prefix byte) ([]wire.OutPoint, error) {
	outPoints := make([]wire.OutPoint, 0)

	var innerErr error
	if err := l.store.IterateKeys(kvstore.KeyPrefix{prefix}, func(key kvstore.Key) bool {
		outPoint, err := outPointFromKey(key)
		if err != nil {
			innerErr = err

			return false
		}

		outPoints = append(outPoints, outPoint)

		return true
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to iterate outputs")
	}

	return outPoints, innerErr
}

func (l *Ledger) readOutputWithoutLocking(outPoint wire.OutPoint) (*output, error) {
	key := outPointKey(storeKeyPrefixOutput, outPoint)

	value, err := l.store.Get(key)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to load output %s", outPoint)
	}

	out := new(output)
	if err := out.kvStorableLoad(key, value); err != nil {
		return nil, err
	}

	return out, nil
}

func (l *Ledger) readTransactionWithoutLocking(txHash chainhash.Hash) (*transaction, error) {
	key := transactionKey(txHash)

	value, err := l.store.Get(key)
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ierrors.Wrapf(ledger.ErrTransactionNotFound, "transaction %s", txHash)
		}

		return nil, ierrors.Wrapf(err, "failed to load transaction %s", txHash)
	}

	txRecord := new(transaction)
	if err := txRecord.kvStorableLoad(key, value); err != nil {
		return nil, err
	}

	return txRecord, nil
}

func (l *Ledger) readBlockWithoutLocking(height uint64) (*block, error) {
	key := blockKey(height)

	value, err := l.store.Get(key)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to load block %d", height)
	}

	blockRecord := &block{height: height}
	if err := blockRecord.kvStorableLoad(key, value); err != nil {
		return nil, err
	}

	return blockRecord, nil
}

func (l *Ledger) isWalletControlledWithoutLocking(encoded string) bool {
	addr, err := l.readAddressWithoutLocking(encoded)

	return err == nil && len(addr.privateKey) > 0
}

func confirmations(height uint64, tipHeight uint64) int64 {
	if height == 0 || height > tipHeight {
		return 0
	}

	return int64(tipHeight-height) + 1
}
