// Package rpcledger connects to a bitcoind compatible ledger node over JSON-RPC.
package rpcledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"slices"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// DefaultConfTarget is the number of blocks EstimateFee targets.
const DefaultConfTarget = 6

// Ledger is a ledger.Client backed by a remote node.
type Ledger struct {
	client *rpcclient.Client

	optsParams      *chaincfg.Params
	optsConfTarget  int64
	optsFallbackFee btcutil.Amount
}

var _ ledger.Client = &Ledger{}

// New connects to the node at host ("host:port") with the given credentials.
func New(host string, user string, pass string, opts ...options.Option[Ledger]) (*Ledger, error) {
	l := options.Apply(&Ledger{
		optsParams:      &chaincfg.RegressionNetParams,
		optsConfTarget:  DefaultConfTarget,
		optsFallbackFee: 1000,
	}, opts)

	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         pass,
		Params:       l.optsParams.Name,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to create rpc client for %s", host)
	}
	l.client = client

	return l, nil
}

// Shutdown closes the connection to the node.
func (l *Ledger) Shutdown() {
	l.client.Shutdown()
}

func (l *Ledger) Params() *chaincfg.Params {
	return l.optsParams
}

func (l *Ledger) GetTransaction(ctx context.Context, txID string) (*model.LedgerTx, error) {
	txHash, err := chainhash.NewHashFromStr(txID)
	if err != nil {
		return nil, ierrors.Wrapf(err, "invalid txid %s", txID)
	}

	result, err := await(ctx, l.client.GetRawTransactionVerboseAsync(txHash))
	if err != nil {
		if isRPCError(err, btcjson.ErrRPCNoTxInfo, btcjson.ErrRPCInvalidAddressOrKey) {
			return nil, ierrors.Join(ledger.ErrTransactionNotFound, err)
		}

		return nil, ierrors.Wrapf(err, "failed to get transaction %s", txID)
	}

	rawTx, err := hex.DecodeString(result.Hex)
	if err != nil {
		return nil, ierrors.Wrapf(err, "invalid transaction hex of %s", txID)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(rawTx)); err != nil {
		return nil, ierrors.Wrapf(err, "failed to deserialize transaction %s", txID)
	}

	ledgerTx := &model.LedgerTx{
		TxID:      txID,
		Outputs:   ledger.DecodeOutputs(tx, l.optsParams),
		BlockHash: result.BlockHash,
	}
	if result.Blocktime > 0 {
		ledgerTx.BlockTime = time.Unix(result.Blocktime, 0)
	}

	return ledgerTx, nil
}

func (l *Ledger) ListUnspent(ctx context.Context, minConf int, addresses []string) ([]*model.UTXO, error) {
	decoded := make([]btcutil.Address, 0, len(addresses))
	for _, encoded := range addresses {
		addr, err := btcutil.DecodeAddress(encoded, l.optsParams)
		if err != nil {
			return nil, ierrors.Wrapf(err, "invalid address %s", encoded)
		}

		decoded = append(decoded, addr)
	}

	results, err := await(ctx, l.client.ListUnspentMinMaxAddressesAsync(minConf, 9999999, decoded))
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to list unspent outputs")
	}

	utxos := make([]*model.UTXO, 0, len(results))
	for _, result := range results {
		script, err := hex.DecodeString(result.ScriptPubKey)
		if err != nil {
			return nil, ierrors.Wrapf(err, "invalid script of %s:%d", result.TxID, result.Vout)
		}

		amount, err := btcutil.NewAmount(result.Amount)
		if err != nil {
			return nil, ierrors.Wrapf(err, "invalid amount of %s:%d", result.TxID, result.Vout)
		}

		utxos = append(utxos, &model.UTXO{
			OutPoint:      model.NewOutPoint(result.TxID, result.Vout),
			Address:       result.Address,
			Script:        script,
			Amount:        amount,
			Confirmations: result.Confirmations,
			Spendable:     result.Spendable,
		})
	}

	return utxos, nil
}

func (l *Ledger) ListLockUnspent(ctx context.Context) ([]model.OutPoint, error) {
	outPoints, err := await(ctx, l.client.ListLockUnspentAsync())
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to list locked outputs")
	}

	return lo.Map(outPoints, func(outPoint *wire.OutPoint) model.OutPoint {
		return model.NewOutPoint(outPoint.Hash.String(), outPoint.Index)
	}), nil
}

func (l *Ledger) LockUnspent(ctx context.Context, unlock bool, outPoints ...model.OutPoint) error {
	wireOutPoints := make([]*wire.OutPoint, 0, len(outPoints))
	for _, outPoint := range outPoints {
		wireOutPoint, err := outPoint.Wire()
		if err != nil {
			return err
		}

		wireOutPoints = append(wireOutPoints, wireOutPoint)
	}

	if _, err := await(ctx, errorFuture(l.client.LockUnspentAsync(unlock, wireOutPoints))); err != nil {
		return ierrors.Wrap(err, "failed to lock outputs")
	}

	return nil
}

func (l *Ledger) SendRawTransaction(ctx context.Context, tx *wire.MsgTx) (string, error) {
	txHash, err := await(ctx, l.client.SendRawTransactionAsync(tx, false))
	if err != nil {
		return "", ierrors.Join(ledger.ErrRejected, err)
	}

	return txHash.String(), nil
}

func (l *Ledger) EstimateFee(ctx context.Context) (model.Amount, error) {
	mode := btcjson.EstimateModeConservative

	result, err := await(ctx, l.client.EstimateSmartFeeAsync(l.optsConfTarget, &mode))
	if err != nil {
		return 0, ierrors.Wrap(err, "failed to estimate fee")
	}

	// nodes without enough history do not return an estimate
	if result.FeeRate == nil || *result.FeeRate <= 0 {
		return l.optsFallbackFee, nil
	}

	return btcutil.NewAmount(*result.FeeRate)
}

func (l *Ledger) Generate(ctx context.Context, blocks int, encoded string) ([]string, error) {
	addr, err := btcutil.DecodeAddress(encoded, l.optsParams)
	if err != nil {
		return nil, ierrors.Wrapf(err, "invalid address %s", encoded)
	}

	blockHashes, err := await(ctx, l.client.GenerateToAddressAsync(int64(blocks), addr, nil))
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to generate blocks")
	}

	return lo.Map(blockHashes, func(blockHash *chainhash.Hash) string {
		return blockHash.String()
	}), nil
}

func (l *Ledger) GetNewAddress(ctx context.Context, label string) (string, error) {
	addr, err := await(ctx, l.client.GetNewAddressAsync(label))
	if err != nil {
		return "", ierrors.Wrap(err, "failed to create address")
	}

	return addr.EncodeAddress(), nil
}

func (l *Ledger) ImportPrivateKey(ctx context.Context, wif *btcutil.WIF, label string, rescan bool) error {
	if _, err := await(ctx, errorFuture(l.client.ImportPrivKeyRescanAsync(wif, label, rescan))); err != nil {
		return ierrors.Wrapf(err, "failed to import private key with label %s", label)
	}

	return nil
}

func (l *Ledger) ImportAddress(ctx context.Context, encoded string, label string, rescan bool) error {
	if _, err := await(ctx, errorFuture(l.client.ImportAddressRescanAsync(encoded, label, rescan))); err != nil {
		return ierrors.Wrapf(err, "failed to import address %s", encoded)
	}

	return nil
}

func (l *Ledger) DumpPrivateKey(ctx context.Context, encoded string) (*btcutil.WIF, error) {
	addr, err := btcutil.DecodeAddress(encoded, l.optsParams)
	if err != nil {
		return nil, ierrors.Wrapf(err, "invalid address %s", encoded)
	}

	wif, err := await(ctx, l.client.DumpPrivKeyAsync(addr))
	if err != nil {
		if isRPCError(err, btcjson.ErrRPCWallet, btcjson.ErrRPCInvalidAddressOrKey) {
			return nil, ierrors.Join(ledger.ErrAddressNotFound, err)
		}

		return nil, ierrors.Wrapf(err, "failed to dump private key of %s", encoded)
	}

	return wif, nil
}

func (l *Ledger) SetLabel(ctx context.Context, encoded string, label string) error {
	if _, err := l.rawRequest(ctx, "setlabel", encoded, label); err != nil {
		if isRPCError(err, btcjson.ErrRPCInvalidAddressOrKey) {
			return ierrors.Join(ledger.ErrAddressNotFound, err)
		}

		return ierrors.Wrapf(err, "failed to set label of %s", encoded)
	}

	return nil
}

func (l *Ledger) GetLabel(ctx context.Context, encoded string) (string, error) {
	result, err := l.rawRequest(ctx, "getaddressinfo", encoded)
	if err != nil {
		if isRPCError(err, btcjson.ErrRPCInvalidAddressOrKey) {
			return "", ierrors.Join(ledger.ErrAddressNotFound, err)
		}

		return "", ierrors.Wrapf(err, "failed to get address info of %s", encoded)
	}

	var addressInfo struct {
		IsMine  bool     `json:"ismine"`
		IsWatch bool     `json:"iswatchonly"`
		Labels  []string `json:"labels"`
	}
	if err := json.Unmarshal(result, &addressInfo); err != nil {
		return "", ierrors.Wrap(err, "failed to decode address info")
	}

	if !addressInfo.IsMine && !addressInfo.IsWatch {
		return "", ierrors.Wrapf(ledger.ErrAddressNotFound, "address %s", encoded)
	}

	if len(addressInfo.Labels) == 0 {
		return "", nil
	}

	return addressInfo.Labels[0], nil
}

func (l *Ledger) GetAddressesByLabel(ctx context.Context, label string) ([]string, error) {
	result, err := l.rawRequest(ctx, "getaddressesbylabel", label)
	if err != nil {
		// unknown labels are reported as an error by the node
		if isRPCError(err, btcjson.ErrRPCWalletInvalidAccountName) {
			return []string{}, nil
		}

		return nil, ierrors.Wrapf(err, "failed to get addresses of label %s", label)
	}

	var addresses map[string]json.RawMessage
	if err := json.Unmarshal(result, &addresses); err != nil {
		return nil, ierrors.Wrap(err, "failed to decode addresses")
	}

	encoded := lo.Keys(addresses)
	slices.Sort(encoded)

	return encoded, nil
}

func (l *Ledger) rawRequest(ctx context.Context, method string, params ...string) (json.RawMessage, error) {
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, param := range params {
		rawParam, err := json.Marshal(param)
		if err != nil {
			return nil, err
		}

		rawParams = append(rawParams, rawParam)
	}

	return await(ctx, l.client.RawRequestAsync(method, rawParams))
}

// WithParams sets the network parameters of the node.
func WithParams(params *chaincfg.Params) options.Option[Ledger] {
	return func(l *Ledger) {
		l.optsParams = params
	}
}

// WithConfTarget sets the confirmation target used for fee estimation.
func WithConfTarget(blocks int64) options.Option[Ledger] {
	return func(l *Ledger) {
		l.optsConfTarget = blocks
	}
}

// WithFallbackFee sets the fee per kilobyte used if the node has no estimate.
func WithFallbackFee(fee btcutil.Amount) options.Option[Ledger] {
	return func(l *Ledger) {
		l.optsFallbackFee = fee
	}
}
