package memledger

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
)

type kvStorable interface {
	KVStorableKey() (key []byte)
	KVStorableValue() (value []byte)
	kvStorableLoad(key []byte, value []byte) error
}

func storeKVStorable(storable kvStorable, mutations kvstore.BatchedMutations) error {
	return mutations.Set(storable.KVStorableKey(), storable.KVStorableValue())
}

// - outpoint keys

func outPointKey(prefix byte, outPoint wire.OutPoint) []byte {
	byteBuffer := stream.NewByteBuffer(serializer.OneByte + chainhash.HashSize + serializer.UInt32ByteSize)

	// There can't be any errors.
	_ = stream.Write(byteBuffer, prefix)
	_ = stream.Write(byteBuffer, outPoint.Hash)
	_ = stream.Write(byteBuffer, outPoint.Index)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func outPointFromKey(key []byte) (wire.OutPoint, error) {
	var err error
	var outPoint wire.OutPoint

	keyReader := stream.NewByteReader(key)
	if _, err = stream.Read[byte](keyReader); err != nil {
		return outPoint, ierrors.Wrap(err, "unable to read prefix")
	}
	if outPoint.Hash, err = stream.Read[chainhash.Hash](keyReader); err != nil {
		return outPoint, ierrors.Wrap(err, "unable to read hash")
	}
	if outPoint.Index, err = stream.Read[uint32](keyReader); err != nil {
		return outPoint, ierrors.Wrap(err, "unable to read index")
	}

	return outPoint, nil
}

// - transaction

type transaction struct {
	sequence uint64
	height   uint64
	tx       *wire.MsgTx
}

func transactionKey(hash chainhash.Hash) []byte {
	return append([]byte{storeKeyPrefixTransaction}, hash[:]...)
}

func (t *transaction) KVStorableKey() []byte {
	return transactionKey(t.tx.TxHash())
}

func (t *transaction) KVStorableValue() []byte {
	var raw bytes.Buffer
	// Serializing into a buffer can't fail.
	_ = t.tx.Serialize(&raw)

	byteBuffer := stream.NewByteBuffer()
	_ = stream.Write(byteBuffer, t.sequence)
	_ = stream.Write(byteBuffer, t.height)
	_ = stream.WriteBytesWithSize(byteBuffer, raw.Bytes(), serializer.SeriLengthPrefixTypeAsUint32)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func (t *transaction) kvStorableLoad(_ []byte, value []byte) error {
	var err error

	valueReader := stream.NewByteReader(value)
	if t.sequence, err = stream.Read[uint64](valueReader); err != nil {
		return ierrors.Wrap(err, "unable to read sequence")
	}
	if t.height, err = stream.Read[uint64](valueReader); err != nil {
		return ierrors.Wrap(err, "unable to read height")
	}

	raw, err := stream.ReadBytesWithSize(valueReader, serializer.SeriLengthPrefixTypeAsUint32)
	if err != nil {
		return ierrors.Wrap(err, "unable to read transaction")
	}

	t.tx = wire.NewMsgTx(wire.TxVersion)
	if err = t.tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return ierrors.Wrap(err, "unable to deserialize transaction")
	}

	return nil
}

// - output

type output struct {
	outPoint wire.OutPoint
	sequence uint64
	height   uint64
	amount   int64
	pkScript []byte
}

func (o *output) KVStorableKey() []byte {
	return outPointKey(storeKeyPrefixOutput, o.outPoint)
}

func (o *output) KVStorableValue() []byte {
	byteBuffer := stream.NewByteBuffer()

	_ = stream.Write(byteBuffer, o.sequence)
	_ = stream.Write(byteBuffer, o.height)
	_ = stream.Write(byteBuffer, o.amount)
	_ = stream.WriteBytesWithSize(byteBuffer, o.pkScript, serializer.SeriLengthPrefixTypeAsUint32)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func (o *output) kvStorableLoad(key []byte, value []byte) error {
	var err error

	if o.outPoint, err = outPointFromKey(key); err != nil {
		return err
	}

	valueReader := stream.NewByteReader(value)
	if o.sequence, err = stream.Read[uint64](valueReader); err != nil {
		return ierrors.Wrap(err, "unable to read sequence")
	}
	if o.height, err = stream.Read[uint64](valueReader); err != nil {
		return ierrors.Wrap(err, "unable to read height")
	}
	if o.amount, err = stream.Read[int64](valueReader); err != nil {
		return ierrors.Wrap(err, "unable to read amount")
	}
	if o.pkScript, err = stream.ReadBytesWithSize(valueReader, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
		return ierrors.Wrap(err, "unable to read pkScript")
	}

	return nil
}

// - address

type address struct {
	encoded    string
	label      string
	privateKey []byte
}

func addressKey(encoded string) []byte {
	return append([]byte{storeKeyPrefixAddress}, []byte(encoded)...)
}

func (a *address) KVStorableKey() []byte {
	return addressKey(a.encoded)
}

func (a *address) KVStorableValue() []byte {
	byteBuffer := stream.NewByteBuffer()

	_ = stream.WriteBytesWithSize(byteBuffer, []byte(a.label), serializer.SeriLengthPrefixTypeAsUint32)
	_ = stream.WriteBytesWithSize(byteBuffer, a.privateKey, serializer.SeriLengthPrefixTypeAsUint32)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func (a *address) kvStorableLoad(key []byte, value []byte) error {
	if len(key) < 2 {
		return ierrors.New("address key too short")
	}
	a.encoded = string(key[1:])

	valueReader := stream.NewByteReader(value)

	label, err := stream.ReadBytesWithSize(valueReader, serializer.SeriLengthPrefixTypeAsUint32)
	if err != nil {
		return ierrors.Wrap(err, "unable to read label")
	}
	a.label = string(label)

	if a.privateKey, err = stream.ReadBytesWithSize(valueReader, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
		return ierrors.Wrap(err, "unable to read private key")
	}

	return nil
}

// - block

type block struct {
	height uint64
	hash   chainhash.Hash
	time   int64
}

func blockKey(height uint64) []byte {
	byteBuffer := stream.NewByteBuffer(serializer.OneByte + serializer.UInt64ByteSize)
	_ = stream.Write(byteBuffer, storeKeyPrefixBlock)
	_ = stream.Write(byteBuffer, height)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func (b *block) KVStorableKey() []byte {
	return blockKey(b.height)
}

func (b *block) KVStorableValue() []byte {
	byteBuffer := stream.NewByteBuffer()
	_ = stream.Write(byteBuffer, b.hash)
	_ = stream.Write(byteBuffer, b.time)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func (b *block) kvStorableLoad(_ []byte, value []byte) error {
	var err error

	valueReader := stream.NewByteReader(value)
	if b.hash, err = stream.Read[chainhash.Hash](valueReader); err != nil {
		return ierrors.Wrap(err, "unable to read hash")
	}
	if b.time, err = stream.Read[int64](valueReader); err != nil {
		return ierrors.Wrap(err, "unable to read time")
	}

	return nil
}
