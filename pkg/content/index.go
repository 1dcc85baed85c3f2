package content

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/iotaledger/hive.go/serializer/v2/stream"
)

/*
   Published content index

   Key:
       indexKeyPrefixPublished + Owner length + Owner   + CID
                1 byte         +    1 byte    + X bytes + Y bytes

   Value:
       Path length  +  Path   +  TxID length  +  TxID
         2 bytes    + X bytes +    1 byte     + Y bytes
*/

const indexKeyPrefixPublished byte = 0

type publishedEntry struct {
	owner string
	cid   string
	path  string
	txID  string
}

// publishedIndex remembers the content this manager published, keyed by owner.
type publishedIndex struct {
	store kvstore.KVStore
}

func newPublishedIndex(store kvstore.KVStore) *publishedIndex {
	return &publishedIndex{store: store}
}

func ownerPrefix(owner string) []byte {
	byteBuffer := stream.NewByteBuffer()
	_ = stream.Write(byteBuffer, indexKeyPrefixPublished)
	_ = stream.WriteBytesWithSize(byteBuffer, []byte(owner), serializer.SeriLengthPrefixTypeAsByte)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func (p *publishedIndex) put(entry *publishedEntry) error {
	byteBuffer := stream.NewByteBuffer()
	_ = stream.WriteBytesWithSize(byteBuffer, []byte(entry.path), serializer.SeriLengthPrefixTypeAsUint16)
	_ = stream.WriteBytesWithSize(byteBuffer, []byte(entry.txID), serializer.SeriLengthPrefixTypeAsByte)

	if err := p.store.Set(append(ownerPrefix(entry.owner), []byte(entry.cid)...), lo.PanicOnErr(byteBuffer.Bytes())); err != nil {
		return ierrors.Wrapf(err, "failed to index %s", entry.cid)
	}

	return nil
}

func (p *publishedIndex) delete(owner string, cid string) error {
	if err := p.store.Delete(append(ownerPrefix(owner), []byte(cid)...)); err != nil {
		return ierrors.Wrapf(err, "failed to remove %s from index", cid)
	}

	return nil
}

func (p *publishedIndex) entries(owner string) ([]*publishedEntry, error) {
	prefix := ownerPrefix(owner)

	var entries []*publishedEntry
	var innerErr error
	if err := p.store.Iterate(prefix, func(key kvstore.Key, value kvstore.Value) bool {
		entry := &publishedEntry{
			owner: owner,
			cid:   string(key[len(prefix):]),
		}

		valueReader := stream.NewByteReader(value)

		path, err := stream.ReadBytesWithSize(valueReader, serializer.SeriLengthPrefixTypeAsUint16)
		if err != nil {
			innerErr = ierrors.Wrap(err, "unable to read path")

			return false
		}
		entry.path = string(path)

		txID, err := stream.ReadBytesWithSize(valueReader, serializer.SeriLengthPrefixTypeAsByte)
		if err != nil {
			innerErr = ierrors.Wrap(err, "unable to read txID")

			return false
		}
		entry.txID = string(txID)

		entries = append(entries, entry)

		return true
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to iterate index")
	}

	return entries, innerErr
}
