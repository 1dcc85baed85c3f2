// Package objectstore defines the content-addressed object store the content manager publishes to.
package objectstore

import (
	"context"
	"io"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"

	"github.com/iotaledger/hive.go/ierrors"
)

var (
	// ErrNotFound is returned if the store affirmatively reports that a content id does not exist.
	ErrNotFound = ierrors.New("content not found")

	// ErrInvalidCID is returned for strings that are not content ids.
	ErrInvalidCID = ierrors.New("invalid content id")
)

// Store is a content-addressed object store.
type Store interface {
	// Add stores the content of r and returns its content id.
	Add(ctx context.Context, r io.Reader) (string, error)

	// Get returns the content stored under cid.
	Get(ctx context.Context, cid string) (io.ReadCloser, error)

	// Version returns the version of the store.
	Version(ctx context.Context) (string, error)

	// IsUp returns true if the store can be reached.
	IsUp(ctx context.Context) bool
}

// ValidateCID checks that s is a CIDv0 (base58 sha2-256 multihash) or a CIDv1.
func ValidateCID(s string) error {
	if strings.HasPrefix(s, "Qm") {
		raw, err := base58.Decode(s)
		if err != nil {
			return ierrors.Join(ErrInvalidCID, ierrors.Wrapf(err, "%q is not base58", s))
		}

		decoded, err := multihash.Decode(raw)
		if err != nil {
			return ierrors.Join(ErrInvalidCID, ierrors.Wrapf(err, "%q is not a multihash", s))
		}

		if decoded.Code != multihash.SHA2_256 {
			return ierrors.Wrapf(ErrInvalidCID, "%q uses hash function 0x%x", s, decoded.Code)
		}

		return nil
	}

	if _, err := cid.Decode(s); err != nil {
		return ierrors.Join(ErrInvalidCID, ierrors.Wrapf(err, "%q", s))
	}

	return nil
}
