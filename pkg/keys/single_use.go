package keys

import (
	"slices"

	"go.uber.org/atomic"

	"github.com/iotaledger/hive.go/ierrors"
)

// SingleUseReader hands out its buffer exactly once and fails with ErrReuse afterwards.
// It adapts fixed key material to APIs that expect an io.Reader as entropy source.
type SingleUseReader struct {
	buf  []byte
	used atomic.Bool
}

// NewSingleUseReader creates a reader over a copy of buf.
func NewSingleUseReader(buf []byte) *SingleUseReader {
	return &SingleUseReader{buf: slices.Clone(buf)}
}

func (r *SingleUseReader) Read(p []byte) (int, error) {
	if !r.used.CompareAndSwap(false, true) {
		return 0, ErrReuse
	}

	if len(p) > len(r.buf) {
		return 0, ierrors.Wrapf(ErrKeyDerivation, "requested %d bytes from a %d byte seed", len(p), len(r.buf))
	}

	return copy(p, r.buf), nil
}
