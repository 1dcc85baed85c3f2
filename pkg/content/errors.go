package content

import (
	"github.com/iotaledger/hive.go/ierrors"
)

var (
	// ErrInvalidPath is returned for relative paths that are empty, absolute or leave their root.
	ErrInvalidPath = ierrors.New("invalid relative path")

	// ErrHeaderVersionMismatch is returned for content files of an unknown format.
	ErrHeaderVersionMismatch = ierrors.New("header version mismatch")

	// ErrTimeout is returned if the object store did not deliver within the caller timeout.
	ErrTimeout = ierrors.New("object store fetch timed out")

	// ErrEncryptionKeyMissing is returned if the address has no registered public key.
	ErrEncryptionKeyMissing = ierrors.New("encryption key missing")

	// ErrNotRegistered is returned by FindRegistration if no public key record exists for the address.
	ErrNotRegistered = ierrors.New("address not registered")

	// ErrInvalidAddress is returned for addresses that cannot take part in an operation.
	ErrInvalidAddress = ierrors.New("invalid address")
)
