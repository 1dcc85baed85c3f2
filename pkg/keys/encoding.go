package keys

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/iotaledger/hive.go/ierrors"
)

// DecodePrivateKey accepts a WIF encoded or a hex encoded private key and returns the raw scalar bytes.
func DecodePrivateKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)

	if wif, err := btcutil.DecodeWIF(encoded); err == nil {
		return wif.PrivKey.Serialize(), nil
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
	if err != nil {
		return nil, ierrors.Wrap(ErrKeyDerivation, "private key is neither WIF nor hex")
	}

	if len(raw) != PrivateKeySize {
		return nil, ierrors.Wrapf(ErrKeyDerivation, "invalid private key length %d", len(raw))
	}

	return raw, nil
}

// ParsePublicKey parses a serialized secp256k1 public key.
func ParsePublicKey(raw []byte) (*btcec.PublicKey, error) {
	publicKey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to parse public key")
	}

	return publicKey, nil
}
