package cipher

import (
	"encoding/base64"

	"github.com/btcsuite/btcd/btcec/v2"
	eciesgo "github.com/ecies/go/v2"

	"github.com/iotaledger/hive.go/ierrors"
)

// WrapKey encrypts a symmetric key for the owner of publicKey with ECIES on secp256k1.
func WrapKey(publicKey *btcec.PublicKey, key []byte) ([]byte, error) {
	if publicKey == nil {
		return nil, ierrors.New("no public key to wrap the key for")
	}

	recipient, err := eciesgo.NewPublicKeyFromBytes(publicKey.SerializeCompressed())
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to convert public key")
	}

	wrapped, err := eciesgo.Encrypt(recipient, key)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to wrap key")
	}

	return wrapped, nil
}

// UnwrapKey reverses WrapKey with the private key matching the wrapping public key.
func UnwrapKey(privateKey *btcec.PrivateKey, wrapped []byte) ([]byte, error) {
	key, err := eciesgo.Decrypt(eciesgo.NewPrivateKeyFromBytes(privateKey.Serialize()), wrapped)
	if err != nil {
		return nil, ierrors.Join(ErrDecryption, err)
	}

	return key, nil
}

// EncodeToken wraps key for publicKey and returns the base64 encoded secret token.
func EncodeToken(publicKey *btcec.PublicKey, key []byte) (string, error) {
	wrapped, err := WrapKey(publicKey, key)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// DecodeToken recovers the symmetric key from a secret token.
func DecodeToken(privateKey *btcec.PrivateKey, token string) ([]byte, error) {
	wrapped, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ierrors.Join(ErrDecryption, ierrors.Wrap(err, "invalid token encoding"))
	}

	return UnwrapKey(privateKey, wrapped)
}
