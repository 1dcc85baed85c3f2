package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"slices"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"

	"github.com/iotaledger/hive.go/ierrors"
)

const (
	// PrivateKeySize is the minimum amount of key material needed for a derivation.
	PrivateKeySize = 32

	// IVSize is the size of a derived AES-GCM nonce.
	IVSize = 12

	symmetricKeyInfo = "DAT-AES"
)

var (
	// ErrKeyDerivation is returned if a key cannot be derived from the given material.
	ErrKeyDerivation = ierrors.New("key derivation failed")

	// ErrReuse is returned if a single-use seed source is drawn from more than once.
	ErrReuse = ierrors.New("single-use seed source already consumed")
)

// KeyPair is an asymmetric secp256k1 key pair.
type KeyPair struct {
	Private *btcec.PrivateKey
	Public  *btcec.PublicKey
}

// PublicKeyBytes returns the compressed public key.
func (k *KeyPair) PublicKeyBytes() []byte {
	return k.Public.SerializeCompressed()
}

// DeriveKeyPair derives a secp256k1 key pair from the raw private key of a wallet address.
// The same input always yields the same key pair.
func DeriveKeyPair(rawPrivateKey []byte) (*KeyPair, error) {
	if len(rawPrivateKey) < PrivateKeySize {
		return nil, ierrors.Wrapf(ErrKeyDerivation, "need %d bytes of key material, got %d", PrivateKeySize, len(rawPrivateKey))
	}

	digest := sha3.Sum512(reversed(rawPrivateKey))

	var scalar btcec.ModNScalar
	scalar.SetByteSlice(digest[:PrivateKeySize])
	if scalar.IsZero() {
		return nil, ierrors.Wrap(ErrKeyDerivation, "derived scalar is zero")
	}

	privateKey := btcec.PrivKeyFromScalar(&scalar)

	return &KeyPair{
		Private: privateKey,
		Public:  privateKey.PubKey(),
	}, nil
}

// DeriveSymmetricKey derives a symmetric key of the given bit strength from the private key,
// salted with the optional content id. Without private key and content id a random key is returned.
func DeriveSymmetricKey(rawPrivateKey []byte, cid string, bits int) ([]byte, error) {
	if !validKeySize(bits) {
		return nil, ierrors.Wrapf(ErrKeyDerivation, "unsupported key size %d", bits)
	}

	if len(rawPrivateKey) == 0 {
		if cid != "" {
			return nil, ierrors.Wrapf(ErrKeyDerivation, "no private key to derive key for %s", cid)
		}

		return RandomSymmetricKey(bits)
	}

	key := make([]byte, bits/8)
	if _, err := io.ReadFull(hkdf.New(sha256.New, reversed(rawPrivateKey), []byte(cid), []byte(symmetricKeyInfo)), key); err != nil {
		return nil, ierrors.Join(ErrKeyDerivation, err)
	}

	return key, nil
}

// RandomSymmetricKey returns a non-reproducible symmetric key.
func RandomSymmetricKey(bits int) ([]byte, error) {
	if !validKeySize(bits) {
		return nil, ierrors.Wrapf(ErrKeyDerivation, "unsupported key size %d", bits)
	}

	key := make([]byte, bits/8)
	if _, err := rand.Read(key); err != nil {
		return nil, ierrors.Wrap(err, "failed to read random key")
	}

	return key, nil
}

// DeriveIV derives the AES-GCM nonce for the given owner private key and content id.
func DeriveIV(rawPrivateKey []byte, cid string) ([]byte, error) {
	if len(rawPrivateKey) == 0 {
		return nil, ierrors.Wrapf(ErrKeyDerivation, "no private key to derive iv for %s", cid)
	}

	hash := sha256.New()
	hash.Write([]byte(cid))
	hash.Write(rawPrivateKey)

	return hash.Sum(nil)[:IVSize], nil
}

func validKeySize(bits int) bool {
	return bits == 128 || bits == 192 || bits == 256
}

func reversed(b []byte) []byte {
	r := slices.Clone(b)
	slices.Reverse(r)

	return r
}
