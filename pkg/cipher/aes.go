package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
)

// NonceSize is the AES-GCM nonce size.
const NonceSize = 12

// ErrDecryption is returned if a ciphertext cannot be opened.
var ErrDecryption = ierrors.New("decryption failed")

// EncryptAES seals plaintext with AES-GCM. The result is framed as
// uint32(len(iv)) ++ iv ++ ciphertext. A nil iv is replaced by a random nonce.
func EncryptAES(key []byte, iv []byte, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if iv == nil {
		iv = make([]byte, NonceSize)
		if _, err = rand.Read(iv); err != nil {
			return nil, ierrors.Wrap(err, "failed to read nonce")
		}
	}

	if len(iv) != gcm.NonceSize() {
		return nil, ierrors.Errorf("invalid nonce size %d", len(iv))
	}

	m := marshalutil.New()
	m.WriteUint32(uint32(len(iv)))
	m.WriteBytes(iv)
	m.WriteBytes(gcm.Seal(nil, iv, plaintext, nil))

	return m.Bytes(), nil
}

// DecryptAES opens data produced by EncryptAES.
func DecryptAES(key []byte, data []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	m := marshalutil.New(data)

	ivLength, err := m.ReadUint32()
	if err != nil {
		return nil, ierrors.Join(ErrDecryption, ierrors.Wrap(err, "failed to parse nonce length"))
	}

	if int(ivLength) != gcm.NonceSize() {
		return nil, ierrors.Wrapf(ErrDecryption, "invalid nonce length %d", ivLength)
	}

	iv, err := m.ReadBytes(int(ivLength))
	if err != nil {
		return nil, ierrors.Join(ErrDecryption, ierrors.Wrap(err, "failed to parse nonce"))
	}

	plaintext, err := gcm.Open(nil, iv, m.ReadRemainingBytes(), nil)
	if err != nil {
		return nil, ierrors.Join(ErrDecryption, err)
	}

	return plaintext, nil
}

func newGCM(key []byte) (stdcipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to create block cipher")
	}

	gcm, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to create gcm")
	}

	return gcm, nil
}
