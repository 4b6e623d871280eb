// Package crypto implements envelope encryption for conversation message
// bodies: every ciphertext is bound to an additional-authenticated-data
// (AAD) tuple that must be supplied verbatim to decrypt.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
)

// keySize is the AES-256 key length in bytes.
const keySize = 32

// AAD is the additional authenticated data a message's ciphertext is bound
// to. Decryption with any AAD that does not match byte-for-byte what was
// supplied to Encrypt must fail.
type AAD struct {
	ConversationID string
	MessageID      string
	UserID         string
}

// bytes serializes the AAD deterministically. Field order and separator are
// fixed so the same logical triple always produces the same byte string.
func (a AAD) bytes() []byte {
	return []byte(fmt.Sprintf("conv=%s;msg=%s;user=%s", a.ConversationID, a.MessageID, a.UserID))
}

// Envelope derives a per-message data-encryption key from a master key via
// HKDF and seals the plaintext with AES-256-GCM, using the AAD both to
// derive the key's info parameter and as the GCM additional data — so a
// mismatched AAD fails twice over, at derivation and at authentication.
type Envelope struct {
	masterKey []byte
}

// New constructs an Envelope from a 32-byte master key. The master key is
// expected to come from an external secret manager; this package has no
// opinion on how it is provisioned or rotated.
func New(masterKey []byte) (*Envelope, error) {
	if len(masterKey) != keySize {
		return nil, fmt.Errorf("envelope: master key must be %d bytes, got %d", keySize, len(masterKey))
	}
	return &Envelope{masterKey: masterKey}, nil
}

func (e *Envelope) deriveKey(aad AAD) ([]byte, error) {
	reader := hkdf.New(sha256.New, e.masterKey, nil, aad.bytes())
	key := make([]byte, keySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("envelope: key derivation failed: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under a key derived from aad and returns a
// base64 ciphertext. The nonce is random and prepended to the sealed
// output before encoding.
func (e *Envelope) Encrypt(plaintext string, aad AAD) (string, error) {
	key, err := e.deriveKey(aad)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("envelope: cipher init failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("envelope: gcm init failed: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("envelope: nonce generation failed: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), aad.bytes())
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the plaintext sealed under aad. Any mismatch between the
// aad supplied here and the one used at Encrypt time causes this to return
// ErrDecryptionFailed; the error never carries the attempted plaintext.
func (e *Envelope) Decrypt(ciphertextB64 string, aad AAD) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", twerrors.ErrDecryptionFailed
	}

	key, err := e.deriveKey(aad)
	if err != nil {
		return "", twerrors.ErrDecryptionFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", twerrors.ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", twerrors.ErrDecryptionFailed
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return "", twerrors.ErrDecryptionFailed
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad.bytes())
	if err != nil {
		return "", twerrors.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// DecryptedSentinel replaces the plaintext of a message that failed to
// decrypt during a multi-message batch read (decryption failure of a
// single message in a batch is recoverable).
const DecryptedSentinel = "[unavailable: decryption failed]"
