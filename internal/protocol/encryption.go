// encryption.go - Confidential resource payload encryption.
//
// X25519 key agreement feeds a SHA-256 KDF whose output keys AES-256-GCM.
// Encryption is independent of the proof system: it ships resource contents
// confidentially alongside a proof. Nonces must be unique per keypair and
// message; reuse under the same key breaks both confidentiality and
// integrity.

package protocol

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// NonceLen is the AES-GCM nonce width.
const NonceLen = 12

var (
	// ErrEncrypt reports a failed encryption setup (bad keys or nonce).
	ErrEncrypt = errors.New("protocol: encrypt failed")

	// ErrAuthentication reports a ciphertext whose authentication tag did
	// not verify: tampered data, or the wrong key or nonce. No partial
	// plaintext is ever returned.
	ErrAuthentication = errors.New("protocol: ciphertext authentication failed")
)

// payloadAEAD derives the shared AEAD from one side's secret key and the
// other side's public key. Both directions derive the same cipher.
func payloadAEAD(pk, sk []byte) (cipher.AEAD, error) {
	if len(pk) != DigestLen {
		return nil, fmt.Errorf("public key: %w: want %d bytes, got %d", ErrInvalidLength, DigestLen, len(pk))
	}
	if len(sk) != DigestLen {
		return nil, fmt.Errorf("secret key: %w: want %d bytes, got %d", ErrInvalidLength, DigestLen, len(sk))
	}
	shared, err := curve25519.X25519(sk, pk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	key := sha256.Sum256(shared)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return aead, nil
}

// Encrypt seals message under the keypair-derived key and the given nonce.
func Encrypt(message, pk, sk, nonce []byte) ([]byte, error) {
	aead, err := payloadAEAD(pk, sk)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceLen {
		return nil, fmt.Errorf("nonce: %w: want %d bytes, got %d", ErrInvalidLength, NonceLen, len(nonce))
	}
	return aead.Seal(nil, nonce, message, nil), nil
}

// Decrypt opens ciphertext sealed by Encrypt. Tag failure surfaces as
// ErrAuthentication and never yields partial plaintext.
func Decrypt(ciphertext, pk, sk, nonce []byte) ([]byte, error) {
	aead, err := payloadAEAD(pk, sk)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceLen {
		return nil, fmt.Errorf("nonce: %w: want %d bytes, got %d", ErrInvalidLength, NonceLen, len(nonce))
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
