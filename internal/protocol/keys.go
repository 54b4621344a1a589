// keys.go - Key material: nullifier spending keys and encryption keypairs.

package protocol

import (
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// NullifierKey is the 32-byte secret authorizing consumption of a resource.
// It is held by the resource owner and never transmitted in plaintext; only
// its commitment appears inside resources.
type NullifierKey [DigestLen]byte

// GenerateNullifierKey derives a fresh nullifier spending key from src.
// The raw randomness is hashed so the key is a canonical field element.
func GenerateNullifierKey(src Source) (NullifierKey, error) {
	seed, err := src.Random32()
	if err != nil {
		return NullifierKey{}, err
	}
	return NullifierKey(hashFields(seed[:])), nil
}

// NullifierKeyFromBytes copies b into a NullifierKey, rejecting any length
// other than 32.
func NullifierKeyFromBytes(b []byte) (NullifierKey, error) {
	d, err := DigestFromBytes(b)
	if err != nil {
		return NullifierKey{}, fmt.Errorf("nullifier key: %w", err)
	}
	return NullifierKey(d), nil
}

// Commitment returns the public commitment to the key, the value embedded in
// resources owned by this spending authority.
func (nk NullifierKey) Commitment() Digest {
	return hashFields(nk[:])
}

// KeyPair holds an X25519 keypair for the payload encryption layer.
type KeyPair struct {
	Secret [DigestLen]byte
	Public [DigestLen]byte
}

// GenerateKeypair produces a fresh X25519 keypair from src.
func GenerateKeypair(src Source) (KeyPair, error) {
	var kp KeyPair
	sk, err := src.Random32()
	if err != nil {
		return kp, err
	}
	pk, err := curve25519.X25519(sk[:], curve25519.Basepoint)
	if err != nil {
		return kp, fmt.Errorf("%w: %v", ErrGenerator, err)
	}
	kp.Secret = sk
	copy(kp.Public[:], pk)
	return kp, nil
}
