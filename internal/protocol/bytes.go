// bytes.go - Fixed-width byte types shared across the protocol.
//
// Every conceptually 32-byte field is a dedicated array type so that length
// errors surface at construction time instead of deep inside hashing code.
// Silent truncation or zero-padding of inputs is never performed.

package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// DigestLen is the width of every commitment, nullifier, key and seed field.
const DigestLen = 32

// ErrInvalidLength reports a byte buffer whose size does not match the
// fixed width the protocol requires for that field.
var ErrInvalidLength = errors.New("protocol: invalid input length")

// Digest is a 32-byte protocol field: a hash output, key commitment,
// opaque label or seed.
type Digest [DigestLen]byte

// DigestFromBytes copies b into a Digest, rejecting any length other than 32.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestLen {
		return d, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidLength, DigestLen, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Bytes returns a fresh copy of the digest contents.
func (d Digest) Bytes() []byte {
	out := make([]byte, DigestLen)
	copy(out, d[:])
	return out
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether every byte of the digest is zero.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
