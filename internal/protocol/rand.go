// rand.go - Randomness source for the protocol.
//
// All protocol randomness flows through a Source so that production code uses
// the operating system CSPRNG while tests can substitute a deterministic
// generator for reproducible vectors.

package protocol

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrGenerator reports a failure of the underlying randomness generator.
// There is no fallback: callers must abort the operation.
var ErrGenerator = errors.New("protocol: randomness generator failure")

// Source supplies cryptographically secure random 32-byte values.
// Implementations must be safe for concurrent use.
type Source interface {
	Random32() ([DigestLen]byte, error)
}

type systemSource struct{}

func (systemSource) Random32() ([DigestLen]byte, error) {
	var b [DigestLen]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return b, fmt.Errorf("%w: %v", ErrGenerator, err)
	}
	return b, nil
}

// SystemSource returns the crypto/rand backed Source used in production.
func SystemSource() Source {
	return systemSource{}
}

// Random32 draws 32 random bytes from src.
func Random32(src Source) ([DigestLen]byte, error) {
	return src.Random32()
}
