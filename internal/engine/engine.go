// engine.go - The proof engine contract.
//
// The engine is the opaque prove/verify oracle of the protocol: it executes
// the compliance program over a serialized witness and emits a receipt, and
// it checks receipts against an expected program identity. Backends are
// pluggable; the protocol layer never depends on a particular proving
// system.

package engine

import (
	"context"
	"errors"
)

var (
	// ErrProve reports a failed proving run. A witness violating a
	// compliance clause lands here: it is the expected rejection path for
	// an invalid transfer, not a system bug.
	ErrProve = errors.New("engine: proving failed")

	// ErrMalformedReceipt reports a receipt whose encoding cannot be
	// decoded. Distinct from a well-formed receipt that simply fails
	// verification, which is a false result, not an error.
	ErrMalformedReceipt = errors.New("engine: malformed receipt")
)

// ImageID is the unique fingerprint of a guest program. A receipt verifies
// only against the image that produced it.
type ImageID [32]byte

// Engine is the prove/verify oracle.
//
// Prove is CPU and memory heavy and may run for seconds to minutes; callers
// should dispatch it through Pool with an explicit timeout. Verify is cheap
// and safe to run inline.
type Engine interface {
	Prove(ctx context.Context, witness []byte) (Receipt, error)
	Verify(r Receipt, image ImageID) (bool, error)
}
