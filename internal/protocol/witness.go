// witness.go - Compliance circuit witness assembly.
//
// The witness is the full private input to the compliance proof: consumed and
// created resources, the blinding value RCV, the consumed commitment's
// membership path and the nullifier spending key. It never leaves the
// prover's trust boundary in plaintext; the CBOR encoding below is the
// program input handed to the proof engine.

package protocol

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrWitnessAssembly reports malformed or mismatched witness inputs,
// detected before any proving work begins.
var ErrWitnessAssembly = errors.New("protocol: witness assembly failed")

// ComplianceWitness binds everything the compliance circuit consumes.
type ComplianceWitness struct {
	Consumed     Resource
	Created      Resource
	RCV          Digest
	Path         MerklePath
	NullifierKey NullifierKey
}

// NewComplianceWitness validates the inputs and assembles the witness.
// The nullifier key must match the consumed resource's key commitment: a
// mismatch could never satisfy the circuit, so it is rejected here instead
// of after an expensive proving run.
func NewComplianceWitness(consumed, created Resource, rcv []byte, path MerklePath, nk NullifierKey) (ComplianceWitness, error) {
	rcvDigest, err := DigestFromBytes(rcv)
	if err != nil {
		return ComplianceWitness{}, fmt.Errorf("%w: rcv: %v", ErrWitnessAssembly, err)
	}
	if nk.Commitment() != consumed.NullifierKeyCommitment {
		return ComplianceWitness{}, fmt.Errorf("%w: %v", ErrWitnessAssembly, ErrWrongNullifierKey)
	}
	return ComplianceWitness{
		Consumed:     consumed,
		Created:      created,
		RCV:          rcvDigest,
		Path:         path,
		NullifierKey: nk,
	}, nil
}

// Bytes serializes the witness as the opaque program input for the proof
// engine.
func (w ComplianceWitness) Bytes() ([]byte, error) {
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrWitnessAssembly, err)
	}
	return b, nil
}

// ComplianceWitnessFromBytes decodes a witness produced by Bytes.
func ComplianceWitnessFromBytes(b []byte) (ComplianceWitness, error) {
	var w ComplianceWitness
	if err := cbor.Unmarshal(b, &w); err != nil {
		return ComplianceWitness{}, fmt.Errorf("%w: decode: %v", ErrWitnessAssembly, err)
	}
	return w, nil
}

// Instance derives the public outputs the circuit will commit to the
// journal. Proving succeeds exactly when the circuit reproduces these values
// from the private witness.
func (w ComplianceWitness) Instance() (ComplianceInstance, error) {
	nf, err := w.Consumed.Nullifier(w.NullifierKey)
	if err != nil {
		return ComplianceInstance{}, fmt.Errorf("%w: %v", ErrWitnessAssembly, err)
	}
	return ComplianceInstance{
		Nullifier:        nf,
		Commitment:       w.Created.Commitment(),
		ConsumedLogicRef: w.Consumed.LogicRef,
		CreatedLogicRef:  w.Created.LogicRef,
		Root:             w.Path.Root(w.Consumed.Commitment()),
		Delta:            deltaCommitment(w.Consumed.Quantity, w.Created.Quantity, w.RCV),
	}, nil
}

// deltaCommitment blinds the quantity difference with rcv so the journal
// entry cannot be linked back to either resource without the blinder.
func deltaCommitment(consumedQty, createdQty, rcv Digest) Digest {
	qIn := reduce(consumedQty[:])
	qOut := reduce(createdQty[:])
	qIn.Sub(&qIn, &qOut)
	diff := qIn.Bytes()
	return hashFields(diff[:], rcv[:])
}
