// circuit.go - The compliance circuit and its witness assignments.
//
// The circuit re-derives every public journal value from the private witness
// and rejects any violation of the compliance clauses: consumed-commitment
// membership, nullifier correctness, created-commitment correctness, and
// quantity conservation. Hash derivations mirror hash.go exactly so native
// and in-circuit values agree.

package protocol

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// ComplianceCircuit is the gnark definition of the compliance guest program.
type ComplianceCircuit struct {
	// Public inputs, in journal order.
	Nullifier        frontend.Variable `gnark:",public"`
	Commitment       frontend.Variable `gnark:",public"`
	ConsumedLogicRef frontend.Variable `gnark:",public"`
	CreatedLogicRef  frontend.Variable `gnark:",public"`
	Root             frontend.Variable `gnark:",public"`
	Delta            frontend.Variable `gnark:",public"`

	// Consumed resource opening.
	ConsumedLabel     frontend.Variable
	ConsumedQuantity  frontend.Variable
	ConsumedValue     frontend.Variable
	ConsumedEphemeral frontend.Variable
	ConsumedNonce     frontend.Variable
	ConsumedNpk       frontend.Variable
	ConsumedRandSeed  frontend.Variable

	// Created resource opening.
	CreatedLabel     frontend.Variable
	CreatedQuantity  frontend.Variable
	CreatedValue     frontend.Variable
	CreatedEphemeral frontend.Variable
	CreatedNonce     frontend.Variable
	CreatedNpk       frontend.Variable
	CreatedRandSeed  frontend.Variable

	// Blinding value and spending key.
	RCV          frontend.Variable
	NullifierKey frontend.Variable

	// Membership path of the consumed commitment.
	Siblings   [TreeDepth]frontend.Variable
	Directions [TreeDepth]frontend.Variable
}

func (c *ComplianceCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	api.AssertIsBoolean(c.ConsumedEphemeral)
	api.AssertIsBoolean(c.CreatedEphemeral)

	// Consumed commitment. The public logic ref feeds the hash directly,
	// binding the journal's declared program identity to the opening.
	h.Write(c.ConsumedLogicRef, c.ConsumedLabel, c.ConsumedQuantity, c.ConsumedValue,
		c.ConsumedEphemeral, c.ConsumedNonce, c.ConsumedNpk, c.ConsumedRandSeed)
	cmIn := h.Sum()

	// Spending authority: the key must open the resource's key commitment.
	h.Reset()
	h.Write(c.NullifierKey)
	api.AssertIsEqual(h.Sum(), c.ConsumedNpk)

	// Nullifier derivation.
	h.Reset()
	h.Write(c.NullifierKey, c.ConsumedNonce, cmIn)
	api.AssertIsEqual(h.Sum(), c.Nullifier)

	// Membership: replay the path from the consumed commitment. A direction
	// bit of 1 puts the running node on the right.
	node := cmIn
	for i := 0; i < TreeDepth; i++ {
		api.AssertIsBoolean(c.Directions[i])
		left := api.Select(c.Directions[i], c.Siblings[i], node)
		right := api.Select(c.Directions[i], node, c.Siblings[i])
		h.Reset()
		h.Write(left, right)
		node = h.Sum()
	}
	api.AssertIsEqual(node, c.Root)

	// Created commitment.
	h.Reset()
	h.Write(c.CreatedLogicRef, c.CreatedLabel, c.CreatedQuantity, c.CreatedValue,
		c.CreatedEphemeral, c.CreatedNonce, c.CreatedNpk, c.CreatedRandSeed)
	api.AssertIsEqual(h.Sum(), c.Commitment)

	// Conservation: quantities must balance. Delta stays in the journal as
	// the blinded difference so a relaxed conservation law can replace the
	// equality without changing the journal shape.
	api.AssertIsEqual(c.ConsumedQuantity, c.CreatedQuantity)
	h.Reset()
	h.Write(api.Sub(c.ConsumedQuantity, c.CreatedQuantity), c.RCV)
	api.AssertIsEqual(h.Sum(), c.Delta)

	return nil
}

func ephemeralVar(eph bool) frontend.Variable {
	if eph {
		return 1
	}
	return 0
}

// CircuitAssignment builds the full (private plus public) assignment for
// proving from a witness, returning the derived instance alongside it so
// callers do not re-derive the public outputs.
func CircuitAssignment(w ComplianceWitness) (*ComplianceCircuit, ComplianceInstance, error) {
	inst, err := w.Instance()
	if err != nil {
		return nil, ComplianceInstance{}, err
	}
	a := PublicAssignment(inst)

	a.ConsumedLabel = feBig(w.Consumed.Label[:])
	a.ConsumedQuantity = feBig(w.Consumed.Quantity[:])
	a.ConsumedValue = feBig(w.Consumed.Value[:])
	a.ConsumedEphemeral = ephemeralVar(w.Consumed.Ephemeral)
	a.ConsumedNonce = feBig(w.Consumed.Nonce[:])
	a.ConsumedNpk = feBig(w.Consumed.NullifierKeyCommitment[:])
	a.ConsumedRandSeed = feBig(w.Consumed.RandSeed[:])

	a.CreatedLabel = feBig(w.Created.Label[:])
	a.CreatedQuantity = feBig(w.Created.Quantity[:])
	a.CreatedValue = feBig(w.Created.Value[:])
	a.CreatedEphemeral = ephemeralVar(w.Created.Ephemeral)
	a.CreatedNonce = feBig(w.Created.Nonce[:])
	a.CreatedNpk = feBig(w.Created.NullifierKeyCommitment[:])
	a.CreatedRandSeed = feBig(w.Created.RandSeed[:])

	a.RCV = feBig(w.RCV[:])
	a.NullifierKey = feBig(w.NullifierKey[:])

	for i, s := range w.Path.Steps {
		a.Siblings[i] = feBig(s.Sibling[:])
		if s.Right {
			a.Directions[i] = 1
		} else {
			a.Directions[i] = 0
		}
	}
	return a, inst, nil
}

// PublicAssignment builds the public-only assignment a verifier derives from
// a journal.
func PublicAssignment(inst ComplianceInstance) *ComplianceCircuit {
	return &ComplianceCircuit{
		Nullifier:        feBig(inst.Nullifier[:]),
		Commitment:       feBig(inst.Commitment[:]),
		ConsumedLogicRef: feBig(inst.ConsumedLogicRef[:]),
		CreatedLogicRef:  feBig(inst.CreatedLogicRef[:]),
		Root:             feBig(inst.Root[:]),
		Delta:            feBig(inst.Delta[:]),
	}
}
