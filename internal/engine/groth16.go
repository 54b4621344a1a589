// groth16.go - Groth16 backend for the compliance circuit.
//
// The guest program is the compiled compliance circuit; its image identity is
// the SHA-256 digest of the serialized verifying key, so a receipt can only
// verify against the exact key set that produced it.

package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"

	"shielded/internal/protocol"
)

// Groth16Engine proves and verifies the compliance circuit with gnark's
// Groth16 backend over BN254.
type Groth16Engine struct {
	ccs   constraint.ConstraintSystem
	pk    groth16.ProvingKey
	vk    groth16.VerifyingKey
	image ImageID
	log   zerolog.Logger
}

// CompileComplianceCircuit compiles the compliance circuit into a constraint
// system. Compilation is deterministic; only key setup is randomized.
func CompileComplianceCircuit() (constraint.ConstraintSystem, error) {
	var circuit protocol.ComplianceCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("engine: circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// NewGroth16Engine compiles the circuit and runs a fresh Groth16 setup.
func NewGroth16Engine(log zerolog.Logger) (*Groth16Engine, error) {
	ccs, err := CompileComplianceCircuit()
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("engine: key setup failed: %w", err)
	}
	return newGroth16Engine(ccs, pk, vk, log)
}

// NewGroth16EngineFromKeys wires an engine from an existing key set.
func NewGroth16EngineFromKeys(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, log zerolog.Logger) (*Groth16Engine, error) {
	return newGroth16Engine(ccs, pk, vk, log)
}

func newGroth16Engine(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, log zerolog.Logger) (*Groth16Engine, error) {
	image, err := imageIDForKey(vk)
	if err != nil {
		return nil, err
	}
	return &Groth16Engine{
		ccs:   ccs,
		pk:    pk,
		vk:    vk,
		image: image,
		log:   log.With().Str("component", "groth16-engine").Logger(),
	}, nil
}

// ImageID returns the fingerprint of the engine's guest program.
func (e *Groth16Engine) ImageID() ImageID {
	return e.image
}

func imageIDForKey(vk groth16.VerifyingKey) (ImageID, error) {
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return ImageID{}, fmt.Errorf("engine: verifying key serialization failed: %w", err)
	}
	return ImageID(sha256.Sum256(buf.Bytes())), nil
}

// Prove executes the compliance program over the serialized witness.
//
// The context is checked before the heavy proving work starts; once proving
// runs it cannot be interrupted (use Pool for abandon-on-timeout dispatch).
// A witness violating a compliance clause fails constraint satisfaction and
// surfaces as ErrProve.
func (e *Groth16Engine) Prove(ctx context.Context, witness []byte) (Receipt, error) {
	w, err := protocol.ComplianceWitnessFromBytes(witness)
	if err != nil {
		return Receipt{}, err
	}
	assignment, inst, err := protocol.CircuitAssignment(w)
	if err != nil {
		return Receipt{}, err
	}
	fw, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: witness construction: %v", ErrProve, err)
	}

	if err := ctx.Err(); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrProve, err)
	}

	start := time.Now()
	proof, err := groth16.Prove(e.ccs, e.pk, fw)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrProve, err)
	}
	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return Receipt{}, fmt.Errorf("%w: proof serialization: %v", ErrProve, err)
	}
	e.log.Debug().Dur("took", time.Since(start)).Msg("proved compliance witness")

	return Receipt{
		Image:   e.image,
		Journal: inst.JournalBytes(),
		Proof:   proofBuf.Bytes(),
	}, nil
}

// Verify checks the receipt's proof against its journal and the expected
// image. A structurally valid receipt that fails cryptographic verification
// returns (false, nil); only undecodable receipts return an error.
func (e *Groth16Engine) Verify(r Receipt, image ImageID) (bool, error) {
	inst, err := r.Instance()
	if err != nil {
		return false, err
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(r.Proof)); err != nil {
		return false, fmt.Errorf("%w: proof decode: %v", ErrMalformedReceipt, err)
	}
	if r.Image != image {
		return false, nil
	}
	fw, err := frontend.NewWitness(protocol.PublicAssignment(inst), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("%w: public witness: %v", ErrMalformedReceipt, err)
	}
	if err := groth16.Verify(proof, e.vk, fw); err != nil {
		e.log.Debug().Err(err).Msg("receipt rejected")
		return false, nil
	}
	return true, nil
}

// SetupOrLoadKeys loads the compliance key set from dir, or runs a fresh
// setup and persists it when no keys exist yet.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, dir string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pkPath := filepath.Join(dir, "compliance_pk.bin")
	vkPath := filepath.Join(dir, "compliance_vk.bin")
	pk, pkErr := loadProvingKey(pkPath)
	vk, vkErr := loadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: key setup failed: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	if err := saveKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := saveKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}

func saveKey(path string, k interface{ WriteTo(w io.Writer) (int64, error) }) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = k.WriteTo(f)
	return err
}

func loadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

func loadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}
