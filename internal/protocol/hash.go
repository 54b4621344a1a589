// hash.go - MiMC hashing over the BN254 scalar field.
//
// The same hash backs commitments, nullifiers and Merkle node combination so
// that every derivation is reproducible bit for bit inside the compliance
// circuit. Arbitrary 32-byte inputs are reduced into the field before
// hashing; MiMC outputs are already canonical field elements.

package protocol

import (
	"math/big"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// reduce maps an opaque byte string into a BN254 scalar field element.
func reduce(b []byte) fr.Element {
	var e fr.Element
	e.SetBigInt(new(big.Int).SetBytes(b))
	return e
}

// feBytes returns the canonical 32-byte big-endian encoding of the reduced
// field element of b. MiMC only accepts reduced blocks.
func feBytes(b []byte) []byte {
	e := reduce(b)
	out := e.Bytes()
	return out[:]
}

// feBig returns the reduced field element of b as a big integer, the form
// circuit witness assignments take.
func feBig(b []byte) *big.Int {
	e := reduce(b)
	return e.BigInt(new(big.Int))
}

// hashFields absorbs each input as one reduced field element and returns the
// MiMC digest.
func hashFields(fields ...[]byte) Digest {
	h := mimcNative.NewMiMC()
	for _, f := range fields {
		h.Write(feBytes(f))
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// combine hashes an ordered (left, right) node pair into their Merkle parent.
func combine(left, right Digest) Digest {
	return hashFields(left[:], right[:])
}
