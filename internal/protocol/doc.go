// Package protocol implements a shielded resource compliance protocol.
//
// Overview:
//   - Resources are quantity/value records committed with a binding, hiding
//     MiMC commitment and consumed exactly once via nullifiers
//   - Membership of a consumed resource's commitment in a depth-32 Merkle
//     accumulator is proven inside a zero-knowledge compliance circuit
//   - The compliance circuit binds the consumed resource, the created
//     resource, a blinding value (RCV), the Merkle path and the nullifier key
//     into a single witness whose public outputs form the receipt journal
//   - Resource payloads travel confidentially using X25519 key agreement and
//     AES-256-GCM, independent of the proof system
//
// Security Model:
//   - MiMC over the BN254 scalar field for commitments, nullifiers and
//     Merkle node hashing (identical derivation inside and outside the
//     circuit)
//   - Proofs are produced and checked by the engine package (gnark Groth16)
//   - All randomness flows through an injected Source backed by crypto/rand
//   - Nullifiers prevent double-consumption; tracking spent nullifiers is a
//     ledger concern layered on top of this package
package protocol
