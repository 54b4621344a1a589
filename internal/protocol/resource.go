// resource.go - Resource records and their commitment/nullifier derivations.
//
// A Resource is the protocol's unit of ownership: an immutable record of
// quantity and value bound to a logic program and a nullifier spending
// authority. Commitments are binding and hiding; nullifiers are one-time
// consumption tags unlinkable to the public commitment.

package protocol

import (
	"errors"
	"fmt"
)

// ResourceBytesLen is the length of the canonical resource encoding:
// seven 32-byte fields plus the ephemeral flag.
const ResourceBytesLen = 7*DigestLen + 1

// ErrWrongNullifierKey reports a nullifier key whose commitment does not
// match the one embedded in the resource.
var ErrWrongNullifierKey = errors.New("protocol: nullifier key does not match resource")

// Resource is an immutable quantity/value record.
//
// LogicRef binds the resource to the identity of the guest program it is
// valid under. NullifierKeyCommitment commits to the spending authority
// without revealing the key. RandSeed provides the hiding randomness of the
// commitment.
type Resource struct {
	LogicRef               Digest
	Label                  Digest
	Quantity               Digest
	Value                  Digest
	Ephemeral              bool
	Nonce                  Digest
	NullifierKeyCommitment Digest
	RandSeed               Digest
}

// NewResource validates every fixed-width input and assembles a resource
// owned by the given nullifier key. Pure and deterministic: identical inputs
// produce identical resources.
func NewResource(label, nonce, quantity, value []byte, ephemeral bool, nk NullifierKey, logicRef, randSeed []byte) (Resource, error) {
	var r Resource
	var err error
	if r.Label, err = DigestFromBytes(label); err != nil {
		return Resource{}, fmt.Errorf("label: %w", err)
	}
	if r.Nonce, err = DigestFromBytes(nonce); err != nil {
		return Resource{}, fmt.Errorf("nonce: %w", err)
	}
	if r.Quantity, err = DigestFromBytes(quantity); err != nil {
		return Resource{}, fmt.Errorf("quantity: %w", err)
	}
	if r.Value, err = DigestFromBytes(value); err != nil {
		return Resource{}, fmt.Errorf("value: %w", err)
	}
	if r.LogicRef, err = DigestFromBytes(logicRef); err != nil {
		return Resource{}, fmt.Errorf("logic ref: %w", err)
	}
	if r.RandSeed, err = DigestFromBytes(randSeed); err != nil {
		return Resource{}, fmt.Errorf("rand seed: %w", err)
	}
	r.Ephemeral = ephemeral
	r.NullifierKeyCommitment = nk.Commitment()
	return r, nil
}

func (r Resource) ephemeralByte() []byte {
	if r.Ephemeral {
		return []byte{1}
	}
	return []byte{0}
}

// Commitment returns the binding, hiding digest of every resource field.
// Any single-field change changes the commitment.
func (r Resource) Commitment() Digest {
	return hashFields(
		r.LogicRef[:],
		r.Label[:],
		r.Quantity[:],
		r.Value[:],
		r.ephemeralByte(),
		r.Nonce[:],
		r.NullifierKeyCommitment[:],
		r.RandSeed[:],
	)
}

// Nullifier derives the one-time consumption tag for the resource under nk.
// The key must be the one committed to by the resource.
func (r Resource) Nullifier(nk NullifierKey) (Digest, error) {
	if nk.Commitment() != r.NullifierKeyCommitment {
		return Digest{}, ErrWrongNullifierKey
	}
	cm := r.Commitment()
	return hashFields(nk[:], r.Nonce[:], cm[:]), nil
}

// Bytes returns the canonical fixed-width encoding of the resource:
// logicRef || label || quantity || value || ephemeral || nonce || npk || rseed.
func (r Resource) Bytes() []byte {
	out := make([]byte, 0, ResourceBytesLen)
	out = append(out, r.LogicRef[:]...)
	out = append(out, r.Label[:]...)
	out = append(out, r.Quantity[:]...)
	out = append(out, r.Value[:]...)
	out = append(out, r.ephemeralByte()...)
	out = append(out, r.Nonce[:]...)
	out = append(out, r.NullifierKeyCommitment[:]...)
	out = append(out, r.RandSeed[:]...)
	return out
}

// ResourceFromBytes parses the canonical encoding produced by Bytes.
func ResourceFromBytes(b []byte) (Resource, error) {
	if len(b) != ResourceBytesLen {
		return Resource{}, fmt.Errorf("resource: %w: want %d bytes, got %d", ErrInvalidLength, ResourceBytesLen, len(b))
	}
	var r Resource
	off := 0
	next := func() Digest {
		var d Digest
		copy(d[:], b[off:off+DigestLen])
		off += DigestLen
		return d
	}
	r.LogicRef = next()
	r.Label = next()
	r.Quantity = next()
	r.Value = next()
	switch b[off] {
	case 0:
		r.Ephemeral = false
	case 1:
		r.Ephemeral = true
	default:
		return Resource{}, fmt.Errorf("resource: invalid ephemeral flag %#x", b[off])
	}
	off++
	r.Nonce = next()
	r.NullifierKeyCommitment = next()
	r.RandSeed = next()
	return r, nil
}
