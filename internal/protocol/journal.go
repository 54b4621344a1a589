// journal.go - Public compliance instance and its canonical journal encoding.
//
// The journal is the byte string the proof engine commits to: the public
// outputs a verifier checks against an expected program identity. The
// encoding is versioned and strict-length; anything else is rejected.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// JournalVersion is the current journal wire version.
	JournalVersion uint16 = 1

	// JournalBytesLen is the exact length of an encoded journal:
	// version_u16_le plus six 32-byte fields.
	JournalBytesLen = 2 + 6*DigestLen
)

var (
	// ErrMalformedJournal reports a journal of the wrong length.
	ErrMalformedJournal = errors.New("protocol: malformed journal")

	// ErrJournalVersion reports an unsupported journal version.
	ErrJournalVersion = errors.New("protocol: unsupported journal version")
)

// ComplianceInstance is the public output of the compliance circuit.
type ComplianceInstance struct {
	// Nullifier is the consumption tag of the consumed resource.
	Nullifier Digest
	// Commitment is the created resource's commitment.
	Commitment Digest
	// ConsumedLogicRef and CreatedLogicRef identify the logic programs the
	// two resources are valid under.
	ConsumedLogicRef Digest
	CreatedLogicRef  Digest
	// Root is the accumulator root the consumed commitment was proven under.
	Root Digest
	// Delta is the RCV-blinded commitment to the quantity difference.
	Delta Digest
}

// JournalBytes returns the canonical encoding:
//
//	version_u16_le || nullifier || commitment ||
//	consumed_logic_ref || created_logic_ref || root || delta
func (in ComplianceInstance) JournalBytes() []byte {
	out := make([]byte, 0, JournalBytesLen)
	var v [2]byte
	binary.LittleEndian.PutUint16(v[:], JournalVersion)
	out = append(out, v[:]...)
	out = append(out, in.Nullifier[:]...)
	out = append(out, in.Commitment[:]...)
	out = append(out, in.ConsumedLogicRef[:]...)
	out = append(out, in.CreatedLogicRef[:]...)
	out = append(out, in.Root[:]...)
	out = append(out, in.Delta[:]...)
	return out
}

// ParseJournal decodes a canonical journal, rejecting wrong lengths and
// unknown versions.
func ParseJournal(b []byte) (ComplianceInstance, error) {
	if len(b) != JournalBytesLen {
		return ComplianceInstance{}, fmt.Errorf("%w: want %d bytes, got %d", ErrMalformedJournal, JournalBytesLen, len(b))
	}
	if v := binary.LittleEndian.Uint16(b[0:2]); v != JournalVersion {
		return ComplianceInstance{}, fmt.Errorf("%w: %d", ErrJournalVersion, v)
	}
	var in ComplianceInstance
	off := 2
	next := func() Digest {
		var d Digest
		copy(d[:], b[off:off+DigestLen])
		off += DigestLen
		return d
	}
	in.Nullifier = next()
	in.Commitment = next()
	in.ConsumedLogicRef = next()
	in.CreatedLogicRef = next()
	in.Root = next()
	in.Delta = next()
	return in, nil
}
