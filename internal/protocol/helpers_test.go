package protocol

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
)

// seqSource is a deterministic Source for reproducible test vectors.
type seqSource struct {
	seed [8]byte
	ctr  uint64
}

func newSeqSource(seed uint64) *seqSource {
	var s seqSource
	binary.LittleEndian.PutUint64(s.seed[:], seed)
	return &s
}

func (s *seqSource) Random32() ([DigestLen]byte, error) {
	var buf [16]byte
	copy(buf[:8], s.seed[:])
	binary.LittleEndian.PutUint64(buf[8:], s.ctr)
	s.ctr++
	return sha256.Sum256(buf[:]), nil
}

func testNullifierKey(t *testing.T, src Source) NullifierKey {
	t.Helper()
	nk, err := GenerateNullifierKey(src)
	if err != nil {
		t.Fatalf("GenerateNullifierKey failed: %v", err)
	}
	return nk
}

// testResource builds a valid resource from the deterministic source.
func testResource(t *testing.T, src Source, nk NullifierKey) Resource {
	t.Helper()
	draw := func() []byte {
		b, err := src.Random32()
		if err != nil {
			t.Fatalf("Random32 failed: %v", err)
		}
		return b[:]
	}
	r, err := NewResource(draw(), draw(), draw(), draw(), false, nk, draw(), draw())
	if err != nil {
		t.Fatalf("NewResource failed: %v", err)
	}
	return r
}
