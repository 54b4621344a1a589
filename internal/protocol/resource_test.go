package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestResourceConstruction(t *testing.T) {
	src := newSeqSource(1)
	nk := testNullifierKey(t, src)
	good := make([]byte, DigestLen)

	t.Run("rejects wrong-length inputs", func(t *testing.T) {
		short := make([]byte, DigestLen-1)
		long := make([]byte, DigestLen+1)
		for _, bad := range [][]byte{nil, short, long} {
			if _, err := NewResource(bad, good, good, good, false, nk, good, good); !errors.Is(err, ErrInvalidLength) {
				t.Errorf("label of %d bytes: want ErrInvalidLength, got %v", len(bad), err)
			}
			if _, err := NewResource(good, good, bad, good, false, nk, good, good); !errors.Is(err, ErrInvalidLength) {
				t.Errorf("quantity of %d bytes: want ErrInvalidLength, got %v", len(bad), err)
			}
			if _, err := NewResource(good, good, good, good, false, nk, good, bad); !errors.Is(err, ErrInvalidLength) {
				t.Errorf("rand seed of %d bytes: want ErrInvalidLength, got %v", len(bad), err)
			}
		}
	})

	t.Run("embeds the nullifier key commitment", func(t *testing.T) {
		r, err := NewResource(good, good, good, good, false, nk, good, good)
		if err != nil {
			t.Fatalf("NewResource failed: %v", err)
		}
		if r.NullifierKeyCommitment != nk.Commitment() {
			t.Error("resource does not commit to the nullifier key")
		}
	})
}

func TestCommitmentDeterminism(t *testing.T) {
	src := newSeqSource(2)
	nk := testNullifierKey(t, src)
	r := testResource(t, src, nk)

	if r.Commitment() != r.Commitment() {
		t.Fatal("commitment of the same resource differs between calls")
	}

	src2 := newSeqSource(2)
	r2 := testResource(t, src2, testNullifierKey(t, src2))
	if r.Commitment() != r2.Commitment() {
		t.Fatal("identical construction inputs produced different commitments")
	}
}

func TestCommitmentFieldSensitivity(t *testing.T) {
	src := newSeqSource(3)
	nk := testNullifierKey(t, src)
	base := testResource(t, src, nk)
	cm := base.Commitment()

	mutate := []struct {
		name string
		mod  func(r *Resource)
	}{
		{"logic ref", func(r *Resource) { r.LogicRef[0] ^= 1 }},
		{"label", func(r *Resource) { r.Label[5] ^= 1 }},
		{"quantity", func(r *Resource) { r.Quantity[31] ^= 1 }},
		{"value", func(r *Resource) { r.Value[13] ^= 1 }},
		{"ephemeral", func(r *Resource) { r.Ephemeral = !r.Ephemeral }},
		{"nonce", func(r *Resource) { r.Nonce[7] ^= 1 }},
		{"key commitment", func(r *Resource) { r.NullifierKeyCommitment[1] ^= 1 }},
		{"rand seed", func(r *Resource) { r.RandSeed[30] ^= 1 }},
	}
	for _, tc := range mutate {
		t.Run(tc.name, func(t *testing.T) {
			changed := base
			tc.mod(&changed)
			if changed.Commitment() == cm {
				t.Errorf("changing %s did not change the commitment", tc.name)
			}
		})
	}
}

func TestNullifierDerivation(t *testing.T) {
	src := newSeqSource(4)
	nk := testNullifierKey(t, src)
	r := testResource(t, src, nk)

	t.Run("deterministic for a fixed key", func(t *testing.T) {
		nf1, err := r.Nullifier(nk)
		if err != nil {
			t.Fatalf("Nullifier failed: %v", err)
		}
		nf2, _ := r.Nullifier(nk)
		if nf1 != nf2 {
			t.Error("nullifier differs between derivations")
		}
		if nf1 == r.Commitment() {
			t.Error("nullifier equals the public commitment")
		}
	})

	t.Run("rejects a foreign key", func(t *testing.T) {
		other := testNullifierKey(t, src)
		if _, err := r.Nullifier(other); !errors.Is(err, ErrWrongNullifierKey) {
			t.Errorf("want ErrWrongNullifierKey, got %v", err)
		}
	})

	t.Run("distinct nonces give distinct nullifiers", func(t *testing.T) {
		r2 := r
		r2.Nonce[0] ^= 0xff
		nf1, _ := r.Nullifier(nk)
		nf2, err := r2.Nullifier(nk)
		if err != nil {
			t.Fatalf("Nullifier failed: %v", err)
		}
		if nf1 == nf2 {
			t.Error("nullifiers collide across distinct nonces")
		}
	})
}

func TestResourceBytesRoundTrip(t *testing.T) {
	src := newSeqSource(5)
	nk := testNullifierKey(t, src)
	r := testResource(t, src, nk)
	r.Ephemeral = true

	enc := r.Bytes()
	if len(enc) != ResourceBytesLen {
		t.Fatalf("encoded resource is %d bytes, want %d", len(enc), ResourceBytesLen)
	}
	dec, err := ResourceFromBytes(enc)
	if err != nil {
		t.Fatalf("ResourceFromBytes failed: %v", err)
	}
	if dec != r {
		t.Error("decoded resource differs from the original")
	}
	if !bytes.Equal(dec.Bytes(), enc) {
		t.Error("re-encoding differs")
	}

	t.Run("rejects bad lengths and flags", func(t *testing.T) {
		if _, err := ResourceFromBytes(enc[:len(enc)-1]); !errors.Is(err, ErrInvalidLength) {
			t.Errorf("short encoding: want ErrInvalidLength, got %v", err)
		}
		bad := append([]byte(nil), enc...)
		bad[4*DigestLen] = 7 // ephemeral flag
		if _, err := ResourceFromBytes(bad); err == nil {
			t.Error("invalid ephemeral flag accepted")
		}
	})
}
