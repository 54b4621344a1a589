package protocol

import (
	"errors"
	"testing"
)

func TestKeyGenerationUniqueness(t *testing.T) {
	src := SystemSource()

	t.Run("nullifier keys", func(t *testing.T) {
		seen := make(map[NullifierKey]bool)
		for i := 0; i < 256; i++ {
			nk, err := GenerateNullifierKey(src)
			if err != nil {
				t.Fatalf("GenerateNullifierKey failed: %v", err)
			}
			if nk == (NullifierKey{}) {
				t.Fatal("generated a zero nullifier key")
			}
			if seen[nk] {
				t.Fatal("nullifier key repeated")
			}
			seen[nk] = true
		}
	})

	t.Run("keypairs", func(t *testing.T) {
		seen := make(map[[DigestLen]byte]bool)
		for i := 0; i < 256; i++ {
			kp, err := GenerateKeypair(src)
			if err != nil {
				t.Fatalf("GenerateKeypair failed: %v", err)
			}
			if kp.Secret == [DigestLen]byte{} || kp.Public == [DigestLen]byte{} {
				t.Fatal("generated a zero key")
			}
			if seen[kp.Public] {
				t.Fatal("public key repeated")
			}
			seen[kp.Public] = true
		}
	})

	t.Run("random 32", func(t *testing.T) {
		a, err := Random32(src)
		if err != nil {
			t.Fatalf("Random32 failed: %v", err)
		}
		b, err := Random32(src)
		if err != nil {
			t.Fatalf("Random32 failed: %v", err)
		}
		if a == b {
			t.Fatal("consecutive draws are identical")
		}
	})
}

type failingSource struct{}

func (failingSource) Random32() ([DigestLen]byte, error) {
	return [DigestLen]byte{}, ErrGenerator
}

func TestGeneratorFailurePropagates(t *testing.T) {
	if _, err := GenerateNullifierKey(failingSource{}); !errors.Is(err, ErrGenerator) {
		t.Errorf("GenerateNullifierKey: want ErrGenerator, got %v", err)
	}
	if _, err := GenerateKeypair(failingSource{}); !errors.Is(err, ErrGenerator) {
		t.Errorf("GenerateKeypair: want ErrGenerator, got %v", err)
	}
}

func TestNullifierKeyCommitmentBinding(t *testing.T) {
	src := newSeqSource(10)
	nk := testNullifierKey(t, src)
	if nk.Commitment() != nk.Commitment() {
		t.Fatal("key commitment is not deterministic")
	}
	other := testNullifierKey(t, src)
	if nk.Commitment() == other.Commitment() {
		t.Fatal("distinct keys share a commitment")
	}
	if Digest(nk) == nk.Commitment() {
		t.Fatal("commitment leaks the key")
	}
}

func TestNullifierKeyFromBytes(t *testing.T) {
	if _, err := NullifierKeyFromBytes(make([]byte, 31)); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("want ErrInvalidLength, got %v", err)
	}
	b := make([]byte, DigestLen)
	b[0] = 0xab
	nk, err := NullifierKeyFromBytes(b)
	if err != nil {
		t.Fatalf("NullifierKeyFromBytes failed: %v", err)
	}
	if nk[0] != 0xab {
		t.Error("key bytes not copied")
	}
}
