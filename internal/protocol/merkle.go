// merkle.go - Depth-32 Merkle accumulator and membership paths.
//
// A MerklePath proves that a commitment sits at some leaf of a depth-32
// binary tree with a publicly known root, without revealing the position.
// The Accumulator maintains an append-only commitment tree and issues paths
// for inserted leaves; GeneratePath32 produces the standalone bootstrap path
// shape used before any tree exists.

package protocol

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// TreeDepth is the fixed height of the commitment tree.
const TreeDepth = 32

// PathStepLen is the encoded width of one path step: sibling digest plus a
// direction byte.
const PathStepLen = DigestLen + 1

// MerklePathBytesLen is the length of a canonically encoded 32-level path.
const MerklePathBytesLen = TreeDepth * PathStepLen

// PathStep is one level of a membership path. Right reports that the current
// node is the right child, i.e. the sibling sits on the left.
type PathStep struct {
	Sibling Digest
	Right   bool
}

// MerklePath is an ordered leaf-to-root sequence of 32 sibling steps.
type MerklePath struct {
	Steps [TreeDepth]PathStep
}

// Root replays the path from leaf and returns the root it commits to.
// Each level combines the running node with its sibling in the order the
// direction bit dictates.
func (p MerklePath) Root(leaf Digest) Digest {
	node := leaf
	for _, s := range p.Steps {
		if s.Right {
			node = combine(s.Sibling, node)
		} else {
			node = combine(node, s.Sibling)
		}
	}
	return node
}

// Bytes returns the canonical encoding: 32 repetitions of
// sibling || direction byte.
func (p MerklePath) Bytes() []byte {
	out := make([]byte, 0, MerklePathBytesLen)
	for _, s := range p.Steps {
		out = append(out, s.Sibling[:]...)
		if s.Right {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// MerklePathFromBytes parses the canonical encoding produced by Bytes.
func MerklePathFromBytes(b []byte) (MerklePath, error) {
	if len(b) != MerklePathBytesLen {
		return MerklePath{}, fmt.Errorf("merkle path: %w: want %d bytes, got %d", ErrInvalidLength, MerklePathBytesLen, len(b))
	}
	var p MerklePath
	for i := 0; i < TreeDepth; i++ {
		off := i * PathStepLen
		copy(p.Steps[i].Sibling[:], b[off:off+DigestLen])
		switch b[off+DigestLen] {
		case 0:
			p.Steps[i].Right = false
		case 1:
			p.Steps[i].Right = true
		default:
			return MerklePath{}, fmt.Errorf("merkle path: invalid direction byte %#x at level %d", b[off+DigestLen], i)
		}
	}
	return p, nil
}

// GeneratePath32 returns the deterministic bootstrap path: level i carries a
// sibling whose 4-byte words all hold i+1, with the node on the right at odd
// levels. Syntactically valid for witness assembly and testing; not tied to
// any maintained tree.
func GeneratePath32() MerklePath {
	var p MerklePath
	for i := 0; i < TreeDepth; i++ {
		for w := 0; w < DigestLen; w += 4 {
			binary.LittleEndian.PutUint32(p.Steps[i].Sibling[w:], uint32(i+1))
		}
		p.Steps[i].Right = i%2 == 1
	}
	return p
}

// Accumulator is an append-only depth-32 commitment tree. Leaves beyond the
// inserted prefix are empty subtrees. Safe for concurrent use.
type Accumulator struct {
	mu     sync.RWMutex
	leaves []Digest
	// empty[i] is the root of an all-empty subtree of height i.
	empty [TreeDepth + 1]Digest
}

// NewAccumulator returns an empty commitment tree.
func NewAccumulator() *Accumulator {
	a := &Accumulator{}
	for i := 0; i < TreeDepth; i++ {
		a.empty[i+1] = combine(a.empty[i], a.empty[i])
	}
	return a
}

// Insert appends a commitment and returns its leaf index.
func (a *Accumulator) Insert(cm Digest) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.leaves = append(a.leaves, cm)
	return len(a.leaves) - 1
}

// Size returns the number of inserted leaves.
func (a *Accumulator) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.leaves)
}

// Root returns the current root over all inserted leaves.
func (a *Accumulator) Root() Digest {
	a.mu.RLock()
	defer a.mu.RUnlock()
	level := append([]Digest(nil), a.leaves...)
	for h := 0; h < TreeDepth; h++ {
		if len(level)%2 == 1 {
			level = append(level, a.empty[h])
		}
		next := make([]Digest, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, combine(level[i], level[i+1]))
		}
		level = next
	}
	if len(level) == 0 {
		return a.empty[TreeDepth]
	}
	return level[0]
}

// PathFor returns the membership path of the leaf at index. The path stays
// valid only until the next Insert changes the root.
func (a *Accumulator) PathFor(index int) (MerklePath, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if index < 0 || index >= len(a.leaves) {
		return MerklePath{}, fmt.Errorf("accumulator: no leaf at index %d", index)
	}
	var p MerklePath
	level := append([]Digest(nil), a.leaves...)
	pos := index
	for h := 0; h < TreeDepth; h++ {
		if len(level)%2 == 1 {
			level = append(level, a.empty[h])
		}
		sib := pos ^ 1
		p.Steps[h] = PathStep{Sibling: level[sib], Right: pos%2 == 1}
		next := make([]Digest, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, combine(level[i], level[i+1]))
		}
		level = next
		pos /= 2
	}
	return p, nil
}
