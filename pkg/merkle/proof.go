package merkle

import (
	"crypto/sha256"
	"fmt"

	"go.etcd.io/bbolt"
)

// ProofOpKind tags a single step of a decoded proof (§4.6).
type ProofOpKind uint8

const (
	OpChild ProofOpKind = iota
	OpParent
	OpNodeHash
	OpKeyValuePair
	OpKeyValueHash
)

// ProofOp is one operation of a Merkle inclusion proof. Left reports
// whether the proven leaf/node is the left child at this level (only
// meaningful for OpNodeHash/OpChild).
type ProofOp struct {
	Kind  ProofOpKind
	Left  bool
	Hash  [32]byte
	Key   []byte
	Value []byte
}

// Prove builds an inclusion proof for keys against the last committed
// state. Each key's proof is a flat sequence: OpKeyValuePair (the leaf),
// then one OpChild + OpNodeHash pair per tree level up to the root (the
// sibling needed to recompute that level's parent), closed by OpParent.
func (s *Store) Prove(keys [][]byte) ([]ProofOp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var leaves []leaf
	err := s.db.View(func(tx *bbolt.Tx) error {
		ls, err := collectLeaves(tx.Bucket(bucketCommitted))
		if err != nil {
			return err
		}
		leaves = ls
		return nil
	})
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(leaves))
	for i, l := range leaves {
		index[string(l.key)] = i
	}
	levels := buildLevels(leaves)

	var ops []ProofOp
	for _, key := range keys {
		i, ok := index[string(key)]
		if !ok {
			return nil, fmt.Errorf("merkle: key %x is not present in the committed state", key)
		}
		ops = append(ops, ProofOp{Kind: OpKeyValuePair, Key: leaves[i].key, Value: leaves[i].value})
		idx := i
		for level := 0; level < len(levels)-1; level++ {
			nodes := levels[level]
			isLeftChild := idx%2 == 0
			siblingIdx := idx ^ 1
			if siblingIdx >= len(nodes) {
				siblingIdx = idx
			}
			ops = append(ops, ProofOp{Kind: OpChild, Left: isLeftChild})
			ops = append(ops, ProofOp{Kind: OpNodeHash, Hash: nodes[siblingIdx]})
			ops = append(ops, ProofOp{Kind: OpParent})
			idx /= 2
		}
	}
	return ops, nil
}

// buildLevels returns every level of the binary tree from leaf hashes up to
// and including the single-node root level, mirroring BuildMerkleTree's
// pairing rule (duplicate the last node of an odd level).
func buildLevels(leaves []leaf) [][][32]byte {
	if len(leaves) == 0 {
		return [][][32]byte{{{}}}
	}
	level := make([][32]byte, len(leaves))
	for i, l := range leaves {
		level[i] = l.hash
	}
	levels := [][][32]byte{level}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = combine(level[i], level[i+1])
		}
		levels = append(levels, next)
		level = next
	}
	return levels
}

// combine hashes two internal-node children exactly as rootHash does
// (plain concatenation, no separator) so Prove/VerifyProof reconstruct the
// same root Commit computes.
func combine(left, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyProof replays ops for key/value against root and reports whether
// the reconstructed root matches (§4.6).
func VerifyProof(root [32]byte, key, value []byte, ops []ProofOp) bool {
	if len(ops) == 0 {
		return false
	}
	first := ops[0]
	if first.Kind != OpKeyValuePair {
		return false
	}
	hash := leafHash(first.Key, first.Value)
	if string(first.Key) != string(key) || string(first.Value) != string(value) {
		return false
	}

	var pendingLeft bool
	var haveChild bool
	for _, op := range ops[1:] {
		switch op.Kind {
		case OpChild:
			pendingLeft = op.Left
			haveChild = true
		case OpNodeHash:
			if !haveChild {
				return false
			}
			if pendingLeft {
				hash = combine(hash, op.Hash)
			} else {
				hash = combine(op.Hash, hash)
			}
		case OpParent:
			haveChild = false
		}
	}
	return hash == root
}
