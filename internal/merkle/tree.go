// Package merkle builds sorted-pair-hashed binary Merkle trees over
// consolation leaves and derives per-leaf inclusion proofs.
//
// The hashing is a fixed wire-format contract with the on-chain verifier
// (OpenZeppelin-style MerkleProof): leaf order is preserved, an odd trailing
// node is paired with itself, and each parent hashes the byte-wise smaller
// child first so proof verification is independent of left/right position.
// Any deviation silently produces proofs that fail on-chain.
package merkle

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/raffleworks/raffled/internal/domain"
)

// LeafHash computes keccak256 of the tightly packed leaf encoding:
// uint256(index) || address(20 bytes) || uint256(amount), big-endian, with no
// padding between fields (32 + 20 + 32 = 84 bytes).
func LeafHash(index uint64, account common.Address, amount *big.Int) common.Hash {
	if amount == nil {
		amount = new(big.Int)
	}
	buf := make([]byte, 0, 84)
	buf = append(buf, common.LeftPadBytes(new(big.Int).SetUint64(index).Bytes(), 32)...)
	buf = append(buf, account.Bytes()...)
	buf = append(buf, common.LeftPadBytes(amount.Bytes(), 32)...)
	return common.BytesToHash(ethcrypto.Keccak256(buf))
}

// LeafHashes maps allocator leaves to their hashes, preserving order.
func LeafHashes(leaves []domain.ConsolationLeaf) []common.Hash {
	hashes := make([]common.Hash, len(leaves))
	for i, l := range leaves {
		hashes[i] = LeafHash(l.Index, l.Account, l.Amount)
	}
	return hashes
}

// Tree is a binary Merkle tree. Layer 0 holds the leaf hashes in their
// original order; the top layer holds the single root.
type Tree struct {
	layers [][]common.Hash
}

// New builds a tree over the given leaf hashes. The input order is the layer
// 0 order; it is never re-sorted. A nil or empty input produces the empty
// tree, whose root is the all-zero sentinel by definition rather than by
// hashing.
func New(leafHashes []common.Hash) *Tree {
	if len(leafHashes) == 0 {
		return &Tree{}
	}

	layer := make([]common.Hash, len(leafHashes))
	copy(layer, leafHashes)

	layers := [][]common.Hash{layer}
	for len(layer) > 1 {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			left := layer[i]
			right := left // odd trailing node pairs with itself
			if i+1 < len(layer) {
				right = layer[i+1]
			}
			next = append(next, hashPair(left, right))
		}
		layers = append(layers, next)
		layer = next
	}

	return &Tree{layers: layers}
}

// Root returns the tree root, or the all-zero hash for the empty tree.
func (t *Tree) Root() common.Hash {
	if len(t.layers) == 0 {
		return common.Hash{}
	}
	return t.layers[len(t.layers)-1][0]
}

// LeafCount returns the number of leaves the tree was built over.
func (t *Tree) LeafCount() int {
	if len(t.layers) == 0 {
		return 0
	}
	return len(t.layers[0])
}

// Proof returns the ordered sibling hashes from leaf level to root for the
// leaf at index. When the leaf is the odd last element of a layer its
// sibling is itself, matching the duplication rule used during construction.
func (t *Tree) Proof(index uint64) ([]common.Hash, error) {
	count := uint64(t.LeafCount())
	if index >= count {
		return nil, fmt.Errorf("merkle: proof index %d out of range [0, %d): %w", index, count, domain.ErrInvalidInput)
	}

	proof := make([]common.Hash, 0, len(t.layers)-1)
	i := index
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := i ^ 1
		if sibling >= uint64(len(layer)) {
			sibling = i
		}
		proof = append(proof, layer[sibling])
		i /= 2
	}
	return proof, nil
}

// Verify folds sorted-pair hashing over the proof and reports whether the
// result equals root. This mirrors what the on-chain verifier does with a
// published proof.
func Verify(leaf common.Hash, proof []common.Hash, root common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// hashPair hashes two nodes with the lexicographically smaller one first.
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return common.BytesToHash(ethcrypto.Keccak256(a[:], b[:]))
}
