// Package manifest produces, persists, and re-verifies the published
// consolation payout manifest for a season: allocator leaves plus Merkle root
// and per-leaf proofs, serialized to a fixed JSON wire format.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/merkle"
)

// Leaf is the wire form of one payout entry. Account hex is EIP-55
// checksummed; amount is a decimal string; proof hashes are lowercase 0x-hex.
type Leaf struct {
	Index   uint64   `json:"index"`
	Account string   `json:"account"`
	Amount  string   `json:"amount"`
	Proof   []string `json:"proof"`
}

// Manifest is the published wire format. Field order is fixed; the encoding
// is compact JSON and the same bytes go to Postgres and the archive. An
// empty distribution carries an empty (never null) leaves array and the
// all-zero root.
type Manifest struct {
	SeasonID   string `json:"seasonId"`
	MerkleRoot string `json:"merkleRoot"`
	Leaves     []Leaf `json:"leaves"`
}

// Encode assembles the wire manifest for a season from the allocator's
// leaves and the tree built over them. The tree must have been built over
// merkle.LeafHashes(leaves); leaf order is preserved exactly.
func Encode(seasonID string, leaves []domain.ConsolationLeaf, tree *merkle.Tree) (Manifest, error) {
	if tree.LeafCount() != len(leaves) {
		return Manifest{}, fmt.Errorf("manifest: tree has %d leaves, allocator produced %d: %w",
			tree.LeafCount(), len(leaves), domain.ErrInvalidInput)
	}

	wire := make([]Leaf, 0, len(leaves))
	for _, l := range leaves {
		proof, err := tree.Proof(l.Index)
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest: proof for leaf %d: %w", l.Index, err)
		}
		proofHex := make([]string, len(proof))
		for i, h := range proof {
			proofHex[i] = h.Hex()
		}
		wire = append(wire, Leaf{
			Index:   l.Index,
			Account: l.Account.Hex(),
			Amount:  l.Amount.String(),
			Proof:   proofHex,
		})
	}

	return Manifest{
		SeasonID:   seasonID,
		MerkleRoot: tree.Root().Hex(),
		Leaves:     wire,
	}, nil
}

// Bytes serializes the manifest to its canonical compact JSON bytes.
func (m Manifest) Bytes() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: marshal: %w", err)
	}
	return data, nil
}

// Decode parses canonical manifest bytes.
func Decode(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: unmarshal: %w", err)
	}
	return m, nil
}
