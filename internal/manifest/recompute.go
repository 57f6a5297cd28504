package manifest

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/merkle"
)

// Recompute rebuilds the Merkle tree from a decoded manifest and checks that
// the published root and every stored proof still hold. Any drift means the
// stored artifact no longer matches what the on-chain verifier would accept,
// reported as ErrManifestMismatch.
func Recompute(m Manifest) error {
	hashes := make([]common.Hash, len(m.Leaves))
	for i, l := range m.Leaves {
		if uint64(i) != l.Index {
			return fmt.Errorf("manifest: leaf %d carries index %d: %w", i, l.Index, domain.ErrManifestMismatch)
		}
		if !common.IsHexAddress(l.Account) {
			return fmt.Errorf("manifest: leaf %d account %q: %w", i, l.Account, domain.ErrInvalidInput)
		}
		amount, ok := new(big.Int).SetString(l.Amount, 10)
		if !ok {
			return fmt.Errorf("manifest: leaf %d amount %q: %w", i, l.Amount, domain.ErrInvalidInput)
		}
		hashes[i] = merkle.LeafHash(l.Index, common.HexToAddress(l.Account), amount)
	}

	tree := merkle.New(hashes)
	root := tree.Root()
	if !strings.EqualFold(root.Hex(), m.MerkleRoot) {
		return fmt.Errorf("manifest: recomputed root %s, published %s: %w",
			root.Hex(), m.MerkleRoot, domain.ErrManifestMismatch)
	}

	for i, l := range m.Leaves {
		proof := make([]common.Hash, len(l.Proof))
		for j, p := range l.Proof {
			proof[j] = common.HexToHash(p)
		}
		if !merkle.Verify(hashes[i], proof, root) {
			return fmt.Errorf("manifest: stored proof for leaf %d does not verify: %w",
				i, domain.ErrManifestMismatch)
		}
	}

	return nil
}
