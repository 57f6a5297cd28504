package merkle

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/raffleworks/raffled/internal/domain"
)

func testLeafHashes(n int) []common.Hash {
	hashes := make([]common.Hash, n)
	for i := range hashes {
		account := common.BigToAddress(big.NewInt(int64(i + 1)))
		hashes[i] = LeafHash(uint64(i), account, big.NewInt(int64(1000*(i+1))))
	}
	return hashes
}

// sortedPair recomputes the parent the way the on-chain verifier does.
func sortedPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return common.BytesToHash(ethcrypto.Keccak256(a[:], b[:]))
}

func TestLeafHash(t *testing.T) {
	t.Parallel()

	account := common.HexToAddress("0x00000000000000000000000000000000000000Aa")

	t.Run("matches tight packing", func(t *testing.T) {
		t.Parallel()
		amount := big.NewInt(123456)
		var buf []byte
		buf = append(buf, common.LeftPadBytes(big.NewInt(7).Bytes(), 32)...)
		buf = append(buf, account.Bytes()...)
		buf = append(buf, common.LeftPadBytes(amount.Bytes(), 32)...)
		require.Len(t, buf, 84)
		want := common.BytesToHash(ethcrypto.Keccak256(buf))
		require.Equal(t, want, LeafHash(7, account, amount))
	})

	t.Run("nil amount equals zero amount", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, LeafHash(0, account, new(big.Int)), LeafHash(0, account, nil))
	})

	t.Run("every field is load bearing", func(t *testing.T) {
		t.Parallel()
		base := LeafHash(1, account, big.NewInt(10))
		require.NotEqual(t, base, LeafHash(2, account, big.NewInt(10)))
		require.NotEqual(t, base, LeafHash(1, common.BigToAddress(big.NewInt(99)), big.NewInt(10)))
		require.NotEqual(t, base, LeafHash(1, account, big.NewInt(11)))
	})
}

func TestTreeRoot(t *testing.T) {
	t.Parallel()

	t.Run("empty tree has zero root", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, common.Hash{}, New(nil).Root())
		require.Equal(t, common.Hash{}, New([]common.Hash{}).Root())
		require.Zero(t, New(nil).LeafCount())
	})

	t.Run("single leaf is its own root", func(t *testing.T) {
		t.Parallel()
		leaves := testLeafHashes(1)
		require.Equal(t, leaves[0], New(leaves).Root())
	})

	t.Run("two leaves", func(t *testing.T) {
		t.Parallel()
		leaves := testLeafHashes(2)
		require.Equal(t, sortedPair(leaves[0], leaves[1]), New(leaves).Root())
	})

	t.Run("odd leaf count duplicates the trailing node", func(t *testing.T) {
		t.Parallel()
		leaves := testLeafHashes(3)
		want := sortedPair(
			sortedPair(leaves[0], leaves[1]),
			sortedPair(leaves[2], leaves[2]),
		)
		require.Equal(t, want, New(leaves).Root())
	})

	t.Run("leaf order changes the root", func(t *testing.T) {
		t.Parallel()
		leaves := testLeafHashes(4)
		swapped := []common.Hash{leaves[0], leaves[1], leaves[3], leaves[2]}
		require.NotEqual(t, New(leaves).Root(), New(swapped).Root())
	})

	t.Run("input slice is copied", func(t *testing.T) {
		t.Parallel()
		leaves := testLeafHashes(4)
		tree := New(leaves)
		root := tree.Root()
		leaves[0] = common.Hash{}
		require.Equal(t, root, tree.Root())
	})
}

func TestProofVerify(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		leaves := testLeafHashes(n)
		tree := New(leaves)
		root := tree.Root()

		for i := range leaves {
			proof, err := tree.Proof(uint64(i))
			require.NoError(t, err, "n=%d i=%d", n, i)
			require.True(t, Verify(leaves[i], proof, root), "n=%d i=%d", n, i)
		}
	}
}

func TestProofRejections(t *testing.T) {
	t.Parallel()

	leaves := testLeafHashes(5)
	tree := New(leaves)
	root := tree.Root()

	t.Run("index out of range", func(t *testing.T) {
		t.Parallel()
		_, err := tree.Proof(5)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("proof for the wrong leaf", func(t *testing.T) {
		t.Parallel()
		proof, err := tree.Proof(0)
		require.NoError(t, err)
		require.False(t, Verify(leaves[1], proof, root))
	})

	t.Run("tampered proof element", func(t *testing.T) {
		t.Parallel()
		proof, err := tree.Proof(2)
		require.NoError(t, err)
		proof[0][0] ^= 0xff
		require.False(t, Verify(leaves[2], proof, root))
	})

	t.Run("wrong root", func(t *testing.T) {
		t.Parallel()
		proof, err := tree.Proof(3)
		require.NoError(t, err)
		require.False(t, Verify(leaves[3], proof, common.Hash{}))
	})
}

func TestLeafHashesOrderPreserved(t *testing.T) {
	t.Parallel()

	leaves := []domain.ConsolationLeaf{
		{Index: 0, Account: common.BigToAddress(big.NewInt(9)), Amount: big.NewInt(5)},
		{Index: 1, Account: common.BigToAddress(big.NewInt(3)), Amount: big.NewInt(7)},
	}
	hashes := LeafHashes(leaves)
	require.Len(t, hashes, 2)
	require.Equal(t, LeafHash(0, leaves[0].Account, leaves[0].Amount), hashes[0])
	require.Equal(t, LeafHash(1, leaves[1].Account, leaves[1].Amount), hashes[1])
}
