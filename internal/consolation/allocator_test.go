package consolation

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/raffleworks/raffled/internal/domain"
)

func snapshot(pool int64, total, winnerTickets uint64, winner string, parts ...domain.Participant) domain.ConsolationSnapshot {
	return domain.ConsolationSnapshot{
		SeasonID:             "season-1",
		Participants:         parts,
		GrandWinner:          winner,
		ConsolationPool:      big.NewInt(pool),
		TotalTicketsSnapshot: total,
		GrandWinnerTickets:   winnerTickets,
	}
}

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
	addrC = "0x3333333333333333333333333333333333333333"
)

func TestAllocate(t *testing.T) {
	t.Parallel()

	t.Run("pro rata shares with floor division", func(t *testing.T) {
		t.Parallel()
		// denom = 10 - 4 = 6; A gets floor(100*2/6)=33, B gets floor(100*4/6)=66.
		snap := snapshot(100, 10, 4, addrC,
			domain.Participant{Account: addrA, TicketCount: 2},
			domain.Participant{Account: addrB, TicketCount: 4},
			domain.Participant{Account: addrC, TicketCount: 4},
		)
		leaves := Allocate(snap)
		require.Len(t, leaves, 2)

		require.Equal(t, uint64(0), leaves[0].Index)
		require.Equal(t, common.HexToAddress(addrA), leaves[0].Account)
		require.Equal(t, big.NewInt(33), leaves[0].Amount)

		require.Equal(t, uint64(1), leaves[1].Index)
		require.Equal(t, common.HexToAddress(addrB), leaves[1].Account)
		require.Equal(t, big.NewInt(66), leaves[1].Amount)

		// Dust stays undistributed.
		require.Equal(t, big.NewInt(99), Total(leaves))
		require.LessOrEqual(t, Total(leaves).Cmp(snap.ConsolationPool), 0)
	})

	t.Run("winner skipped case insensitively", func(t *testing.T) {
		t.Parallel()
		snap := snapshot(100, 10, 5, addrA,
			domain.Participant{Account: "0x1111111111111111111111111111111111111111", TicketCount: 5},
			domain.Participant{Account: addrB, TicketCount: 5},
		)
		snap.GrandWinner = "0X1111111111111111111111111111111111111111"
		leaves := Allocate(snap)
		require.Len(t, leaves, 1)
		require.Equal(t, common.HexToAddress(addrB), leaves[0].Account)
	})

	t.Run("zero ticket holders emit no leaf", func(t *testing.T) {
		t.Parallel()
		snap := snapshot(100, 5, 0, addrC,
			domain.Participant{Account: addrA, TicketCount: 0},
			domain.Participant{Account: addrB, TicketCount: 5},
		)
		leaves := Allocate(snap)
		require.Len(t, leaves, 1)
		require.Equal(t, uint64(0), leaves[0].Index)
		require.Equal(t, common.HexToAddress(addrB), leaves[0].Account)
	})

	t.Run("winner held every ticket", func(t *testing.T) {
		t.Parallel()
		snap := snapshot(100, 10, 10, addrA,
			domain.Participant{Account: addrA, TicketCount: 10},
		)
		require.Nil(t, Allocate(snap))
	})

	t.Run("winner tickets exceed total", func(t *testing.T) {
		t.Parallel()
		snap := snapshot(100, 5, 9, addrA,
			domain.Participant{Account: addrB, TicketCount: 5},
		)
		require.Nil(t, Allocate(snap))
	})

	t.Run("nil or empty pool", func(t *testing.T) {
		t.Parallel()
		snap := snapshot(0, 10, 2, addrA,
			domain.Participant{Account: addrB, TicketCount: 8},
		)
		require.Nil(t, Allocate(snap))

		snap.ConsolationPool = nil
		require.Nil(t, Allocate(snap))
	})

	t.Run("exact division pays the full pool", func(t *testing.T) {
		t.Parallel()
		snap := snapshot(1000, 1000, 0, "0x4444444444444444444444444444444444444444",
			domain.Participant{Account: addrA, TicketCount: 300},
			domain.Participant{Account: addrB, TicketCount: 300},
			domain.Participant{Account: addrC, TicketCount: 400},
		)
		leaves := Allocate(snap)
		require.Len(t, leaves, 3)
		require.Equal(t, big.NewInt(300), leaves[0].Amount)
		require.Equal(t, big.NewInt(300), leaves[1].Amount)
		require.Equal(t, big.NewInt(400), leaves[2].Amount)
		require.Equal(t, snap.ConsolationPool, Total(leaves))
	})

	t.Run("rounding dust stays undistributed", func(t *testing.T) {
		t.Parallel()
		// floor(100/3) = 33 for each of three equal holders; 1 unit of dust.
		snap := snapshot(100, 3, 0, "0x4444444444444444444444444444444444444444",
			domain.Participant{Account: addrA, TicketCount: 1},
			domain.Participant{Account: addrB, TicketCount: 1},
			domain.Participant{Account: addrC, TicketCount: 1},
		)
		leaves := Allocate(snap)
		require.Len(t, leaves, 3)
		for _, l := range leaves {
			require.Equal(t, big.NewInt(33), l.Amount)
		}
		require.Equal(t, big.NewInt(99), Total(leaves))
	})

	t.Run("tiny pool rounds everyone to zero", func(t *testing.T) {
		t.Parallel()
		// floor(1*1/3) = 0 for each holder.
		snap := snapshot(1, 4, 1, addrC,
			domain.Participant{Account: addrA, TicketCount: 1},
			domain.Participant{Account: addrB, TicketCount: 1},
		)
		require.Nil(t, Allocate(snap))
	})

	t.Run("overclaim corrected on the last leaf", func(t *testing.T) {
		t.Parallel()
		// Inconsistent snapshot: denom understates the actual ticket sum, so
		// floor shares overshoot the pool. B's raw 150 is trimmed to 50.
		snap := snapshot(100, 6, 4, addrC,
			domain.Participant{Account: addrA, TicketCount: 1},
			domain.Participant{Account: addrB, TicketCount: 3},
		)
		leaves := Allocate(snap)
		require.Len(t, leaves, 2)
		require.Equal(t, big.NewInt(50), leaves[0].Amount)
		require.Equal(t, big.NewInt(50), leaves[1].Amount)
		require.Equal(t, snap.ConsolationPool, Total(leaves))
	})

	t.Run("indices are contiguous after filtering", func(t *testing.T) {
		t.Parallel()
		snap := snapshot(1000, 20, 10, addrB,
			domain.Participant{Account: addrA, TicketCount: 4},
			domain.Participant{Account: addrB, TicketCount: 10},
			domain.Participant{Account: addrC, TicketCount: 6},
		)
		leaves := Allocate(snap)
		require.Len(t, leaves, 2)
		for i, l := range leaves {
			require.Equal(t, uint64(i), l.Index)
		}
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		t.Parallel()
		snap := snapshot(12345, 100, 37, addrC,
			domain.Participant{Account: addrA, TicketCount: 21},
			domain.Participant{Account: addrB, TicketCount: 42},
			domain.Participant{Account: addrC, TicketCount: 37},
		)
		first := Allocate(snap)
		second := Allocate(snap)
		require.Equal(t, first, second)
	})
}
