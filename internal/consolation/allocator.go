// Package consolation computes each eligible participant's pro-rata share of
// a season's consolation pool from ticket-count weights, with deterministic
// dust handling. The allocator is a pure function: same snapshot in, same
// leaves out, in the same order, every time.
package consolation

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/raffleworks/raffled/internal/domain"
)

// Allocate turns a finalized season snapshot into payout leaves. It never
// returns an error: an empty distribution is a valid terminal state, and
// adversarial input degrades to an empty or smaller leaf set.
//
// Rules, in order:
//
//  1. denom = TotalTicketsSnapshot - GrandWinnerTickets. denom <= 0 (the
//     grand winner held every ticket) yields no leaves, which the tree
//     builder maps to the all-zero root sentinel.
//  2. Participants are visited in snapshot enumeration order. The grand
//     winner (compared case-insensitively) and zero-ticket holders are
//     skipped.
//  3. rawShare = floor(pool * tickets / denom); zero shares emit no leaf.
//  4. Leaf indices are sequential from 0 in the order encountered. That
//     order is part of the published manifest's identity; it is never
//     re-sorted.
//  5. If the shares sum past the pool (cannot happen under floor division on
//     a consistent snapshot, but guarded anyway), the excess is subtracted
//     from the last leaf only, floored at zero, so any correction lands on
//     one well-known leaf.
//
// Rounding shortfall is left undistributed: the pool may end up not fully
// paid out, and reclaiming that dust is deliberately out of scope here.
func Allocate(snap domain.ConsolationSnapshot) []domain.ConsolationLeaf {
	denom := int64(snap.TotalTicketsSnapshot) - int64(snap.GrandWinnerTickets)
	if denom <= 0 {
		return nil
	}

	pool := snap.ConsolationPool
	if pool == nil || pool.Sign() <= 0 {
		return nil
	}

	bigDenom := big.NewInt(denom)
	runningSum := new(big.Int)

	var leaves []domain.ConsolationLeaf
	for _, p := range snap.Participants {
		if strings.EqualFold(p.Account, snap.GrandWinner) {
			continue
		}
		if p.TicketCount == 0 {
			continue
		}

		rawShare := new(big.Int).SetUint64(p.TicketCount)
		rawShare.Mul(rawShare, pool)
		rawShare.Quo(rawShare, bigDenom)
		if rawShare.Sign() == 0 {
			continue
		}

		leaves = append(leaves, domain.ConsolationLeaf{
			Index:   uint64(len(leaves)),
			Account: common.HexToAddress(p.Account),
			Amount:  rawShare,
		})
		runningSum.Add(runningSum, rawShare)
	}

	if len(leaves) > 0 && runningSum.Cmp(pool) > 0 {
		diff := new(big.Int).Sub(runningSum, pool)
		last := &leaves[len(leaves)-1]
		last.Amount = new(big.Int).Sub(last.Amount, diff)
		if last.Amount.Sign() < 0 {
			last.Amount.SetInt64(0)
		}
	}

	return leaves
}

// Total sums the leaf amounts. Useful for the pool-coverage postcondition and
// for manifest bookkeeping.
func Total(leaves []domain.ConsolationLeaf) *big.Int {
	total := new(big.Int)
	for _, l := range leaves {
		total.Add(total, l.Amount)
	}
	return total
}
