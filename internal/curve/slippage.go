package curve

import (
	"math"
	"math/big"
)

// bpsDenominator converts basis points back to a whole: 100% == 10_000 bps.
var bpsDenominator = big.NewInt(10_000)

// bpsFromPct converts a tolerance percentage into whole basis points,
// clamping to [0, 100] percent first. The float never meets a financial
// amount: it only selects an integer bps factor.
func bpsFromPct(pct float64) int64 {
	if pct < 0 || math.IsNaN(pct) {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return int64(math.Round(pct * 100))
}

// MinAfterSlippage returns the lowest settlement value the caller should
// accept for an estimate: floor(estimate - estimate*bps/10000), floored at
// zero. pct=0 is the identity, pct=100 yields zero. The input is never
// mutated; a nil estimate is treated as zero.
func MinAfterSlippage(estimate *big.Int, pct float64) *big.Int {
	if estimate == nil {
		return new(big.Int)
	}
	out := new(big.Int).Sub(estimate, slippageAdjustment(estimate, pct))
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}

// MaxWithSlippage returns the highest settlement value the caller should
// accept: estimate + floor(estimate*bps/10000). Never less than the
// estimate; pct=0 is the identity, pct=100 doubles it.
func MaxWithSlippage(estimate *big.Int, pct float64) *big.Int {
	if estimate == nil {
		return new(big.Int)
	}
	return new(big.Int).Add(estimate, slippageAdjustment(estimate, pct))
}

func slippageAdjustment(estimate *big.Int, pct float64) *big.Int {
	adj := new(big.Int).Mul(estimate, big.NewInt(bpsFromPct(pct)))
	return adj.Quo(adj, bpsDenominator)
}
