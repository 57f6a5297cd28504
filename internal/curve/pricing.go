// Package curve prices ticket trades against the raffle pool's stepped
// bonding curve and derives slippage bounds for settlement. Everything here
// is a pure function over immutable inputs using arbitrary-precision integer
// arithmetic; no floating point touches a financial quantity.
package curve

import (
	"math/big"

	"github.com/raffleworks/raffled/internal/domain"
)

// BuyQuote returns the cost of buying amount tickets starting at
// currentSupply. It accumulates overlap*price over every step the target
// range [currentSupply, currentSupply+amount) touches.
//
// The returned value is always non-nil. On malformed input the value is zero
// and the error classifies why; callers that ignore the error observe the
// legacy degrade-to-zero behavior. A buy extending past the last step's bound
// simply stops accumulating there: the max-supply ceiling is the on-chain
// contract's check, not ours.
func BuyQuote(amount, currentSupply uint64, steps []domain.BondStep) (*big.Int, error) {
	if amount == 0 {
		return new(big.Int), nil
	}
	if len(steps) == 0 {
		return new(big.Int), domain.ErrNoPriceSteps
	}
	return rangeCost(currentSupply, currentSupply+amount, steps)
}

// SellQuote returns the proceeds of selling amount tickets down from
// currentSupply, pricing the range [currentSupply-amount, currentSupply).
// Price is a pure function of supply position, not of trade direction, so
// SellQuote(n, s+n, steps) == BuyQuote(n, s, steps) for any valid schedule.
//
// Selling more than the current supply is a defined no-op: zero value with
// ErrInsufficientSupply, never a panic.
func SellQuote(amount, currentSupply uint64, steps []domain.BondStep) (*big.Int, error) {
	if amount == 0 {
		return new(big.Int), nil
	}
	if len(steps) == 0 {
		return new(big.Int), domain.ErrNoPriceSteps
	}
	if amount > currentSupply {
		return new(big.Int), domain.ErrInsufficientSupply
	}
	return rangeCost(currentSupply-amount, currentSupply, steps)
}

// rangeCost walks the step schedule once, front to back, summing
// overlap * price for every step segment that intersects [from, to).
// A step whose upper bound does not advance past the previous one breaks the
// ascending-contiguous invariant and aborts with ErrMalformedSteps.
func rangeCost(from, to uint64, steps []domain.BondStep) (*big.Int, error) {
	total := new(big.Int)
	span := new(big.Int)

	lower := uint64(0)
	for _, step := range steps {
		if step.RangeTo <= lower {
			return new(big.Int), domain.ErrMalformedSteps
		}

		lo := max64(from, lower)
		hi := min64(to, step.RangeTo)
		if hi > lo {
			if step.Price == nil {
				return new(big.Int), domain.ErrMalformedSteps
			}
			span.SetUint64(hi - lo)
			total.Add(total, span.Mul(span, step.Price))
		}

		lower = step.RangeTo
		if lower >= to {
			break
		}
	}

	return total, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
