// Package domain defines the core types and interfaces of the raffle backend:
// bonding-curve state, consolation snapshots and leaves, manifests, submission
// results, and the store/cache/blob contracts implemented by the
// infrastructure packages.
package domain

import "math/big"

// BondStep is one segment of the piecewise-constant bonding curve: every
// ticket up to (and excluding) cumulative supply RangeTo costs Price.
//
// A well-formed schedule is ordered ascending by RangeTo and contiguous: each
// step's lower bound is the previous step's RangeTo, implicitly 0 for the
// first step.
type BondStep struct {
	RangeTo uint64
	Price   *big.Int
}

// CurveState is a point-in-time read of the on-chain raffle pool. The
// contract is the only writer; this backend only ever reads it.
type CurveState struct {
	CurrentSupply uint64
	Steps         []BondStep
}

// QuoteSide distinguishes buy from sell quotes.
type QuoteSide string

const (
	QuoteBuy  QuoteSide = "buy"
	QuoteSell QuoteSide = "sell"
)

// TradeQuote is the priced outcome of a quote request. Value is in the base
// currency's smallest unit. Bound is the slippage-adjusted settlement bound:
// the maximum acceptable cost for a buy, the minimum acceptable proceeds for
// a sell.
type TradeQuote struct {
	Side          QuoteSide
	Amount        uint64
	Value         *big.Int
	Bound         *big.Int
	CurrentSupply uint64
}
