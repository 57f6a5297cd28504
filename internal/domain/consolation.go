package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Participant is one account's ticket position inside a snapshot. Account is
// the 0x-hex address string exactly as enumerated by the source; comparisons
// against the grand winner are case-insensitive.
type Participant struct {
	Account     string
	TicketCount uint64
}

// ConsolationSnapshot is the immutable, point-in-time input to one manifest
// build. It is read once after season finalization and never mutated.
type ConsolationSnapshot struct {
	SeasonID             string
	Participants         []Participant
	GrandWinner          string
	ConsolationPool      *big.Int
	TotalTicketsSnapshot uint64
	GrandWinnerTickets   uint64
}

// ConsolationLeaf is one pro-rata payout entry. Index is assigned
// sequentially in participant-enumeration order after filtering: contiguous
// from 0, no gaps, no duplicates. The index/account/amount triple is exactly
// what gets packed into the Merkle leaf hash.
type ConsolationLeaf struct {
	Index   uint64
	Account common.Address
	Amount  *big.Int
}
