package domain

import (
	"math/big"
	"time"
)

// SeasonStatus is the lifecycle state of a raffle season as tracked by this
// backend. The on-chain contract owns the season itself; these states only
// track distribution progress.
type SeasonStatus string

const (
	SeasonActive    SeasonStatus = "active"
	SeasonFinalized SeasonStatus = "finalized"
	SeasonBuilt     SeasonStatus = "built"
	SeasonSubmitted SeasonStatus = "submitted"
	SeasonVerified  SeasonStatus = "verified"
)

// Season is one raffle round with its own ticket supply, grand winner, and
// consolation distribution.
type Season struct {
	ID                 string
	Status             SeasonStatus
	GrandWinner        string
	ConsolationPool    *big.Int
	TotalTickets       uint64
	GrandWinnerTickets uint64
	FinalizedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
