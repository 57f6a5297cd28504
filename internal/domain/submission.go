package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RootSubmission is the payload handed to the paymaster relay: the call that
// publishes a season's Merkle root on-chain, signed by the operator key. The
// relay sponsors the gas; the operator never pays it.
type RootSubmission struct {
	SeasonID  string
	To        common.Address
	Data      []byte
	Signature []byte
}

// SubmissionResult is the structured outcome of a bounded-retry submission
// run. It is never surfaced as a Go error: batch callers inspect Success and
// decide per-item remediation instead of aborting a whole run.
type SubmissionResult struct {
	Success  bool
	TxHash   *common.Hash
	Error    string
	Attempts int
}

// SubmissionRecord is one persisted submission outcome for a season.
type SubmissionRecord struct {
	ID          string
	SeasonID    string
	MerkleRoot  string
	TxHash      string
	Success     bool
	Attempts    int
	Error       string
	SubmittedAt time.Time
}
