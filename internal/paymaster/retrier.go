// Package paymaster wraps sponsored root submission in a bounded-retry
// discipline: submit, await the receipt fully, and on failure retry with
// fixed increasing delays. Exhaustion is a structured result, never a panic
// and never a bare error, so batch callers decide per-item remediation.
package paymaster

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/raffleworks/raffled/internal/domain"
)

// defaultRetryDelays are the waits before each retry after the initial
// attempt: one initial attempt plus three retries, four attempts total.
var defaultRetryDelays = []time.Duration{5 * time.Second, 15 * time.Second, 45 * time.Second}

// defaultReceiptPoll is how often the receipt wait polls the chain.
const defaultReceiptPoll = 2 * time.Second

// Relay submits a sponsored call and returns the broadcast transaction hash.
type Relay interface {
	SponsorCall(ctx context.Context, sub domain.RootSubmission) (common.Hash, error)
}

// ReceiptWaiter blocks until the transaction's receipt is available or the
// context ends.
type ReceiptWaiter interface {
	WaitReceipt(ctx context.Context, txHash common.Hash, pollInterval time.Duration) (*types.Receipt, error)
}

// Retrier drives a root submission through the relay with bounded retries.
// Retries are strictly sequential: each receipt wait completes or fails
// before the next attempt starts, so there are no concurrent retry storms.
type Retrier struct {
	relay       Relay
	receipts    ReceiptWaiter
	delays      []time.Duration
	receiptPoll time.Duration
	logger      *slog.Logger
}

// Option customizes a Retrier.
type Option func(*Retrier)

// WithDelays overrides the retry delay schedule. The number of delays is the
// number of retries after the initial attempt.
func WithDelays(delays []time.Duration) Option {
	return func(r *Retrier) { r.delays = delays }
}

// WithReceiptPoll overrides the receipt polling interval.
func WithReceiptPoll(interval time.Duration) Option {
	return func(r *Retrier) { r.receiptPoll = interval }
}

// NewRetrier creates a Retrier with the default 5s/15s/45s schedule.
func NewRetrier(relay Relay, receipts ReceiptWaiter, logger *slog.Logger, opts ...Option) *Retrier {
	r := &Retrier{
		relay:       relay,
		receipts:    receipts,
		delays:      defaultRetryDelays,
		receiptPoll: defaultReceiptPoll,
		logger:      logger.With(slog.String("component", "paymaster_retrier")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit runs the bounded submit-and-await loop for one root submission.
// An attempt succeeds only when the relay accepts the call AND the receipt
// arrives with a success status; a reverted receipt counts as a failed
// attempt. Context cancellation during a delay or receipt wait ends the run
// with the structured failure result.
func (r *Retrier) Submit(ctx context.Context, sub domain.RootSubmission) domain.SubmissionResult {
	maxAttempts := len(r.delays) + 1

	var lastErr string
	for attempt := 1; ; attempt++ {
		hash, err := r.attempt(ctx, sub)
		if err == nil {
			r.logger.InfoContext(ctx, "root submission confirmed",
				slog.String("season_id", sub.SeasonID),
				slog.String("tx_hash", hash.Hex()),
				slog.Int("attempts", attempt),
			)
			return domain.SubmissionResult{
				Success:  true,
				TxHash:   &hash,
				Attempts: attempt,
			}
		}

		lastErr = err.Error()
		r.logger.WarnContext(ctx, "root submission attempt failed",
			slog.String("season_id", sub.SeasonID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.String("error", lastErr),
		)

		if attempt >= maxAttempts {
			return domain.SubmissionResult{
				Success:  false,
				Error:    lastErr,
				Attempts: attempt,
			}
		}

		// Honour the context while waiting out the fixed delay.
		timer := time.NewTimer(r.delays[attempt-1])
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.SubmissionResult{
				Success:  false,
				Error:    lastErr + "; " + ctx.Err().Error(),
				Attempts: attempt,
			}
		case <-timer.C:
		}
	}
}

// attempt performs one full submit-and-await cycle.
func (r *Retrier) attempt(ctx context.Context, sub domain.RootSubmission) (common.Hash, error) {
	hash, err := r.relay.SponsorCall(ctx, sub)
	if err != nil {
		return common.Hash{}, err
	}

	receipt, err := r.receipts.WaitReceipt(ctx, hash, r.receiptPoll)
	if err != nil {
		return common.Hash{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Hash{}, &revertedError{txHash: hash}
	}

	return hash, nil
}

// revertedError marks an on-chain revert of a relayed submission.
type revertedError struct {
	txHash common.Hash
}

func (e *revertedError) Error() string {
	return "transaction " + e.txHash.Hex() + " reverted"
}
