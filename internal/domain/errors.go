package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrLockHeld         = errors.New("lock already held")
	ErrCacheMiss        = errors.New("cache miss")
	ErrManifestMismatch = errors.New("manifest root mismatch")

	// ErrEmptyDistribution marks the valid terminal state where no account
	// is owed a consolation payout. The allocator itself just returns an
	// empty slice; callers that need to branch on the condition use this.
	ErrEmptyDistribution = errors.New("empty distribution")

	// Pricing sentinels. The quoting path never panics on malformed input;
	// it returns a zero value together with one of these so callers can tell
	// "legitimately zero" from "computation declined".
	ErrNoPriceSteps       = errors.New("no price steps")
	ErrInsufficientSupply = errors.New("sell amount exceeds current supply")
	ErrMalformedSteps     = errors.New("malformed price steps")
)
