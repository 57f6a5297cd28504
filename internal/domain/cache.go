package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CurveCache caches the on-chain curve state per pool address so the quote
// API does not hit the RPC endpoint on every request. Get returns
// ErrCacheMiss when no fresh entry exists.
type CurveCache interface {
	Set(ctx context.Context, pool common.Address, state CurveState) error
	Get(ctx context.Context, pool common.Address) (CurveState, error)
	Invalidate(ctx context.Context, pool common.Address) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking. The build job uses it to enforce
// the single-writer-per-season discipline.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventBus provides pub/sub for ephemeral season lifecycle events and durable
// streams for consumers that must not miss one.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
