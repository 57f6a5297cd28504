package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/raffleworks/raffled/internal/domain"
)

// CurveCache implements domain.CurveCache using Redis string keys holding a
// JSON snapshot of the curve state. Prices are serialized as decimal strings
// so the cache never loses precision on large values.
type CurveCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCurveCache creates a CurveCache with the given freshness TTL.
func NewCurveCache(c *Client, ttl time.Duration) *CurveCache {
	return &CurveCache{rdb: c.Underlying(), ttl: ttl}
}

func curveKey(pool common.Address) string {
	return "curve:" + strings.ToLower(pool.Hex())
}

type cachedStep struct {
	RangeTo uint64 `json:"rangeTo"`
	Price   string `json:"price"`
}

type cachedCurve struct {
	CurrentSupply uint64       `json:"currentSupply"`
	Steps         []cachedStep `json:"steps"`
}

// Set stores the curve state for a pool, replacing any existing entry.
func (cc *CurveCache) Set(ctx context.Context, pool common.Address, state domain.CurveState) error {
	entry := cachedCurve{
		CurrentSupply: state.CurrentSupply,
		Steps:         make([]cachedStep, 0, len(state.Steps)),
	}
	for _, step := range state.Steps {
		price := "0"
		if step.Price != nil {
			price = step.Price.String()
		}
		entry.Steps = append(entry.Steps, cachedStep{RangeTo: step.RangeTo, Price: price})
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal curve state %s: %w", pool.Hex(), err)
	}

	if err := cc.rdb.Set(ctx, curveKey(pool), data, cc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set curve state %s: %w", pool.Hex(), err)
	}
	return nil
}

// Get retrieves the cached curve state for a pool. It returns
// domain.ErrCacheMiss when no fresh entry exists.
func (cc *CurveCache) Get(ctx context.Context, pool common.Address) (domain.CurveState, error) {
	data, err := cc.rdb.Get(ctx, curveKey(pool)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CurveState{}, domain.ErrCacheMiss
		}
		return domain.CurveState{}, fmt.Errorf("redis: get curve state %s: %w", pool.Hex(), err)
	}

	var entry cachedCurve
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.CurveState{}, fmt.Errorf("redis: unmarshal curve state %s: %w", pool.Hex(), err)
	}

	state := domain.CurveState{
		CurrentSupply: entry.CurrentSupply,
		Steps:         make([]domain.BondStep, 0, len(entry.Steps)),
	}
	for _, step := range entry.Steps {
		price, ok := new(big.Int).SetString(step.Price, 10)
		if !ok {
			return domain.CurveState{}, fmt.Errorf("redis: parse cached price %q for %s: %w", step.Price, pool.Hex(), domain.ErrInvalidInput)
		}
		state.Steps = append(state.Steps, domain.BondStep{RangeTo: step.RangeTo, Price: price})
	}

	return state, nil
}

// Invalidate removes any cached curve state for a pool.
func (cc *CurveCache) Invalidate(ctx context.Context, pool common.Address) error {
	if err := cc.rdb.Del(ctx, curveKey(pool)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate curve state %s: %w", pool.Hex(), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CurveCache = (*CurveCache)(nil)
