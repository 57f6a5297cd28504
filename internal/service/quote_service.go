// Package service implements the application use-cases behind the HTTP API:
// curve quoting over the cached chain state, and read access to season
// distribution data.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/raffleworks/raffled/internal/curve"
	"github.com/raffleworks/raffled/internal/domain"
)

// ChainSource is the slice of the chain client the quote service uses.
type ChainSource interface {
	CurveState(ctx context.Context, pool common.Address) (domain.CurveState, error)
}

// QuoteService prices ticket buys and sells against the pool's bonding curve.
// Curve state is read through the cache first; on a miss the chain is queried
// and the result is backfilled best-effort.
type QuoteService struct {
	chain       ChainSource
	cache       domain.CurveCache // optional
	pool        common.Address
	maxAmount   uint64
	defaultSlip float64
	logger      *slog.Logger
}

// NewQuoteService creates a QuoteService. cache may be nil, in which case
// every quote reads the chain directly. maxAmount bounds the ticket amount a
// single quote may request; zero disables the bound.
func NewQuoteService(
	chain ChainSource,
	cache domain.CurveCache,
	pool common.Address,
	maxAmount uint64,
	defaultSlippagePct float64,
	logger *slog.Logger,
) *QuoteService {
	return &QuoteService{
		chain:       chain,
		cache:       cache,
		pool:        pool,
		maxAmount:   maxAmount,
		defaultSlip: defaultSlippagePct,
		logger:      logger.With(slog.String("component", "quote_service")),
	}
}

// DefaultSlippagePct returns the configured default slippage percentage,
// applied when a quote request does not specify one.
func (s *QuoteService) DefaultSlippagePct() float64 {
	return s.defaultSlip
}

// BuyQuote prices a purchase of amount tickets and attaches the
// slippage-adjusted maximum acceptable cost.
func (s *QuoteService) BuyQuote(ctx context.Context, amount uint64, slippagePct float64) (domain.TradeQuote, error) {
	if err := s.checkAmount(amount); err != nil {
		return domain.TradeQuote{}, err
	}

	state, err := s.curveState(ctx)
	if err != nil {
		return domain.TradeQuote{}, err
	}

	value, err := curve.BuyQuote(amount, state.CurrentSupply, state.Steps)
	if err != nil {
		return domain.TradeQuote{}, fmt.Errorf("quote_service: buy quote for %d tickets: %w", amount, err)
	}

	return domain.TradeQuote{
		Side:          domain.QuoteBuy,
		Amount:        amount,
		Value:         value,
		Bound:         curve.MaxWithSlippage(value, slippagePct),
		CurrentSupply: state.CurrentSupply,
	}, nil
}

// SellQuote prices a sale of amount tickets and attaches the
// slippage-adjusted minimum acceptable proceeds.
func (s *QuoteService) SellQuote(ctx context.Context, amount uint64, slippagePct float64) (domain.TradeQuote, error) {
	if err := s.checkAmount(amount); err != nil {
		return domain.TradeQuote{}, err
	}

	state, err := s.curveState(ctx)
	if err != nil {
		return domain.TradeQuote{}, err
	}

	value, err := curve.SellQuote(amount, state.CurrentSupply, state.Steps)
	if err != nil {
		return domain.TradeQuote{}, fmt.Errorf("quote_service: sell quote for %d tickets: %w", amount, err)
	}

	return domain.TradeQuote{
		Side:          domain.QuoteSell,
		Amount:        amount,
		Value:         value,
		Bound:         curve.MinAfterSlippage(value, slippagePct),
		CurrentSupply: state.CurrentSupply,
	}, nil
}

// checkAmount validates the requested ticket amount.
func (s *QuoteService) checkAmount(amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("quote_service: amount must be positive: %w", domain.ErrInvalidInput)
	}
	if s.maxAmount > 0 && amount > s.maxAmount {
		return fmt.Errorf("quote_service: amount %d exceeds maximum %d: %w", amount, s.maxAmount, domain.ErrInvalidInput)
	}
	return nil
}

// curveState reads the curve through the cache, falling back to the chain on
// a miss. Cache backfill is best-effort: a write failure degrades to
// chain-per-request, it never fails the quote.
func (s *QuoteService) curveState(ctx context.Context) (domain.CurveState, error) {
	if s.cache != nil {
		state, err := s.cache.Get(ctx, s.pool)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "curve cache read failed",
				slog.String("pool", s.pool.Hex()),
				slog.String("error", err.Error()),
			)
		}
	}

	state, err := s.chain.CurveState(ctx, s.pool)
	if err != nil {
		return domain.CurveState{}, fmt.Errorf("quote_service: read curve state: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.pool, state); err != nil {
			s.logger.WarnContext(ctx, "curve cache backfill failed",
				slog.String("pool", s.pool.Hex()),
				slog.String("error", err.Error()),
			)
		}
	}

	return state, nil
}
