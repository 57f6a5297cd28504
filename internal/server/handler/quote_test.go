package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raffleworks/raffled/internal/domain"
)

type stubQuotes struct {
	lastAmount   uint64
	lastSlippage float64
	quote        domain.TradeQuote
	err          error
}

func (s *stubQuotes) BuyQuote(_ context.Context, amount uint64, slippagePct float64) (domain.TradeQuote, error) {
	s.lastAmount, s.lastSlippage = amount, slippagePct
	return s.quote, s.err
}

func (s *stubQuotes) SellQuote(_ context.Context, amount uint64, slippagePct float64) (domain.TradeQuote, error) {
	s.lastAmount, s.lastSlippage = amount, slippagePct
	return s.quote, s.err
}

func (s *stubQuotes) DefaultSlippagePct() float64 { return 0.5 }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quoteMux(quotes QuoteService) *http.ServeMux {
	h := NewQuoteHandler(quotes, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/quote/buy", h.BuyQuote)
	mux.HandleFunc("GET /api/quote/sell", h.SellQuote)
	return mux
}

func doGet(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestBuyQuoteHandler(t *testing.T) {
	t.Parallel()

	quotes := &stubQuotes{quote: domain.TradeQuote{
		Side:          domain.QuoteBuy,
		Amount:        10,
		Value:         big.NewInt(950),
		Bound:         big.NewInt(959),
		CurrentSupply: 80,
	}}
	mux := quoteMux(quotes)

	rec := doGet(t, mux, "/api/quote/buy?amount=10&slippage=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint64(10), quotes.lastAmount)
	require.Equal(t, 1.0, quotes.lastSlippage)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "buy", resp["side"])
	require.Equal(t, "950", resp["value"])
	require.Equal(t, "959", resp["bound"])
	require.Equal(t, float64(80), resp["currentSupply"])
}

func TestQuoteHandlerDefaultSlippage(t *testing.T) {
	t.Parallel()

	quotes := &stubQuotes{quote: domain.TradeQuote{
		Side: domain.QuoteSell, Value: big.NewInt(1), Bound: big.NewInt(1),
	}}
	mux := quoteMux(quotes)

	rec := doGet(t, mux, "/api/quote/sell?amount=3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0.5, quotes.lastSlippage)
}

func TestQuoteHandlerParamValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
	}{
		{"missing amount", "/api/quote/buy"},
		{"non-numeric amount", "/api/quote/buy?amount=ten"},
		{"negative amount", "/api/quote/buy?amount=-5"},
		{"bad slippage", "/api/quote/buy?amount=5&slippage=lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mux := quoteMux(&stubQuotes{})
			rec := doGet(t, mux, tt.target)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestQuoteHandlerErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"insufficient supply", domain.ErrInsufficientSupply, http.StatusUnprocessableEntity},
		{"no price steps", domain.ErrNoPriceSteps, http.StatusBadGateway},
		{"malformed steps", domain.ErrMalformedSteps, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mux := quoteMux(&stubQuotes{err: tt.err})
			rec := doGet(t, mux, "/api/quote/buy?amount=5")
			require.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
