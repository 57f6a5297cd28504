package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/raffleworks/raffled/internal/domain"
)

// QuoteService defines the methods the quote handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type QuoteService interface {
	BuyQuote(ctx context.Context, amount uint64, slippagePct float64) (domain.TradeQuote, error)
	SellQuote(ctx context.Context, amount uint64, slippagePct float64) (domain.TradeQuote, error)
	DefaultSlippagePct() float64
}

// QuoteHandler serves bonding-curve quote endpoints.
type QuoteHandler struct {
	quotes QuoteService
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler with the given service and logger.
func NewQuoteHandler(quotes QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		quotes: quotes,
		logger: logger,
	}
}

// quoteResponse is the wire form of a quote. Value and bound are decimal
// strings so large amounts survive JSON number handling in any client.
type quoteResponse struct {
	Side          string `json:"side"`
	Amount        uint64 `json:"amount"`
	Value         string `json:"value"`
	Bound         string `json:"bound"`
	CurrentSupply uint64 `json:"currentSupply"`
}

// BuyQuote prices a ticket purchase with a slippage-adjusted maximum cost.
// GET /api/quote/buy?amount=10&slippage=0.5
func (h *QuoteHandler) BuyQuote(w http.ResponseWriter, r *http.Request) {
	amount, slippage, ok := h.parseQuoteParams(w, r)
	if !ok {
		return
	}

	quote, err := h.quotes.BuyQuote(r.Context(), amount, slippage)
	if err != nil {
		h.writeQuoteError(w, r, "buy", err)
		return
	}

	writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}

// SellQuote prices a ticket sale with a slippage-adjusted minimum proceeds.
// GET /api/quote/sell?amount=10&slippage=0.5
func (h *QuoteHandler) SellQuote(w http.ResponseWriter, r *http.Request) {
	amount, slippage, ok := h.parseQuoteParams(w, r)
	if !ok {
		return
	}

	quote, err := h.quotes.SellQuote(r.Context(), amount, slippage)
	if err != nil {
		h.writeQuoteError(w, r, "sell", err)
		return
	}

	writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}

// parseQuoteParams extracts and validates the amount and slippage query
// params. It writes the error response itself and returns ok=false when the
// request is malformed.
func (h *QuoteHandler) parseQuoteParams(w http.ResponseWriter, r *http.Request) (uint64, float64, bool) {
	q := r.URL.Query()

	amountStr := q.Get("amount")
	if amountStr == "" {
		writeError(w, http.StatusBadRequest, "missing amount")
		return 0, 0, false
	}
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return 0, 0, false
	}

	slippage := h.quotes.DefaultSlippagePct()
	if v := q.Get("slippage"); v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid slippage")
			return 0, 0, false
		}
		slippage = pct
	}

	return amount, slippage, true
}

func (h *QuoteHandler) writeQuoteError(w http.ResponseWriter, r *http.Request, side string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid quote request")
	case errors.Is(err, domain.ErrInsufficientSupply):
		writeError(w, http.StatusUnprocessableEntity, "amount exceeds available supply")
	case errors.Is(err, domain.ErrNoPriceSteps), errors.Is(err, domain.ErrMalformedSteps):
		h.logger.ErrorContext(r.Context(), "handler: curve schedule unusable",
			slog.String("side", side),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "price schedule unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "handler: quote failed",
			slog.String("side", side),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute quote")
	}
}

func toQuoteResponse(q domain.TradeQuote) quoteResponse {
	return quoteResponse{
		Side:          string(q.Side),
		Amount:        q.Amount,
		Value:         q.Value.String(),
		Bound:         q.Bound.String(),
		CurrentSupply: q.CurrentSupply,
	}
}
