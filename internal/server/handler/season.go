package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/manifest"
)

// DistributionService defines the methods the season handler requires from
// the service layer.
type DistributionService interface {
	Season(ctx context.Context, seasonID string) (domain.Season, error)
	ListSeasons(ctx context.Context, limit int) ([]domain.Season, error)
	Manifest(ctx context.Context, seasonID string) ([]byte, error)
	Proof(ctx context.Context, seasonID, account string) (manifest.Leaf, error)
}

// SeasonHandler serves season and distribution endpoints.
type SeasonHandler struct {
	distributions DistributionService
	logger        *slog.Logger
}

// NewSeasonHandler creates a SeasonHandler with the given service and logger.
func NewSeasonHandler(distributions DistributionService, logger *slog.Logger) *SeasonHandler {
	return &SeasonHandler{
		distributions: distributions,
		logger:        logger,
	}
}

// seasonResponse is the wire form of a season row. The consolation pool is a
// decimal string.
type seasonResponse struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	GrandWinner        string `json:"grandWinner,omitempty"`
	ConsolationPool    string `json:"consolationPool"`
	TotalTickets       uint64 `json:"totalTickets"`
	GrandWinnerTickets uint64 `json:"grandWinnerTickets"`
	FinalizedAt        string `json:"finalizedAt,omitempty"`
	UpdatedAt          string `json:"updatedAt"`
}

// ListSeasons returns recently updated seasons, newest first.
// GET /api/seasons?limit=50
func (h *SeasonHandler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.distributions.ListSeasons(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list seasons failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list seasons")
		return
	}

	out := make([]seasonResponse, 0, len(seasons))
	for _, s := range seasons {
		out = append(out, toSeasonResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"seasons": out})
}

// GetSeason returns a single season by ID.
// GET /api/seasons/{id}
func (h *SeasonHandler) GetSeason(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing season id")
		return
	}

	season, err := h.distributions.Season(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "season not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get season failed",
			slog.String("season_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get season")
		return
	}

	writeJSON(w, http.StatusOK, toSeasonResponse(season))
}

// GetManifest returns the canonical manifest bytes for a season, exactly as
// persisted at build time.
// GET /api/seasons/{id}/manifest
func (h *SeasonHandler) GetManifest(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing season id")
		return
	}

	body, err := h.distributions.Manifest(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "manifest not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get manifest failed",
			slog.String("season_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get manifest")
		return
	}

	// Serve the stored bytes verbatim; re-encoding could change the canonical
	// form.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// GetProof returns the payout leaf and Merkle proof for one account.
// GET /api/seasons/{id}/proof/{account}
func (h *SeasonHandler) GetProof(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	account := pathParam(r, "account")
	if id == "" || account == "" {
		writeError(w, http.StatusBadRequest, "missing season id or account")
		return
	}

	leaf, err := h.distributions.Proof(r.Context(), id, account)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid account address")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no payout for account in season")
		default:
			h.logger.ErrorContext(r.Context(), "handler: get proof failed",
				slog.String("season_id", id),
				slog.String("account", account),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get proof")
		}
		return
	}

	writeJSON(w, http.StatusOK, leaf)
}

func toSeasonResponse(s domain.Season) seasonResponse {
	resp := seasonResponse{
		ID:                 s.ID,
		Status:             string(s.Status),
		GrandWinner:        s.GrandWinner,
		TotalTickets:       s.TotalTickets,
		GrandWinnerTickets: s.GrandWinnerTickets,
		ConsolationPool:    "0",
		UpdatedAt:          s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if s.ConsolationPool != nil {
		resp.ConsolationPool = s.ConsolationPool.String()
	}
	if s.FinalizedAt != nil {
		resp.FinalizedAt = s.FinalizedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
