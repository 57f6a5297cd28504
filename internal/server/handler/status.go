package handler

import (
	"net/http"
)

// StatusHandler serves the backend status (mode, chain, contract addresses)
// for dashboards.
type StatusHandler struct {
	Mode              string
	ChainID           int64
	RafflePool        string
	SeasonDistributor string
}

// NewStatusHandler creates a StatusHandler for the given deployment.
func NewStatusHandler(mode string, chainID int64, rafflePool, seasonDistributor string) *StatusHandler {
	return &StatusHandler{
		Mode:              mode,
		ChainID:           chainID,
		RafflePool:        rafflePool,
		SeasonDistributor: seasonDistributor,
	}
}

// GetStatus responds with the current backend mode, chain id, and the
// contract addresses this deployment points at.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":              h.Mode,
		"chainId":           h.ChainID,
		"rafflePool":        h.RafflePool,
		"seasonDistributor": h.SeasonDistributor,
	})
}
