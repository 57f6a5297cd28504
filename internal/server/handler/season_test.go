package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/manifest"
)

type stubDistributions struct {
	season   domain.Season
	seasons  []domain.Season
	body     []byte
	leaf     manifest.Leaf
	err      error
	lastID   string
	lastAcct string
}

func (s *stubDistributions) Season(_ context.Context, seasonID string) (domain.Season, error) {
	s.lastID = seasonID
	return s.season, s.err
}

func (s *stubDistributions) ListSeasons(_ context.Context, _ int) ([]domain.Season, error) {
	return s.seasons, s.err
}

func (s *stubDistributions) Manifest(_ context.Context, seasonID string) ([]byte, error) {
	s.lastID = seasonID
	return s.body, s.err
}

func (s *stubDistributions) Proof(_ context.Context, seasonID, account string) (manifest.Leaf, error) {
	s.lastID, s.lastAcct = seasonID, account
	return s.leaf, s.err
}

func seasonMux(distributions DistributionService) *http.ServeMux {
	h := NewSeasonHandler(distributions, discardLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/seasons", h.ListSeasons)
	mux.HandleFunc("GET /api/seasons/{id}", h.GetSeason)
	mux.HandleFunc("GET /api/seasons/{id}/manifest", h.GetManifest)
	mux.HandleFunc("GET /api/seasons/{id}/proof/{account}", h.GetProof)
	return mux
}

func TestGetSeason(t *testing.T) {
	t.Parallel()

	finalized := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stub := &stubDistributions{season: domain.Season{
		ID:                 "s1",
		Status:             domain.SeasonBuilt,
		GrandWinner:        "0x3333333333333333333333333333333333333333",
		ConsolationPool:    big.NewInt(600),
		TotalTickets:       10,
		GrandWinnerTickets: 4,
		FinalizedAt:        &finalized,
		UpdatedAt:          finalized,
	}}
	mux := seasonMux(stub)

	rec := doGet(t, mux, "/api/seasons/s1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "s1", stub.lastID)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "s1", resp["id"])
	require.Equal(t, "built", resp["status"])
	require.Equal(t, "600", resp["consolationPool"])
	require.Equal(t, "2026-03-01T12:00:00Z", resp["finalizedAt"])
}

func TestGetSeasonNotFound(t *testing.T) {
	t.Parallel()

	mux := seasonMux(&stubDistributions{err: domain.ErrNotFound})
	rec := doGet(t, mux, "/api/seasons/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSeasonOmitsEmptyWinner(t *testing.T) {
	t.Parallel()

	mux := seasonMux(&stubDistributions{season: domain.Season{
		ID: "s1", Status: domain.SeasonActive,
	}})
	rec := doGet(t, mux, "/api/seasons/s1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "grandWinner")
	require.NotContains(t, rec.Body.String(), "finalizedAt")
	require.Contains(t, rec.Body.String(), `"consolationPool":"0"`)
}

func TestListSeasons(t *testing.T) {
	t.Parallel()

	stub := &stubDistributions{seasons: []domain.Season{
		{ID: "s2", Status: domain.SeasonActive},
		{ID: "s1", Status: domain.SeasonVerified},
	}}
	mux := seasonMux(stub)

	rec := doGet(t, mux, "/api/seasons")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Seasons []seasonResponse `json:"seasons"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Seasons, 2)
	require.Equal(t, "s2", resp.Seasons[0].ID)
}

func TestListSeasonsEmpty(t *testing.T) {
	t.Parallel()

	mux := seasonMux(&stubDistributions{})
	rec := doGet(t, mux, "/api/seasons")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"seasons":[]`)
}

func TestGetManifestServesStoredBytes(t *testing.T) {
	t.Parallel()

	body := []byte(`{"seasonId":"s1","merkleRoot":"0xabc","leaves":[]}`)
	mux := seasonMux(&stubDistributions{body: body})

	rec := doGet(t, mux, "/api/seasons/s1/manifest")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, body, rec.Body.Bytes())
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestGetManifestNotFound(t *testing.T) {
	t.Parallel()

	mux := seasonMux(&stubDistributions{err: domain.ErrNotFound})
	rec := doGet(t, mux, "/api/seasons/s1/manifest")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProof(t *testing.T) {
	t.Parallel()

	leaf := manifest.Leaf{
		Index:   1,
		Account: "0x2222222222222222222222222222222222222222",
		Amount:  "200",
		Proof:   []string{"0xabc"},
	}
	stub := &stubDistributions{leaf: leaf}
	mux := seasonMux(stub)

	rec := doGet(t, mux, "/api/seasons/s1/proof/0x2222222222222222222222222222222222222222")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "s1", stub.lastID)
	require.Equal(t, "0x2222222222222222222222222222222222222222", stub.lastAcct)

	var got manifest.Leaf
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, leaf, got)
}

func TestGetProofErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"invalid address", domain.ErrInvalidInput, http.StatusBadRequest},
		{"no leaf", domain.ErrNotFound, http.StatusNotFound},
		{"backend failure", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mux := seasonMux(&stubDistributions{err: tt.err})
			rec := doGet(t, mux, "/api/seasons/s1/proof/0x2222222222222222222222222222222222222222")
			require.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
