package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/manifest"
)

// DistributionService serves season distribution data: season rows, canonical
// manifest bytes, and per-account claim proofs extracted from the stored
// manifest.
type DistributionService struct {
	seasons   domain.SeasonStore
	manifests domain.ManifestStore
}

// NewDistributionService creates a DistributionService.
func NewDistributionService(seasons domain.SeasonStore, manifests domain.ManifestStore) *DistributionService {
	return &DistributionService{
		seasons:   seasons,
		manifests: manifests,
	}
}

// Season returns the tracked state of a season.
func (s *DistributionService) Season(ctx context.Context, seasonID string) (domain.Season, error) {
	season, err := s.seasons.Get(ctx, seasonID)
	if err != nil {
		return domain.Season{}, fmt.Errorf("distribution_service: season %s: %w", seasonID, err)
	}
	return season, nil
}

// Manifest returns the canonical manifest bytes for a season exactly as they
// were persisted at build time.
func (s *DistributionService) Manifest(ctx context.Context, seasonID string) ([]byte, error) {
	rec, err := s.manifests.GetBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("distribution_service: manifest for season %s: %w", seasonID, err)
	}
	return rec.Body, nil
}

// Proof returns the payout leaf for one account in a season's manifest,
// including its Merkle proof. Account matching is case-insensitive; the
// account must be a valid hex address. It returns domain.ErrNotFound when the
// account has no leaf in the manifest.
func (s *DistributionService) Proof(ctx context.Context, seasonID, account string) (manifest.Leaf, error) {
	if !common.IsHexAddress(account) {
		return manifest.Leaf{}, fmt.Errorf("distribution_service: account %q: %w", account, domain.ErrInvalidInput)
	}

	rec, err := s.manifests.GetBySeason(ctx, seasonID)
	if err != nil {
		return manifest.Leaf{}, fmt.Errorf("distribution_service: manifest for season %s: %w", seasonID, err)
	}

	m, err := manifest.Decode(rec.Body)
	if err != nil {
		return manifest.Leaf{}, fmt.Errorf("distribution_service: decode manifest for season %s: %w", seasonID, err)
	}

	for _, leaf := range m.Leaves {
		if strings.EqualFold(leaf.Account, account) {
			return leaf, nil
		}
	}

	return manifest.Leaf{}, fmt.Errorf("distribution_service: account %s has no leaf in season %s: %w",
		account, seasonID, domain.ErrNotFound)
}

// ListSeasons returns recently updated seasons, newest first.
func (s *DistributionService) ListSeasons(ctx context.Context, limit int) ([]domain.Season, error) {
	seasons, err := s.seasons.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("distribution_service: list seasons: %w", err)
	}
	return seasons, nil
}
