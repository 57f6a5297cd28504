package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raffleworks/raffled/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// ManifestStore implements domain.ManifestStore using PostgreSQL. Manifests
// are write-once: Insert refuses to overwrite an existing season row.
type ManifestStore struct {
	pool *pgxpool.Pool
}

// NewManifestStore creates a new ManifestStore backed by the given pool.
func NewManifestStore(pool *pgxpool.Pool) *ManifestStore {
	return &ManifestStore{pool: pool}
}

// Insert persists an immutable manifest record. A second insert for the same
// season returns domain.ErrAlreadyExists; published manifests are never
// replaced.
func (s *ManifestStore) Insert(ctx context.Context, rec domain.ManifestRecord) error {
	total := "0"
	if rec.TotalAmount != nil {
		total = rec.TotalAmount.String()
	}

	const query = `
		INSERT INTO manifests (
			season_id, merkle_root, leaf_count, total_amount, body, built_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		rec.SeasonID, rec.MerkleRoot, rec.LeafCount, total, rec.Body, rec.BuiltAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("postgres: manifest for season %s: %w", rec.SeasonID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: insert manifest for season %s: %w", rec.SeasonID, err)
	}
	return nil
}

// GetBySeason returns the manifest record for a season, or domain.ErrNotFound.
func (s *ManifestStore) GetBySeason(ctx context.Context, seasonID string) (domain.ManifestRecord, error) {
	var (
		rec      domain.ManifestRecord
		totalStr string
	)

	err := s.pool.QueryRow(ctx, `
		SELECT season_id, merkle_root, leaf_count, total_amount::text, body, built_at
		FROM manifests WHERE season_id = $1`, seasonID,
	).Scan(&rec.SeasonID, &rec.MerkleRoot, &rec.LeafCount, &totalStr, &rec.Body, &rec.BuiltAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ManifestRecord{}, fmt.Errorf("postgres: manifest for season %s: %w", seasonID, domain.ErrNotFound)
		}
		return domain.ManifestRecord{}, fmt.Errorf("postgres: get manifest for season %s: %w", seasonID, err)
	}

	total, ok := new(big.Int).SetString(totalStr, 10)
	if !ok {
		return domain.ManifestRecord{}, fmt.Errorf("postgres: invalid total_amount %q for season %s", totalStr, seasonID)
	}
	rec.TotalAmount = total
	return rec, nil
}

// Compile-time interface check.
var _ domain.ManifestStore = (*ManifestStore)(nil)
