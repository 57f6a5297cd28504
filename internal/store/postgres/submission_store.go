package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raffleworks/raffled/internal/domain"
)

// SubmissionStore implements domain.SubmissionStore using PostgreSQL.
// Submission outcomes are append-only: every retry run leaves a row,
// successful or not, so operators can audit the full submission history.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

// NewSubmissionStore creates a new SubmissionStore backed by the given pool.
func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

// Insert appends one submission outcome. A missing ID is generated.
func (s *SubmissionStore) Insert(ctx context.Context, rec domain.SubmissionRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}

	const query = `
		INSERT INTO submissions (
			id, season_id, merkle_root, tx_hash, success, attempts, error, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		id, rec.SeasonID, rec.MerkleRoot, rec.TxHash,
		rec.Success, rec.Attempts, rec.Error, rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert submission for season %s: %w", rec.SeasonID, err)
	}
	return nil
}

// LatestBySeason returns the most recent submission outcome for a season,
// or domain.ErrNotFound when none has been recorded.
func (s *SubmissionStore) LatestBySeason(ctx context.Context, seasonID string) (domain.SubmissionRecord, error) {
	var rec domain.SubmissionRecord

	err := s.pool.QueryRow(ctx, `
		SELECT id, season_id, merkle_root, tx_hash, success, attempts, error, submitted_at
		FROM submissions
		WHERE season_id = $1
		ORDER BY submitted_at DESC
		LIMIT 1`, seasonID,
	).Scan(
		&rec.ID, &rec.SeasonID, &rec.MerkleRoot, &rec.TxHash,
		&rec.Success, &rec.Attempts, &rec.Error, &rec.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SubmissionRecord{}, fmt.Errorf("postgres: submissions for season %s: %w", seasonID, domain.ErrNotFound)
		}
		return domain.SubmissionRecord{}, fmt.Errorf("postgres: latest submission for season %s: %w", seasonID, err)
	}
	return rec, nil
}

// Compile-time interface check.
var _ domain.SubmissionStore = (*SubmissionStore)(nil)
