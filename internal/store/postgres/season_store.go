package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raffleworks/raffled/internal/domain"
)

// SeasonStore implements domain.SeasonStore using PostgreSQL.
type SeasonStore struct {
	pool *pgxpool.Pool
}

// NewSeasonStore creates a new SeasonStore backed by the given connection pool.
func NewSeasonStore(pool *pgxpool.Pool) *SeasonStore {
	return &SeasonStore{pool: pool}
}

const seasonSelectCols = `id, status, grand_winner, consolation_pool::text,
	total_tickets, grand_winner_tickets, finalized_at, created_at, updated_at`

func scanSeason(row pgx.Row) (domain.Season, error) {
	var (
		s       domain.Season
		poolStr string
	)
	if err := row.Scan(
		&s.ID, &s.Status, &s.GrandWinner, &poolStr,
		&s.TotalTickets, &s.GrandWinnerTickets,
		&s.FinalizedAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return domain.Season{}, err
	}

	pool, ok := new(big.Int).SetString(poolStr, 10)
	if !ok {
		return domain.Season{}, fmt.Errorf("invalid consolation_pool %q", poolStr)
	}
	s.ConsolationPool = pool
	return s, nil
}

// Upsert inserts or updates a season row keyed by id.
func (s *SeasonStore) Upsert(ctx context.Context, season domain.Season) error {
	pool := "0"
	if season.ConsolationPool != nil {
		pool = season.ConsolationPool.String()
	}

	const query = `
		INSERT INTO seasons (
			id, status, grand_winner, consolation_pool,
			total_tickets, grand_winner_tickets, finalized_at, updated_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			grand_winner = EXCLUDED.grand_winner,
			consolation_pool = EXCLUDED.consolation_pool,
			total_tickets = EXCLUDED.total_tickets,
			grand_winner_tickets = EXCLUDED.grand_winner_tickets,
			finalized_at = EXCLUDED.finalized_at,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		season.ID, season.Status, season.GrandWinner, pool,
		int64(season.TotalTickets), int64(season.GrandWinnerTickets),
		season.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert season %s: %w", season.ID, err)
	}
	return nil
}

// Get returns a season by id, or domain.ErrNotFound.
func (s *SeasonStore) Get(ctx context.Context, id string) (domain.Season, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+seasonSelectCols+` FROM seasons WHERE id = $1`, id)

	season, err := scanSeason(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Season{}, fmt.Errorf("postgres: season %s: %w", id, domain.ErrNotFound)
		}
		return domain.Season{}, fmt.Errorf("postgres: get season %s: %w", id, err)
	}
	return season, nil
}

// ListRecent returns the most recently updated seasons, newest first.
func (s *SeasonStore) ListRecent(ctx context.Context, limit int) ([]domain.Season, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+seasonSelectCols+` FROM seasons ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent seasons: %w", err)
	}
	defer rows.Close()

	var seasons []domain.Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan season: %w", err)
		}
		seasons = append(seasons, season)
	}
	return seasons, rows.Err()
}

// SetStatus advances a season's distribution status.
func (s *SeasonStore) SetStatus(ctx context.Context, id string, status domain.SeasonStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE seasons SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("postgres: set season %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: season %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SeasonStore = (*SeasonStore)(nil)
