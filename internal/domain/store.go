package domain

import "context"

// SeasonStore persists season metadata and distribution progress.
type SeasonStore interface {
	Upsert(ctx context.Context, season Season) error
	Get(ctx context.Context, id string) (Season, error)
	ListRecent(ctx context.Context, limit int) ([]Season, error)
	SetStatus(ctx context.Context, id string, status SeasonStatus) error
}

// ManifestStore persists immutable manifest records. Insert returns
// ErrAlreadyExists when a manifest for the season has already been published.
type ManifestStore interface {
	Insert(ctx context.Context, rec ManifestRecord) error
	GetBySeason(ctx context.Context, seasonID string) (ManifestRecord, error)
}

// SubmissionStore records paymaster submission outcomes per season.
type SubmissionStore interface {
	Insert(ctx context.Context, rec SubmissionRecord) error
	LatestBySeason(ctx context.Context, seasonID string) (SubmissionRecord, error)
}
