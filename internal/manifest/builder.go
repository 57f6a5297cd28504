package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/raffleworks/raffled/internal/consolation"
	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/merkle"
)

// buildLockTTL bounds how long a crashed build job can hold a season lock.
const buildLockTTL = 10 * time.Minute

// SnapshotSource supplies the finalized season snapshot. The builder performs
// no chain I/O itself; it only consumes the injected data.
type SnapshotSource interface {
	Snapshot(ctx context.Context, seasonID string) (domain.ConsolationSnapshot, error)
}

// Archive stores the canonical manifest bytes in immutable object storage.
type Archive interface {
	Put(ctx context.Context, seasonID string, body []byte) (string, error)
}

// Notifier is the slice of the notification system the builder uses.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Builder runs the one-shot manifest build for a season: lock, snapshot,
// allocate, tree, encode, persist, archive, announce. Two concurrent builds
// for the same season would race on the same immutable-manifest key, so the
// season lock enforces single-writer discipline.
type Builder struct {
	snapshots SnapshotSource
	manifests domain.ManifestStore
	seasons   domain.SeasonStore
	locks     domain.LockManager
	archive   Archive          // optional
	bus       domain.EventBus  // optional
	notifier  Notifier         // optional
	logger    *slog.Logger
}

// NewBuilder creates a Builder. archive, bus, and notifier may be nil; the
// corresponding steps are skipped.
func NewBuilder(
	snapshots SnapshotSource,
	manifests domain.ManifestStore,
	seasons domain.SeasonStore,
	locks domain.LockManager,
	archive Archive,
	bus domain.EventBus,
	notifier Notifier,
	logger *slog.Logger,
) *Builder {
	return &Builder{
		snapshots: snapshots,
		manifests: manifests,
		seasons:   seasons,
		locks:     locks,
		archive:   archive,
		bus:       bus,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "manifest_builder")),
	}
}

// Build produces and publishes the manifest for one season. It returns the
// built manifest; a season whose manifest already exists fails with
// ErrAlreadyExists, and a second concurrent build fails with ErrLockHeld.
func (b *Builder) Build(ctx context.Context, seasonID string) (Manifest, error) {
	unlock, err := b.locks.Acquire(ctx, "season_build:"+seasonID, buildLockTTL)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: acquire build lock for season %s: %w", seasonID, err)
	}
	defer unlock()

	snap, err := b.snapshots.Snapshot(ctx, seasonID)
	if err != nil {
		b.notifyFailure(ctx, seasonID, err)
		return Manifest{}, fmt.Errorf("manifest: read snapshot for season %s: %w", seasonID, err)
	}

	leaves := consolation.Allocate(snap)
	tree := merkle.New(merkle.LeafHashes(leaves))

	m, err := Encode(seasonID, leaves, tree)
	if err != nil {
		b.notifyFailure(ctx, seasonID, err)
		return Manifest{}, err
	}

	body, err := m.Bytes()
	if err != nil {
		b.notifyFailure(ctx, seasonID, err)
		return Manifest{}, err
	}

	rec := domain.ManifestRecord{
		SeasonID:    seasonID,
		MerkleRoot:  m.MerkleRoot,
		LeafCount:   len(leaves),
		TotalAmount: consolation.Total(leaves),
		Body:        body,
		BuiltAt:     time.Now().UTC(),
	}
	if err := b.manifests.Insert(ctx, rec); err != nil {
		b.notifyFailure(ctx, seasonID, err)
		return Manifest{}, fmt.Errorf("manifest: persist season %s: %w", seasonID, err)
	}

	if err := b.seasons.SetStatus(ctx, seasonID, domain.SeasonBuilt); err != nil {
		b.logger.WarnContext(ctx, "season status update failed",
			slog.String("season_id", seasonID),
			slog.String("error", err.Error()),
		)
	}

	if b.archive != nil {
		path, err := b.archive.Put(ctx, seasonID, body)
		if err != nil {
			// The manifest row is the source of truth; a failed archive write
			// is re-runnable by the verify job, so log and continue.
			b.logger.ErrorContext(ctx, "manifest archive failed",
				slog.String("season_id", seasonID),
				slog.String("error", err.Error()),
			)
		} else {
			b.logger.InfoContext(ctx, "manifest archived",
				slog.String("season_id", seasonID),
				slog.String("path", path),
			)
		}
	}

	b.announce(ctx, seasonID, m, len(leaves))

	b.logger.InfoContext(ctx, "manifest built",
		slog.String("season_id", seasonID),
		slog.String("merkle_root", m.MerkleRoot),
		slog.Int("leaf_count", len(leaves)),
		slog.String("total_amount", rec.TotalAmount.String()),
	)

	return m, nil
}

// announce publishes the build event on the bus and notifies operators.
func (b *Builder) announce(ctx context.Context, seasonID string, m Manifest, leafCount int) {
	if b.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"season_id":   seasonID,
			"merkle_root": m.MerkleRoot,
			"leaf_count":  leafCount,
			"built_at":    time.Now().UTC().Format(time.RFC3339),
		})
		if err := b.bus.Publish(ctx, domain.ChannelManifestBuilt, evt); err != nil {
			b.logger.WarnContext(ctx, "publish manifest_built event failed",
				slog.String("season_id", seasonID),
				slog.String("error", err.Error()),
			)
		}
		if err := b.bus.StreamAppend(ctx, domain.ChannelManifestBuilt, evt); err != nil {
			b.logger.WarnContext(ctx, "append manifest_built stream failed",
				slog.String("season_id", seasonID),
				slog.String("error", err.Error()),
			)
		}
	}

	if b.notifier != nil {
		msg := fmt.Sprintf("season %s: root %s, %d leaves", seasonID, m.MerkleRoot, leafCount)
		if err := b.notifier.Notify(ctx, domain.EventManifestBuilt, "Consolation manifest built", msg); err != nil {
			b.logger.WarnContext(ctx, "notify manifest_built failed",
				slog.String("season_id", seasonID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (b *Builder) notifyFailure(ctx context.Context, seasonID string, cause error) {
	if b.notifier == nil {
		return
	}
	msg := fmt.Sprintf("season %s: %v", seasonID, cause)
	if err := b.notifier.Notify(ctx, domain.EventBuildFailed, "Manifest build failed", msg); err != nil {
		b.logger.WarnContext(ctx, "notify build_failed failed",
			slog.String("season_id", seasonID),
			slog.String("error", err.Error()),
		)
	}
}
