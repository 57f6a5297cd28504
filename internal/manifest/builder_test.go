package manifest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raffleworks/raffled/internal/domain"
)

type stubSnapshots struct {
	snap domain.ConsolationSnapshot
	err  error
}

func (s *stubSnapshots) Snapshot(_ context.Context, _ string) (domain.ConsolationSnapshot, error) {
	return s.snap, s.err
}

type memManifests struct {
	records map[string]domain.ManifestRecord
	err     error
}

func (m *memManifests) Insert(_ context.Context, rec domain.ManifestRecord) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.records[rec.SeasonID]; ok {
		return domain.ErrAlreadyExists
	}
	m.records[rec.SeasonID] = rec
	return nil
}

func (m *memManifests) GetBySeason(_ context.Context, seasonID string) (domain.ManifestRecord, error) {
	rec, ok := m.records[seasonID]
	if !ok {
		return domain.ManifestRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

type memSeasons struct {
	statuses map[string]domain.SeasonStatus
}

func (m *memSeasons) Upsert(_ context.Context, season domain.Season) error {
	m.statuses[season.ID] = season.Status
	return nil
}

func (m *memSeasons) Get(_ context.Context, id string) (domain.Season, error) {
	status, ok := m.statuses[id]
	if !ok {
		return domain.Season{}, domain.ErrNotFound
	}
	return domain.Season{ID: id, Status: status}, nil
}

func (m *memSeasons) ListRecent(_ context.Context, _ int) ([]domain.Season, error) {
	return nil, nil
}

func (m *memSeasons) SetStatus(_ context.Context, id string, status domain.SeasonStatus) error {
	m.statuses[id] = status
	return nil
}

type stubLocks struct {
	held     bool
	unlocked bool
}

func (l *stubLocks) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	return func() { l.unlocked = true }, nil
}

type memArchive struct {
	objects map[string][]byte
	err     error
}

func (a *memArchive) Put(_ context.Context, seasonID string, body []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.objects[seasonID] = body
	return "manifests/" + seasonID + ".json", nil
}

type memBus struct {
	published map[string][][]byte
	streamed  map[string][][]byte
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *memBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.streamed[stream] = append(b.streamed[stream], payload)
	return nil
}

func (b *memBus) StreamRead(_ context.Context, _ string, _ string, _ int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.events = append(n.events, event)
	return nil
}

type builderFixture struct {
	snapshots *stubSnapshots
	manifests *memManifests
	seasons   *memSeasons
	locks     *stubLocks
	archive   *memArchive
	bus       *memBus
	notifier  *recordingNotifier
	builder   *Builder
}

func newBuilderFixture(snap domain.ConsolationSnapshot) *builderFixture {
	f := &builderFixture{
		snapshots: &stubSnapshots{snap: snap},
		manifests: &memManifests{records: map[string]domain.ManifestRecord{}},
		seasons:   &memSeasons{statuses: map[string]domain.SeasonStatus{}},
		locks:     &stubLocks{},
		archive:   &memArchive{objects: map[string][]byte{}},
		bus:       &memBus{published: map[string][][]byte{}, streamed: map[string][][]byte{}},
		notifier:  &recordingNotifier{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.builder = NewBuilder(f.snapshots, f.manifests, f.seasons, f.locks,
		f.archive, f.bus, f.notifier, logger)
	return f
}

func buildSnapshot() domain.ConsolationSnapshot {
	return domain.ConsolationSnapshot{
		SeasonID: "s1",
		Participants: []domain.Participant{
			{Account: "0x1111111111111111111111111111111111111111", TicketCount: 2},
			{Account: "0x2222222222222222222222222222222222222222", TicketCount: 4},
			{Account: "0x3333333333333333333333333333333333333333", TicketCount: 4},
		},
		GrandWinner:          "0x3333333333333333333333333333333333333333",
		ConsolationPool:      big.NewInt(600),
		TotalTicketsSnapshot: 10,
		GrandWinnerTickets:   4,
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	f := newBuilderFixture(buildSnapshot())

	m, err := f.builder.Build(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, "s1", m.SeasonID)
	require.Len(t, m.Leaves, 2)
	require.NoError(t, Recompute(m))

	// Persisted record matches the returned manifest.
	rec := f.manifests.records["s1"]
	require.Equal(t, m.MerkleRoot, rec.MerkleRoot)
	require.Equal(t, 2, rec.LeafCount)
	require.Equal(t, big.NewInt(600), rec.TotalAmount)

	decoded, err := Decode(rec.Body)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	// Archive holds the same canonical bytes.
	require.Equal(t, rec.Body, f.archive.objects["s1"])

	// Status advanced and the lock was released.
	require.Equal(t, domain.SeasonBuilt, f.seasons.statuses["s1"])
	require.True(t, f.locks.unlocked)

	// Announced on channel, stream, and notifier.
	require.Len(t, f.bus.published[domain.ChannelManifestBuilt], 1)
	require.Len(t, f.bus.streamed[domain.ChannelManifestBuilt], 1)
	require.Equal(t, []string{domain.EventManifestBuilt}, f.notifier.events)
}

func TestBuildEmptyDistribution(t *testing.T) {
	t.Parallel()

	snap := buildSnapshot()
	snap.GrandWinnerTickets = snap.TotalTicketsSnapshot // winner held everything
	f := newBuilderFixture(snap)

	m, err := f.builder.Build(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, m.Leaves)
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000000", m.MerkleRoot)
	require.Zero(t, f.manifests.records["s1"].LeafCount)
}

func TestBuildLockHeld(t *testing.T) {
	t.Parallel()

	f := newBuilderFixture(buildSnapshot())
	f.locks.held = true

	_, err := f.builder.Build(context.Background(), "s1")
	require.ErrorIs(t, err, domain.ErrLockHeld)
	require.Empty(t, f.manifests.records)
}

func TestBuildAlreadyBuilt(t *testing.T) {
	t.Parallel()

	f := newBuilderFixture(buildSnapshot())
	_, err := f.builder.Build(context.Background(), "s1")
	require.NoError(t, err)

	_, err = f.builder.Build(context.Background(), "s1")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	require.Contains(t, f.notifier.events, domain.EventBuildFailed)
}

func TestBuildSnapshotFailure(t *testing.T) {
	t.Parallel()

	f := newBuilderFixture(buildSnapshot())
	f.snapshots.err = errors.New("rpc down")

	_, err := f.builder.Build(context.Background(), "s1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rpc down")
	require.True(t, f.locks.unlocked)
	require.Equal(t, []string{domain.EventBuildFailed}, f.notifier.events)
}

func TestBuildArchiveFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	f := newBuilderFixture(buildSnapshot())
	f.archive.err = errors.New("s3 down")

	m, err := f.builder.Build(context.Background(), "s1")
	require.NoError(t, err)
	require.NotEmpty(t, m.Leaves)
	require.Contains(t, f.manifests.records, "s1")
}

func TestBuildWithoutOptionalDependencies(t *testing.T) {
	t.Parallel()

	f := newBuilderFixture(buildSnapshot())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := NewBuilder(f.snapshots, f.manifests, f.seasons, f.locks,
		nil, nil, nil, logger)

	m, err := builder.Build(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, m.Leaves, 2)
}
