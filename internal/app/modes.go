package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/raffleworks/raffled/internal/chain"
	"github.com/raffleworks/raffled/internal/crypto"
	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/manifest"
	"github.com/raffleworks/raffled/internal/paymaster"
	"github.com/raffleworks/raffled/internal/server"
	"github.com/raffleworks/raffled/internal/server/handler"
	"github.com/raffleworks/raffled/internal/service"
)

// shutdownGrace is how long in-flight HTTP requests get to finish.
const shutdownGrace = 10 * time.Second

// APIMode runs the quote and distribution HTTP API until the context is
// cancelled.
func (a *App) APIMode(ctx context.Context, deps *Dependencies) error {
	if !a.cfg.Server.Enabled {
		return fmt.Errorf("app: api mode requires server.enabled")
	}

	a.logger.InfoContext(ctx, "starting api mode",
		slog.Int("port", a.cfg.Server.Port),
	)

	pool := common.HexToAddress(a.cfg.Chain.RafflePool)

	quoteSvc := service.NewQuoteService(
		deps.Chain, deps.CurveCache, pool,
		a.cfg.Quote.MaxAmount, a.cfg.Quote.DefaultSlippagePct,
		a.logger,
	)
	distSvc := service.NewDistributionService(deps.SeasonStore, deps.ManifestStore)

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Status:  handler.NewStatusHandler(a.cfg.Mode, a.cfg.Chain.ChainID, pool.Hex(), a.cfg.Chain.SeasonDistributor),
		Quotes:  handler.NewQuoteHandler(quoteSvc, a.logger),
		Seasons: handler.NewSeasonHandler(distSvc, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// chainSnapshots adapts the chain client to the builder's snapshot source.
// It also upserts the season row from the snapshot so later status updates
// have a row to land on.
type chainSnapshots struct {
	chain       *chain.Client
	distributor common.Address
	seasons     domain.SeasonStore
	logger      *slog.Logger
}

func (cs *chainSnapshots) Snapshot(ctx context.Context, seasonID string) (domain.ConsolationSnapshot, error) {
	snap, err := cs.chain.Snapshot(ctx, cs.distributor, seasonID)
	if err != nil {
		return domain.ConsolationSnapshot{}, err
	}

	now := time.Now().UTC()
	season := domain.Season{
		ID:                 snap.SeasonID,
		Status:             domain.SeasonFinalized,
		GrandWinner:        snap.GrandWinner,
		ConsolationPool:    snap.ConsolationPool,
		TotalTickets:       snap.TotalTicketsSnapshot,
		GrandWinnerTickets: snap.GrandWinnerTickets,
		FinalizedAt:        &now,
	}
	if err := cs.seasons.Upsert(ctx, season); err != nil {
		cs.logger.WarnContext(ctx, "season upsert from snapshot failed",
			slog.String("season_id", seasonID),
			slog.String("error", err.Error()),
		)
	}

	return snap, nil
}

// BuildMode runs the one-shot manifest build for the configured season.
func (a *App) BuildMode(ctx context.Context, deps *Dependencies) error {
	seasonID := a.cfg.SeasonID
	a.logger.InfoContext(ctx, "starting build mode",
		slog.String("season_id", seasonID),
	)

	snapshots := &chainSnapshots{
		chain:       deps.Chain,
		distributor: common.HexToAddress(a.cfg.Chain.SeasonDistributor),
		seasons:     deps.SeasonStore,
		logger:      a.logger,
	}

	// Interface-typed nils must stay nil, not wrap a nil pointer.
	var archive manifest.Archive
	if deps.Archive != nil {
		archive = deps.Archive
	}
	var notifier manifest.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}

	builder := manifest.NewBuilder(
		snapshots, deps.ManifestStore, deps.SeasonStore, deps.LockManager,
		archive, deps.EventBus, notifier, a.logger,
	)

	m, err := builder.Build(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("app: build season %s: %w", seasonID, err)
	}

	a.logger.InfoContext(ctx, "build complete",
		slog.String("season_id", seasonID),
		slog.String("merkle_root", m.MerkleRoot),
		slog.Int("leaves", len(m.Leaves)),
	)
	return nil
}

// SubmitMode signs the built root for the configured season and drives it
// through the paymaster relay with bounded retries. The outcome is recorded
// whether or not the submission succeeded.
func (a *App) SubmitMode(ctx context.Context, deps *Dependencies) error {
	seasonID := a.cfg.SeasonID
	a.logger.InfoContext(ctx, "starting submit mode",
		slog.String("season_id", seasonID),
	)

	rec, err := deps.ManifestStore.GetBySeason(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("app: load manifest for season %s: %w", seasonID, err)
	}
	root := common.HexToHash(rec.MerkleRoot)

	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Operator.PrivateKey,
		EncryptedKeyPath: a.cfg.Operator.EncryptedKeyPath,
		KeyPassword:      a.cfg.Operator.KeyPassword,
	})
	if err != nil {
		return fmt.Errorf("app: load operator key: %w", err)
	}
	signer, err := crypto.NewSigner(keyHex)
	if err != nil {
		return fmt.Errorf("app: operator signer: %w", err)
	}

	sig, err := signer.SignRootSubmission(seasonID, root)
	if err != nil {
		return fmt.Errorf("app: sign root for season %s: %w", seasonID, err)
	}

	data, err := deps.Chain.SubmitRootCalldata(seasonID, root)
	if err != nil {
		return fmt.Errorf("app: build calldata for season %s: %w", seasonID, err)
	}

	sub := domain.RootSubmission{
		SeasonID:  seasonID,
		To:        common.HexToAddress(a.cfg.Chain.SeasonDistributor),
		Data:      data,
		Signature: sig,
	}

	retrier := paymaster.NewRetrier(deps.Relay, deps.Chain, a.logger,
		paymaster.WithReceiptPoll(a.cfg.Paymaster.ReceiptPoll.Duration),
	)
	result := retrier.Submit(ctx, sub)

	txHash := ""
	if result.TxHash != nil {
		txHash = result.TxHash.Hex()
	}
	record := domain.SubmissionRecord{
		SeasonID:    seasonID,
		MerkleRoot:  rec.MerkleRoot,
		TxHash:      txHash,
		Success:     result.Success,
		Attempts:    result.Attempts,
		Error:       result.Error,
		SubmittedAt: time.Now().UTC(),
	}
	if err := deps.SubmissionStore.Insert(ctx, record); err != nil {
		a.logger.ErrorContext(ctx, "record submission outcome failed",
			slog.String("season_id", seasonID),
			slog.String("error", err.Error()),
		)
	}

	a.announceSubmission(ctx, deps, seasonID, rec.MerkleRoot, result)

	if !result.Success {
		return fmt.Errorf("app: submit season %s failed after %d attempts: %s",
			seasonID, result.Attempts, result.Error)
	}

	if err := deps.SeasonStore.SetStatus(ctx, seasonID, domain.SeasonSubmitted); err != nil {
		a.logger.WarnContext(ctx, "season status update failed",
			slog.String("season_id", seasonID),
			slog.String("status", string(domain.SeasonSubmitted)),
			slog.String("error", err.Error()),
		)
	}

	a.logger.InfoContext(ctx, "submit complete",
		slog.String("season_id", seasonID),
		slog.String("tx_hash", txHash),
		slog.Int("attempts", result.Attempts),
	)
	return nil
}

func (a *App) announceSubmission(ctx context.Context, deps *Dependencies, seasonID, root string, result domain.SubmissionResult) {
	txHash := ""
	if result.TxHash != nil {
		txHash = result.TxHash.Hex()
	}

	if deps.EventBus != nil {
		payload, _ := json.Marshal(map[string]any{
			"seasonId":   seasonID,
			"merkleRoot": root,
			"txHash":     txHash,
			"success":    result.Success,
			"attempts":   result.Attempts,
			"error":      result.Error,
		})
		if err := deps.EventBus.Publish(ctx, domain.ChannelRootSubmitted, payload); err != nil {
			a.logger.WarnContext(ctx, "publish submission event failed",
				slog.String("season_id", seasonID),
				slog.String("error", err.Error()),
			)
		}
	}

	if deps.Notifier != nil {
		title := "Root submitted"
		msg := fmt.Sprintf("season %s: root %s, tx %s, %d attempt(s)", seasonID, root, txHash, result.Attempts)
		if !result.Success {
			title = "Root submission failed"
			msg = fmt.Sprintf("season %s: %s (%d attempts)", seasonID, result.Error, result.Attempts)
		}
		if err := deps.Notifier.Notify(ctx, domain.EventSubmissionResult, title, msg); err != nil {
			a.logger.WarnContext(ctx, "notify submission result failed",
				slog.String("season_id", seasonID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// VerifyMode audits the stored manifest for the configured season: the bytes
// must decode, every proof must verify against the recomputed root, and the
// archived copy (when present) must match the database bit-for-bit.
func (a *App) VerifyMode(ctx context.Context, deps *Dependencies) error {
	seasonID := a.cfg.SeasonID
	a.logger.InfoContext(ctx, "starting verify mode",
		slog.String("season_id", seasonID),
	)

	rec, err := deps.ManifestStore.GetBySeason(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("app: load manifest for season %s: %w", seasonID, err)
	}

	if deps.Archive != nil {
		archived, err := deps.Archive.Get(ctx, seasonID)
		if err != nil {
			a.logger.WarnContext(ctx, "archived manifest unavailable",
				slog.String("season_id", seasonID),
				slog.String("error", err.Error()),
			)
		} else if !bytes.Equal(archived, rec.Body) {
			a.notifyVerify(ctx, deps, seasonID, false, "archived bytes differ from database")
			return fmt.Errorf("app: verify season %s: archived bytes differ from database: %w",
				seasonID, domain.ErrManifestMismatch)
		}
	}

	m, err := manifest.Decode(rec.Body)
	if err != nil {
		a.notifyVerify(ctx, deps, seasonID, false, err.Error())
		return fmt.Errorf("app: verify season %s: %w", seasonID, err)
	}
	if !strings.EqualFold(m.MerkleRoot, rec.MerkleRoot) {
		a.notifyVerify(ctx, deps, seasonID, false, "manifest root differs from record")
		return fmt.Errorf("app: verify season %s: manifest root %s differs from record %s: %w",
			seasonID, m.MerkleRoot, rec.MerkleRoot, domain.ErrManifestMismatch)
	}

	if err := manifest.Recompute(m); err != nil {
		a.notifyVerify(ctx, deps, seasonID, false, err.Error())
		return fmt.Errorf("app: verify season %s: %w", seasonID, err)
	}

	if err := deps.SeasonStore.SetStatus(ctx, seasonID, domain.SeasonVerified); err != nil {
		a.logger.WarnContext(ctx, "season status update failed",
			slog.String("season_id", seasonID),
			slog.String("status", string(domain.SeasonVerified)),
			slog.String("error", err.Error()),
		)
	}

	if deps.EventBus != nil {
		payload, _ := json.Marshal(map[string]any{
			"seasonId":   seasonID,
			"merkleRoot": rec.MerkleRoot,
			"verified":   true,
		})
		if err := deps.EventBus.Publish(ctx, domain.ChannelVerified, payload); err != nil {
			a.logger.WarnContext(ctx, "publish verify event failed",
				slog.String("season_id", seasonID),
				slog.String("error", err.Error()),
			)
		}
	}
	a.notifyVerify(ctx, deps, seasonID, true, "")

	a.logger.InfoContext(ctx, "verify complete",
		slog.String("season_id", seasonID),
		slog.String("merkle_root", rec.MerkleRoot),
		slog.Int("leaves", rec.LeafCount),
	)
	return nil
}

func (a *App) notifyVerify(ctx context.Context, deps *Dependencies, seasonID string, ok bool, detail string) {
	if deps.Notifier == nil {
		return
	}
	title := "Manifest verified"
	msg := fmt.Sprintf("season %s: manifest verified against recomputed root", seasonID)
	if !ok {
		title = "Manifest verification failed"
		msg = fmt.Sprintf("season %s: %s", seasonID, detail)
	}
	if err := deps.Notifier.Notify(ctx, domain.EventVerifyResult, title, msg); err != nil {
		a.logger.WarnContext(ctx, "notify verify result failed",
			slog.String("season_id", seasonID),
			slog.String("error", err.Error()),
		)
	}
}
