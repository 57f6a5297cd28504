package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/raffleworks/raffled/internal/blob/s3"
	"github.com/raffleworks/raffled/internal/cache/redis"
	"github.com/raffleworks/raffled/internal/chain"
	"github.com/raffleworks/raffled/internal/config"
	"github.com/raffleworks/raffled/internal/crypto"
	"github.com/raffleworks/raffled/internal/domain"
	"github.com/raffleworks/raffled/internal/notify"
	paymasterrelay "github.com/raffleworks/raffled/internal/platform/paymaster"
	"github.com/raffleworks/raffled/internal/store/postgres"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function. Mode-gated fields are nil when the mode does not need them.
type Dependencies struct {
	// Stores
	SeasonStore     domain.SeasonStore
	ManifestStore   domain.ManifestStore
	SubmissionStore domain.SubmissionStore

	// Caches
	CurveCache  domain.CurveCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	EventBus    domain.EventBus

	// Chain access
	Chain *chain.Client

	// Paymaster relay
	Relay *paymasterrelay.Client

	// Manifest archive (nil when S3 is disabled)
	Archive *s3blob.ManifestArchive

	// Notifications
	Notifier *notify.Notifier
}

// needsChain returns true for modes that read from or submit through the
// chain. Verify recomputes everything locally from stored bytes.
func needsChain(mode string) bool {
	switch mode {
	case "api", "build", "submit":
		return true
	default:
		return false
	}
}

// needsPaymaster returns true for modes that talk to the sponsoring relay.
func needsPaymaster(mode string) bool {
	return mode == "submit"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	// Run migrations if enabled.
	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.SeasonStore = postgres.NewSeasonStore(pool)
	deps.ManifestStore = postgres.NewManifestStore(pool)
	deps.SubmissionStore = postgres.NewSubmissionStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.CurveCache = redis.NewCurveCache(redisClient, cfg.Quote.CacheTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.EventBus = redis.NewEventBus(redisClient)

	// --- Chain ---
	if needsChain(mode) {
		chainClient, err := chain.Dial(ctx, chain.Config{
			RPCURL:  cfg.Chain.RPCURL,
			ChainID: cfg.Chain.ChainID,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		closers = append(closers, chainClient.Close)
		deps.Chain = chainClient
	}

	// --- Paymaster relay ---
	if needsPaymaster(mode) {
		var auth *crypto.HMACAuth
		if cfg.Paymaster.APIKey != "" {
			auth = &crypto.HMACAuth{
				Key:    cfg.Paymaster.APIKey,
				Secret: cfg.Paymaster.HMACSecret,
			}
		}
		deps.Relay = paymasterrelay.New(cfg.Paymaster.URL, auth)
	}

	// --- Manifest archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archive = s3blob.NewManifestArchive(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
