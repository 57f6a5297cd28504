package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies RAFFLED_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known RAFFLED_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "RAFFLED_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "RAFFLED_CHAIN_CHAIN_ID")
	setStr(&cfg.Chain.RafflePool, "RAFFLED_CHAIN_RAFFLE_POOL")
	setStr(&cfg.Chain.SeasonDistributor, "RAFFLED_CHAIN_SEASON_DISTRIBUTOR")

	// ── Operator ──
	setStr(&cfg.Operator.PrivateKey, "RAFFLED_OPERATOR_PRIVATE_KEY")
	setStr(&cfg.Operator.EncryptedKeyPath, "RAFFLED_OPERATOR_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Operator.KeyPassword, "RAFFLED_OPERATOR_KEY_PASSWORD")

	// ── Paymaster ──
	setStr(&cfg.Paymaster.URL, "RAFFLED_PAYMASTER_URL")
	setStr(&cfg.Paymaster.APIKey, "RAFFLED_PAYMASTER_API_KEY")
	setStr(&cfg.Paymaster.HMACSecret, "RAFFLED_PAYMASTER_HMAC_SECRET")
	setDuration(&cfg.Paymaster.ReceiptPoll, "RAFFLED_PAYMASTER_RECEIPT_POLL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "RAFFLED_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "RAFFLED_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "RAFFLED_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "RAFFLED_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "RAFFLED_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "RAFFLED_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "RAFFLED_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "RAFFLED_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "RAFFLED_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "RAFFLED_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "RAFFLED_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "RAFFLED_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "RAFFLED_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "RAFFLED_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "RAFFLED_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "RAFFLED_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "RAFFLED_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "RAFFLED_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "RAFFLED_S3_REGION")
	setStr(&cfg.S3.Bucket, "RAFFLED_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "RAFFLED_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "RAFFLED_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "RAFFLED_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "RAFFLED_S3_FORCE_PATH_STYLE")

	// ── Quote ──
	setDuration(&cfg.Quote.CacheTTL, "RAFFLED_QUOTE_CACHE_TTL")
	setFloat64(&cfg.Quote.DefaultSlippagePct, "RAFFLED_QUOTE_DEFAULT_SLIPPAGE_PCT")
	setUint64(&cfg.Quote.MaxAmount, "RAFFLED_QUOTE_MAX_AMOUNT")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "RAFFLED_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "RAFFLED_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "RAFFLED_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "RAFFLED_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "RAFFLED_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "RAFFLED_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "RAFFLED_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "RAFFLED_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "RAFFLED_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "RAFFLED_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "RAFFLED_MODE")
	setStr(&cfg.LogLevel, "RAFFLED_LOG_LEVEL")
	setStr(&cfg.SeasonID, "RAFFLED_SEASON_ID")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
