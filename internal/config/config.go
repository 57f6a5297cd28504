// Package config defines the top-level configuration for the raffle backend
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by RAFFLED_* environment variables.
type Config struct {
	Chain     ChainConfig     `toml:"chain"`
	Operator  OperatorConfig  `toml:"operator"`
	Paymaster PaymasterConfig `toml:"paymaster"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Quote     QuoteConfig     `toml:"quote"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
	SeasonID  string          `toml:"season_id"`
}

// ChainConfig holds RPC endpoint and contract addresses.
type ChainConfig struct {
	RPCURL            string `toml:"rpc_url"`
	ChainID           int64  `toml:"chain_id"`
	RafflePool        string `toml:"raffle_pool"`
	SeasonDistributor string `toml:"season_distributor"`
}

// OperatorConfig holds the operator signing key. Either the raw private key
// or an encrypted keyfile plus password must be provided for submit mode.
type OperatorConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PaymasterConfig holds the gas-sponsoring relay endpoint and its HMAC
// credentials.
type PaymasterConfig struct {
	URL         string   `toml:"url"`
	APIKey      string   `toml:"api_key"`
	HMACSecret  string   `toml:"hmac_secret"`
	ReceiptPoll duration `toml:"receipt_poll"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the manifest
// archive. Disabled means manifests live only in Postgres.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// QuoteConfig holds quote API parameters.
type QuoteConfig struct {
	// CacheTTL is how long a cached curve state stays fresh.
	CacheTTL duration `toml:"cache_ttl"`
	// DefaultSlippagePct is applied when a quote request omits slippage.
	DefaultSlippagePct float64 `toml:"default_slippage_pct"`
	// MaxAmount bounds the ticket amount for one quote; zero disables.
	MaxAmount uint64 `toml:"max_amount"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:  "http://localhost:8545",
			ChainID: 8453,
		},
		Paymaster: PaymasterConfig{
			ReceiptPoll: duration{2 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "raffled",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "raffled-manifests",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Quote: QuoteConfig{
			CacheTTL:           duration{15 * time.Second},
			DefaultSlippagePct: 0.5,
			MaxAmount:          100_000,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       120,
			RateLimitWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"manifest_built", "build_failed", "submission_result", "verify_result"},
		},
		Mode:     "api",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"api":    true,
	"build":  true,
	"submit": true,
	"verify": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)

	// Mode
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: api, build, submit, verify)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if mode == "api" {
		if c.Chain.RafflePool == "" {
			errs = append(errs, "chain: raffle_pool is required for api mode")
		} else if !common.IsHexAddress(c.Chain.RafflePool) {
			errs = append(errs, fmt.Sprintf("chain: raffle_pool %q is not a valid address", c.Chain.RafflePool))
		}
	}
	if mode == "build" || mode == "submit" {
		if c.Chain.SeasonDistributor == "" {
			errs = append(errs, "chain: season_distributor is required for mode "+mode)
		} else if !common.IsHexAddress(c.Chain.SeasonDistributor) {
			errs = append(errs, fmt.Sprintf("chain: season_distributor %q is not a valid address", c.Chain.SeasonDistributor))
		}
	}

	// Season-scoped job modes need a season to operate on.
	if (mode == "build" || mode == "submit" || mode == "verify") && c.SeasonID == "" {
		errs = append(errs, "season_id is required for mode "+mode+" (set it in config or via -season)")
	}

	// Operator key — required for submit mode.
	if mode == "submit" {
		if c.Operator.PrivateKey == "" && c.Operator.EncryptedKeyPath == "" {
			errs = append(errs, "operator: either private_key or encrypted_key_path must be set for submit mode")
		}
		if c.Operator.EncryptedKeyPath != "" && c.Operator.KeyPassword == "" {
			errs = append(errs, "operator: key_password is required when encrypted_key_path is set")
		}
		if c.Paymaster.URL == "" {
			errs = append(errs, "paymaster: url is required for submit mode")
		}
		pk := c.Paymaster.APIKey != ""
		ps := c.Paymaster.HMACSecret != ""
		if pk != ps {
			errs = append(errs, "paymaster: api_key and hmac_secret must be set together")
		}
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Quote
	if c.Quote.DefaultSlippagePct < 0 || c.Quote.DefaultSlippagePct > 100 {
		errs = append(errs, fmt.Sprintf("quote: default_slippage_pct must be 0-100, got %g", c.Quote.DefaultSlippagePct))
	}

	// Server
	if mode == "api" && c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
