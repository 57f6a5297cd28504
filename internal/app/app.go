// Package app provides the top-level application lifecycle management for the
// raffle backend. It wires together all dependencies (stores, caches, chain
// access, blob storage, and notifications) and runs the configured operating
// mode: the quote/distribution API or one of the season lifecycle jobs.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raffleworks/raffled/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, and runs it to completion. The API mode blocks until the
// context is cancelled; the job modes run once and return.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
		slog.String("season_id", a.cfg.SeasonID),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	mode := strings.ToLower(a.cfg.Mode)
	switch mode {
	case "api":
		return a.APIMode(ctx, deps)
	case "build":
		return a.BuildMode(ctx, deps)
	case "submit":
		return a.SubmitMode(ctx, deps)
	case "verify":
		return a.VerifyMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
