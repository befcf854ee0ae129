// Package app provides top-level application lifecycle management for the
// verifychain service. It wires the ledger gateway, external service
// adapters, stores, caches, and notifications together and runs the selected
// operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verifychain/verifychain/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()

	// verifyFile is the document analyzed in verify mode.
	verifyFile string
	// mintOnPass controls whether verify mode mints after a passing run.
	mintOnPass bool
}

// Option configures the App.
type Option func(*App)

// WithVerifyFile sets the document path analyzed in verify mode.
func WithVerifyFile(path string) Option { return func(a *App) { a.verifyFile = path } }

// WithMintOnPass makes verify mode mint the asset when the run passes.
func WithMintOnPass(mint bool) Option { return func(a *App) { a.mintOnPass = mint } }

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run wires all dependencies for the configured mode, starts it, and blocks
// until the context is cancelled or the mode finishes. Cleanup functions run
// when Close is called.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "server":
		return a.ServerMode(ctx, deps)
	case "verify":
		return a.VerifyMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
