package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verifychain/verifychain/internal/domain"
	"github.com/verifychain/verifychain/internal/server"
	"github.com/verifychain/verifychain/internal/server/handler"
	"github.com/verifychain/verifychain/internal/server/ws"
)

// shutdownGrace bounds how long the HTTP server drains in-flight requests
// after the context is cancelled.
const shutdownGrace = 10 * time.Second

// ServerMode runs the HTTP + WebSocket API server until the context is
// cancelled. The registry window is warmed once on startup; a cold ledger is
// not fatal, the first /api/assets request retries the refresh.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	if _, err := deps.Registry.Refresh(ctx); err != nil {
		a.logger.WarnContext(ctx, "initial registry refresh failed",
			slog.String("error", err.Error()),
		)
	}

	pingers := make(map[string]handler.Pinger, len(deps.HealthChecks))
	for name, check := range deps.HealthChecks {
		pingers[name] = check
	}

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(pingers),
		Verify:   handler.NewVerifyHandler(deps.Orchestrator, a.logger),
		Assets:   handler.NewAssetHandler(deps.Registry, a.logger),
		Transfer: handler.NewTransferHandler(deps.Distribution, a.logger),
	}
	if deps.RunStore != nil {
		handlers.Runs = handler.NewRunHandler(deps.RunStore, a.logger)
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	if hub != nil {
		g.Go(func() error {
			return hub.Run(gctx)
		})
	}

	g.Go(func() error {
		a.logger.InfoContext(gctx, "http server listening",
			slog.Int("port", a.cfg.Server.Port),
		)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// VerifyMode runs the pipeline once against a document on disk, prints the
// completed run as JSON to stdout, and optionally mints when the run passed.
func (a *App) VerifyMode(ctx context.Context, deps *Dependencies) error {
	if a.verifyFile == "" {
		return fmt.Errorf("app: %w: no document path supplied", domain.ErrInputMissing)
	}

	payload, err := os.ReadFile(a.verifyFile)
	if err != nil {
		return fmt.Errorf("app: read document %s: %w", a.verifyFile, err)
	}
	doc := domain.BondDocument{
		Filename: filepath.Base(a.verifyFile),
		Payload:  payload,
	}

	run, err := deps.Orchestrator.Analyze(ctx, doc)
	if err != nil {
		return fmt.Errorf("app: verify: %w", err)
	}

	out, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("app: encode run: %w", err)
	}
	fmt.Println(string(out))

	if run.Verdict != domain.VerdictPass {
		a.logger.InfoContext(ctx, "verification did not pass, skipping mint",
			slog.String("run_id", run.ID),
			slog.Int("trust_score", run.TrustScore),
		)
		return nil
	}
	if !a.mintOnPass {
		return nil
	}
	if run.Analysis == nil || run.Oracle == nil {
		return fmt.Errorf("app: mint: run %s passed without analysis or oracle data", run.ID)
	}

	id, err := deps.Orchestrator.Mint(ctx, *run.Analysis, *run.Oracle, run.ContentHash, run.IPFSRef)
	if err != nil {
		return fmt.Errorf("app: mint: %w", err)
	}
	a.logger.InfoContext(ctx, "asset minted",
		slog.Int64("asset_id", id),
		slog.String("run_id", run.ID),
	)
	fmt.Printf("minted asset %d\n", id)
	return nil
}
