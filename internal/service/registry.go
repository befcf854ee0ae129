// Package service holds the read-model and distribution services layered
// between the HTTP surface and the ledger gateway.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/verifychain/verifychain/internal/domain"
)

// LedgerReader is the read surface of the ledger gateway the registry
// rebuilds its window from.
type LedgerReader interface {
	NextAssetID(ctx context.Context) (int64, error)
	Asset(ctx context.Context, id int64) (domain.Asset, error)
	BalanceOf(ctx context.Context, address string) (int64, error)
}

// WindowChannel is the signal bus channel window rebuilds are announced on.
const WindowChannel = "registry.window"

// RegistryService maintains the bounded read-through view of the most
// recently minted assets. Each refresh is a full re-read of the window from
// the ledger; there is no incremental update. Overlapping refreshes may
// race, with the most recently completed one winning the displayed window.
type RegistryService struct {
	ledger   LedgerReader
	assets   domain.AssetCache
	balances domain.BalanceCache
	bus      domain.SignalBus
	size     int
	logger   *slog.Logger

	mu      sync.RWMutex
	current domain.RegistryWindow
}

// NewRegistryService creates a RegistryService with a window of size assets.
// A non-positive size falls back to the default of 3. The asset cache,
// balance cache, and bus may be nil; the service then serves directly off
// the ledger.
func NewRegistryService(ledger LedgerReader, assets domain.AssetCache, balances domain.BalanceCache, bus domain.SignalBus, size int, logger *slog.Logger) *RegistryService {
	if size <= 0 {
		size = 3
	}
	return &RegistryService{
		ledger:   ledger,
		assets:   assets,
		balances: balances,
		bus:      bus,
		size:     size,
		logger:   logger.With(slog.String("component", "registry")),
	}
}

// Refresh rebuilds the window: it reads the ledger's asset counter, then
// fetches each of the most recent ids newest first. A per-id read error is
// skipped rather than failing the whole refresh; the id is treated as not
// minted yet, and the error is logged so a mid-window fault stays visible.
// An empty ledger yields an empty window, never an error.
func (s *RegistryService) Refresh(ctx context.Context) (domain.RegistryWindow, error) {
	next, err := s.ledger.NextAssetID(ctx)
	if err != nil {
		return domain.RegistryWindow{}, fmt.Errorf("registry: refresh: %w", err)
	}

	window := domain.RegistryWindow{
		NextAssetID: next,
		RefreshedAt: time.Now().UTC(),
	}

	for id := next; id >= 1 && id > next-int64(s.size); id-- {
		asset, err := s.ledger.Asset(ctx, id)
		if err != nil {
			s.logger.DebugContext(ctx, "skipping unreadable asset",
				slog.Int64("asset_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		window.Assets = append(window.Assets, asset)

		if s.assets != nil {
			if cacheErr := s.assets.Set(ctx, asset); cacheErr != nil {
				s.logger.WarnContext(ctx, "asset cache set failed",
					slog.Int64("asset_id", id),
					slog.String("error", cacheErr.Error()),
				)
			}
		}
	}

	s.mu.Lock()
	s.current = window
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "registry window rebuilt",
		slog.Int64("next_asset_id", next),
		slog.Int("assets", len(window.Assets)),
	)
	s.announce(ctx, window)

	return window, nil
}

// Window returns the most recently completed refresh. A zero window means no
// refresh has completed yet.
func (s *RegistryService) Window() domain.RegistryWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Asset returns one asset record, serving from the cache when possible and
// falling back to the ledger on a miss. Ids beyond the current count resolve
// to domain.ErrNotFound.
func (s *RegistryService) Asset(ctx context.Context, id int64) (domain.Asset, error) {
	if s.assets != nil {
		if asset, err := s.assets.Get(ctx, id); err == nil {
			return asset, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "asset cache get failed",
				slog.Int64("asset_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	asset, err := s.ledger.Asset(ctx, id)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("registry: asset %d: %w", id, err)
	}

	if s.assets != nil {
		if cacheErr := s.assets.Set(ctx, asset); cacheErr != nil {
			s.logger.WarnContext(ctx, "asset cache set failed",
				slog.Int64("asset_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return asset, nil
}

// Balance returns an account's token balance, cache-first with a ledger
// fallback.
func (s *RegistryService) Balance(ctx context.Context, address string) (int64, error) {
	if s.balances != nil {
		if balance, err := s.balances.Get(ctx, address); err == nil {
			return balance, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "balance cache get failed",
				slog.String("address", address),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.RefreshBalance(ctx, address)
}

// RefreshBalance re-reads an account's balance from the ledger and updates
// the cache, bypassing any cached copy.
func (s *RegistryService) RefreshBalance(ctx context.Context, address string) (int64, error) {
	balance, err := s.ledger.BalanceOf(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("registry: balance of %s: %w", address, err)
	}

	if s.balances != nil {
		if cacheErr := s.balances.Set(ctx, address, balance); cacheErr != nil {
			s.logger.WarnContext(ctx, "balance cache set failed",
				slog.String("address", address),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return balance, nil
}

// announce publishes the rebuilt window on the signal bus so streaming
// clients can re-render without polling.
func (s *RegistryService) announce(ctx context.Context, window domain.RegistryWindow) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(window)
	if err != nil {
		return
	}
	if pubErr := s.bus.Publish(ctx, WindowChannel, payload); pubErr != nil {
		s.logger.DebugContext(ctx, "window publish failed",
			slog.String("error", pubErr.Error()),
		)
	}
}
