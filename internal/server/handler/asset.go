package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/verifychain/verifychain/internal/domain"
)

// RegistryService defines the read-model operations the asset handler
// requires.
type RegistryService interface {
	Refresh(ctx context.Context) (domain.RegistryWindow, error)
	Window() domain.RegistryWindow
	Asset(ctx context.Context, id int64) (domain.Asset, error)
	Balance(ctx context.Context, address string) (int64, error)
	RefreshBalance(ctx context.Context, address string) (int64, error)
}

// AssetHandler serves the registry window, individual assets, and balances.
type AssetHandler struct {
	registry RegistryService
	logger   *slog.Logger
}

// NewAssetHandler creates an AssetHandler with the given service and logger.
func NewAssetHandler(registry RegistryService, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{registry: registry, logger: logger}
}

// ListAssets returns the registry window. Pass refresh=1 to force a full
// rebuild from the ledger; otherwise the most recently completed refresh is
// served, rebuilding only when no refresh has happened yet.
// GET /api/assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	window := h.registry.Window()

	if r.URL.Query().Get("refresh") == "1" || window.RefreshedAt.IsZero() {
		fresh, err := h.registry.Refresh(r.Context())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "handler: registry refresh failed",
				slog.String("error", err.Error()),
			)
			writeDomainError(w, err)
			return
		}
		window = fresh
	}

	if window.Assets == nil {
		window.Assets = []domain.Asset{}
	}
	writeJSON(w, http.StatusOK, window)
}

// GetAsset returns a single asset record by id.
// GET /api/assets/{id}
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "asset id must be a positive integer")
		return
	}

	asset, err := h.registry.Asset(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// GetBalance returns an account's token balance. Pass refresh=1 to bypass
// the cache and re-read from the ledger.
// GET /api/balance/{address}
func (h *AssetHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing account address")
		return
	}

	var (
		balance int64
		err     error
	)
	if r.URL.Query().Get("refresh") == "1" {
		balance, err = h.registry.RefreshBalance(r.Context(), address)
	} else {
		balance, err = h.registry.Balance(r.Context(), address)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": address,
		"balance": balance,
	})
}
