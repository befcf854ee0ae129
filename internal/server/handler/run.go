package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/verifychain/verifychain/internal/domain"
)

// RunReader defines the run history reads the run handler requires.
type RunReader interface {
	Get(ctx context.Context, id string) (*domain.VerificationRun, error)
	List(ctx context.Context, opts domain.ListOpts) ([]*domain.VerificationRun, error)
}

// RunHandler serves the persisted verification run history.
type RunHandler struct {
	runs   RunReader
	logger *slog.Logger
}

// NewRunHandler creates a RunHandler with the given store and logger.
func NewRunHandler(runs RunReader, logger *slog.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: logger}
}

// ListRuns returns verification runs newest first.
// GET /api/runs
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	if runs == nil {
		runs = []*domain.VerificationRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns a single verification run by id.
// GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing run id")
		return
	}

	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
