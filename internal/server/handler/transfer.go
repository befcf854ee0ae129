package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/verifychain/verifychain/internal/domain"
)

// TransferService defines the distribution operation the transfer handler
// requires.
type TransferService interface {
	SubmitTransfer(ctx context.Context, req domain.TransferRequest) error
}

// TransferHandler serves token distribution endpoints.
type TransferHandler struct {
	distribution TransferService
	logger       *slog.Logger
}

// NewTransferHandler creates a TransferHandler with the given service and
// logger.
func NewTransferHandler(distribution TransferService, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{distribution: distribution, logger: logger}
}

// Transfer validates and submits a token transfer, blocking until the ledger
// confirms it.
// POST /api/transfer
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed transfer request")
		return
	}

	if err := h.distribution.SubmitTransfer(r.Context(), req); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: transfer failed",
			slog.String("recipient", req.Recipient),
			slog.Int64("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"confirmed": true,
		"recipient": req.Recipient,
		"amount":    req.Amount,
	})
}
