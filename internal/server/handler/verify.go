package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/verifychain/verifychain/internal/domain"
)

// maxDocumentSize caps uploaded certificate payloads at 16 MiB.
const maxDocumentSize = 16 << 20

// VerifyService defines the pipeline operations the verify handler requires.
type VerifyService interface {
	Analyze(ctx context.Context, doc domain.BondDocument) (domain.VerificationRun, error)
	Mint(ctx context.Context, analysis domain.AnalysisResult, snap domain.OracleSnapshot, contentHash, ipfsRef string) (int64, error)
}

// VerifyHandler serves document verification and minting endpoints.
type VerifyHandler struct {
	pipeline VerifyService
	logger   *slog.Logger
}

// NewVerifyHandler creates a VerifyHandler with the given service and logger.
func NewVerifyHandler(pipeline VerifyService, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{pipeline: pipeline, logger: logger}
}

// Verify accepts a multipart document upload, runs it through the pipeline,
// and returns the finished run record. A failed reserve check comes back
// 200 with verdict "fail"; only classified pipeline errors map to error
// statuses.
// POST /api/verify
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing document: multipart field \"file\" required")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading document payload failed")
		return
	}

	doc := domain.BondDocument{
		Filename: header.Filename,
		Payload:  payload,
	}

	run, err := h.pipeline.Analyze(r.Context(), doc)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: verification failed",
			slog.String("run_id", run.ID),
			slog.String("filename", doc.Filename),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// mintRequest is the wire format for a mint submission. The caller passes
// back the analysis result and oracle snapshot from a passed verification
// run, together with the document references that anchor the asset record.
type mintRequest struct {
	Analysis    domain.AnalysisResult `json:"analysis"`
	Oracle      domain.OracleSnapshot `json:"oracle"`
	ContentHash string                `json:"content_hash"`
	IPFSRef     string                `json:"ipfs_ref"`
}

// Mint submits a verified bond's metadata to the ledger and returns the
// ledger-assigned asset id once the transaction confirms.
// POST /api/mint
func (h *VerifyHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed mint request")
		return
	}

	id, err := h.pipeline.Mint(r.Context(), req.Analysis, req.Oracle, req.ContentHash, req.IPFSRef)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: mint failed",
			slog.String("isin", req.Analysis.ISIN),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"asset_id": id})
}
