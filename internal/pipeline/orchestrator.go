// Package pipeline implements the staged verification workflow that gates
// bond tokenization: document analysis, reserve check, market oracle
// cross-check, and a local audit, accumulating a trust score along the way.
// Each submission runs as an isolated pipeline run; concurrent submissions
// share nothing but the adapters they call through.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/verifychain/verifychain/internal/domain"
)

// Analyzer extracts structured bond metadata from a document payload.
type Analyzer interface {
	Analyze(ctx context.Context, doc domain.BondDocument) (domain.AnalysisResult, error)
}

// RateSource provides the live benchmark yield for an instrument symbol.
type RateSource interface {
	Snapshot(ctx context.Context, symbol string) (domain.OracleSnapshot, error)
}

// Minter creates asset records on the ledger. ContractAddress feeds the
// audit stage's well-formedness check.
type Minter interface {
	CreateAsset(ctx context.Context, name, isin string, faceValue, yieldBps int64, contentHash, ipfsRef string) (int64, error)
	ContractAddress() string
}

// Pinner pins a document payload to content-addressed storage. Pinning is
// best-effort; a pin failure degrades the asset record, never the run.
type Pinner interface {
	PinFile(ctx context.Context, filename string, payload []byte) (string, error)
}

// Refresher rebuilds the registry window after a confirmed mint.
type Refresher interface {
	Refresh(ctx context.Context) (domain.RegistryWindow, error)
}

// Notifier delivers operator alerts for pipeline outcomes. Alerts are
// best-effort side effects.
type Notifier interface {
	AssetMinted(ctx context.Context, id int64, name, isin string) error
	VerificationFailed(ctx context.Context, runID, reason string) error
}

// Orchestrator owns the pipeline state machine. Analyze drives one document
// through the four trust stages; Mint submits the resulting metadata to the
// ledger. Both are safe for concurrent use: all per-submission state lives in
// the run record threaded through the call.
type Orchestrator struct {
	analyzer Analyzer
	rates    RateSource
	symbol   string
	minter   Minter

	// Optional collaborators; each is skipped when nil.
	pinner   Pinner
	archive  domain.DocumentArchive
	runs     domain.RunStore
	bus      domain.SignalBus
	refresh  Refresher
	notifier Notifier

	logger *slog.Logger
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithPinner enables IPFS pinning of verified documents.
func WithPinner(p Pinner) Option { return func(o *Orchestrator) { o.pinner = p } }

// WithArchive enables object-storage archival of verified documents.
func WithArchive(a domain.DocumentArchive) Option { return func(o *Orchestrator) { o.archive = a } }

// WithRunStore enables persistence of completed and failed runs.
func WithRunStore(s domain.RunStore) Option { return func(o *Orchestrator) { o.runs = s } }

// WithSignalBus enables live stage-log publication.
func WithSignalBus(b domain.SignalBus) Option { return func(o *Orchestrator) { o.bus = b } }

// WithRefresher enables the post-mint registry window rebuild.
func WithRefresher(r Refresher) Option { return func(o *Orchestrator) { o.refresh = r } }

// WithNotifier enables operator alerts for mints and failed runs.
func WithNotifier(n Notifier) Option { return func(o *Orchestrator) { o.notifier = n } }

// NewOrchestrator creates an Orchestrator over the required adapters.
func NewOrchestrator(analyzer Analyzer, rates RateSource, symbol string, minter Minter, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer: analyzer,
		rates:    rates,
		symbol:   symbol,
		minter:   minter,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StageChannel is the signal bus channel stage logs are published on.
const StageChannel = "pipeline.stages"

// stageEvent is the wire form of one published stage-log record.
type stageEvent struct {
	RunID string               `json:"run_id"`
	State domain.RunState      `json:"state"`
	Entry domain.StageLogEntry `json:"entry"`
}

// Analyze runs one document through the verification pipeline and returns
// the finished run record. A failed reserve check is a designed outcome, not
// an error: the run comes back with verdict fail and score 10, and the error
// is nil. Adapter failures and a missing document return the run as far as it
// got together with a classified error.
func (o *Orchestrator) Analyze(ctx context.Context, doc domain.BondDocument) (domain.VerificationRun, error) {
	run := domain.VerificationRun{
		ID:        uuid.NewString(),
		Filename:  doc.Filename,
		State:     domain.StateIdle,
		StartedAt: time.Now().UTC(),
	}

	if doc.Empty() {
		err := fmt.Errorf("pipeline: %w: no document supplied", domain.ErrInputMissing)
		return o.finish(ctx, run, domain.VerdictFail, err)
	}
	run.ContentHash = doc.ContentHash()
	run.State = domain.StateUploaded

	card := NewScoreCard()

	// Stage 1: metadata extraction.
	analysis, err := o.analyzer.Analyze(ctx, doc)
	if err != nil {
		err = fmt.Errorf("pipeline: %w: %v", domain.ErrAnalysisUnavailable, err)
		return o.finish(ctx, run, domain.VerdictFail, err)
	}
	run.Analysis = &analysis
	run.State = domain.StateMetadataExtracted
	delta, _ := card.Apply(StageExtract)
	o.logStage(ctx, &run, StageExtract, extractMessage(analysis), delta, card.Score())
	if analysis.Degenerate() {
		o.logger.WarnContext(ctx, "degenerate extraction accepted",
			slog.String("run_id", run.ID),
			slog.String("bond_name", analysis.BondName),
		)
	}

	// Stage 2: reserve check. A non-positive face value terminates the run
	// with the fixed failed score; no oracle or ledger call follows.
	if analysis.FaceValue <= 0 {
		score, _ := card.FailReserve()
		run.State = domain.StateReserveChecked
		o.logStage(ctx, &run, StageReserve,
			fmt.Sprintf("reserve check failed: face value %d is not positive", analysis.FaceValue),
			score-run.TrustScore, score)
		return o.finish(ctx, run, domain.VerdictFail, nil)
	}
	run.State = domain.StateReserveChecked
	delta, _ = card.Apply(StageReserve)
	o.logStage(ctx, &run, StageReserve,
		fmt.Sprintf("reserve check passed: face value %d", analysis.FaceValue),
		delta, card.Score())

	// Stage 3: market oracle cross-check.
	snap, err := o.rates.Snapshot(ctx, o.symbol)
	if err != nil {
		err = fmt.Errorf("pipeline: %w: %v", domain.ErrOracleUnavailable, err)
		run.TrustScore = card.Score()
		return o.finish(ctx, run, domain.VerdictFail, err)
	}
	run.Oracle = &snap
	run.State = domain.StateOracleChecked
	delta, _ = card.Apply(StageOracle)
	o.logStage(ctx, &run, StageOracle,
		fmt.Sprintf("oracle yield %.2f%% at %d", snap.LiveYield, snap.TimestampSeconds),
		delta, card.Score())

	// Stage 4: local audit. Deterministic, never fails the submission; a
	// malformed contract address is logged and surfaces later as a ledger
	// rejection if minting is attempted.
	auditMsg := "audit passed: ledger contract address well-formed"
	if addr := o.minter.ContractAddress(); !common.IsHexAddress(addr) {
		auditMsg = fmt.Sprintf("audit warning: contract address %q is malformed", addr)
		o.logger.WarnContext(ctx, "audit found malformed contract address",
			slog.String("run_id", run.ID),
			slog.String("address", addr),
		)
	}
	run.State = domain.StateAudited
	delta, _ = card.Apply(StageAudit)
	o.logStage(ctx, &run, StageAudit, auditMsg, delta, card.Score())

	// Post-verification side effects are best-effort and never change the
	// verdict.
	if o.pinner != nil {
		if ref, pinErr := o.pinner.PinFile(ctx, doc.Filename, doc.Payload); pinErr != nil {
			o.logger.WarnContext(ctx, "document pin failed",
				slog.String("run_id", run.ID),
				slog.String("error", pinErr.Error()),
			)
		} else {
			run.IPFSRef = ref
		}
	}
	if o.archive != nil {
		if archErr := o.archive.Put(ctx, run.ContentHash, bytes.NewReader(doc.Payload), "application/octet-stream"); archErr != nil {
			o.logger.WarnContext(ctx, "document archive failed",
				slog.String("run_id", run.ID),
				slog.String("error", archErr.Error()),
			)
		}
	}

	run.TrustScore = card.Score()
	run.State = domain.StateComplete
	return o.finish(ctx, run, card.Verdict(), nil)
}

// Mint submits a verified run's metadata to the ledger and returns the
// ledger-assigned asset id. Yield is converted from percent to basis points
// at this edge; face value passes through unchanged. After confirmation the
// registry window is rebuilt so readers observe the new asset.
func (o *Orchestrator) Mint(ctx context.Context, analysis domain.AnalysisResult, snap domain.OracleSnapshot, contentHash, ipfsRef string) (int64, error) {
	if analysis.FaceValue <= 0 {
		return 0, fmt.Errorf("pipeline: %w: face value %d is not positive", domain.ErrReserveInsufficient, analysis.FaceValue)
	}

	name := analysis.BondName
	if name == "" {
		name = "Unknown"
	}
	yieldBps := domain.YieldToBasisPoints(snap.LiveYield)

	id, err := o.minter.CreateAsset(ctx, name, analysis.ISIN, analysis.FaceValue, yieldBps, contentHash, ipfsRef)
	if err != nil {
		return 0, fmt.Errorf("pipeline: mint: %w", err)
	}

	o.logger.InfoContext(ctx, "asset minted",
		slog.Int64("asset_id", id),
		slog.String("isin", analysis.ISIN),
		slog.Int64("yield_bps", yieldBps),
	)

	if o.refresh != nil {
		if _, refErr := o.refresh.Refresh(ctx); refErr != nil {
			o.logger.WarnContext(ctx, "registry refresh after mint failed",
				slog.Int64("asset_id", id),
				slog.String("error", refErr.Error()),
			)
		}
	}
	if o.notifier != nil {
		if notifyErr := o.notifier.AssetMinted(ctx, id, name, analysis.ISIN); notifyErr != nil {
			o.logger.WarnContext(ctx, "mint notification failed",
				slog.String("error", notifyErr.Error()),
			)
		}
	}
	return id, nil
}

// logStage appends one ordered stage record to the run, mirrors it to the
// structured log, and publishes it on the signal bus when one is wired.
func (o *Orchestrator) logStage(ctx context.Context, run *domain.VerificationRun, stage, message string, delta, score int) {
	entry := domain.StageLogEntry{
		Stage:   stage,
		Message: message,
		Delta:   delta,
		Score:   score,
		At:      time.Now().UTC(),
	}
	run.StageLog = append(run.StageLog, entry)
	run.TrustScore = score

	o.logger.InfoContext(ctx, "stage complete",
		slog.String("run_id", run.ID),
		slog.String("stage", stage),
		slog.Int("delta", delta),
		slog.Int("score", score),
		slog.String("message", message),
	)

	if o.bus != nil {
		payload, err := json.Marshal(stageEvent{RunID: run.ID, State: run.State, Entry: entry})
		if err == nil {
			if pubErr := o.bus.Publish(ctx, StageChannel, payload); pubErr != nil {
				o.logger.DebugContext(ctx, "stage publish failed", slog.String("error", pubErr.Error()))
			}
		}
	}
}

// finish stamps the run's terminal fields, persists it when a store is
// wired, and returns it alongside the pipeline error, if any.
func (o *Orchestrator) finish(ctx context.Context, run domain.VerificationRun, verdict domain.Verdict, cause error) (domain.VerificationRun, error) {
	run.Verdict = verdict
	run.FinishedAt = time.Now().UTC()
	if cause != nil && run.State != domain.StateComplete {
		run.State = domain.StateFailed
	}

	if o.runs != nil {
		if insErr := o.runs.Insert(ctx, &run); insErr != nil {
			o.logger.ErrorContext(ctx, "persisting run failed",
				slog.String("run_id", run.ID),
				slog.String("error", insErr.Error()),
			)
		}
	}
	if o.notifier != nil && verdict == domain.VerdictFail {
		reason := "reserve check failed"
		if cause != nil {
			reason = cause.Error()
		}
		if notifyErr := o.notifier.VerificationFailed(ctx, run.ID, reason); notifyErr != nil {
			o.logger.WarnContext(ctx, "failure notification failed",
				slog.String("run_id", run.ID),
				slog.String("error", notifyErr.Error()),
			)
		}
	}
	return run, cause
}

// extractMessage summarizes an analysis result for the stage log.
func extractMessage(a domain.AnalysisResult) string {
	name := a.BondName
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("metadata extracted: %s (isin %q, face value %d)", name, a.ISIN, a.FaceValue)
}
