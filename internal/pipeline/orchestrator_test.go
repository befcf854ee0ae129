package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/verifychain/verifychain/internal/domain"
)

type stubAnalyzer struct {
	result domain.AnalysisResult
	err    error
	calls  atomic.Int64
}

func (s *stubAnalyzer) Analyze(ctx context.Context, doc domain.BondDocument) (domain.AnalysisResult, error) {
	s.calls.Add(1)
	return s.result, s.err
}

type stubRateSource struct {
	snap  domain.OracleSnapshot
	err   error
	calls atomic.Int64
}

func (s *stubRateSource) Snapshot(ctx context.Context, symbol string) (domain.OracleSnapshot, error) {
	s.calls.Add(1)
	return s.snap, s.err
}

type stubMinter struct {
	mu       sync.Mutex
	id       int64
	err      error
	contract string
	calls    int64

	gotName     string
	gotISIN     string
	gotFace     int64
	gotYieldBps int64
}

func (s *stubMinter) CreateAsset(ctx context.Context, name, isin string, faceValue, yieldBps int64, contentHash, ipfsRef string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.gotName = name
	s.gotISIN = isin
	s.gotFace = faceValue
	s.gotYieldBps = yieldBps
	return s.id, s.err
}

func (s *stubMinter) ContractAddress() string {
	if s.contract != "" {
		return s.contract
	}
	return "0x5FbDB2315678afecb367f032d93F642f64180aa3"
}

func (s *stubMinter) callCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDocument() domain.BondDocument {
	return domain.BondDocument{
		Filename: "bond.pdf",
		Payload:  []byte("government bond certificate"),
	}
}

func newTestOrchestrator(a *stubAnalyzer, r *stubRateSource, m *stubMinter, opts ...Option) *Orchestrator {
	return NewOrchestrator(a, r, "IN10Y", m, discardLogger(), opts...)
}

func TestAnalyzePassingRun(t *testing.T) {
	analyzer := &stubAnalyzer{result: domain.AnalysisResult{
		BondName:  "Treasury 2035",
		ISIN:      "IN0020350012",
		FaceValue: 1000,
	}}
	rates := &stubRateSource{snap: domain.OracleSnapshot{LiveYield: 7.20, TimestampSeconds: 1756400000}}
	minter := &stubMinter{id: 1}

	run, err := newTestOrchestrator(analyzer, rates, minter).Analyze(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Analyze(): %v", err)
	}

	if run.TrustScore != 100 {
		t.Errorf("TrustScore = %d, want 100", run.TrustScore)
	}
	if run.Verdict != domain.VerdictPass {
		t.Errorf("Verdict = %q, want pass", run.Verdict)
	}
	if run.State != domain.StateComplete {
		t.Errorf("State = %q, want complete", run.State)
	}
	if run.ContentHash == "" {
		t.Error("ContentHash is empty")
	}

	wantStages := []string{StageExtract, StageReserve, StageOracle, StageAudit}
	if len(run.StageLog) != len(wantStages) {
		t.Fatalf("StageLog has %d entries, want %d", len(run.StageLog), len(wantStages))
	}
	for i, want := range wantStages {
		if run.StageLog[i].Stage != want {
			t.Errorf("StageLog[%d].Stage = %q, want %q", i, run.StageLog[i].Stage, want)
		}
	}
	if got := run.StageLog[len(run.StageLog)-1].Score; got != 100 {
		t.Errorf("final stage score = %d, want 100", got)
	}
}

func TestAnalyzeReserveFailure(t *testing.T) {
	analyzer := &stubAnalyzer{result: domain.AnalysisResult{
		BondName:  "Zero Face",
		ISIN:      "IN0000000000",
		FaceValue: 0,
	}}
	rates := &stubRateSource{snap: domain.OracleSnapshot{LiveYield: 7.20}}
	minter := &stubMinter{id: 1}

	run, err := newTestOrchestrator(analyzer, rates, minter).Analyze(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Analyze(): reserve failure must not be an error, got %v", err)
	}

	if run.TrustScore != 10 {
		t.Errorf("TrustScore = %d, want 10", run.TrustScore)
	}
	if run.Verdict != domain.VerdictFail {
		t.Errorf("Verdict = %q, want fail", run.Verdict)
	}
	if len(run.StageLog) != 2 {
		t.Fatalf("StageLog has %d entries, want 2 (extract, reserve)", len(run.StageLog))
	}
	if run.StageLog[1].Stage != StageReserve {
		t.Errorf("StageLog[1].Stage = %q, want reserve", run.StageLog[1].Stage)
	}

	// Neither the oracle nor the ledger may be touched after a reserve
	// failure.
	if rates.calls.Load() != 0 {
		t.Errorf("oracle called %d times, want 0", rates.calls.Load())
	}
	if minter.callCount() != 0 {
		t.Errorf("minter called %d times, want 0", minter.callCount())
	}
}

func TestAnalyzeEmptyDocument(t *testing.T) {
	analyzer := &stubAnalyzer{}
	rates := &stubRateSource{}
	minter := &stubMinter{}

	run, err := newTestOrchestrator(analyzer, rates, minter).Analyze(context.Background(), domain.BondDocument{Filename: "empty.pdf"})
	if !errors.Is(err, domain.ErrInputMissing) {
		t.Fatalf("err = %v, want ErrInputMissing", err)
	}
	if run.State != domain.StateFailed {
		t.Errorf("State = %q, want failed", run.State)
	}
	if analyzer.calls.Load() != 0 {
		t.Errorf("analyzer called %d times, want 0", analyzer.calls.Load())
	}
}

func TestAnalyzeAnalyzerDown(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("connection refused")}
	rates := &stubRateSource{}
	minter := &stubMinter{}

	run, err := newTestOrchestrator(analyzer, rates, minter).Analyze(context.Background(), testDocument())
	if !errors.Is(err, domain.ErrAnalysisUnavailable) {
		t.Fatalf("err = %v, want ErrAnalysisUnavailable", err)
	}
	if run.TrustScore != 0 {
		t.Errorf("TrustScore = %d, want 0", run.TrustScore)
	}
	if rates.calls.Load() != 0 {
		t.Errorf("oracle called %d times, want 0", rates.calls.Load())
	}
}

func TestAnalyzeOracleDown(t *testing.T) {
	analyzer := &stubAnalyzer{result: domain.AnalysisResult{
		BondName:  "Treasury 2035",
		ISIN:      "IN0020350012",
		FaceValue: 1000,
	}}
	rates := &stubRateSource{err: errors.New("timeout")}
	minter := &stubMinter{}

	run, err := newTestOrchestrator(analyzer, rates, minter).Analyze(context.Background(), testDocument())
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
	// Extract and reserve passed before the oracle failed.
	if run.TrustScore != 50 {
		t.Errorf("TrustScore = %d, want 50", run.TrustScore)
	}
	if run.State != domain.StateFailed {
		t.Errorf("State = %q, want failed", run.State)
	}
}

func TestAnalyzeConcurrentRunsAreIsolated(t *testing.T) {
	analyzer := &stubAnalyzer{result: domain.AnalysisResult{
		BondName:  "Treasury 2035",
		ISIN:      "IN0020350012",
		FaceValue: 1000,
	}}
	rates := &stubRateSource{snap: domain.OracleSnapshot{LiveYield: 6.85}}
	minter := &stubMinter{id: 1}
	orch := newTestOrchestrator(analyzer, rates, minter)

	const n = 8
	runs := make([]domain.VerificationRun, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run, err := orch.Analyze(context.Background(), testDocument())
			if err != nil {
				t.Errorf("Analyze(): %v", err)
				return
			}
			runs[i] = run
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, run := range runs {
		if run.TrustScore != 100 {
			t.Errorf("run %s score = %d, want 100", run.ID, run.TrustScore)
		}
		if len(run.StageLog) != 4 {
			t.Errorf("run %s has %d stage entries, want 4", run.ID, len(run.StageLog))
		}
		if seen[run.ID] {
			t.Errorf("duplicate run id %s", run.ID)
		}
		seen[run.ID] = true
	}
}

func TestMintConvertsYieldToBasisPoints(t *testing.T) {
	minter := &stubMinter{id: 7}
	orch := newTestOrchestrator(&stubAnalyzer{}, &stubRateSource{}, minter)

	analysis := domain.AnalysisResult{
		BondName:  "Treasury 2035",
		ISIN:      "IN0020350012",
		FaceValue: 1000,
	}
	snap := domain.OracleSnapshot{LiveYield: 7.20}

	id, err := orch.Mint(context.Background(), analysis, snap, "abc123", "")
	if err != nil {
		t.Fatalf("Mint(): %v", err)
	}
	if id != 7 {
		t.Errorf("id = %d, want 7", id)
	}
	if minter.gotYieldBps != 720 {
		t.Errorf("yieldBps = %d, want 720", minter.gotYieldBps)
	}
	if minter.gotFace != 1000 {
		t.Errorf("faceValue = %d, want 1000", minter.gotFace)
	}
}

func TestMintEmptyNameFallsBack(t *testing.T) {
	minter := &stubMinter{id: 2}
	orch := newTestOrchestrator(&stubAnalyzer{}, &stubRateSource{}, minter)

	_, err := orch.Mint(context.Background(),
		domain.AnalysisResult{ISIN: "IN0020350012", FaceValue: 500},
		domain.OracleSnapshot{LiveYield: 6.0}, "abc", "")
	if err != nil {
		t.Fatalf("Mint(): %v", err)
	}
	if minter.gotName != "Unknown" {
		t.Errorf("name = %q, want Unknown", minter.gotName)
	}
}

func TestMintRejectsNonPositiveFaceValue(t *testing.T) {
	minter := &stubMinter{}
	orch := newTestOrchestrator(&stubAnalyzer{}, &stubRateSource{}, minter)

	_, err := orch.Mint(context.Background(),
		domain.AnalysisResult{BondName: "X", FaceValue: -1},
		domain.OracleSnapshot{}, "", "")
	if !errors.Is(err, domain.ErrReserveInsufficient) {
		t.Fatalf("err = %v, want ErrReserveInsufficient", err)
	}
	if minter.callCount() != 0 {
		t.Errorf("minter called %d times, want 0", minter.callCount())
	}
}
