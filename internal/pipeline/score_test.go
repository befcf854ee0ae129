package pipeline

import (
	"errors"
	"testing"

	"github.com/verifychain/verifychain/internal/domain"
)

func TestScoreCardFullPass(t *testing.T) {
	card := NewScoreCard()

	stages := []struct {
		stage string
		delta int
		total int
	}{
		{StageExtract, 20, 20},
		{StageReserve, 30, 50},
		{StageOracle, 30, 80},
		{StageAudit, 20, 100},
	}

	for _, s := range stages {
		delta, err := card.Apply(s.stage)
		if err != nil {
			t.Fatalf("Apply(%q): %v", s.stage, err)
		}
		if delta != s.delta {
			t.Errorf("Apply(%q) delta = %d, want %d", s.stage, delta, s.delta)
		}
		if card.Score() != s.total {
			t.Errorf("after %q score = %d, want %d", s.stage, card.Score(), s.total)
		}
	}

	if got := card.Verdict(); got != domain.VerdictPass {
		t.Errorf("Verdict() = %q, want %q", got, domain.VerdictPass)
	}
}

func TestScoreCardOutOfOrder(t *testing.T) {
	tests := []struct {
		name   string
		stages []string
	}{
		{"oracle first", []string{StageOracle}},
		{"skip reserve", []string{StageExtract, StageOracle}},
		{"repeat extract", []string{StageExtract, StageExtract}},
		{"audit before oracle", []string{StageExtract, StageReserve, StageAudit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := NewScoreCard()
			var err error
			for _, stage := range tt.stages {
				if _, err = card.Apply(stage); err != nil {
					break
				}
			}
			if !errors.Is(err, domain.ErrStageOrder) {
				t.Fatalf("err = %v, want ErrStageOrder", err)
			}
		})
	}
}

func TestScoreCardApplyAfterTerminal(t *testing.T) {
	card := NewScoreCard()
	for _, stage := range []string{StageExtract, StageReserve, StageOracle, StageAudit} {
		if _, err := card.Apply(stage); err != nil {
			t.Fatalf("Apply(%q): %v", stage, err)
		}
	}
	if _, err := card.Apply(StageExtract); !errors.Is(err, domain.ErrStageOrder) {
		t.Fatalf("Apply after terminal err = %v, want ErrStageOrder", err)
	}
}

func TestScoreCardFailReserve(t *testing.T) {
	card := NewScoreCard()
	if _, err := card.Apply(StageExtract); err != nil {
		t.Fatalf("Apply(extract): %v", err)
	}

	score, err := card.FailReserve()
	if err != nil {
		t.Fatalf("FailReserve(): %v", err)
	}
	if score != 10 {
		t.Errorf("FailReserve() score = %d, want 10", score)
	}
	if card.Score() != 10 {
		t.Errorf("Score() = %d, want 10", card.Score())
	}
	if got := card.Verdict(); got != domain.VerdictFail {
		t.Errorf("Verdict() = %q, want %q", got, domain.VerdictFail)
	}

	// The card is terminal after the override.
	if _, err := card.Apply(StageOracle); !errors.Is(err, domain.ErrStageOrder) {
		t.Errorf("Apply after FailReserve err = %v, want ErrStageOrder", err)
	}
}

func TestScoreCardFailReserveOutsideReserveStage(t *testing.T) {
	card := NewScoreCard()
	if _, err := card.FailReserve(); !errors.Is(err, domain.ErrStageOrder) {
		t.Fatalf("FailReserve before extract err = %v, want ErrStageOrder", err)
	}
}

func TestScoreDeterministic(t *testing.T) {
	outcomes := []StageOutcome{
		{Stage: StageExtract, Passed: true},
		{Stage: StageReserve, Passed: true},
		{Stage: StageOracle, Passed: true},
		{Stage: StageAudit, Passed: true},
	}

	for i := 0; i < 3; i++ {
		score, verdict, err := Score(outcomes)
		if err != nil {
			t.Fatalf("Score(): %v", err)
		}
		if score != 100 || verdict != domain.VerdictPass {
			t.Fatalf("Score() = (%d, %q), want (100, pass)", score, verdict)
		}
	}
}

func TestScoreReserveFailure(t *testing.T) {
	outcomes := []StageOutcome{
		{Stage: StageExtract, Passed: true},
		{Stage: StageReserve, Passed: false},
	}

	score, verdict, err := Score(outcomes)
	if err != nil {
		t.Fatalf("Score(): %v", err)
	}
	if score != 10 {
		t.Errorf("score = %d, want 10", score)
	}
	if verdict != domain.VerdictFail {
		t.Errorf("verdict = %q, want fail", verdict)
	}
}

func TestScoreNonReserveFailureRejected(t *testing.T) {
	outcomes := []StageOutcome{
		{Stage: StageExtract, Passed: false},
	}
	if _, _, err := Score(outcomes); !errors.Is(err, domain.ErrStageOrder) {
		t.Fatalf("err = %v, want ErrStageOrder", err)
	}
}
