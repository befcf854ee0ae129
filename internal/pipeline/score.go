package pipeline

import (
	"fmt"

	"github.com/verifychain/verifychain/internal/domain"
)

// Stage tags, in pipeline order. The tags appear in stage logs and in the
// persisted run record, so they are part of the wire contract.
const (
	StageExtract = "extract"
	StageReserve = "reserve"
	StageOracle  = "oracle"
	StageAudit   = "audit"
)

// stagePoints is the fixed allocation per stage. The four deltas sum to 100.
var stagePoints = []struct {
	name  string
	delta int
}{
	{StageExtract, 20},
	{StageReserve, 30},
	{StageOracle, 30},
	{StageAudit, 20},
}

// failedScore is the forced terminal score when the reserve check fails. It
// is an explicit override, not a withheld increment.
const failedScore = 10

// StageOutcome is one observed pipeline stage result. Passed is false only
// for the reserve stage; every other stage either succeeds or aborts the
// submission before a score is produced.
type StageOutcome struct {
	Stage  string
	Passed bool
}

// ScoreCard accumulates the trust score for one submission. Stages must be
// applied in pipeline order; the score never decreases except through the
// reserve failure override, after which the card is terminal.
type ScoreCard struct {
	score int
	next  int
	done  bool
}

// NewScoreCard returns an empty card at score zero.
func NewScoreCard() *ScoreCard {
	return &ScoreCard{}
}

// Apply records a passed stage and returns its delta. Applying a stage out of
// order, or after the card is terminal, fails with domain.ErrStageOrder.
func (c *ScoreCard) Apply(stage string) (int, error) {
	if c.done {
		return 0, fmt.Errorf("pipeline: %w: stage %q after terminal state", domain.ErrStageOrder, stage)
	}
	if c.next >= len(stagePoints) {
		return 0, fmt.Errorf("pipeline: %w: stage %q after final stage", domain.ErrStageOrder, stage)
	}
	want := stagePoints[c.next]
	if stage != want.name {
		return 0, fmt.Errorf("pipeline: %w: got %q, expected %q", domain.ErrStageOrder, stage, want.name)
	}

	c.score += want.delta
	c.next++
	if c.next == len(stagePoints) {
		c.done = true
	}
	return want.delta, nil
}

// FailReserve applies the reserve failure override: the score is forced to
// the fixed failed value and the card becomes terminal. Only valid when the
// reserve stage is the next expected stage.
func (c *ScoreCard) FailReserve() (int, error) {
	if c.done || c.next >= len(stagePoints) || stagePoints[c.next].name != StageReserve {
		return 0, fmt.Errorf("pipeline: %w: reserve failure outside reserve stage", domain.ErrStageOrder)
	}
	c.score = failedScore
	c.done = true
	return failedScore, nil
}

// Score returns the current cumulative score.
func (c *ScoreCard) Score() int {
	return c.score
}

// Verdict returns the card's verdict. A card that completed all stages
// passes; a card terminated by the reserve override fails. An unfinished
// card reports a failing verdict since the submission never reached the end.
func (c *ScoreCard) Verdict() domain.Verdict {
	if c.done && c.next == len(stagePoints) {
		return domain.VerdictPass
	}
	return domain.VerdictFail
}

// Score folds an ordered sequence of stage outcomes into a final score and
// verdict. It is deterministic and side-effect-free: the same outcome
// sequence always yields the same result. A failed outcome for any stage
// other than reserve is rejected, as are out-of-order sequences.
func Score(outcomes []StageOutcome) (int, domain.Verdict, error) {
	card := NewScoreCard()
	for _, out := range outcomes {
		if !out.Passed {
			if out.Stage != StageReserve {
				return 0, domain.VerdictFail, fmt.Errorf("pipeline: %w: stage %q cannot fail in place", domain.ErrStageOrder, out.Stage)
			}
			if _, err := card.FailReserve(); err != nil {
				return 0, domain.VerdictFail, err
			}
			break
		}
		if _, err := card.Apply(out.Stage); err != nil {
			return 0, domain.VerdictFail, err
		}
	}
	return card.Score(), card.Verdict(), nil
}
