package domain

import "time"

// RunState is a named state of the verification pipeline state machine.
type RunState string

const (
	StateIdle              RunState = "idle"
	StateUploaded          RunState = "uploaded"
	StateMetadataExtracted RunState = "metadata_extracted"
	StateReserveChecked    RunState = "reserve_checked"
	StateOracleChecked     RunState = "oracle_checked"
	StateAudited           RunState = "audited"
	StateComplete          RunState = "complete"
	StateFailed            RunState = "failed"
)

// Verdict is the terminal outcome of a pipeline run.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// StageLogEntry is one ordered, structured record emitted by a pipeline
// transition. The ordered log is part of the orchestrator's contract.
type StageLogEntry struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Delta   int       `json:"delta"`
	Score   int       `json:"score"`
	At      time.Time `json:"at"`
}

// VerificationRun is the immutable record of one pipeline submission. Each
// run is owned by exactly one in-flight submission; concurrent submissions
// never share a run.
type VerificationRun struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash"`
	IPFSRef     string          `json:"ipfs_ref,omitempty"`
	State       RunState        `json:"state"`
	TrustScore  int             `json:"trust_score"`
	Verdict     Verdict         `json:"verdict"`
	StageLog    []StageLogEntry `json:"stage_log"`
	Analysis    *AnalysisResult `json:"analysis,omitempty"`
	Oracle      *OracleSnapshot `json:"oracle,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
}
