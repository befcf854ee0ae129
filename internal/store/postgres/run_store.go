package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verifychain/verifychain/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL. Stage logs and the
// analysis and oracle snapshots are stored as JSONB alongside the scalar run
// fields.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Insert persists one finished run. Runs are immutable once written.
func (s *RunStore) Insert(ctx context.Context, run *domain.VerificationRun) error {
	stageLog, err := json.Marshal(run.StageLog)
	if err != nil {
		return fmt.Errorf("postgres: marshal stage log: %w", err)
	}

	var analysis, oracle []byte
	if run.Analysis != nil {
		if analysis, err = json.Marshal(run.Analysis); err != nil {
			return fmt.Errorf("postgres: marshal analysis: %w", err)
		}
	}
	if run.Oracle != nil {
		if oracle, err = json.Marshal(run.Oracle); err != nil {
			return fmt.Errorf("postgres: marshal oracle snapshot: %w", err)
		}
	}

	const query = `
		INSERT INTO verification_runs
			(id, filename, content_hash, ipfs_ref, state, trust_score,
			 verdict, stage_log, analysis, oracle, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = s.pool.Exec(ctx, query,
		run.ID, run.Filename, run.ContentHash, run.IPFSRef,
		string(run.State), run.TrustScore, string(run.Verdict),
		stageLog, analysis, oracle, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", run.ID, err)
	}
	return nil
}

// Get retrieves one run by id. It returns domain.ErrNotFound when no run
// with that id exists.
func (s *RunStore) Get(ctx context.Context, id string) (*domain.VerificationRun, error) {
	const query = `
		SELECT id, filename, content_hash, ipfs_ref, state, trust_score,
		       verdict, stage_log, analysis, oracle, started_at, finished_at
		FROM verification_runs
		WHERE id = $1`

	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get run %s: %w", id, err)
	}
	return run, nil
}

// List returns runs newest first, with pagination and optional time
// filtering on the start timestamp.
func (s *RunStore) List(ctx context.Context, opts domain.ListOpts) ([]*domain.VerificationRun, error) {
	query := `
		SELECT id, filename, content_hash, ipfs_ref, state, trust_score,
		       verdict, stage_log, analysis, oracle, started_at, finished_at
		FROM verification_runs
		WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND started_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND started_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY started_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.VerificationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs rows: %w", err)
	}
	return runs, nil
}

// scanRun maps one row onto a VerificationRun.
func scanRun(row pgx.Row) (*domain.VerificationRun, error) {
	var (
		run              domain.VerificationRun
		state, verdict   string
		stageLog         []byte
		analysis, oracle []byte
	)

	err := row.Scan(
		&run.ID, &run.Filename, &run.ContentHash, &run.IPFSRef,
		&state, &run.TrustScore, &verdict,
		&stageLog, &analysis, &oracle, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.State = domain.RunState(state)
	run.Verdict = domain.Verdict(verdict)

	if len(stageLog) > 0 {
		if err := json.Unmarshal(stageLog, &run.StageLog); err != nil {
			return nil, fmt.Errorf("unmarshal stage log: %w", err)
		}
	}
	if len(analysis) > 0 {
		run.Analysis = &domain.AnalysisResult{}
		if err := json.Unmarshal(analysis, run.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	if len(oracle) > 0 {
		run.Oracle = &domain.OracleSnapshot{}
		if err := json.Unmarshal(oracle, run.Oracle); err != nil {
			return nil, fmt.Errorf("unmarshal oracle snapshot: %w", err)
		}
	}

	return &run, nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
