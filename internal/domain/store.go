package domain

import (
	"context"
	"time"
)

// ListOpts carries pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// RunStore persists completed and failed verification runs as the audit
// trail of the pipeline.
type RunStore interface {
	Insert(ctx context.Context, run *VerificationRun) error
	Get(ctx context.Context, id string) (*VerificationRun, error)
	List(ctx context.Context, opts ListOpts) ([]*VerificationRun, error)
}
