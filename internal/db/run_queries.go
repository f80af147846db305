package db

import (
	"context"
	"fmt"

	"ridge.run/sentinel/internal/globaltime"
)

// Pipeline run terminal states.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// StartRun opens a pipeline run ledger entry and returns its id.
func (p *Pool) StartRun(ctx context.Context, runUUID string) (int64, error) {
	const q = `
INSERT INTO intel.pipeline_runs (run_uuid, status)
VALUES ($1, $2)
RETURNING run_id
`

	var runID int64
	if err := p.QueryRow(ctx, q, runUUID, RunStatusRunning).Scan(&runID); err != nil {
		return 0, fmt.Errorf("start pipeline run uuid=%s: %w", runUUID, err)
	}
	return runID, nil
}

// FinishRunParams carries the final counters for a run.
type FinishRunParams struct {
	RunID              int64
	Status             string
	DocumentsProcessed int
	DocumentsSkipped   int
	DocumentsFailed    int
	FindingsNew        int
	FindingsDuplicate  int
	ErrorMessage       *string
}

// FinishRun closes the ledger entry for a run.
func (p *Pool) FinishRun(ctx context.Context, params FinishRunParams) error {
	const q = `
UPDATE intel.pipeline_runs
SET finished_at = $2,
	status = $3,
	documents_processed = $4,
	documents_skipped = $5,
	documents_failed = $6,
	findings_new = $7,
	findings_duplicate = $8,
	error_message = $9,
	updated_at = now()
WHERE run_id = $1
`

	tag, err := p.Exec(ctx, q,
		params.RunID,
		globaltime.UTC(),
		params.Status,
		params.DocumentsProcessed,
		params.DocumentsSkipped,
		params.DocumentsFailed,
		params.FindingsNew,
		params.FindingsDuplicate,
		params.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("finish pipeline run id=%d: %w", params.RunID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish pipeline run id=%d: %w", params.RunID, ErrNoRows)
	}
	return nil
}
