package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
)

// RunRepository handles workflow-run database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

const runColumns = `
		id
	  , workflow_id
	  , lead_id
	  , current_node_id
	  , status
	  , waiting_until
	  , waiting_for_event
	  , context
	  , created_at
	  , updated_at
`

// Create inserts a new run.
func (r *RunRepository) Create(ctx context.Context, run *models.WorkflowRun) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = now
	}

	contextJSON, err := json.Marshal(orEmptyContext(run.Context))
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	query := `
		INSERT INTO workflow_runs
			(id, workflow_id, lead_id, current_node_id, status, waiting_until, waiting_for_event, context, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		run.LeadID,
		run.CurrentNodeID,
		run.Status,
		run.WaitingUntil,
		run.WaitingForEvent,
		contextJSON,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	return nil
}

// GetByID returns a run by its ID, or nil when it does not exist.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE id = $1`

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewRunError("GetByID", id, err)
	}

	return run, nil
}

// DueRuns returns up to limit runs eligible for processing at now. A run is
// due when running, when a time wait has elapsed, or when it waits on an
// external event (those are re-checked every tick because ingestion may
// have recorded the fact without flipping the status).
func (r *RunRepository) DueRuns(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM workflow_runs
		WHERE status = $1
		   OR (status = $2 AND (waiting_for_event IS NOT NULL OR waiting_until <= $3))
		ORDER BY updated_at ASC
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, query, models.RunStatusRunning, models.RunStatusWaiting, now, limit)
	if err != nil {
		return nil, persistence.NewRunError("DueRuns", "", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	return r.collectRuns(rows)
}

// Update writes the run record, guarded by a freshness check against the
// updated_at value the caller loaded. The context column is merged rather
// than replaced: MergeFacts writes concurrently without moving updated_at,
// so facts ingested after the caller's load must survive this write. On
// success the run's UpdatedAt is advanced in place so the caller can keep
// writing.
func (r *RunRepository) Update(ctx context.Context, run *models.WorkflowRun) error {
	contextJSON, err := json.Marshal(orEmptyContext(run.Context))
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	newUpdatedAt := time.Now().UTC()

	query := `
		UPDATE workflow_runs SET
			current_node_id = $2
		  , status = $3
		  , waiting_until = $4
		  , waiting_for_event = $5
		  , context = context || $6::jsonb
		  , updated_at = $7
		WHERE id = $1 AND updated_at = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.CurrentNodeID,
		run.Status,
		run.WaitingUntil,
		run.WaitingForEvent,
		contextJSON,
		newUpdatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	if affected == 0 {
		existing, err := r.GetByID(ctx, run.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			return persistence.NewRunError("Update", run.ID, persistence.ErrRunNotFound)
		}

		return persistence.NewRunError("Update", run.ID, persistence.ErrStaleRun)
	}

	run.UpdatedAt = newUpdatedAt

	return nil
}

// MergeFacts merges facts into the run context without replacing it and
// without touching updated_at. When wakeEvent matches what the run is
// waiting on, the run is flipped back to running.
func (r *RunRepository) MergeFacts(ctx context.Context, runID string, facts map[string]any, wakeEvent string) error {
	factsJSON, err := json.Marshal(orEmptyContext(facts))
	if err != nil {
		return persistence.NewRunError("MergeFacts", runID, err)
	}

	query := `
		UPDATE workflow_runs SET
			context = context || $2::jsonb
		  , status = CASE
				WHEN $3 <> '' AND status = $4 AND waiting_for_event = $3 THEN $5
				ELSE status
			END
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, runID, factsJSON, wakeEvent,
		models.RunStatusWaiting, models.RunStatusRunning)
	if err != nil {
		return persistence.NewRunError("MergeFacts", runID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("MergeFacts", runID, err)
	}

	if affected == 0 {
		return persistence.NewRunError("MergeFacts", runID, persistence.ErrRunNotFound)
	}

	return nil
}

// List returns runs matching the filter options, newest first.
func (r *RunRepository) List(ctx context.Context, opts persistence.ListRunsOptions) ([]*models.WorkflowRun, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE 1=1`
	args := make([]any, 0, 5)

	if opts.WorkflowID != "" {
		args = append(args, opts.WorkflowID)
		query += fmt.Sprintf(" AND workflow_id = $%d", len(args))
	}

	if opts.LeadID != "" {
		args = append(args, opts.LeadID)
		query += fmt.Sprintf(" AND lead_id = $%d", len(args))
	}

	if opts.Status != nil {
		args = append(args, *opts.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	args = append(args, opts.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	args = append(args, opts.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRunError("List", "", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	return r.collectRuns(rows)
}

func (r *RunRepository) collectRuns(rows *sql.Rows) ([]*models.WorkflowRun, error) {
	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) scanRun(row rowScanner) (*models.WorkflowRun, error) {
	var (
		run         models.WorkflowRun
		contextJSON []byte
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.LeadID,
		&run.CurrentNodeID,
		&run.Status,
		&run.WaitingUntil,
		&run.WaitingForEvent,
		&contextJSON,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(contextJSON, &run.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run context: %w", err)
	}

	return &run, nil
}

func orEmptyContext(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}
