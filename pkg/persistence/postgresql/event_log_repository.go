package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripline/dripline/pkg/models"
	"github.com/google/uuid"
)

// EventLogRepository appends node-execution audit entries. Entries are never
// updated or deleted here; retention cleanup is an external concern.
type EventLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEventLogRepository creates a new event log repository.
func NewEventLogRepository(db *sql.DB, logger *slog.Logger) *EventLogRepository {
	return &EventLogRepository{db: db, logger: logger}
}

// Append inserts one entry, assigning id and timestamp when absent.
func (r *EventLogRepository) Append(ctx context.Context, entry *models.EventLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal event detail: %w", err)
	}

	query := `
		INSERT INTO run_event_log (id, run_id, node_id, node_type, action, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.RunID,
		entry.NodeID,
		entry.NodeType,
		entry.Action,
		entry.Outcome,
		detailJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event log entry: %w", err)
	}

	return nil
}

// ListByRun returns a run's entries in append order.
func (r *EventLogRepository) ListByRun(ctx context.Context, runID string) ([]*models.EventLogEntry, error) {
	query := `
		SELECT
			id
		  , run_id
		  , node_id
		  , node_type
		  , action
		  , outcome
		  , detail
		  , created_at
		FROM run_event_log
		WHERE run_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event log: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.EventLogEntry, 0)

	for rows.Next() {
		var (
			entry      models.EventLogEntry
			detailJSON []byte
		)

		err := rows.Scan(
			&entry.ID,
			&entry.RunID,
			&entry.NodeID,
			&entry.NodeType,
			&entry.Action,
			&entry.Outcome,
			&detailJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event log entry: %w", err)
		}

		if len(detailJSON) > 0 {
			err = json.Unmarshal(detailJSON, &entry.Detail)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal event detail: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating event log: %w", err)
	}

	return entries, nil
}
