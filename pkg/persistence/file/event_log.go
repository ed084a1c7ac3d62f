package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dripline/dripline/pkg/models"
	"github.com/google/uuid"
)

const eventLogDir = "event_log"

// EventLogRepository appends entries to one JSON-lines file per run.
type EventLogRepository struct {
	persistence *Persistence
}

func (r *EventLogRepository) Append(_ context.Context, entry *models.EventLogEntry) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	dir := filepath.Join(r.persistence.root, eventLogDir)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create event log directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal event log entry: %w", err)
	}

	f, err := os.OpenFile(r.logPath(entry.RunID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}

	_, err = f.Write(append(data, '\n'))
	if err != nil {
		_ = f.Close()

		return fmt.Errorf("failed to append event log entry: %w", err)
	}

	return f.Close()
}

func (r *EventLogRepository) ListByRun(_ context.Context, runID string) ([]*models.EventLogEntry, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	f, err := os.Open(r.logPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.EventLogEntry{}, nil
		}

		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	entries := make([]*models.EventLogEntry, 0)
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry models.EventLogEntry

		err := json.Unmarshal(line, &entry)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal event log entry: %w", err)
		}

		entries = append(entries, &entry)
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	return entries, nil
}

func (r *EventLogRepository) logPath(runID string) string {
	return filepath.Join(r.persistence.root, eventLogDir, runID+".jsonl")
}
