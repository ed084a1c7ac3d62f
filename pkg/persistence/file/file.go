// Package file provides a file-based persistence implementation used for
// local development and tests. Entities are stored as JSON documents under
// the root directory; the event log is an append-only JSON-lines file per
// run. A single process-wide lock keeps concurrent access safe; this store
// is not meant for multi-process deployments.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dripline/dripline/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file
// system.
type Persistence struct {
	root string
	mu   sync.Mutex

	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
	leadRepo     *LeadRepository
	eventLogRepo *EventLogRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix on root is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.workflowRepo = &WorkflowRepository{persistence: p}
	p.runRepo = &RunRepository{persistence: p}
	p.leadRepo = &LeadRepository{persistence: p}
	p.eventLogRepo = &EventLogRepository{persistence: p}

	return p
}

// Close performs any necessary cleanup. Nothing to release for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) RunRepository() persistence.RunRepository {
	return p.runRepo
}

func (p *Persistence) LeadRepository() persistence.LeadRepository {
	return p.leadRepo
}

func (p *Persistence) EventLogRepository() persistence.EventLogRepository {
	return p.eventLogRepo
}

// writeDocument marshals v and writes it to dir/<id>.json, creating the
// directory as needed. Callers hold the store lock.
func (p *Persistence) writeDocument(dir, id string, v any) error {
	fullDir := filepath.Join(p.root, dir)

	err := os.MkdirAll(fullDir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fullDir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	err = os.WriteFile(filepath.Join(fullDir, id+".json"), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	return nil
}

// readDocument unmarshals dir/<id>.json into v. Returns os.ErrNotExist when
// the document is absent.
func (p *Persistence) readDocument(dir, id string, v any) error {
	data, err := os.ReadFile(filepath.Join(p.root, dir, id+".json"))
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return nil
}

func (p *Persistence) documentPath(dir, id string) string {
	return filepath.Join(p.root, dir, id+".json")
}

// listDocumentIDs returns the ids of all documents in dir.
func (p *Persistence) listDocumentIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}
