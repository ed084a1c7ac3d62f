// Package persistence provides the data storage abstraction for workflows,
// runs, leads and the run event log.
package persistence

import (
	"context"
	"time"

	"github.com/dripline/dripline/pkg/models"
)

// Persistence bundles the repositories backed by one store.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	RunRepository() RunRepository
	LeadRepository() LeadRepository
	EventLogRepository() EventLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow graphs. The engine only reads them;
// writes come from the authoring surface.
type WorkflowRepository interface {
	// GetByID returns the workflow, or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	List(ctx context.Context) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// ListRunsOptions filters run listings.
type ListRunsOptions struct {
	WorkflowID string
	LeadID     string
	Status     *models.RunStatus
	Limit      int
	Offset     int
}

// RunRepository stores workflow runs.
type RunRepository interface {
	Create(ctx context.Context, run *models.WorkflowRun) error

	// GetByID returns the run, or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*models.WorkflowRun, error)

	// DueRuns returns up to limit runs eligible for processing at now:
	// running, waiting with waiting_until elapsed, or waiting on an
	// external event (always re-checked).
	DueRuns(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowRun, error)

	// Update replaces the run record, guarded by a freshness check on the
	// updated_at value the caller loaded. ErrStaleRun signals that another
	// writer transitioned the run first; the caller must re-read before
	// acting. On success the run's UpdatedAt is advanced in place.
	Update(ctx context.Context, run *models.WorkflowRun) error

	// MergeFacts merges facts into the run's context without replacing it
	// and without touching updated_at, so elapsed-time references are not
	// disturbed. When wakeEvent is non-empty and the run is waiting on that
	// event, the run status flips back to running.
	MergeFacts(ctx context.Context, runID string, facts map[string]any, wakeEvent string) error

	List(ctx context.Context, opts ListRunsOptions) ([]*models.WorkflowRun, error)
}

// LeadRepository stores leads. The engine never mutates lead fields.
type LeadRepository interface {
	// GetByID returns the lead, or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	Save(ctx context.Context, lead *models.Lead) error
}

// EventLogRepository appends node-execution audit entries. The engine needs
// no read contract; ListByRun exists for the inspection API.
type EventLogRepository interface {
	Append(ctx context.Context, entry *models.EventLogEntry) error
	ListByRun(ctx context.Context, runID string) ([]*models.EventLogEntry, error)
}
