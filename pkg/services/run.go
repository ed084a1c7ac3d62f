package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/workflow"
)

// Run provides enrollment and inspection operations over workflow runs.
type Run struct {
	persistence persistence.Persistence
}

func NewRun(p persistence.Persistence) *Run {
	return &Run{persistence: p}
}

// Start enrolls a lead into a workflow. The new run is parked on the
// trigger node; the next driver tick performs the first advancement.
func (r *Run) Start(ctx context.Context, workflowID, leadID string) (*models.WorkflowRun, error) {
	wf, err := r.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if wf == nil {
		return nil, ErrWorkflowNotFound
	}

	if !wf.IsActive() {
		return nil, ErrWorkflowInactive
	}

	trigger := workflow.TriggerNode(wf)
	if trigger == nil {
		return nil, ErrTriggerNodeRequired
	}

	lead, err := r.persistence.LeadRepository().GetByID(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lead %s: %w", leadID, err)
	}

	if lead == nil {
		return nil, ErrLeadNotFound
	}

	existing, err := r.persistence.RunRepository().List(ctx, persistence.ListRunsOptions{
		WorkflowID: workflowID,
		LeadID:     leadID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing runs: %w", err)
	}

	for _, run := range existing {
		if !run.IsTerminal() {
			return nil, ErrRunExists
		}
	}

	now := time.Now().UTC()
	triggerID := trigger.ID
	run := &models.WorkflowRun{
		ID:            uuid.New().String(),
		WorkflowID:    workflowID,
		LeadID:        leadID,
		CurrentNodeID: &triggerID,
		Status:        models.RunStatusRunning,
		Context:       map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = r.persistence.RunRepository().Create(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

func (r *Run) FetchByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	run, err := r.persistence.RunRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", id, err)
	}

	if run == nil {
		return nil, ErrRunNotFound
	}

	return run, nil
}

func (r *Run) List(ctx context.Context, opts persistence.ListRunsOptions) ([]*models.WorkflowRun, error) {
	runs, err := r.persistence.RunRepository().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// Timeline returns the append-only node execution history of a run, oldest
// first.
func (r *Run) Timeline(ctx context.Context, runID string) ([]*models.EventLogEntry, error) {
	run, err := r.persistence.RunRepository().GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", runID, err)
	}

	if run == nil {
		return nil, ErrRunNotFound
	}

	entries, err := r.persistence.EventLogRepository().ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run timeline: %w", err)
	}

	return entries, nil
}
