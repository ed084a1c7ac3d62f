package file

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
)

const runsDir = "runs"

// RunRepository stores workflow runs as JSON documents. The freshness check
// on Update mirrors the SQL store's compare-and-swap on updated_at.
type RunRepository struct {
	persistence *Persistence
}

func (r *RunRepository) Create(_ context.Context, run *models.WorkflowRun) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	existing, err := r.getLocked(run.ID)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	if existing != nil {
		return persistence.NewRunError("Create", run.ID, persistence.ErrRunAlreadyExists)
	}

	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = now
	}

	return r.persistence.writeDocument(runsDir, run.ID, run)
}

func (r *RunRepository) GetByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	return r.getLocked(id)
}

func (r *RunRepository) getLocked(id string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun

	err := r.persistence.readDocument(runsDir, id, &run)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	return &run, nil
}

func (r *RunRepository) DueRuns(_ context.Context, now time.Time, limit int) ([]*models.WorkflowRun, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	runs, err := r.allLocked()
	if err != nil {
		return nil, persistence.NewRunError("DueRuns", "", err)
	}

	due := make([]*models.WorkflowRun, 0, len(runs))

	for _, run := range runs {
		if isDue(run, now) {
			due = append(due, run)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].UpdatedAt.Before(due[j].UpdatedAt)
	})

	if len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func isDue(run *models.WorkflowRun, now time.Time) bool {
	switch run.Status {
	case models.RunStatusRunning:
		return true
	case models.RunStatusWaiting:
		if run.WaitingForEvent != nil {
			return true
		}

		return run.WaitingUntil != nil && !run.WaitingUntil.After(now)
	default:
		return false
	}
}

func (r *RunRepository) Update(_ context.Context, run *models.WorkflowRun) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	existing, err := r.getLocked(run.ID)
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	if existing == nil {
		return persistence.NewRunError("Update", run.ID, persistence.ErrRunNotFound)
	}

	if !existing.UpdatedAt.Equal(run.UpdatedAt) {
		return persistence.NewRunError("Update", run.ID, persistence.ErrStaleRun)
	}

	// MergeFacts writes without moving updated_at, so the freshness check
	// cannot see facts ingested after the caller's load. Layer the caller's
	// context over the stored one instead of replacing it.
	merged := make(map[string]any, len(existing.Context)+len(run.Context))
	for name, value := range existing.Context {
		merged[name] = value
	}

	for name, value := range run.Context {
		merged[name] = value
	}

	run.Context = merged

	run.UpdatedAt = time.Now().UTC()

	err = r.persistence.writeDocument(runsDir, run.ID, run)
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	return nil
}

func (r *RunRepository) MergeFacts(_ context.Context, runID string, facts map[string]any, wakeEvent string) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	run, err := r.getLocked(runID)
	if err != nil {
		return persistence.NewRunError("MergeFacts", runID, err)
	}

	if run == nil {
		return persistence.NewRunError("MergeFacts", runID, persistence.ErrRunNotFound)
	}

	for name, value := range facts {
		run.SetFact(name, value)
	}

	if wakeEvent != "" && run.Status == models.RunStatusWaiting &&
		run.WaitingForEvent != nil && *run.WaitingForEvent == wakeEvent {
		run.Status = models.RunStatusRunning
		run.WaitingForEvent = nil
	}

	// updated_at is deliberately left alone: it anchors elapsed-time and
	// timeout computations and moves only on node transitions.
	err = r.persistence.writeDocument(runsDir, run.ID, run)
	if err != nil {
		return persistence.NewRunError("MergeFacts", runID, err)
	}

	return nil
}

func (r *RunRepository) List(_ context.Context, opts persistence.ListRunsOptions) ([]*models.WorkflowRun, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	runs, err := r.allLocked()
	if err != nil {
		return nil, persistence.NewRunError("List", "", err)
	}

	filtered := make([]*models.WorkflowRun, 0, len(runs))

	for _, run := range runs {
		if opts.WorkflowID != "" && run.WorkflowID != opts.WorkflowID {
			continue
		}

		if opts.LeadID != "" && run.LeadID != opts.LeadID {
			continue
		}

		if opts.Status != nil && run.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, run)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	if opts.Offset >= len(filtered) {
		return []*models.WorkflowRun{}, nil
	}

	filtered = filtered[opts.Offset:]
	if len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	return filtered, nil
}

func (r *RunRepository) allLocked() ([]*models.WorkflowRun, error) {
	ids, err := r.persistence.listDocumentIDs(runsDir)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.WorkflowRun, 0, len(ids))

	for _, id := range ids {
		run, err := r.getLocked(id)
		if err != nil {
			return nil, err
		}

		if run != nil {
			runs = append(runs, run)
		}
	}

	return runs, nil
}
