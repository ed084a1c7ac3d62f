package file

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/dripline/dripline/pkg/models"
)

const workflowsDir = "workflows"

// WorkflowRepository stores workflows as JSON documents.
type WorkflowRepository struct {
	persistence *Persistence
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	return r.getLocked(id)
}

func (r *WorkflowRepository) getLocked(id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := r.persistence.readDocument(workflowsDir, id, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return r.persistence.writeDocument(workflowsDir, workflow.ID, workflow)
}

func (r *WorkflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	ids, err := r.persistence.listDocumentIDs(workflowsDir)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.getLocked(id)
		if err != nil {
			return nil, err
		}

		if workflow != nil {
			workflows = append(workflows, workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	err := os.Remove(r.persistence.documentPath(workflowsDir, id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
