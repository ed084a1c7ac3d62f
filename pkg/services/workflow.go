package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/registry"
)

// Workflow provides authoring operations over workflow graphs.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewWorkflow(p persistence.Persistence, reg *registry.Registry) *Workflow {
	return &Workflow{
		persistence: p,
		registry:    reg,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Save validates the graph and upserts it. New workflows get an id and
// default to active.
func (w *Workflow) Save(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if strings.TrimSpace(workflow.Name) == "" {
		return nil, ErrWorkflowNameRequired
	}

	err := w.validateGraph(workflow)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
		workflow.CreatedAt = now
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusActive
	}

	workflow.UpdatedAt = now

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

func (w *Workflow) Delete(ctx context.Context, id string) error {
	err := w.persistence.WorkflowRepository().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

// validateGraph enforces the structural rules before a graph can be stored:
// exactly one trigger node, unique node ids, edges between existing nodes,
// and node configs that pass their published schemas.
func (w *Workflow) validateGraph(workflow *models.Workflow) error {
	nodeIDs := make(map[string]struct{}, len(workflow.Nodes))
	triggers := 0

	for _, node := range workflow.Nodes {
		if _, seen := nodeIDs[node.ID]; seen {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID)
		}

		nodeIDs[node.ID] = struct{}{}

		if node.IsTrigger() {
			triggers++
		}

		if w.registry != nil {
			err := w.registry.ValidateConfig(node.Type, node.Config)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
			}
		}
	}

	if triggers != 1 {
		return ErrTriggerNodeRequired
	}

	for _, edge := range workflow.Edges {
		if _, ok := nodeIDs[edge.Source]; !ok {
			return fmt.Errorf("%w: source %s", ErrEdgeEndpointUnknown, edge.Source)
		}

		if _, ok := nodeIDs[edge.Target]; !ok {
			return fmt.Errorf("%w: target %s", ErrEdgeEndpointUnknown, edge.Target)
		}
	}

	return nil
}
