// Package testutil provides test data builders shared across packages.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/dripline/dripline/pkg/models"
)

// CreateTestNode creates a node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:     uuid.New().String(),
		Type:   models.NodeTypeActionManualTask,
		Name:   "Test Node",
		Config: map[string]any{},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node id.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithType sets the node type.
func WithType(nodeType string) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = nodeType
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// CreateTestWorkflow creates an active workflow from the given nodes and
// edges.
func CreateTestWorkflow(nodes []*models.Node, edges []*models.Edge) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:        uuid.New().String(),
		Name:      "Test Workflow",
		Status:    models.WorkflowStatusActive,
		Nodes:     nodes,
		Edges:     edges,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestLead creates a lead with sensible defaults.
func CreateTestLead(overrides ...func(*models.Lead)) *models.Lead {
	lead := &models.Lead{
		ID:          uuid.New().String(),
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		Company:     "Analytical Engines",
		Title:       "Engineer",
		LinkedinURL: "https://linkedin.com/in/ada",
		Attributes:  map[string]any{},
		CreatedAt:   time.Now().UTC(),
	}

	for _, override := range overrides {
		override(lead)
	}

	return lead
}

// CreateTestRun creates a running run positioned on the given node.
func CreateTestRun(workflowID, leadID, nodeID string) *models.WorkflowRun {
	now := time.Now().UTC()

	return &models.WorkflowRun{
		ID:            uuid.New().String(),
		WorkflowID:    workflowID,
		LeadID:        leadID,
		CurrentNodeID: &nodeID,
		Status:        models.RunStatusRunning,
		Context:       map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Edge creates an edge, optionally branch-labeled.
func Edge(source, target, branch string) *models.Edge {
	return &models.Edge{
		ID:     uuid.New().String(),
		Source: source,
		Target: target,
		Branch: branch,
	}
}
