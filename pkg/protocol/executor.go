// Package protocol defines the contracts between the advancement driver,
// the node executors and the channel adapters.
package protocol

import (
	"context"
	"time"

	"github.com/dripline/dripline/pkg/models"
)

// ExecutionState carries everything an executor may need to resolve one
// node of one run. The graph and lead are read-only; executors mutate only
// the run's wait fields and context.
type ExecutionState struct {
	Run   *models.WorkflowRun
	Node  *models.Node
	Graph *models.Workflow
	Lead  *models.Lead
	Now   time.Time
}

// OutcomeStatus classifies what a node execution did to its run.
type OutcomeStatus string

const (
	// OutcomeAdvanced means the node resolved and the driver should follow
	// the outgoing edge selected by Outcome.Branch.
	OutcomeAdvanced OutcomeStatus = "advanced"

	// OutcomeSuspended means the run parked on a wait condition or delay;
	// the driver persists the run and stops advancing it this tick.
	OutcomeSuspended OutcomeStatus = "suspended"

	// OutcomeFailed means the node failed terminally for this run.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome is an executor's verdict for a single node execution.
type Outcome struct {
	Status OutcomeStatus
	Branch string // edge label for next-node lookup, "" when unconditional
	Detail string // failure cause or diagnostic note
}

// NodeExecutor resolves all nodes of one category. Implementations validate
// the node's open config payload themselves; the graph model does not.
type NodeExecutor interface {
	// Category returns the node-type prefix this executor serves, or the
	// literal type for single-type categories such as delay_wait.
	Category() string

	Execute(ctx context.Context, state ExecutionState) (Outcome, error)
}

// SchemaProvider is implemented by executors and adapters that publish JSON
// schemas for the node configs they accept. The registry enforces these at
// workflow-authoring time.
type SchemaProvider interface {
	Schemas() map[string]map[string]any
}
