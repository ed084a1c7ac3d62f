// Package trigger provides the passthrough executor for trigger nodes. A
// run is created pointing at its workflow's trigger node; executing it just
// hands control to whatever the trigger connects to.
package trigger

import (
	"context"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/protocol"
)

// Executor resolves all trigger_* nodes.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Category() string {
	return models.NodeCategoryTrigger
}

func (e *Executor) Execute(_ context.Context, _ protocol.ExecutionState) (protocol.Outcome, error) {
	return protocol.Outcome{Status: protocol.OutcomeAdvanced}, nil
}
