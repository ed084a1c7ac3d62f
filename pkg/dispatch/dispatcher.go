// Package dispatch translates action nodes into calls against the channel
// adapter serving their type.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/protocol"
	"github.com/dripline/dripline/pkg/registry"
)

// Dispatcher resolves an action node type to exactly one channel adapter
// and normalizes the adapter's result. It performs no retries and no
// rate-limit backoff; those live behind the adapter.
type Dispatcher struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewDispatcher(reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		logger:   logger.With("module", "dispatcher"),
	}
}

// Dispatch performs the outbound action for one node against one lead. An
// action type with no registered adapter is a dispatcher-level failure.
func (d *Dispatcher) Dispatch(ctx context.Context, actionType string, lead *models.Lead, config map[string]any) protocol.DispatchResult {
	adapter, ok := d.registry.AdapterFor(actionType)
	if !ok {
		return protocol.DispatchResult{
			Success: false,
			Error:   fmt.Sprintf("no channel adapter registered for action type %q", actionType),
		}
	}

	result := adapter.Deliver(ctx, lead, config)
	if !result.Success && result.Error == "" {
		result.Error = "channel adapter reported failure without detail"
	}

	d.logger.DebugContext(ctx, "Dispatched action",
		"action_type", actionType,
		"lead_id", lead.ID,
		"success", result.Success,
	)

	return result
}
