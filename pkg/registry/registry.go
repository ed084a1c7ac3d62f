// Package registry wires node executors and channel adapters to the node
// types they serve.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dripline/dripline/pkg/protocol"
)

// Registry resolves node types to executors and action types to channel
// adapters. Executors are keyed by node-type prefix (trigger_, action_,
// condition_) or literal type (delay_wait); adapters are keyed by the exact
// action node type they serve.
type Registry struct {
	logger    *slog.Logger
	executors map[string]protocol.NodeExecutor
	adapters  map[string]protocol.ChannelAdapter
	schemas   map[string]map[string]any
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		executors: make(map[string]protocol.NodeExecutor),
		adapters:  make(map[string]protocol.ChannelAdapter),
		schemas:   make(map[string]map[string]any),
	}
}

// RegisterExecutor registers an executor under its category. Executors that
// publish config schemas get them collected for authoring-time validation.
func (r *Registry) RegisterExecutor(executor protocol.NodeExecutor) {
	r.executors[executor.Category()] = executor
	r.collectSchemas(executor)
}

// RegisterAdapter registers a channel adapter under the action node type it
// serves.
func (r *Registry) RegisterAdapter(adapter protocol.ChannelAdapter) {
	r.adapters[adapter.ID()] = adapter
	r.collectSchemas(adapter)
}

func (r *Registry) collectSchemas(component any) {
	provider, ok := component.(protocol.SchemaProvider)
	if !ok {
		return
	}

	for nodeType, schema := range provider.Schemas() {
		r.schemas[nodeType] = schema
	}
}

// ExecutorFor resolves the executor for a node type: literal registration
// first, then category prefix. An unrecognized type is an error the driver
// treats as fatal for the run.
func (r *Registry) ExecutorFor(nodeType string) (protocol.NodeExecutor, error) {
	if executor, ok := r.executors[nodeType]; ok {
		return executor, nil
	}

	for category, executor := range r.executors {
		if strings.HasSuffix(category, "_") && strings.HasPrefix(nodeType, category) {
			return executor, nil
		}
	}

	return nil, fmt.Errorf("no executor registered for node type %q", nodeType)
}

// AdapterFor resolves the channel adapter serving an action node type.
func (r *Registry) AdapterFor(actionType string) (protocol.ChannelAdapter, bool) {
	adapter, ok := r.adapters[actionType]

	return adapter, ok
}
