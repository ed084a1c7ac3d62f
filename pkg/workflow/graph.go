// Package workflow provides pure lookup functions over workflow graph data.
// Nothing here has side effects; the graph is owned by the authoring UI and
// may change between any two calls, so callers must treat a missing node as
// a runtime condition rather than a programming error.
package workflow

import "github.com/dripline/dripline/pkg/models"

// FindNode returns the node with the given id, or nil when the graph no
// longer contains it. A nil result for a run's current node means a user
// deleted the node while the run was in flight.
func FindNode(wf *models.Workflow, nodeID string) *models.Node {
	for _, node := range wf.Nodes {
		if node.ID == nodeID {
			return node
		}
	}

	return nil
}

// NextNode resolves the node downstream of nodeID. When branch is non-empty
// the first outgoing edge carrying that exact label wins; an unlabeled edge
// is unconditional and matches whatever branch is asked for. With no branch
// the first outgoing edge wins regardless of its label. An empty result
// means the node is terminal.
func NextNode(wf *models.Workflow, nodeID, branch string) string {
	for _, edge := range wf.Edges {
		if edge.Source != nodeID {
			continue
		}

		if branch == "" || edge.Branch == "" || edge.Branch == branch {
			return edge.Target
		}
	}

	return ""
}

// TriggerNode returns the first trigger node of the graph, where new runs
// enter. Nil when the graph has none.
func TriggerNode(wf *models.Workflow) *models.Node {
	for _, node := range wf.Nodes {
		if node.IsTrigger() {
			return node
		}
	}

	return nil
}
