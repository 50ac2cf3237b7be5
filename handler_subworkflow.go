package workflow

import (
	"context"
	"fmt"
)

// subWorkflowHandler runs a nested workflow definition, either inline on the
// node or registered with the engine by ID. The node's resolved inputs become
// the child run's inputs and the child's aggregated outputs become the node's
// outputs.
type subWorkflowHandler struct {
	x *Execution
}

func (h *subWorkflowHandler) Execute(ctx context.Context, node *Node) (map[string]any, error) {
	def := node.Workflow
	if def == nil && node.WorkflowID != "" {
		def, _ = h.x.engine.Workflow(node.WorkflowID)
	}
	if def == nil {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID,
			"subworkflow node has no inline workflow and no resolvable workflow_id")
	}

	inputs := h.x.resolver.ResolveMap(node.Inputs)
	child, err := h.x.engine.Execute(ctx, def, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to start subworkflow: %w", err)
	}
	result, err := child.Wait(ctx)
	if err != nil {
		// The child run is detached from this node's context; stop it rather
		// than leaving it running after the parent gives up.
		child.Cancel()
		return nil, err
	}
	switch result.Status {
	case StatusCompleted:
	case StatusCancelled:
		return nil, NewNodeError(ErrorTypeCancelled, node.ID, "subworkflow was cancelled")
	default:
		return nil, NewNodeError(ErrorTypeExternalExecution, node.ID,
			fmt.Sprintf("subworkflow failed: %s", result.Error))
	}

	outputs := copyMap(result.Outputs)
	if outputs == nil {
		outputs = map[string]any{}
	}
	outputs["execution_id"] = result.ExecutionID
	return outputs, nil
}
