package workflow

import (
	"context"
)

// decisionHandler evaluates the node's condition and records which branch was
// selected. Branch nodes proceed through normal dependency satisfaction; the
// scheduler marks the unselected branch node as skipped.
type decisionHandler struct {
	x *Execution
}

func (h *decisionHandler) Execute(ctx context.Context, node *Node) (map[string]any, error) {
	met, err := evaluateCondition(ctx, node.Condition, h.x.resolver, h.x.compiler)
	if err != nil {
		return nil, err
	}
	selected := node.TrueBranch
	if !met {
		selected = node.FalseBranch
	}
	h.x.logger.Debug("decision evaluated",
		"node_id", node.ID,
		"condition", node.Condition,
		"condition_met", met,
		"selected_branch", selected)
	return map[string]any{
		"conditionMet":   met,
		"selectedBranch": selected,
	}, nil
}

// unselectedBranch returns the branch node ID a completed decision did not
// select, if any.
func unselectedBranch(node *Node, outputs map[string]any) string {
	selected, _ := outputs["selectedBranch"].(string)
	switch selected {
	case node.TrueBranch:
		return node.FalseBranch
	case node.FalseBranch:
		return node.TrueBranch
	}
	return ""
}
