package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// parallelHandler executes all children of the node concurrently, bounded by
// the execution's concurrency limit, and waits for every child to finish. The
// node completes only if every child completed; child results are recorded
// individually in the execution context.
type parallelHandler struct {
	x *Execution
}

func (h *parallelHandler) Execute(ctx context.Context, node *Node) (map[string]any, error) {
	if len(node.Children) == 0 {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID, "parallel node has no children")
	}

	for _, child := range node.Children {
		h.x.ec.SetNodeResult(&NodeResult{NodeID: child.ID, Status: NodeStatusPending})
	}

	// The group does not cancel siblings on failure: every child runs to its
	// own conclusion and failures surface afterwards.
	var group errgroup.Group
	group.SetLimit(h.x.concurrency)
	for _, child := range node.Children {
		child := child
		group.Go(func() error {
			if err := h.x.executeNode(ctx, child); err != nil {
				return fmt.Errorf("child %q: %w", child.ID, err)
			}
			return nil
		})
	}
	err := group.Wait()

	results := make(map[string]any, len(node.Children))
	for _, child := range node.Children {
		if result, ok := h.x.ec.NodeResult(child.ID); ok {
			results[child.ID] = result.Outputs
		}
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": results}, nil
}

// mapHandler instantiates the node's single child template once per element
// of the "items" input and runs the instances concurrently, passing each one
// its "item" and "index". Child results aggregate into an output list in item
// order; completion order is unspecified.
type mapHandler struct {
	x *Execution
}

func (h *mapHandler) Execute(ctx context.Context, node *Node) (map[string]any, error) {
	if len(node.Children) != 1 {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID,
			fmt.Sprintf("map node requires exactly one child template, got %d", len(node.Children)))
	}
	params := h.x.resolver.ResolveMap(node.Inputs)
	items, err := toSlice(params["items"])
	if err != nil {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID, err.Error())
	}

	template := node.Children[0]
	children := make([]*Node, len(items))
	for i, item := range items {
		children[i] = instantiateMapChild(template, item, i)
		h.x.ec.SetNodeResult(&NodeResult{NodeID: children[i].ID, Status: NodeStatusPending})
	}

	var group errgroup.Group
	group.SetLimit(h.x.concurrency)
	for i := range children {
		i := i
		group.Go(func() error {
			if err := h.x.executeNode(ctx, children[i]); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	results := make([]any, len(children))
	for i, child := range children {
		result, ok := h.x.ec.NodeResult(child.ID)
		if !ok {
			continue
		}
		if payload, exists := result.Outputs["result"]; exists {
			results[i] = payload
		} else {
			results[i] = result.Outputs
		}
	}
	return map[string]any{"results": results, "count": len(results)}, nil
}

// instantiateMapChild clones the child template for one item. References to
// "${item}" and "${index}" in the template's inputs are substituted directly,
// since neither lives in the shared state.
func instantiateMapChild(template *Node, item any, index int) *Node {
	clone := *template
	clone.ID = fmt.Sprintf("%s[%d]", template.ID, index)
	clone.downstream = nil

	inputs := make(map[string]any, len(template.Inputs)+2)
	for key, value := range template.Inputs {
		inputs[key] = substituteItemRef(value, item, index)
	}
	inputs["item"] = item
	inputs["index"] = index
	clone.Inputs = inputs
	return &clone
}

func substituteItemRef(value any, item any, index int) any {
	switch value {
	case "${item}":
		return item
	case "${index}":
		return index
	}
	return value
}
