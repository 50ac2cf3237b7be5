package workflow

import (
	"context"
	"fmt"
	"reflect"
)

// nodeHandler executes one kind of node and returns its raw outputs.
// Node-type dispatch is a strategy pattern: one handler per type, selected
// from a factory map keyed on the type enum.
type nodeHandler interface {
	Execute(ctx context.Context, node *Node) (map[string]any, error)
}

// newHandlers builds the handler factory for an execution.
func newHandlers(x *Execution) map[NodeType]nodeHandler {
	return map[NodeType]nodeHandler{
		NodeTypeStart:       &markerHandler{},
		NodeTypeEnd:         &markerHandler{},
		NodeTypeTask:        &taskHandler{x: x},
		NodeTypeDecision:    &decisionHandler{x: x},
		NodeTypeParallel:    &parallelHandler{x: x},
		NodeTypeMap:         &mapHandler{x: x},
		NodeTypeReduce:      &reduceHandler{x: x},
		NodeTypeSubWorkflow: &subWorkflowHandler{x: x},
		NodeTypeWait:        &waitHandler{x: x},
	}
}

// markerHandler handles start and end nodes, which perform no work of their
// own. End nodes matter only as reachability markers for the overall status.
type markerHandler struct{}

func (h *markerHandler) Execute(ctx context.Context, node *Node) (map[string]any, error) {
	return map[string]any{}, nil
}

// toSlice converts an items value into a []any, accepting any slice or array
// type.
func toSlice(value any) ([]any, error) {
	if value == nil {
		return nil, fmt.Errorf("items value is missing")
	}
	if items, ok := value.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("items must be a list, got %T", value)
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}
