package workflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/linkerlin/agentscope.net-sub000/retry"
)

// reduceHandler folds the "items" input left to right. With a bound tool, the
// tool is invoked once per element with the running accumulator; otherwise a
// builtin operation named by the "operation" input applies. Tool invocations
// honor the node's retry policy and timeout per element, like task nodes.
type reduceHandler struct {
	x *Execution
}

func (h *reduceHandler) Execute(ctx context.Context, node *Node) (map[string]any, error) {
	params := h.x.resolver.ResolveMap(node.Inputs)
	items, err := toSlice(params["items"])
	if err != nil {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID, err.Error())
	}

	accumulator := params["initial"]
	if node.Tool != "" {
		tool, ok := h.x.tools[node.Tool]
		if !ok {
			return nil, NewNodeError(ErrorTypeConfiguration, node.ID,
				fmt.Sprintf("unknown tool %q", node.Tool))
		}
		for i, item := range items {
			accumulator, err = h.fold(ctx, node, tool, map[string]any{
				"accumulator": accumulator,
				"item":        item,
				"index":       i,
			})
			if err != nil {
				return nil, fmt.Errorf("reduce step %d: %w", i, err)
			}
		}
		return map[string]any{"result": accumulator, "count": len(items)}, nil
	}

	operation, _ := params["operation"].(string)
	accumulator, err = applyReduceOperation(operation, accumulator, items)
	if err != nil {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID, err.Error())
	}
	return map[string]any{"result": accumulator, "count": len(items)}, nil
}

// fold invokes the tool for one element, applying the node's retry policy.
func (h *reduceHandler) fold(ctx context.Context, node *Node, tool Tool, params map[string]any) (any, error) {
	maxAttempts := 1
	var delaySeconds, multiplier float64
	if node.Retry != nil && node.Retry.MaxAttempts > 1 {
		maxAttempts = node.Retry.MaxAttempts
		delaySeconds = node.Retry.DelaySeconds
		multiplier = node.Retry.BackoffMultiplier
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		h.x.ec.UpdateNodeResult(node.ID, func(r *NodeResult) {
			r.AttemptCount = attempt
		})
		value, err := h.invoke(ctx, node, tool, params)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if IsCancellation(err) || !retry.IsRecoverable(err) {
			break
		}
		if attempt < maxAttempts {
			delay := retry.Backoff(delaySeconds, multiplier, attempt)
			h.x.logger.Debug("retrying reduce step",
				"node_id", node.ID,
				"attempt", attempt,
				"delay", delay,
				"error", err)
			if sleepErr := retry.Sleep(ctx, delay); sleepErr != nil {
				lastErr = sleepErr
				break
			}
		}
	}
	return nil, lastErr
}

// invoke performs a single fold step with the node's timeout applied.
func (h *reduceHandler) invoke(ctx context.Context, node *Node, tool Tool, params map[string]any) (any, error) {
	invokeCtx := ctx
	if node.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		timeout := time.Duration(node.TimeoutSeconds * float64(time.Second))
		invokeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := tool.Execute(invokeCtx, params)
	if err != nil {
		if invokeCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = &Error{
				Type:    ErrorTypeTimeout,
				NodeID:  node.ID,
				Cause:   fmt.Sprintf("node timed out after %gs", node.TimeoutSeconds),
				Wrapped: err,
			}
		}
		return nil, err
	}
	if !result.Success {
		return nil, NewNodeError(ErrorTypeExternalExecution, node.ID, result.Error)
	}
	return result.Result, nil
}

func applyReduceOperation(operation string, initial any, items []any) (any, error) {
	switch operation {
	case "sum":
		total := 0.0
		if initial != nil {
			n, err := toFloat(initial)
			if err != nil {
				return nil, err
			}
			total = n
		}
		for _, item := range items {
			n, err := toFloat(item)
			if err != nil {
				return nil, err
			}
			total += n
		}
		return total, nil
	case "concat":
		joined := ""
		if initial != nil {
			joined = fmt.Sprintf("%v", initial)
		}
		for _, item := range items {
			joined += fmt.Sprintf("%v", item)
		}
		return joined, nil
	case "merge":
		merged := map[string]any{}
		if m, ok := initial.(map[string]any); ok {
			for k, v := range m {
				merged[k] = v
			}
		}
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("merge operation requires map items, got %T", item)
			}
			for k, v := range m {
				merged[k] = v
			}
		}
		return merged, nil
	case "count":
		return len(items), nil
	case "last":
		if len(items) == 0 {
			return initial, nil
		}
		return items[len(items)-1], nil
	case "":
		return nil, fmt.Errorf("reduce node requires a tool or an operation input")
	default:
		return nil, fmt.Errorf("unknown reduce operation %q", operation)
	}
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}
