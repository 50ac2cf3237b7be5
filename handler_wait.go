package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/linkerlin/agentscope.net-sub000/retry"
)

// waitHandler delays for the node's "duration" input. The delay is
// cooperative: cancellation interrupts it at once.
type waitHandler struct {
	x *Execution
}

func (h *waitHandler) Execute(ctx context.Context, node *Node) (map[string]any, error) {
	params := h.x.resolver.ResolveMap(node.Inputs)
	duration, err := parseDuration(params["duration"])
	if err != nil {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID, err.Error())
	}
	if err := retry.Sleep(ctx, duration); err != nil {
		return nil, err
	}
	return map[string]any{
		"result":           fmt.Sprintf("waited %s", duration),
		"duration_seconds": duration.Seconds(),
	}, nil
}

// parseDuration accepts a Go duration string or a number of seconds.
func parseDuration(value any) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("wait node requires a 'duration' input")
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration format: %w", err)
		}
		return d, nil
	case time.Duration:
		return v, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	default:
		return 0, fmt.Errorf("duration must be a string or a number of seconds, got %T", value)
	}
}
