package workflow

import (
	"context"
	"errors"
)

// ToolResult is the outcome of a tool invocation. A non-nil error from
// Execute signals a transport-level failure; Success reports whether the tool
// itself succeeded.
type ToolResult struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Tool is an external collaborator invoked by task nodes with a map of
// resolved parameters.
type Tool interface {

	// Name returns the name the tool is registered under.
	Name() string

	// Execute runs the tool with the given parameters.
	Execute(ctx context.Context, params map[string]any) (*ToolResult, error)
}

// ToolRegistry is a map of tool names to tools.
type ToolRegistry map[string]Tool

// ToolFunc wraps a function for use as a Tool. The function's return value is
// wrapped in a successful ToolResult; a returned error produces a failed one.
type ToolFunc struct {
	name string
	fn   func(ctx context.Context, params map[string]any) (any, error)
}

// NewToolFunc returns a Tool backed by the given function.
func NewToolFunc(name string, fn func(ctx context.Context, params map[string]any) (any, error)) *ToolFunc {
	return &ToolFunc{name: name, fn: fn}
}

func (t *ToolFunc) Name() string {
	return t.name
}

func (t *ToolFunc) Execute(ctx context.Context, params map[string]any) (*ToolResult, error) {
	result, err := t.fn(ctx, params)
	if err != nil {
		// Context expiry is cancellation, not a tool failure.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return &ToolResult{Success: false, Error: err.Error()}, nil
	}
	return &ToolResult{Success: true, Result: result}, nil
}
