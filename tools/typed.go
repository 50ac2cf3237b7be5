package tools

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	workflow "github.com/linkerlin/agentscope.net-sub000"
)

// TypedTool is a tool whose parameters decode into a struct before execution.
type TypedTool[TParams any] interface {
	Name() string
	Execute(ctx context.Context, params TParams) (any, error)
}

// NewTypedTool adapts a TypedTool to the workflow.Tool interface. Parameters
// are decoded weakly, so YAML-sourced strings and numbers coerce into the
// declared field types.
func NewTypedTool[TParams any](tool TypedTool[TParams]) workflow.Tool {
	return &typedToolAdapter[TParams]{tool: tool}
}

type typedToolAdapter[TParams any] struct {
	tool TypedTool[TParams]
}

func (a *typedToolAdapter[TParams]) Name() string {
	return a.tool.Name()
}

func (a *typedToolAdapter[TParams]) Execute(ctx context.Context, params map[string]any) (*workflow.ToolResult, error) {
	var decoded TParams
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decoded,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create parameter decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return &workflow.ToolResult{
			Success: false,
			Error:   fmt.Sprintf("invalid parameters for tool %q: %v", a.tool.Name(), err),
		}, nil
	}
	result, err := a.tool.Execute(ctx, decoded)
	if err != nil {
		return &workflow.ToolResult{Success: false, Error: err.Error()}, nil
	}
	return &workflow.ToolResult{Success: true, Result: result}, nil
}
