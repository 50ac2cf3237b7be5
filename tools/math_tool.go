package tools

import (
	"context"
	"errors"
	"fmt"

	workflow "github.com/linkerlin/agentscope.net-sub000"
)

// MathParams defines the parameters for the math tool
type MathParams struct {
	Operation string  `mapstructure:"operation"`
	A         float64 `mapstructure:"a"`
	B         float64 `mapstructure:"b"`
}

// NewMathTool returns a tool for basic arithmetic on two operands.
func NewMathTool() workflow.Tool {
	return NewTypedTool[MathParams](&mathTool{})
}

type mathTool struct{}

func (t *mathTool) Name() string {
	return "math"
}

func (t *mathTool) Execute(ctx context.Context, params MathParams) (any, error) {
	switch params.Operation {
	case "add", "":
		return params.A + params.B, nil
	case "subtract":
		return params.A - params.B, nil
	case "multiply":
		return params.A * params.B, nil
	case "divide":
		if params.B == 0 {
			return nil, errors.New("division by zero")
		}
		return params.A / params.B, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", params.Operation)
	}
}
