package tools

import (
	"context"
	"fmt"

	workflow "github.com/linkerlin/agentscope.net-sub000"
)

// FailParams defines the parameters for the fail tool
type FailParams struct {
	Message string `mapstructure:"message"`
}

// NewFailTool returns a tool that always fails. Useful for exercising retry
// and failure propagation in workflow definitions.
func NewFailTool() workflow.Tool {
	return NewTypedTool[FailParams](&failTool{})
}

type failTool struct{}

func (t *failTool) Name() string {
	return "fail"
}

func (t *failTool) Execute(ctx context.Context, params FailParams) (any, error) {
	message := params.Message
	if message == "" {
		message = "intentional failure for testing"
	}
	return nil, fmt.Errorf("fail tool: %s", message)
}
