package tools

import (
	"context"
	"time"

	workflow "github.com/linkerlin/agentscope.net-sub000"
)

// TimeParams defines the parameters for the time tool
type TimeParams struct {
	UTC    bool   `mapstructure:"utc"`
	Format string `mapstructure:"format"`
}

// NewTimeTool returns a tool that reports the current time.
func NewTimeTool() workflow.Tool {
	return NewTypedTool[TimeParams](&timeTool{})
}

type timeTool struct{}

func (t *timeTool) Name() string {
	return "time"
}

func (t *timeTool) Execute(ctx context.Context, params TimeParams) (any, error) {
	now := time.Now()
	if params.UTC {
		now = now.UTC()
	}
	format := params.Format
	if format == "" {
		format = time.RFC3339
	}
	return now.Format(format), nil
}
