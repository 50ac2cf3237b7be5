package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	workflow "github.com/linkerlin/agentscope.net-sub000"
)

// SleepParams defines the parameters for the sleep tool
type SleepParams struct {
	Duration time.Duration `mapstructure:"duration"`
}

// NewSleepTool returns a tool that delays for a configurable duration. The
// delay is cooperative: cancellation interrupts it.
func NewSleepTool() workflow.Tool {
	return NewTypedTool[SleepParams](&sleepTool{})
}

type sleepTool struct{}

func (t *sleepTool) Name() string {
	return "sleep"
}

func (t *sleepTool) Execute(ctx context.Context, params SleepParams) (any, error) {
	if params.Duration <= 0 {
		return nil, errors.New("duration must be positive")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(params.Duration):
		return fmt.Sprintf("slept for %s", params.Duration), nil
	}
}
