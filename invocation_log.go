package workflow

import (
	"context"
	"time"
)

// InvocationLogEntry represents a single agent or tool invocation log entry
type InvocationLogEntry struct {
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	Agent       string         `json:"agent,omitempty"`
	Tool        string         `json:"tool,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Attempt     int            `json:"attempt"`
	StartTime   time.Time      `json:"start_time"`
	Duration    float64        `json:"duration"`
}

// InvocationLogger defines simple invocation logging interface
type InvocationLogger interface {
	// LogInvocation logs a completed agent or tool invocation
	LogInvocation(ctx context.Context, entry *InvocationLogEntry) error

	// GetInvocationHistory retrieves the invocation log for an execution
	GetInvocationHistory(ctx context.Context, executionID string) ([]*InvocationLogEntry, error)
}
