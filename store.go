package workflow

import (
	"context"
	"time"
)

// ResultStore defines simple persistence for finished execution results
type ResultStore interface {
	// SaveResult persists the final result of an execution
	SaveResult(ctx context.Context, result *Result) error

	// LoadResult loads the stored result for an execution
	LoadResult(ctx context.Context, executionID string) (*Result, error)

	// DeleteResult removes stored data for an execution
	DeleteResult(ctx context.Context, executionID string) error

	// ListExecutions returns summaries of all stored executions
	ListExecutions(ctx context.Context) ([]*ExecutionSummary, error)
}

// ExecutionSummary is a compact view of a stored execution result
type ExecutionSummary struct {
	ExecutionID  string        `json:"execution_id"`
	WorkflowID   string        `json:"workflow_id,omitempty"`
	WorkflowName string        `json:"workflow_name,omitempty"`
	Status       Status        `json:"status"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}
