package workflow

import (
	"errors"
	"time"
)

// NodeStatus represents the lifecycle state of a single node's execution.
// Transitions are strictly Pending -> Running -> {Completed|Failed|Cancelled};
// Skipped is reserved for nodes whose dependencies never complete.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
	NodeStatusCancelled NodeStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s NodeStatus) Terminal() bool {
	switch s {
	case NodeStatusCompleted, NodeStatusFailed, NodeStatusSkipped, NodeStatusCancelled:
		return true
	}
	return false
}

// Status represents the overall state of a workflow execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// NodeResult records the outcome of one node's execution. This struct is
// designed to be fully JSON serializable.
type NodeResult struct {
	NodeID       string         `json:"node_id"`
	Status       NodeStatus     `json:"status"`
	Outputs      map[string]any `json:"outputs,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at,omitzero"`
	CompletedAt  time.Time      `json:"completed_at,omitzero"`
	AttemptCount int            `json:"attempt_count,omitempty"`
}

// Copy returns a shallow copy of the node result with its own outputs map.
func (r *NodeResult) Copy() *NodeResult {
	return &NodeResult{
		NodeID:       r.NodeID,
		Status:       r.Status,
		Outputs:      copyMap(r.Outputs),
		Error:        r.Error,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		AttemptCount: r.AttemptCount,
	}
}

// Result is the final outcome of a workflow execution. It always exposes
// every node result, including partial and failed ones, so callers can render
// partial progress rather than an opaque overall failure.
type Result struct {
	ExecutionID  string         `json:"execution_id"`
	WorkflowID   string         `json:"workflow_id,omitempty"`
	WorkflowName string         `json:"workflow_name,omitempty"`
	Status       Status         `json:"status"`
	Outputs      map[string]any `json:"outputs,omitempty"`
	NodeResults  []*NodeResult  `json:"node_results"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at,omitzero"`
	CompletedAt  time.Time      `json:"completed_at,omitzero"`
	Duration     time.Duration  `json:"duration"`
}

// Err returns the execution error as an error value, or nil when the
// execution did not fail.
func (r *Result) Err() error {
	if r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}

// NodeResult returns the result recorded for the given node ID, if any.
func (r *Result) NodeResult(nodeID string) (*NodeResult, bool) {
	for _, nr := range r.NodeResults {
		if nr.NodeID == nodeID {
			return nr, true
		}
	}
	return nil, false
}

// copyMap creates a shallow copy of a map.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
