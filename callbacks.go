package workflow

import (
	"context"
	"time"
)

// ExecutionCallbacks defines the callback interface for workflow execution events
type ExecutionCallbacks interface {
	// Workflow-level callbacks
	BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent)
	AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent)

	// Node-level callbacks
	BeforeNodeExecution(ctx context.Context, event *NodeExecutionEvent)
	AfterNodeExecution(ctx context.Context, event *NodeExecutionEvent)

	// Agent and tool invocation callbacks
	BeforeInvocation(ctx context.Context, event *InvocationEvent)
	AfterInvocation(ctx context.Context, event *InvocationEvent)
}

// WorkflowExecutionEvent provides context for workflow-level execution events
type WorkflowExecutionEvent struct {
	ExecutionID  string
	WorkflowID   string
	WorkflowName string
	Status       Status
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Inputs       map[string]any
	Outputs      map[string]any
	Error        error
}

// NodeExecutionEvent provides context for node-level execution events
type NodeExecutionEvent struct {
	ExecutionID string
	NodeID      string
	NodeType    NodeType
	Status      NodeStatus
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Outputs     map[string]any
	Error       error
}

// InvocationEvent provides context for a single agent or tool invocation,
// including retries; Attempt numbers invocations of the same node from 1.
type InvocationEvent struct {
	ExecutionID string
	NodeID      string
	Agent       string
	Tool        string
	Parameters  map[string]any
	Result      any
	Attempt     int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Error       error
}

// BaseExecutionCallbacks provides a default implementation that does nothing
type BaseExecutionCallbacks struct{}

func (n *BaseExecutionCallbacks) BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) BeforeNodeExecution(ctx context.Context, event *NodeExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterNodeExecution(ctx context.Context, event *NodeExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) BeforeInvocation(ctx context.Context, event *InvocationEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterInvocation(ctx context.Context, event *InvocationEvent) {
	// noop
}

// NewBaseExecutionCallbacks creates a new no-op callbacks implementation.
// Embed this in your own callbacks to get a default implementation that does nothing.
func NewBaseExecutionCallbacks() ExecutionCallbacks {
	return &BaseExecutionCallbacks{}
}

// CallbackChain allows chaining multiple callback implementations
type CallbackChain struct {
	callbacks []ExecutionCallbacks
}

// NewCallbackChain creates a new callback chain
func NewCallbackChain(callbacks ...ExecutionCallbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain
func (c *CallbackChain) Add(callback ExecutionCallbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeWorkflowExecution(ctx, event)
	}
}

func (c *CallbackChain) AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.AfterWorkflowExecution(ctx, event)
	}
}

func (c *CallbackChain) BeforeNodeExecution(ctx context.Context, event *NodeExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeNodeExecution(ctx, event)
	}
}

func (c *CallbackChain) AfterNodeExecution(ctx context.Context, event *NodeExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.AfterNodeExecution(ctx, event)
	}
}

func (c *CallbackChain) BeforeInvocation(ctx context.Context, event *InvocationEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeInvocation(ctx, event)
	}
}

func (c *CallbackChain) AfterInvocation(ctx context.Context, event *InvocationEvent) {
	for _, callback := range c.callbacks {
		callback.AfterInvocation(ctx, event)
	}
}
