package workflow

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ExecutionContext holds the mutable per-run state of a workflow execution:
// the input values, the shared state map, and the recorded node results. The
// state map and the results map are the only resources mutated by multiple
// concurrent node executions; both are safe for concurrent use.
type ExecutionContext struct {
	executionID string
	inputs      map[string]any
	state       *State

	mutex   sync.RWMutex
	results map[string]*NodeResult
}

// NewExecutionContext creates a fresh per-run context. The shared state is
// seeded with the definition's variables overlaid by the run inputs, so both
// are reachable through "${name}" references.
func NewExecutionContext(executionID string, inputs, variables map[string]any) *ExecutionContext {
	seed := make(map[string]any, len(variables)+len(inputs))
	for k, v := range variables {
		seed[k] = v
	}
	for k, v := range inputs {
		seed[k] = v
	}
	return &ExecutionContext{
		executionID: executionID,
		inputs:      copyMap(inputs),
		state:       NewState(seed),
		results:     map[string]*NodeResult{},
	}
}

// ID returns the execution ID.
func (c *ExecutionContext) ID() string {
	return c.executionID
}

// Inputs returns a copy of the run's input values.
func (c *ExecutionContext) Inputs() map[string]any {
	return copyMap(c.inputs)
}

// State returns the shared state map.
func (c *ExecutionContext) State() *State {
	return c.state
}

// SetNodeResult records or replaces the result for a node.
func (c *ExecutionContext) SetNodeResult(result *NodeResult) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.results[result.NodeID] = result.Copy()
}

// UpdateNodeResult applies an update function to a recorded node result.
func (c *ExecutionContext) UpdateNodeResult(nodeID string, updateFn func(*NodeResult)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if result, exists := c.results[nodeID]; exists {
		updateFn(result)
	}
}

// NodeResult returns a copy of the recorded result for a node.
func (c *ExecutionContext) NodeResult(nodeID string) (*NodeResult, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result, exists := c.results[nodeID]
	if !exists {
		return nil, false
	}
	return result.Copy(), true
}

// NodeStatus returns the recorded status for a node, defaulting to pending.
func (c *ExecutionContext) NodeStatus(nodeID string) NodeStatus {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if result, exists := c.results[nodeID]; exists {
		return result.Status
	}
	return NodeStatusPending
}

// NodeResults returns copies of all recorded node results, ordered by node ID.
func (c *ExecutionContext) NodeResults() []*NodeResult {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ids := make([]string, 0, len(c.results))
	for id := range c.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	results := make([]*NodeResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, c.results[id].Copy())
	}
	return results
}

// markStarted transitions a node to running and stamps its start time.
func (c *ExecutionContext) markStarted(nodeID string, now time.Time) {
	c.UpdateNodeResult(nodeID, func(r *NodeResult) {
		r.Status = NodeStatusRunning
		r.StartedAt = now
	})
}

// markSettled records a node's terminal status, outputs, and error text.
func (c *ExecutionContext) markSettled(nodeID string, status NodeStatus, outputs map[string]any, err error, now time.Time) {
	c.UpdateNodeResult(nodeID, func(r *NodeResult) {
		r.Status = status
		r.Outputs = copyMap(outputs)
		r.CompletedAt = now
		if err != nil {
			r.Error = err.Error()
		}
	})
}

type contextKey string

const (
	loggerContextKey contextKey = "logger"
	stateContextKey  contextKey = "state"
)

// WithLogger attaches a logger to the context for collaborators to use.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext retrieves a logger previously attached with WithLogger.
func LoggerFromContext(ctx context.Context) (*slog.Logger, bool) {
	logger, ok := ctx.Value(loggerContextKey).(*slog.Logger)
	return logger, ok
}

// WithState attaches the execution's shared state to the context so tools can
// read and write cross-cutting variables.
func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateContextKey, state)
}

// StateFromContext retrieves the shared state attached with WithState.
func StateFromContext(ctx context.Context) (*State, bool) {
	state, ok := ctx.Value(stateContextKey).(*State)
	return state, ok
}
