package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.jetify.com/typeid"

	"github.com/linkerlin/agentscope.net-sub000/script"
)

// NewExecutionID returns a new identifier for a workflow execution.
func NewExecutionID() string {
	id, err := typeid.WithPrefix("exec")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// Execution is a single asynchronous run of a validated workflow definition.
//
// Scheduling is ready-queue driven: a bounded pool of workers pulls ready
// nodes from a channel, dispatches each to the handler for its type, records
// the result, and enqueues downstream nodes whose dependencies are now all
// completed. The run ends when the ready queue is empty and no node is
// running. Recording a node's result before enqueuing its downstream nodes is
// the only ordering edge the scheduler guarantees between nodes.
type Execution struct {
	engine      *Engine
	def         *Definition
	start       *Node
	ec          *ExecutionContext
	resolver    *Resolver
	handlers    map[NodeType]nodeHandler
	agents      map[string]Agent
	tools       map[string]Tool
	compiler    script.Compiler
	callbacks   ExecutionCallbacks
	invocations InvocationLogger
	formatter   Formatter
	logger      *slog.Logger
	concurrency int

	cancelFn  context.CancelFunc
	cancelled atomic.Bool

	mu       sync.Mutex
	status   Status
	queued   int
	running  int
	closed   bool
	enqueued map[string]bool
	ready    chan *Node

	doneCh    chan struct{}
	result    *Result
	startedAt time.Time
}

// ID returns the execution ID.
func (x *Execution) ID() string {
	return x.ec.ID()
}

// Status returns the current overall status of the execution.
func (x *Execution) Status() Status {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.status
}

func (x *Execution) setStatus(status Status) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.status = status
}

// Result returns the final result once the execution has finished.
func (x *Execution) Result() (*Result, bool) {
	select {
	case <-x.doneCh:
		return x.result, true
	default:
		return nil, false
	}
}

// Wait blocks until the execution finishes and returns its result. The
// returned error reports only a cancelled wait; execution failures are
// carried in-band on the result's status.
func (x *Execution) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-x.doneCh:
		return x.result, nil
	}
}

// Cancel fires the execution's cancellation signal. The signal propagates to
// every in-flight node and to the scheduling loop; results already recorded
// are preserved. Cancel reports whether the execution was still running.
func (x *Execution) Cancel() bool {
	select {
	case <-x.doneCh:
		return false
	default:
	}
	x.cancelled.Store(true)
	x.cancelFn()
	return true
}

// run drives the execution to completion. It is started in its own goroutine
// by Engine.Execute.
func (x *Execution) run(ctx context.Context) {
	defer x.cancelFn()

	x.startedAt = time.Now()
	x.setStatus(StatusRunning)

	// Tools and scripts reach the logger and shared state through the context.
	ctx = WithLogger(WithState(ctx, x.ec.State()), x.logger)

	// Every node gets a pending result up front, so partial progress is
	// always observable and unreached nodes are accounted for.
	for _, node := range x.def.Nodes {
		x.ec.SetNodeResult(&NodeResult{NodeID: node.ID, Status: NodeStatusPending})
	}

	x.callbacks.BeforeWorkflowExecution(ctx, &WorkflowExecutionEvent{
		ExecutionID:  x.ec.ID(),
		WorkflowID:   x.def.ID,
		WorkflowName: x.def.Name,
		Status:       StatusRunning,
		StartTime:    x.startedAt,
		Inputs:       x.ec.Inputs(),
	})
	x.logger.Info("workflow execution started",
		"workflow", x.def.Name,
		"nodes", len(x.def.Nodes),
		"concurrency", x.concurrency)

	// Each node is enqueued at most once, so the buffer guarantees that
	// sends never block.
	x.ready = make(chan *Node, len(x.def.Nodes))
	x.enqueueStart()

	var wg sync.WaitGroup
	for i := 0; i < x.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range x.ready {
				x.runNode(ctx, node)
			}
		}()
	}
	wg.Wait()

	x.finalize(ctx)
	close(x.doneCh)
}

func (x *Execution) enqueueStart() {
	x.mu.Lock()
	x.enqueued[x.start.ID] = true
	x.queued++
	x.mu.Unlock()
	x.ready <- x.start
}

// runNode executes one ready node on a worker and settles the scheduler's
// bookkeeping afterwards.
func (x *Execution) runNode(ctx context.Context, node *Node) {
	x.mu.Lock()
	x.queued--
	x.running++
	x.mu.Unlock()

	var succeeded bool
	if x.cancelled.Load() || ctx.Err() != nil {
		x.ec.markSettled(node.ID, NodeStatusCancelled, nil,
			NewNodeError(ErrorTypeCancelled, node.ID, "execution cancelled"), time.Now())
	} else {
		succeeded = x.executeNode(ctx, node) == nil
	}
	x.onSettled(node, succeeded)
}

// executeNode runs the full lifecycle of a single node: mark running,
// dispatch to the type handler, record the terminal result. It is used both
// by scheduler workers and, for child nodes, by the parallel and map
// handlers.
func (x *Execution) executeNode(ctx context.Context, node *Node) error {
	start := time.Now()
	x.ec.markStarted(node.ID, start)
	x.callbacks.BeforeNodeExecution(ctx, &NodeExecutionEvent{
		ExecutionID: x.ec.ID(),
		NodeID:      node.ID,
		NodeType:    node.Type,
		Status:      NodeStatusRunning,
		StartTime:   start,
	})
	if x.formatter != nil {
		x.formatter.PrintNodeStart(node.ID, string(node.Type))
	}

	handler, ok := x.handlers[node.Type]
	if !ok {
		err := NewNodeError(ErrorTypeConfiguration, node.ID,
			fmt.Sprintf("no handler for node type %q", node.Type))
		x.settleFailure(ctx, node, start, err)
		return err
	}

	outputs, err := handler.Execute(ctx, node)
	if err != nil {
		x.settleFailure(ctx, node, start, err)
		return err
	}

	outputs = x.applyOutputMappings(node, outputs)
	end := time.Now()
	x.ec.markSettled(node.ID, NodeStatusCompleted, outputs, nil, end)
	x.logger.Debug("node completed", "node_id", node.ID, "duration", end.Sub(start))
	x.callbacks.AfterNodeExecution(ctx, &NodeExecutionEvent{
		ExecutionID: x.ec.ID(),
		NodeID:      node.ID,
		NodeType:    node.Type,
		Status:      NodeStatusCompleted,
		StartTime:   start,
		EndTime:     end,
		Duration:    end.Sub(start),
		Outputs:     outputs,
	})
	if x.formatter != nil {
		x.formatter.PrintNodeOutput(node.ID, outputs)
	}
	return nil
}

func (x *Execution) settleFailure(ctx context.Context, node *Node, start time.Time, err error) {
	status := NodeStatusFailed
	if IsCancellation(err) {
		status = NodeStatusCancelled
	}
	end := time.Now()
	x.ec.markSettled(node.ID, status, nil, err, end)
	x.logger.Error("node execution failed",
		"node_id", node.ID,
		"node_type", node.Type,
		"status", status,
		"error", err)
	x.callbacks.AfterNodeExecution(ctx, &NodeExecutionEvent{
		ExecutionID: x.ec.ID(),
		NodeID:      node.ID,
		NodeType:    node.Type,
		Status:      status,
		StartTime:   start,
		EndTime:     end,
		Duration:    end.Sub(start),
		Error:       err,
	})
	if x.formatter != nil {
		x.formatter.PrintNodeError(node.ID, err)
	}
}

// applyOutputMappings projects a handler's raw outputs through the node's
// declared output map, when one is present. Sources may name a raw output
// key, a "${path}" reference, or a path resolved against the run.
func (x *Execution) applyOutputMappings(node *Node, raw map[string]any) map[string]any {
	if len(node.Outputs) == 0 {
		return raw
	}
	outputs := make(map[string]any, len(node.Outputs))
	for name, source := range node.Outputs {
		if m := wholeRefPattern.FindStringSubmatch(source); m != nil {
			outputs[name], _ = x.resolver.Lookup(m[1])
			continue
		}
		if value, ok := lookupOutput(raw, source); ok {
			outputs[name] = value
			continue
		}
		outputs[name], _ = x.resolver.Lookup(source)
	}
	return outputs
}

// onSettled enqueues downstream nodes made ready by a successful completion
// and closes the ready channel once no work is queued or running. The node's
// result is already recorded by this point, so dependents observe it.
func (x *Execution) onSettled(node *Node, succeeded bool) {
	if succeeded && !x.cancelled.Load() {
		var skipped string
		if node.Type == NodeTypeDecision {
			skipped = x.skipUnselectedBranch(node)
		}
		for _, downID := range node.Downstream() {
			if downID == skipped {
				continue
			}
			x.maybeEnqueue(downID)
		}
	}

	x.mu.Lock()
	x.running--
	if x.queued == 0 && x.running == 0 && !x.closed {
		x.closed = true
		close(x.ready)
	}
	x.mu.Unlock()
}

// maybeEnqueue moves a node into the ready queue once all of its
// dependencies have completed. Nodes with a failed, skipped, or cancelled
// dependency never become ready.
func (x *Execution) maybeEnqueue(nodeID string) {
	node, ok := x.def.GetNode(nodeID)
	if !ok {
		return
	}
	if x.ec.NodeStatus(nodeID) != NodeStatusPending {
		return
	}
	for _, dep := range node.DependsOn {
		if x.ec.NodeStatus(dep) != NodeStatusCompleted {
			return
		}
	}
	x.mu.Lock()
	if x.enqueued[nodeID] || x.closed {
		x.mu.Unlock()
		return
	}
	x.enqueued[nodeID] = true
	x.queued++
	x.mu.Unlock()
	x.ready <- node
}

// skipUnselectedBranch marks the branch a decision did not select as skipped
// and returns its ID. Skipping before downstream enqueueing keeps the branch
// from ever becoming ready.
func (x *Execution) skipUnselectedBranch(node *Node) string {
	result, ok := x.ec.NodeResult(node.ID)
	if !ok {
		return ""
	}
	skipped := unselectedBranch(node, result.Outputs)
	if skipped == "" {
		return ""
	}
	if x.ec.NodeStatus(skipped) == NodeStatusPending {
		x.ec.UpdateNodeResult(skipped, func(r *NodeResult) {
			r.Status = NodeStatusSkipped
		})
		x.logger.Debug("branch not selected, skipping node",
			"decision_id", node.ID, "node_id", skipped)
	}
	return skipped
}

// finalize settles unreached nodes, derives the overall status, extracts the
// workflow outputs, and assembles the result.
func (x *Execution) finalize(ctx context.Context) {
	now := time.Now()
	cancelled := x.cancelled.Load()

	// Nodes never reached are skipped on a normal drain and cancelled when
	// the signal fired first. Recorded results are preserved either way.
	for _, node := range x.def.Nodes {
		status := x.ec.NodeStatus(node.ID)
		if status.Terminal() {
			continue
		}
		if cancelled {
			x.ec.markSettled(node.ID, NodeStatusCancelled, nil,
				NewNodeError(ErrorTypeCancelled, node.ID, "execution cancelled"), now)
		} else {
			x.ec.UpdateNodeResult(node.ID, func(r *NodeResult) {
				r.Status = NodeStatusSkipped
			})
		}
	}

	var failedIDs []string
	endCompleted := false
	anyCancelled := false
	for _, node := range x.def.Nodes {
		switch x.ec.NodeStatus(node.ID) {
		case NodeStatusFailed:
			failedIDs = append(failedIDs, node.ID)
		case NodeStatusCancelled:
			anyCancelled = true
		case NodeStatusCompleted:
			if node.Type == NodeTypeEnd {
				endCompleted = true
			}
		}
	}

	var status Status
	var errText string
	switch {
	case cancelled && anyCancelled:
		status = StatusCancelled
		errText = "execution cancelled"
	case len(failedIDs) > 0 && !endCompleted:
		status = StatusFailed
		errText = fmt.Sprintf("execution failed: nodes %s did not complete",
			strings.Join(failedIDs, ", "))
	default:
		// A completed end node means an alternate successful path exists,
		// so contained failures do not fail the run.
		status = StatusCompleted
	}

	outputs := x.extractWorkflowOutputs(status)

	completedAt := time.Now()
	x.result = &Result{
		ExecutionID:  x.ec.ID(),
		WorkflowID:   x.def.ID,
		WorkflowName: x.def.Name,
		Status:       status,
		Outputs:      outputs,
		NodeResults:  x.ec.NodeResults(),
		Error:        errText,
		StartedAt:    x.startedAt,
		CompletedAt:  completedAt,
		Duration:     completedAt.Sub(x.startedAt),
	}
	x.setStatus(status)

	if err := x.engine.store.SaveResult(ctx, x.result); err != nil {
		x.logger.Error("failed to store execution result", "error", err)
	}

	x.callbacks.AfterWorkflowExecution(ctx, &WorkflowExecutionEvent{
		ExecutionID:  x.ec.ID(),
		WorkflowID:   x.def.ID,
		WorkflowName: x.def.Name,
		Status:       status,
		StartTime:    x.startedAt,
		EndTime:      completedAt,
		Duration:     x.result.Duration,
		Inputs:       x.ec.Inputs(),
		Outputs:      copyMap(outputs),
		Error:        x.result.Err(),
	})

	if status == StatusFailed {
		x.logger.Error("workflow execution failed", "failed_nodes", failedIDs)
	} else {
		x.logger.Info("workflow execution finished", "status", status)
	}
}

// extractWorkflowOutputs resolves the definition's declared outputs from
// their source paths. Unresolvable sources are logged and omitted.
func (x *Execution) extractWorkflowOutputs(status Status) map[string]any {
	if len(x.def.Outputs) == 0 || status != StatusCompleted {
		return nil
	}
	outputs := make(map[string]any, len(x.def.Outputs))
	for _, output := range x.def.Outputs {
		source := output.Source
		if source == "" {
			source = output.Name
		}
		if m := wholeRefPattern.FindStringSubmatch(source); m != nil {
			source = m[1]
		}
		value, ok := x.resolver.Lookup(source)
		if !ok {
			x.logger.Warn("workflow output source not found",
				"output", output.Name, "source", source)
			continue
		}
		outputs[output.Name] = value
	}
	return outputs
}
