package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/linkerlin/agentscope.net-sub000/retry"
)

// taskHandler invokes an external agent or tool with the node's resolved
// inputs, applying the node's retry policy and timeout. The returned payload
// is stored under the output key "result".
type taskHandler struct {
	x *Execution
}

func (h *taskHandler) Execute(ctx context.Context, node *Node) (map[string]any, error) {
	if (node.Agent == "") == (node.Tool == "") {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID,
			"task node requires exactly one of agent or tool")
	}
	params := h.x.resolver.ResolveMap(node.Inputs)

	maxAttempts := 1
	var delaySeconds, multiplier float64
	if node.Retry != nil && node.Retry.MaxAttempts > 1 {
		maxAttempts = node.Retry.MaxAttempts
		delaySeconds = node.Retry.DelaySeconds
		multiplier = node.Retry.BackoffMultiplier
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		h.x.ec.UpdateNodeResult(node.ID, func(r *NodeResult) {
			r.AttemptCount = attempt
		})
		payload, err := h.invoke(ctx, node, params, attempt)
		if err == nil {
			return map[string]any{"result": payload}, nil
		}
		lastErr = err
		if IsCancellation(err) || !retry.IsRecoverable(err) {
			break
		}
		if attempt < maxAttempts {
			delay := retry.Backoff(delaySeconds, multiplier, attempt)
			h.x.logger.Debug("retrying task node",
				"node_id", node.ID,
				"attempt", attempt,
				"delay", delay,
				"error", err)
			if sleepErr := retry.Sleep(ctx, delay); sleepErr != nil {
				lastErr = sleepErr
				break
			}
		}
	}
	return nil, lastErr
}

// invoke performs a single agent or tool invocation with the node's timeout
// applied, emitting invocation callbacks and an invocation log entry.
func (h *taskHandler) invoke(ctx context.Context, node *Node, params map[string]any, attempt int) (any, error) {
	x := h.x

	invokeCtx := ctx
	if node.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		timeout := time.Duration(node.TimeoutSeconds * float64(time.Second))
		invokeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	startTime := time.Now()
	event := &InvocationEvent{
		ExecutionID: x.ec.ID(),
		NodeID:      node.ID,
		Agent:       node.Agent,
		Tool:        node.Tool,
		Parameters:  copyMap(params),
		Attempt:     attempt,
		StartTime:   startTime,
	}
	x.callbacks.BeforeInvocation(ctx, event)

	var payload any
	var err error
	if node.Agent != "" {
		payload, err = h.invokeAgent(invokeCtx, node, params)
	} else {
		payload, err = h.invokeTool(invokeCtx, node, params)
	}

	// A deadline on the invocation context that the outer context did not
	// share means the node's own timeout fired.
	if err != nil && invokeCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = &Error{
			Type:    ErrorTypeTimeout,
			NodeID:  node.ID,
			Cause:   fmt.Sprintf("node timed out after %gs", node.TimeoutSeconds),
			Wrapped: err,
		}
	}

	endTime := time.Now()
	event.Result = payload
	event.EndTime = endTime
	event.Duration = endTime.Sub(startTime)
	event.Error = err
	x.callbacks.AfterInvocation(ctx, event)

	entry := &InvocationLogEntry{
		ExecutionID: x.ec.ID(),
		NodeID:      node.ID,
		Agent:       node.Agent,
		Tool:        node.Tool,
		Parameters:  params,
		Result:      payload,
		Attempt:     attempt,
		StartTime:   startTime,
		Duration:    endTime.Sub(startTime).Seconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if logErr := x.invocations.LogInvocation(ctx, entry); logErr != nil {
		x.logger.Error("failed to log invocation", "error", logErr)
	}

	return payload, err
}

func (h *taskHandler) invokeAgent(ctx context.Context, node *Node, params map[string]any) (any, error) {
	agent, ok := h.x.agents[node.Agent]
	if !ok {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID,
			fmt.Sprintf("unknown agent %q", node.Agent))
	}
	reply, err := agent.Invoke(ctx, buildAgentMessage(params))
	if err != nil {
		return nil, err
	}
	return reply.Content, nil
}

func (h *taskHandler) invokeTool(ctx context.Context, node *Node, params map[string]any) (any, error) {
	tool, ok := h.x.tools[node.Tool]
	if !ok {
		return nil, NewNodeError(ErrorTypeConfiguration, node.ID,
			fmt.Sprintf("unknown tool %q", node.Tool))
	}
	result, err := tool.Execute(ctx, params)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, NewNodeError(ErrorTypeExternalExecution, node.ID, result.Error)
	}
	return result.Result, nil
}

// buildAgentMessage constructs the message sent to an agent. A "message"
// parameter becomes the content; otherwise the full parameter map is
// marshaled. All parameters travel as metadata either way.
func buildAgentMessage(params map[string]any) Message {
	msg := Message{Role: "user", Metadata: copyMap(params)}
	if content, ok := params["message"]; ok {
		msg.Content = fmt.Sprintf("%v", content)
		return msg
	}
	if data, err := json.Marshal(params); err == nil {
		msg.Content = string(data)
	}
	return msg
}
