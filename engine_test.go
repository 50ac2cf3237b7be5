package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	engine, err := New(opts)
	require.NoError(t, err)
	return engine
}

func doubleTool() Tool {
	return NewToolFunc("double", func(ctx context.Context, params map[string]any) (any, error) {
		value, err := toFloat(params["value"])
		if err != nil {
			return nil, err
		}
		return value * 2, nil
	})
}

func noopTool() Tool {
	return NewToolFunc("noop", func(ctx context.Context, params map[string]any) (any, error) {
		return "ok", nil
	})
}

func runToCompletion(t *testing.T, engine *Engine, def *Definition, inputs map[string]any) *Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := engine.Run(ctx, def, inputs)
	require.NoError(t, err)
	return result
}

func TestRunLinearWorkflow(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{doubleTool()}})
	def := &Definition{
		ID:   "chain",
		Name: "Chained doubling",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "a", Type: NodeTypeTask, Tool: "double", DependsOn: []string{"start"},
				Inputs: map[string]any{"value": "${x}"}},
			{ID: "b", Type: NodeTypeTask, Tool: "double", DependsOn: []string{"a"},
				Inputs: map[string]any{"value": "${a.result}"}},
			{ID: "end", Type: NodeTypeEnd, DependsOn: []string{"b"}},
		},
		Outputs: []*Output{{Name: "final", Source: "b.result"}},
	}

	result := runToCompletion(t, engine, def, map[string]any{"x": 5})
	require.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 20.0, result.Outputs["final"])
	assert.NotEmpty(t, result.ExecutionID)

	a, ok := result.NodeResult("a")
	require.True(t, ok)
	assert.Equal(t, NodeStatusCompleted, a.Status)
	assert.Equal(t, 10.0, a.Outputs["result"])

	// Every node, including the markers, has a terminal result.
	assert.Len(t, result.NodeResults, 4)
	for _, nr := range result.NodeResults {
		assert.Equal(t, NodeStatusCompleted, nr.Status, nr.NodeID)
	}
}

func TestExecuteRefusesInvalidDefinition(t *testing.T) {
	engine := newTestEngine(t, Options{})
	def := &Definition{
		ID: "cyclic",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart, DependsOn: []string{"a"}},
			{ID: "a", Type: NodeTypeTask, Tool: "noop", DependsOn: []string{"start"}},
		},
	}
	_, err := engine.Execute(context.Background(), def, nil)
	require.Error(t, err)
	assert.True(t, MatchesType(err, ErrorTypeValidation))
	assert.Contains(t, err.Error(), "cycle")
}

func TestConcurrentExecuteSharedDefinition(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{doubleTool()}})
	def := &Definition{
		ID: "shared",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "a", Type: NodeTypeTask, Tool: "double", DependsOn: []string{"start"},
				Inputs: map[string]any{"value": "${x}"}},
			{ID: "b", Type: NodeTypeTask, Tool: "double", DependsOn: []string{"a"},
				Inputs: map[string]any{"value": "${a.result}"}},
		},
	}

	// First validation mutates the definition's derived indexes, so racing
	// executions of a fresh definition must be safe.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, err := engine.Execute(context.Background(), def, map[string]any{"x": 1})
			if err != nil {
				errs[i] = err
				return
			}
			result, err := x.Wait(context.Background())
			if err != nil {
				errs[i] = err
				return
			}
			if result.Status != StatusCompleted {
				errs[i] = fmt.Errorf("status %s", result.Status)
			}
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "execution %d", i)
	}
}

func TestExecutionOrdering(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) Tool {
		return NewToolFunc(name, func(ctx context.Context, params map[string]any) (any, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		})
	}
	engine := newTestEngine(t, Options{Tools: []Tool{record("first"), record("second")}})
	def := &Definition{
		ID: "ordered",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "x", Type: NodeTypeTask, Tool: "first", DependsOn: []string{"start"}},
			{ID: "y", Type: NodeTypeTask, Tool: "second", DependsOn: []string{"x"}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, []string{"first", "second"}, order)

	// A node never starts before its dependencies complete.
	x, ok := result.NodeResult("x")
	require.True(t, ok)
	y, ok := result.NodeResult("y")
	require.True(t, ok)
	assert.False(t, y.StartedAt.Before(x.CompletedAt),
		"y started at %v before x completed at %v", y.StartedAt, x.CompletedAt)
}

func TestConcurrencyLimit(t *testing.T) {
	var current, peak int32
	track := NewToolFunc("track", func(ctx context.Context, params map[string]any) (any, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil, nil
	})
	engine := newTestEngine(t, Options{Tools: []Tool{track}, Concurrency: 2})

	nodes := []*Node{{ID: "start", Type: NodeTypeStart}}
	for i := 0; i < 4; i++ {
		nodes = append(nodes, &Node{
			ID:        fmt.Sprintf("t%d", i),
			Type:      NodeTypeTask,
			Tool:      "track",
			DependsOn: []string{"start"},
		})
	}
	result := runToCompletion(t, engine, &Definition{ID: "bounded", Nodes: nodes}, nil)
	require.Equal(t, StatusCompleted, result.Status)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestFailureContainment(t *testing.T) {
	failing := NewToolFunc("fail", func(ctx context.Context, params map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	engine := newTestEngine(t, Options{Tools: []Tool{failing, noopTool()}})
	def := &Definition{
		ID: "contained",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "f", Type: NodeTypeTask, Tool: "fail", DependsOn: []string{"start"}},
			{ID: "fd", Type: NodeTypeTask, Tool: "noop", DependsOn: []string{"f"}},
			{ID: "g", Type: NodeTypeTask, Tool: "noop", DependsOn: []string{"start"}},
			{ID: "end", Type: NodeTypeEnd, DependsOn: []string{"fd", "g"}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "f")

	wantStatus := map[string]NodeStatus{
		"f":   NodeStatusFailed,
		"fd":  NodeStatusSkipped,
		"g":   NodeStatusCompleted,
		"end": NodeStatusSkipped,
	}
	for id, want := range wantStatus {
		nr, ok := result.NodeResult(id)
		require.True(t, ok, id)
		assert.Equal(t, want, nr.Status, id)
	}
	f, _ := result.NodeResult("f")
	assert.Contains(t, f.Error, "boom")
}

func TestFailureWithAlternateSuccessPath(t *testing.T) {
	failing := NewToolFunc("fail", func(ctx context.Context, params map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	engine := newTestEngine(t, Options{Tools: []Tool{failing, noopTool()}})
	def := &Definition{
		ID: "alternate",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "f", Type: NodeTypeTask, Tool: "fail", DependsOn: []string{"start"}},
			{ID: "g", Type: NodeTypeTask, Tool: "noop", DependsOn: []string{"start"}},
			{ID: "end", Type: NodeTypeEnd, DependsOn: []string{"g"}},
		},
	}
	result := runToCompletion(t, engine, def, nil)

	// A completed end node means a successful path exists despite the failure.
	assert.Equal(t, StatusCompleted, result.Status)
	f, _ := result.NodeResult("f")
	assert.Equal(t, NodeStatusFailed, f.Status)
}

func TestDecisionSkipsUnselectedBranch(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{noopTool()}})
	def := &Definition{
		ID: "routed",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "route", Type: NodeTypeDecision, DependsOn: []string{"start"},
				Condition: "${mode} == fast", TrueBranch: "fast", FalseBranch: "slow"},
			{ID: "fast", Type: NodeTypeTask, Tool: "noop", DependsOn: []string{"route"}},
			{ID: "slow", Type: NodeTypeTask, Tool: "noop", DependsOn: []string{"route"}},
			{ID: "end", Type: NodeTypeEnd, DependsOn: []string{"route"}},
		},
	}
	result := runToCompletion(t, engine, def, map[string]any{"mode": "fast"})
	require.Equal(t, StatusCompleted, result.Status)

	route, _ := result.NodeResult("route")
	assert.Equal(t, true, route.Outputs["conditionMet"])
	assert.Equal(t, "fast", route.Outputs["selectedBranch"])

	fast, _ := result.NodeResult("fast")
	assert.Equal(t, NodeStatusCompleted, fast.Status)
	slow, _ := result.NodeResult("slow")
	assert.Equal(t, NodeStatusSkipped, slow.Status)
}

func TestDecisionFailsOnBadCondition(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{noopTool()}})
	def := &Definition{
		ID: "badcond",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "route", Type: NodeTypeDecision, DependsOn: []string{"start"},
				Condition: "definitely not parseable ((("},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusFailed, result.Status)
	route, _ := result.NodeResult("route")
	assert.Equal(t, NodeStatusFailed, route.Status)
}

func TestTaskRetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls atomic.Int32
	flaky := NewToolFunc("flaky", func(ctx context.Context, params map[string]any) (any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient failure")
		}
		return "ok", nil
	})
	engine := newTestEngine(t, Options{Tools: []Tool{flaky}})
	def := &Definition{
		ID: "retried",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "t", Type: NodeTypeTask, Tool: "flaky", DependsOn: []string{"start"},
				Retry: &RetryConfig{MaxAttempts: 3, DelaySeconds: 0.001, BackoffMultiplier: 2}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)

	nr, _ := result.NodeResult("t")
	assert.Equal(t, NodeStatusCompleted, nr.Status)
	assert.Equal(t, 3, nr.AttemptCount)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "ok", nr.Outputs["result"])
}

func TestTaskConfigurationErrorIsNotRetried(t *testing.T) {
	engine := newTestEngine(t, Options{})
	def := &Definition{
		ID: "misconfigured",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "t", Type: NodeTypeTask, Tool: "no-such-tool", DependsOn: []string{"start"},
				Retry: &RetryConfig{MaxAttempts: 3}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusFailed, result.Status)

	nr, _ := result.NodeResult("t")
	assert.Equal(t, NodeStatusFailed, nr.Status)
	assert.Equal(t, 1, nr.AttemptCount)
	assert.Contains(t, nr.Error, "no-such-tool")
}

func TestTaskTimeout(t *testing.T) {
	slow := NewToolFunc("slow", func(ctx context.Context, params map[string]any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return "done", nil
		}
	})
	engine := newTestEngine(t, Options{Tools: []Tool{slow}})
	def := &Definition{
		ID: "timed",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "t", Type: NodeTypeTask, Tool: "slow", DependsOn: []string{"start"},
				TimeoutSeconds: 0.05},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusFailed, result.Status)

	nr, _ := result.NodeResult("t")
	assert.Equal(t, NodeStatusFailed, nr.Status)
	assert.Contains(t, nr.Error, ErrorTypeTimeout)
}

func TestTaskRequiresExactlyOneCollaborator(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{noopTool()}})
	def := &Definition{
		ID: "ambiguous",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "t", Type: NodeTypeTask, Tool: "noop", Agent: "helper", DependsOn: []string{"start"}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusFailed, result.Status)
	nr, _ := result.NodeResult("t")
	assert.Contains(t, nr.Error, ErrorTypeConfiguration)
}

func TestAgentInvocation(t *testing.T) {
	echo := NewAgentFunc("echo", func(ctx context.Context, message Message) (Message, error) {
		return Message{Role: "assistant", Content: "echo: " + message.Content}, nil
	})
	engine := newTestEngine(t, Options{Agents: []Agent{echo}})
	def := &Definition{
		ID: "agented",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "ask", Type: NodeTypeTask, Agent: "echo", DependsOn: []string{"start"},
				Inputs: map[string]any{"message": "hi"}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)
	nr, _ := result.NodeResult("ask")
	assert.Equal(t, "echo: hi", nr.Outputs["result"])
}

func TestParallelNode(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{doubleTool()}})
	def := &Definition{
		ID: "fanout",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "par", Type: NodeTypeParallel, DependsOn: []string{"start"}, Children: []*Node{
				{ID: "c1", Type: NodeTypeTask, Tool: "double", Inputs: map[string]any{"value": 1}},
				{ID: "c2", Type: NodeTypeTask, Tool: "double", Inputs: map[string]any{"value": 2}},
			}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)

	par, _ := result.NodeResult("par")
	results, ok := par.Outputs["results"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, results, 2)

	c1, ok := result.NodeResult("c1")
	require.True(t, ok)
	assert.Equal(t, NodeStatusCompleted, c1.Status)
	assert.Equal(t, 2.0, c1.Outputs["result"])
}

func TestParallelNodeFailsWhenChildFails(t *testing.T) {
	failing := NewToolFunc("fail", func(ctx context.Context, params map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	engine := newTestEngine(t, Options{Tools: []Tool{failing, noopTool()}})
	def := &Definition{
		ID: "fanout-fail",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "par", Type: NodeTypeParallel, DependsOn: []string{"start"}, Children: []*Node{
				{ID: "ok", Type: NodeTypeTask, Tool: "noop"},
				{ID: "bad", Type: NodeTypeTask, Tool: "fail"},
			}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusFailed, result.Status)

	par, _ := result.NodeResult("par")
	assert.Equal(t, NodeStatusFailed, par.Status)

	// The sibling still ran to completion; only the parallel node fails.
	ok, _ := result.NodeResult("ok")
	assert.Equal(t, NodeStatusCompleted, ok.Status)
	bad, _ := result.NodeResult("bad")
	assert.Equal(t, NodeStatusFailed, bad.Status)
}

func TestMapNode(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{doubleTool()}})
	def := &Definition{
		ID: "mapped",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "m", Type: NodeTypeMap, DependsOn: []string{"start"},
				Inputs: map[string]any{"items": []any{1, 2, 3}},
				Children: []*Node{
					{ID: "dbl", Type: NodeTypeTask, Tool: "double",
						Inputs: map[string]any{"value": "${item}"}},
				}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)

	m, _ := result.NodeResult("m")
	assert.Equal(t, 3, m.Outputs["count"])
	assert.Equal(t, []any{2.0, 4.0, 6.0}, m.Outputs["results"])

	// Instantiated children record individual results.
	child, ok := result.NodeResult("dbl[1]")
	require.True(t, ok)
	assert.Equal(t, NodeStatusCompleted, child.Status)
}

func TestReduceNodeBuiltinOperations(t *testing.T) {
	engine := newTestEngine(t, Options{})
	def := &Definition{
		ID: "folded",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "sum", Type: NodeTypeReduce, DependsOn: []string{"start"},
				Inputs: map[string]any{"items": []any{1, 2, 3}, "operation": "sum", "initial": 10}},
			{ID: "join", Type: NodeTypeReduce, DependsOn: []string{"start"},
				Inputs: map[string]any{"items": []any{"a", "b"}, "operation": "concat"}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)

	sum, _ := result.NodeResult("sum")
	assert.Equal(t, 16.0, sum.Outputs["result"])
	join, _ := result.NodeResult("join")
	assert.Equal(t, "ab", join.Outputs["result"])
}

func TestReduceNodeWithTool(t *testing.T) {
	fold := NewToolFunc("fold", func(ctx context.Context, params map[string]any) (any, error) {
		acc := 0.0
		if params["accumulator"] != nil {
			var err error
			acc, err = toFloat(params["accumulator"])
			if err != nil {
				return nil, err
			}
		}
		item, err := toFloat(params["item"])
		if err != nil {
			return nil, err
		}
		return acc + item, nil
	})
	engine := newTestEngine(t, Options{Tools: []Tool{fold}})
	def := &Definition{
		ID: "tool-folded",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "r", Type: NodeTypeReduce, Tool: "fold", DependsOn: []string{"start"},
				Inputs: map[string]any{"items": []any{1, 2, 3, 4}}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)
	r, _ := result.NodeResult("r")
	assert.Equal(t, 10.0, r.Outputs["result"])
}

func TestReduceNodeRetriesFlakySteps(t *testing.T) {
	var calls atomic.Int32
	flakyFold := NewToolFunc("fold", func(ctx context.Context, params map[string]any) (any, error) {
		// The second element fails once before succeeding.
		index, _ := toFloat(params["index"])
		if index == 1 && calls.Add(1) == 1 {
			return nil, errors.New("transient failure")
		}
		acc := 0.0
		if params["accumulator"] != nil {
			var err error
			acc, err = toFloat(params["accumulator"])
			if err != nil {
				return nil, err
			}
		}
		item, err := toFloat(params["item"])
		if err != nil {
			return nil, err
		}
		return acc + item, nil
	})
	engine := newTestEngine(t, Options{Tools: []Tool{flakyFold}})
	def := &Definition{
		ID: "retried-fold",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "r", Type: NodeTypeReduce, Tool: "fold", DependsOn: []string{"start"},
				Retry:  &RetryConfig{MaxAttempts: 3, DelaySeconds: 0.001, BackoffMultiplier: 2},
				Inputs: map[string]any{"items": []any{1, 2, 3}}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)

	r, _ := result.NodeResult("r")
	assert.Equal(t, NodeStatusCompleted, r.Status)
	assert.Equal(t, 6.0, r.Outputs["result"])
	assert.Equal(t, int32(2), calls.Load())
}

func TestReduceNodeTimeout(t *testing.T) {
	slowFold := NewToolFunc("fold", func(ctx context.Context, params map[string]any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return params["item"], nil
		}
	})
	engine := newTestEngine(t, Options{Tools: []Tool{slowFold}})
	def := &Definition{
		ID: "timed-fold",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "r", Type: NodeTypeReduce, Tool: "fold", DependsOn: []string{"start"},
				TimeoutSeconds: 0.05,
				Inputs:         map[string]any{"items": []any{1}}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusFailed, result.Status)

	r, _ := result.NodeResult("r")
	assert.Equal(t, NodeStatusFailed, r.Status)
	assert.Contains(t, r.Error, ErrorTypeTimeout)
}

func TestWaitNode(t *testing.T) {
	engine := newTestEngine(t, Options{})
	def := &Definition{
		ID: "paused",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "w", Type: NodeTypeWait, DependsOn: []string{"start"},
				Inputs: map[string]any{"duration": "20ms"}},
		},
	}
	began := time.Now()
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)
	assert.GreaterOrEqual(t, time.Since(began), 20*time.Millisecond)

	w, _ := result.NodeResult("w")
	assert.InDelta(t, 0.02, w.Outputs["duration_seconds"], 0.0001)
}

func TestSubWorkflowNode(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{doubleTool()}})
	child := &Definition{
		ID:     "child",
		Inputs: []*Input{{Name: "x", Required: true}},
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "t", Type: NodeTypeTask, Tool: "double", DependsOn: []string{"start"},
				Inputs: map[string]any{"value": "${x}"}},
			{ID: "end", Type: NodeTypeEnd, DependsOn: []string{"t"}},
		},
		Outputs: []*Output{{Name: "doubled", Source: "t.result"}},
	}
	require.NoError(t, engine.RegisterWorkflow(child))

	parent := &Definition{
		ID: "parent",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "sub", Type: NodeTypeSubWorkflow, WorkflowID: "child",
				DependsOn: []string{"start"},
				Inputs:    map[string]any{"x": 7}},
		},
	}
	result := runToCompletion(t, engine, parent, nil)
	require.Equal(t, StatusCompleted, result.Status)

	sub, _ := result.NodeResult("sub")
	assert.Equal(t, 14.0, sub.Outputs["doubled"])
	assert.NotEmpty(t, sub.Outputs["execution_id"])
}

func TestCancellationMidRun(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	blocker := NewToolFunc("block", func(ctx context.Context, params map[string]any) (any, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	})
	engine := newTestEngine(t, Options{Tools: []Tool{blocker, noopTool()}})
	def := &Definition{
		ID: "cancellable",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "b", Type: NodeTypeTask, Tool: "block", DependsOn: []string{"start"}},
			{ID: "after", Type: NodeTypeTask, Tool: "noop", DependsOn: []string{"b"}},
		},
	}

	x, err := engine.Execute(context.Background(), def, nil)
	require.NoError(t, err)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("blocking node never started")
	}

	require.True(t, engine.Cancel(x.ID()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := x.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, result.Status)

	b, _ := result.NodeResult("b")
	assert.Equal(t, NodeStatusCancelled, b.Status)
	after, _ := result.NodeResult("after")
	assert.Equal(t, NodeStatusCancelled, after.Status)

	status, ok := engine.GetStatus(x.ID())
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, status)

	// Cancelling a finished execution reports false.
	assert.False(t, engine.Cancel(x.ID()))
}

func TestOutputMappingsRenameRawOutputs(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{doubleTool()}})
	def := &Definition{
		ID: "renamed",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "t", Type: NodeTypeTask, Tool: "double", DependsOn: []string{"start"},
				Inputs:  map[string]any{"value": 3},
				Outputs: map[string]string{"doubled": "result"}},
		},
	}
	result := runToCompletion(t, engine, def, nil)
	require.Equal(t, StatusCompleted, result.Status)
	nr, _ := result.NodeResult("t")
	assert.Equal(t, 6.0, nr.Outputs["doubled"])
	_, hasRaw := nr.Outputs["result"]
	assert.False(t, hasRaw)
}

func TestInputDeclarations(t *testing.T) {
	engine := newTestEngine(t, Options{Tools: []Tool{noopTool()}})
	def := &Definition{
		ID: "declared",
		Inputs: []*Input{
			{Name: "required", Required: true},
			{Name: "optional", Default: "fallback"},
		},
		Nodes: []*Node{{ID: "start", Type: NodeTypeStart}},
	}

	_, err := engine.Execute(context.Background(), def, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")

	_, err = engine.Execute(context.Background(), def, map[string]any{"required": 1, "bogus": 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown input")

	x, err := engine.Execute(context.Background(), def, map[string]any{"required": 1})
	require.NoError(t, err)
	result, err := x.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
}

func TestRegisterWorkflowRejectsDuplicates(t *testing.T) {
	engine := newTestEngine(t, Options{})
	def := &Definition{ID: "dup", Nodes: []*Node{{ID: "start", Type: NodeTypeStart}}}
	require.NoError(t, engine.RegisterWorkflow(def))
	err := engine.RegisterWorkflow(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}
