package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/linkerlin/agentscope.net-sub000/script"
)

// DefaultConcurrency is the per-execution worker pool size used when the
// engine options leave Concurrency unset.
const DefaultConcurrency = 5

// Options configures an Engine. Zero-value fields fall back to working
// defaults: a discarding result store, a null invocation logger, and the
// default concurrency limit.
type Options struct {
	// Agents available for task nodes, keyed lookup is by Agent.Name.
	Agents []Agent

	// Tools available for task and reduce nodes.
	Tools []Tool

	// ScriptCompiler evaluates condition expressions that fall outside the
	// builtin comparison grammar. Optional.
	ScriptCompiler script.Compiler

	// Callbacks observe execution lifecycle events. Optional.
	Callbacks ExecutionCallbacks

	// InvocationLogger records every agent and tool invocation. Defaults to
	// the null logger.
	InvocationLogger InvocationLogger

	// ResultStore persists final execution results. Defaults to the null
	// store.
	ResultStore ResultStore

	// Formatter renders per-node progress for interactive use. Optional.
	Formatter Formatter

	// Concurrency bounds how many nodes each execution runs at once.
	// Defaults to DefaultConcurrency.
	Concurrency int

	Logger *slog.Logger
}

// Engine validates workflow definitions and runs them. An engine is safe for
// concurrent use; each call to Execute gets its own isolated execution state.
type Engine struct {
	agents      map[string]Agent
	tools       map[string]Tool
	compiler    script.Compiler
	callbacks   ExecutionCallbacks
	invocations InvocationLogger
	store       ResultStore
	formatter   Formatter
	concurrency int
	logger      *slog.Logger

	mu         sync.RWMutex
	workflows  map[string]*Definition
	executions map[string]*Execution
}

// New creates an Engine with the given options.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	callbacks := opts.Callbacks
	if callbacks == nil {
		callbacks = &BaseExecutionCallbacks{}
	}
	invocations := opts.InvocationLogger
	if invocations == nil {
		invocations = NewNullInvocationLogger()
	}
	store := opts.ResultStore
	if store == nil {
		store = NewNullResultStore()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	agents := make(map[string]Agent, len(opts.Agents))
	for _, agent := range opts.Agents {
		if agent.Name() == "" {
			return nil, NewError(ErrorTypeConfiguration, "agent has no name")
		}
		if _, exists := agents[agent.Name()]; exists {
			return nil, NewError(ErrorTypeConfiguration,
				fmt.Sprintf("duplicate agent name %q", agent.Name()))
		}
		agents[agent.Name()] = agent
	}
	tools := make(map[string]Tool, len(opts.Tools))
	for _, tool := range opts.Tools {
		if tool.Name() == "" {
			return nil, NewError(ErrorTypeConfiguration, "tool has no name")
		}
		if _, exists := tools[tool.Name()]; exists {
			return nil, NewError(ErrorTypeConfiguration,
				fmt.Sprintf("duplicate tool name %q", tool.Name()))
		}
		tools[tool.Name()] = tool
	}

	return &Engine{
		agents:      agents,
		tools:       tools,
		compiler:    opts.ScriptCompiler,
		callbacks:   callbacks,
		invocations: invocations,
		store:       store,
		formatter:   opts.Formatter,
		concurrency: concurrency,
		logger:      logger,
		workflows:   map[string]*Definition{},
		executions:  map[string]*Execution{},
	}, nil
}

// RegisterWorkflow makes a definition resolvable by ID for subworkflow nodes.
// The definition is validated before registration.
func (e *Engine) RegisterWorkflow(def *Definition) error {
	if def == nil {
		return NewError(ErrorTypeConfiguration, "workflow definition is nil")
	}
	if err := e.validateOnce(def); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.workflows[def.ID]; exists {
		return NewError(ErrorTypeConfiguration,
			fmt.Sprintf("workflow %q is already registered", def.ID))
	}
	e.workflows[def.ID] = def
	return nil
}

// Workflow returns a registered definition by ID.
func (e *Engine) Workflow(id string) (*Definition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.workflows[id]
	return def, ok
}

// Validate checks a definition and returns a configuration error carrying
// every violation found, or nil when the definition is runnable.
func (e *Engine) Validate(def *Definition) error {
	result := Validate(def)
	if !result.Valid {
		return NewError(ErrorTypeValidation, result.Err().Error())
	}
	return nil
}

// validateOnce validates a definition the first time the engine sees it.
// Validation mutates the definition's derived indexes, so first validation of
// a shared definition is serialized under the engine lock; an
// already-validated definition passes through untouched.
func (e *Engine) validateOnce(def *Definition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if def.nodesByID != nil {
		return nil
	}
	return e.Validate(def)
}

// Execute validates the definition and starts an asynchronous execution of
// it. The returned Execution is already running; use Wait to collect its
// result. Invalid definitions and input declaration violations are refused
// before any node runs.
func (e *Engine) Execute(ctx context.Context, def *Definition, inputs map[string]any) (*Execution, error) {
	if def == nil {
		return nil, NewError(ErrorTypeConfiguration, "workflow definition is nil")
	}
	if err := e.validateOnce(def); err != nil {
		return nil, err
	}
	start, err := def.StartNode()
	if err != nil {
		return nil, NewError(ErrorTypeValidation, err.Error())
	}
	resolved, err := resolveInputs(def, inputs)
	if err != nil {
		return nil, err
	}

	executionID := NewExecutionID()
	ec := NewExecutionContext(executionID, resolved, def.Variables)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	x := &Execution{
		engine:      e,
		def:         def,
		start:       start,
		ec:          ec,
		resolver:    NewResolver(ec),
		agents:      e.agents,
		tools:       e.tools,
		compiler:    e.compiler,
		callbacks:   e.callbacks,
		invocations: e.invocations,
		formatter:   e.formatter,
		concurrency: e.concurrency,
		logger:      e.logger.With("execution_id", executionID),
		cancelFn:    cancel,
		status:      StatusPending,
		enqueued:    map[string]bool{},
		doneCh:      make(chan struct{}),
	}
	x.handlers = newHandlers(x)

	e.mu.Lock()
	e.executions[executionID] = x
	e.mu.Unlock()

	go x.run(runCtx)
	return x, nil
}

// Run executes a definition and blocks until it finishes, returning the
// final result. The context cancels the run, not just the wait.
func (e *Engine) Run(ctx context.Context, def *Definition, inputs map[string]any) (*Result, error) {
	x, err := e.Execute(ctx, def, inputs)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { x.Cancel() })
	defer stop()
	return x.Wait(context.Background())
}

// GetExecution returns a previously started execution by ID.
func (e *Engine) GetExecution(executionID string) (*Execution, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	x, ok := e.executions[executionID]
	return x, ok
}

// GetStatus returns the status of an execution by ID.
func (e *Engine) GetStatus(executionID string) (Status, bool) {
	x, ok := e.GetExecution(executionID)
	if !ok {
		return "", false
	}
	return x.Status(), true
}

// Cancel cancels a running execution by ID. It reports false when the
// execution is unknown or already finished.
func (e *Engine) Cancel(executionID string) bool {
	x, ok := e.GetExecution(executionID)
	if !ok {
		return false
	}
	return x.Cancel()
}

// resolveInputs checks provided inputs against the definition's input
// declarations, applying defaults and rejecting unknown or missing values.
// Definitions without declarations accept any inputs as-is.
func resolveInputs(def *Definition, inputs map[string]any) (map[string]any, error) {
	if len(def.Inputs) == 0 {
		return copyMap(inputs), nil
	}
	declared := make(map[string]*Input, len(def.Inputs))
	resolved := make(map[string]any, len(def.Inputs))
	for _, input := range def.Inputs {
		declared[input.Name] = input
		if input.Default != nil {
			resolved[input.Name] = input.Default
		}
	}
	for name, value := range inputs {
		if _, ok := declared[name]; !ok {
			return nil, NewError(ErrorTypeConfiguration,
				fmt.Sprintf("unknown input %q", name))
		}
		resolved[name] = value
	}
	for name, input := range declared {
		if _, ok := resolved[name]; !ok && input.Required {
			return nil, NewError(ErrorTypeConfiguration,
				fmt.Sprintf("required input %q is missing", name))
		}
	}
	return resolved, nil
}
