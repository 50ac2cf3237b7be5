package tools

import (
	"context"
	"errors"
	"fmt"

	workflow "github.com/linkerlin/agentscope.net-sub000"
	"github.com/linkerlin/agentscope.net-sub000/script"
)

// ScriptTool evaluates a Risor script. The script sees the execution's shared
// state under "state" when the state travels on the context.
type ScriptTool struct {
	compiler script.Compiler
}

// NewScriptTool creates a script tool backed by the given compiler. A nil
// compiler gets the default Risor engine.
func NewScriptTool(compiler script.Compiler) *ScriptTool {
	if compiler == nil {
		compiler = script.NewRisorScriptingEngine(script.DefaultRisorGlobals())
	}
	return &ScriptTool{compiler: compiler}
}

func (t *ScriptTool) Name() string {
	return "script"
}

func (t *ScriptTool) Execute(ctx context.Context, params map[string]any) (*workflow.ToolResult, error) {
	code, ok := params["code"].(string)
	if !ok || code == "" {
		return nil, errors.New("missing 'code' parameter")
	}

	globals := map[string]any{}
	if state, ok := workflow.StateFromContext(ctx); ok {
		globals["state"] = state.Copy()
	}
	if extra, ok := params["globals"].(map[string]any); ok {
		for name, value := range extra {
			globals[name] = value
		}
	}

	compiled, err := t.compiler.Compile(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}
	value, err := compiled.Evaluate(ctx, globals)
	if err != nil {
		return &workflow.ToolResult{Success: false, Error: err.Error()}, nil
	}
	return &workflow.ToolResult{Success: true, Result: value.Value()}, nil
}
