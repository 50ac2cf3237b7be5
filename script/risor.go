package script

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/modules/all"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
)

// RisorScriptingEngine compiles expressions with the Risor scripting
// language. The same engine instance may compile any number of scripts.
type RisorScriptingEngine struct {
	globals map[string]any
}

// NewRisorScriptingEngine creates a Risor compiler with the given globals
// available to every compiled script.
func NewRisorScriptingEngine(globals map[string]any) *RisorScriptingEngine {
	return &RisorScriptingEngine{globals: globals}
}

// DefaultRisorGlobals returns the standard Risor builtins plus empty "inputs"
// and "state" maps, which executions replace per evaluation.
func DefaultRisorGlobals() map[string]any {
	globals := map[string]any{}
	for name, value := range all.Builtins() {
		globals[name] = value
	}
	globals["inputs"] = object.NewMap(map[string]object.Object{})
	globals["state"] = object.NewMap(map[string]object.Object{})
	return globals
}

func (e *RisorScriptingEngine) Compile(ctx context.Context, code string) (Script, error) {
	ast, err := parser.Parse(ctx, code)
	if err != nil {
		return nil, err
	}
	var globalNames []string
	for name := range e.globals {
		globalNames = append(globalNames, name)
	}
	sort.Strings(globalNames)

	compiledCode, err := compiler.Compile(ast, compiler.WithGlobalNames(globalNames))
	if err != nil {
		return nil, err
	}
	return &RisorScript{engine: e, code: compiledCode}, nil
}

// RisorScript is a compiled Risor expression.
type RisorScript struct {
	engine *RisorScriptingEngine
	code   *compiler.Code
}

func (s *RisorScript) Evaluate(ctx context.Context, globals map[string]any) (Value, error) {
	combinedGlobals := make(map[string]any)
	for name, value := range s.engine.globals {
		combinedGlobals[name] = value
	}
	for name, value := range globals {
		combinedGlobals[name] = value
	}
	value, err := risor.EvalCode(ctx, s.code, risor.WithGlobals(combinedGlobals))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate risor script: %w", err)
	}
	return &RisorValue{obj: value}, nil
}

// RisorValue adapts a Risor object to the Value interface.
type RisorValue struct {
	obj object.Object
}

func (v *RisorValue) Value() any {
	return convertRisorObject(v.obj)
}

func (v *RisorValue) IsTruthy() bool {
	switch obj := v.obj.(type) {
	case *object.Bool:
		return obj.Value()
	case *object.Int:
		return obj.Value() != 0
	case *object.Float:
		return obj.Value() != 0.0
	case *object.List:
		return len(obj.Value()) > 0
	case *object.Map:
		return len(obj.Value()) > 0
	case *object.String:
		val := obj.Value()
		return val != "" && strings.ToLower(val) != "false"
	default:
		return obj.IsTruthy()
	}
}

func (v *RisorValue) String() string {
	switch obj := v.obj.(type) {
	case *object.String:
		return obj.Value()
	case *object.Int:
		return fmt.Sprintf("%d", obj.Value())
	case *object.Float:
		return fmt.Sprintf("%g", obj.Value())
	case *object.Bool:
		return fmt.Sprintf("%t", obj.Value())
	case *object.Time:
		return obj.Value().Format(time.RFC3339)
	case *object.NilType:
		return ""
	case fmt.Stringer:
		return obj.String()
	default:
		return fmt.Sprintf("%v", v.obj)
	}
}

// convertRisorObject converts a Risor object into a plain Go value.
func convertRisorObject(obj object.Object) any {
	switch o := obj.(type) {
	case *object.String:
		return o.Value()
	case *object.Int:
		return o.Value()
	case *object.Float:
		return o.Value()
	case *object.Bool:
		return o.Value()
	case *object.Time:
		return o.Value()
	case *object.NilType:
		return nil
	case *object.List:
		var result []any
		for _, item := range o.Value() {
			result = append(result, convertRisorObject(item))
		}
		return result
	case *object.Map:
		result := make(map[string]any)
		for key, value := range o.Value() {
			result[key] = convertRisorObject(value)
		}
		return result
	case *object.Set:
		var result []any
		for _, item := range o.Value() {
			result = append(result, convertRisorObject(item))
		}
		return result
	default:
		// Fallback to string representation
		return o.Inspect()
	}
}
