package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRisorCompileAndEvaluate(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	ctx := context.Background()

	compiled, err := engine.Compile(ctx, `inputs["a"] + inputs["b"]`)
	require.NoError(t, err)

	value, err := compiled.Evaluate(ctx, map[string]any{
		"inputs": map[string]any{"a": 2, "b": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), value.Value())
	assert.True(t, value.IsTruthy())
	assert.Equal(t, "5", value.String())
}

func TestRisorTruthiness(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	ctx := context.Background()

	tests := []struct {
		code string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"0", false},
		{"1", true},
		{`""`, false},
		{`"false"`, false},
		{`"yes"`, true},
		{"[]", false},
		{"[1]", true},
	}
	for _, tt := range tests {
		compiled, err := engine.Compile(ctx, tt.code)
		require.NoError(t, err, tt.code)
		value, err := compiled.Evaluate(ctx, nil)
		require.NoError(t, err, tt.code)
		assert.Equal(t, tt.want, value.IsTruthy(), tt.code)
	}
}

func TestRisorCompileError(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	_, err := engine.Compile(context.Background(), "((( nope")
	require.Error(t, err)
}

func TestRisorValueConversion(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	ctx := context.Background()

	compiled, err := engine.Compile(ctx, `{"name": "x", "tags": ["a", "b"], "n": 1.5}`)
	require.NoError(t, err)
	value, err := compiled.Evaluate(ctx, nil)
	require.NoError(t, err)

	m, ok := value.Value().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", m["name"])
	assert.Equal(t, 1.5, m["n"])
	assert.Equal(t, []any{"a", "b"}, m["tags"])
}
