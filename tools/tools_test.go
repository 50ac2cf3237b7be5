package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMathTool(t *testing.T) {
	tool := NewMathTool()
	ctx := context.Background()

	result, err := tool.Execute(ctx, map[string]any{"operation": "add", "a": 2, "b": 3})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 5.0, result.Result)

	// Weak typing coerces string-valued parameters.
	result, err = tool.Execute(ctx, map[string]any{"operation": "multiply", "a": "4", "b": "2.5"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 10.0, result.Result)

	result, err = tool.Execute(ctx, map[string]any{"operation": "divide", "a": 1, "b": 0})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "division by zero")
}

func TestFailTool(t *testing.T) {
	tool := NewFailTool()
	result, err := tool.Execute(context.Background(), map[string]any{"message": "nope"})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "nope")
}

func TestSleepTool(t *testing.T) {
	tool := NewSleepTool()
	began := time.Now()
	result, err := tool.Execute(context.Background(), map[string]any{"duration": "15ms"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.GreaterOrEqual(t, time.Since(began), 15*time.Millisecond)

	result, err = tool.Execute(context.Background(), map[string]any{"duration": "0s"})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestTimeTool(t *testing.T) {
	tool := NewTimeTool()
	result, err := tool.Execute(context.Background(), map[string]any{"utc": true})
	require.NoError(t, err)
	require.True(t, result.Success)

	stamp, ok := result.Result.(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, stamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, time.Minute)
}

func TestScriptTool(t *testing.T) {
	tool := NewScriptTool(nil)
	result, err := tool.Execute(context.Background(), map[string]any{"code": "2 + 2"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, int64(4), result.Result)

	_, err = tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}
