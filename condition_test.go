package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkerlin/agentscope.net-sub000/script"
)

func conditionFixture(t *testing.T) *Resolver {
	t.Helper()
	ec := NewExecutionContext("exec_test",
		map[string]any{"mode": "fast"},
		map[string]any{"count": 4})
	return NewResolver(ec)
}

func TestEvaluateConditionLiterals(t *testing.T) {
	r := conditionFixture(t)
	ctx := context.Background()

	met, err := evaluateCondition(ctx, "true", r, nil)
	require.NoError(t, err)
	assert.True(t, met)

	met, err = evaluateCondition(ctx, "False", r, nil)
	require.NoError(t, err)
	assert.False(t, met)
}

func TestEvaluateConditionComparisons(t *testing.T) {
	r := conditionFixture(t)
	ctx := context.Background()

	tests := []struct {
		expr string
		want bool
	}{
		{`${mode} == fast`, true},
		{`${mode} == "fast"`, true},
		{`${mode} == 'slow'`, false},
		{`${mode} != slow`, true},
		{`${count} == 4`, true},
		{`${count} != 4`, false},
		{`"a" == "b"`, false},
	}
	for _, tt := range tests {
		met, err := evaluateCondition(ctx, tt.expr, r, nil)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, met, tt.expr)
	}
}

func TestEvaluateConditionEmptyFails(t *testing.T) {
	r := conditionFixture(t)
	_, err := evaluateCondition(context.Background(), "  ", r, nil)
	require.Error(t, err)
	assert.True(t, MatchesType(err, ErrorTypeConfiguration))
}

func TestEvaluateConditionScriptFallback(t *testing.T) {
	r := conditionFixture(t)
	compiler := script.NewRisorScriptingEngine(script.DefaultRisorGlobals())
	ctx := context.Background()

	met, err := evaluateCondition(ctx, "3 > 2", r, compiler)
	require.NoError(t, err)
	assert.True(t, met)

	met, err = evaluateCondition(ctx, "1 > 2", r, compiler)
	require.NoError(t, err)
	assert.False(t, met)
}

func TestEvaluateConditionScriptErrorFailsLoudly(t *testing.T) {
	r := conditionFixture(t)
	compiler := script.NewRisorScriptingEngine(script.DefaultRisorGlobals())

	_, err := evaluateCondition(context.Background(), "this is ((( not valid", r, compiler)
	require.Error(t, err)
}

func TestEvaluateConditionWithoutCompiler(t *testing.T) {
	r := conditionFixture(t)
	_, err := evaluateCondition(context.Background(), "3 > 2", r, nil)
	require.Error(t, err)
	assert.True(t, MatchesType(err, ErrorTypeConfiguration))
}

func TestSplitComparisonQuoting(t *testing.T) {
	lhs, rhs, op, ok := splitComparison(`"a==b" == c`)
	require.True(t, ok)
	assert.Equal(t, "==", op)
	assert.Equal(t, `"a==b" `, lhs)
	assert.Equal(t, " c", rhs)

	// Chained comparisons fall through to the script engine.
	_, _, _, ok = splitComparison("a == b == c")
	assert.False(t, ok)
}
