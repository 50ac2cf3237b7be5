package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/linkerlin/agentscope.net-sub000/script"
)

// evaluateCondition evaluates a decision node's condition expression.
//
// The typed grammar covers equality ("a == b"), inequality ("a != b"), and
// bare boolean literals. Operands may be literals, quoted strings, or
// "${path}" references; comparisons apply to their string forms. Expressions
// outside the grammar are handed to the script compiler and judged by their
// truthiness; a compile or evaluation error fails the decision node rather
// than silently selecting a branch.
func evaluateCondition(ctx context.Context, expr string, resolver *Resolver, compiler script.Compiler) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false, NewError(ErrorTypeConfiguration, "decision condition is empty")
	}

	switch strings.ToLower(expr) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	if lhs, rhs, op, ok := splitComparison(expr); ok {
		left := operandString(resolver, lhs)
		right := operandString(resolver, rhs)
		if op == "==" {
			return left == right, nil
		}
		return left != right, nil
	}

	if compiler == nil {
		return false, NewError(ErrorTypeConfiguration,
			fmt.Sprintf("unsupported condition syntax %q and no script compiler configured", expr))
	}
	compiled, err := compiler.Compile(ctx, expr)
	if err != nil {
		return false, fmt.Errorf("failed to compile condition %q: %w", expr, err)
	}
	value, err := compiled.Evaluate(ctx, map[string]any{
		"state":  resolver.ec.State().Copy(),
		"inputs": resolver.ec.Inputs(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition %q: %w", expr, err)
	}
	return value.IsTruthy(), nil
}

// splitComparison splits an expression at the first "==" or "!=" that appears
// outside of quotes. Expressions containing additional operators fall through
// to the script engine.
func splitComparison(expr string) (lhs, rhs, op string, ok bool) {
	inQuote := rune(0)
	runes := []rune(expr)
	for i := 0; i < len(runes)-1; i++ {
		ch := runes[i]
		if inQuote != 0 {
			if ch == inQuote {
				inQuote = 0
			}
			continue
		}
		if ch == '"' || ch == '\'' {
			inQuote = ch
			continue
		}
		if runes[i+1] != '=' {
			continue
		}
		if ch == '=' || ch == '!' {
			// Reject chained or compound comparisons like "a == b == c".
			lhs = string(runes[:i])
			rhs = string(runes[i+2:])
			op = string(ch) + "="
			if strings.Contains(rhs, "==") || strings.Contains(rhs, "!=") {
				return "", "", "", false
			}
			if strings.TrimSpace(lhs) == "" || strings.TrimSpace(rhs) == "" {
				return "", "", "", false
			}
			return lhs, rhs, op, true
		}
	}
	return "", "", "", false
}

// operandString resolves one comparison operand to its string form.
func operandString(resolver *Resolver, operand string) string {
	operand = strings.TrimSpace(operand)
	if len(operand) >= 2 {
		if (operand[0] == '"' && operand[len(operand)-1] == '"') ||
			(operand[0] == '\'' && operand[len(operand)-1] == '\'') {
			return operand[1 : len(operand)-1]
		}
	}
	resolved := resolver.Resolve(operand)
	if resolved == nil {
		return ""
	}
	return fmt.Sprintf("%v", resolved)
}
