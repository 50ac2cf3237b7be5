package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// wholeRefPattern matches a value that is exactly one "${path}" reference.
	wholeRefPattern = regexp.MustCompile(`^\$\{([^}]+)\}$`)
	// embeddedRefPattern matches "${path}" references inside a larger string.
	embeddedRefPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// Resolver resolves "${path}" references against an execution's recorded node
// outputs and shared state. A path is split at its first dot: when the first
// segment names a recorded node, the remainder is looked up in that node's
// outputs; otherwise the whole path is looked up in the shared state.
type Resolver struct {
	ec *ExecutionContext
}

// NewResolver creates a resolver bound to an execution context.
func NewResolver(ec *ExecutionContext) *Resolver {
	return &Resolver{ec: ec}
}

// Resolve resolves a single value. Strings that are exactly one reference
// resolve to the referenced value (nil when unresolved); strings with
// embedded references interpolate their string forms; maps and slices are
// resolved recursively; everything else passes through unchanged.
func (r *Resolver) Resolve(value any) any {
	switch v := value.(type) {
	case string:
		if m := wholeRefPattern.FindStringSubmatch(v); m != nil {
			resolved, _ := r.Lookup(m[1])
			return resolved
		}
		if embeddedRefPattern.MatchString(v) {
			return embeddedRefPattern.ReplaceAllStringFunc(v, func(match string) string {
				path := match[2 : len(match)-1]
				resolved, ok := r.Lookup(path)
				if !ok {
					return ""
				}
				return fmt.Sprintf("%v", resolved)
			})
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = r.Resolve(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.Resolve(item)
		}
		return out
	default:
		return value
	}
}

// ResolveMap resolves every value in a map, returning a new map.
func (r *Resolver) ResolveMap(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = r.Resolve(value)
	}
	return out
}

// Lookup resolves a dotted path. An unresolved path yields (nil, false)
// rather than an error; callers treat absent values permissively.
func (r *Resolver) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	if head, rest, found := strings.Cut(path, "."); found {
		if result, ok := r.ec.NodeResult(head); ok {
			return lookupOutput(result.Outputs, rest)
		}
	} else if result, ok := r.ec.NodeResult(path); ok {
		// A bare node ID resolves to the node's full outputs map.
		return result.Outputs, true
	}
	return r.ec.State().Get(path)
}

// lookupOutput finds a key in a node's outputs. The whole remainder is tried
// first; when that misses and the remainder is dotted, nested maps are
// traversed one segment at a time.
func lookupOutput(outputs map[string]any, key string) (any, bool) {
	if value, ok := outputs[key]; ok {
		return value, true
	}
	segments := strings.Split(key, ".")
	if len(segments) < 2 {
		return nil, false
	}
	var current any = outputs
	for _, segment := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[segment]; !ok {
			return nil, false
		}
	}
	return current, true
}
