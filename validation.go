package workflow

import (
	"fmt"
	"strings"
)

// ValidationResult reports the outcome of validating a workflow definition.
// Errors collects every violation found, not just the first.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Err returns a single error aggregating all validation failures, or nil.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("workflow validation failed: %s", strings.Join(r.Errors, "; "))
}

// Validate checks a definition for structural correctness: a locatable start
// node, unique node IDs, resolvable dependencies, and acyclicity. As a side
// effect it builds the definition's node index and each node's downstream set
// (the inverse of the dependency relation).
func Validate(def *Definition) *ValidationResult {
	result := &ValidationResult{Valid: true}
	fail := func(format string, args ...any) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	if def == nil {
		fail("definition is nil")
		return result
	}
	if len(def.Nodes) == 0 {
		fail("workflow must have at least one node")
		return result
	}

	// Index nodes, checking ID uniqueness.
	nodesByID := make(map[string]*Node, len(def.Nodes))
	for _, node := range def.Nodes {
		if node.ID == "" {
			fail("node with empty id")
			continue
		}
		if _, exists := nodesByID[node.ID]; exists {
			fail("duplicate node id %q", node.ID)
			continue
		}
		nodesByID[node.ID] = node
	}
	def.nodesByID = nodesByID

	// Child nodes of parallel and map nodes share the definition's ID space:
	// results are recorded by ID, so a colliding child would silently
	// overwrite another node's result. Children are scheduled by their parent
	// handler, never by dependency satisfaction, so they must not declare
	// dependencies of their own.
	seen := make(map[string]bool, len(nodesByID))
	for id := range nodesByID {
		seen[id] = true
	}
	var visitChildren func(parent *Node)
	visitChildren = func(parent *Node) {
		for _, child := range parent.Children {
			if child.ID == "" {
				fail("node %q has a child with empty id", parent.ID)
				continue
			}
			if seen[child.ID] {
				fail("duplicate node id %q", child.ID)
			} else {
				seen[child.ID] = true
			}
			if len(child.DependsOn) > 0 {
				fail("child node %q must not declare dependencies", child.ID)
			}
			visitChildren(child)
		}
	}
	for _, node := range def.Nodes {
		visitChildren(node)
	}

	if _, err := def.StartNode(); err != nil {
		fail("%s", err.Error())
	}

	// Verify every dependency resolves, and build the downstream sets.
	for _, node := range def.Nodes {
		node.downstream = nil
	}
	for _, node := range def.Nodes {
		for _, dep := range node.DependsOn {
			depNode, ok := nodesByID[dep]
			if !ok {
				fail("node %q depends on unknown node %q", node.ID, dep)
				continue
			}
			depNode.downstream = append(depNode.downstream, node.ID)
		}
		if node.Type == NodeTypeDecision {
			for _, branch := range []string{node.TrueBranch, node.FalseBranch} {
				if branch == "" {
					continue
				}
				if _, ok := nodesByID[branch]; !ok {
					fail("decision node %q references unknown branch node %q", node.ID, branch)
				}
			}
		}
	}

	// DFS cycle check over the dependency relation. A back-edge into the
	// active recursion stack is a cycle.
	visited := make(map[string]bool, len(def.Nodes))
	onStack := make(map[string]bool, len(def.Nodes))
	var visit func(node *Node, trail []string)
	visit = func(node *Node, trail []string) {
		visited[node.ID] = true
		onStack[node.ID] = true
		trail = append(trail, node.ID)
		for _, dep := range node.DependsOn {
			depNode, ok := nodesByID[dep]
			if !ok {
				continue
			}
			if onStack[dep] {
				fail("dependency cycle detected: %s -> %s", strings.Join(trail, " -> "), dep)
				continue
			}
			if !visited[dep] {
				visit(depNode, trail)
			}
		}
		onStack[node.ID] = false
	}
	for _, node := range def.Nodes {
		if node.ID == "" || visited[node.ID] {
			continue
		}
		visit(node, nil)
	}

	// The cached index marks a definition as validated; invalid definitions
	// must not look validated.
	if !result.Valid {
		def.nodesByID = nil
	}
	return result
}
