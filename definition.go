package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Input declares a workflow input parameter.
type Input struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
}

// Output declares a workflow output and the path its value is resolved from,
// e.g. "summarize.result" or "${summarize.result}".
type Output struct {
	Name        string `json:"name" yaml:"name"`
	Source      string `json:"source" yaml:"source"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Definition describes a workflow as a directed acyclic graph of nodes. A
// Definition is immutable once validated; executions never modify it.
type Definition struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	StartNodeID string         `json:"start_node_id,omitempty" yaml:"start_node_id,omitempty"`
	Nodes       []*Node        `json:"nodes" yaml:"nodes"`
	Inputs      []*Input       `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs     []*Output      `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Variables   map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`

	// nodesByID is built by Validate.
	nodesByID map[string]*Node
}

// GetNode returns a node by ID.
func (d *Definition) GetNode(id string) (*Node, bool) {
	if d.nodesByID != nil {
		node, ok := d.nodesByID[id]
		return node, ok
	}
	for _, node := range d.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return nil, false
}

// NodeIDs returns the IDs of all nodes in the definition, sorted.
func (d *Definition) NodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for _, node := range d.Nodes {
		ids = append(ids, node.ID)
	}
	sort.Strings(ids)
	return ids
}

// StartNode locates the start node: the node named by StartNodeID if set,
// otherwise the unique node of type start.
func (d *Definition) StartNode() (*Node, error) {
	if d.StartNodeID != "" {
		node, ok := d.GetNode(d.StartNodeID)
		if !ok {
			return nil, fmt.Errorf("start node %q not found", d.StartNodeID)
		}
		return node, nil
	}
	var start *Node
	for _, node := range d.Nodes {
		if node.Type == NodeTypeStart {
			if start != nil {
				return nil, fmt.Errorf("multiple start nodes found: %q and %q", start.ID, node.ID)
			}
			start = node
		}
	}
	if start == nil {
		return nil, fmt.Errorf("no start node found")
	}
	return start, nil
}

// LoadFile loads a workflow definition from a YAML or JSON file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		var def Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow file: %w", err)
		}
		return &def, nil
	}
	return LoadString(string(data))
}

// LoadString loads a workflow definition from a YAML string.
func LoadString(data string) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow definition: %w", err)
	}
	return &def, nil
}
