package workflow

// NodeType identifies the kind of work a node performs.
type NodeType string

const (
	NodeTypeStart       NodeType = "start"
	NodeTypeEnd         NodeType = "end"
	NodeTypeTask        NodeType = "task"
	NodeTypeDecision    NodeType = "decision"
	NodeTypeParallel    NodeType = "parallel"
	NodeTypeMap         NodeType = "map"
	NodeTypeReduce      NodeType = "reduce"
	NodeTypeSubWorkflow NodeType = "subworkflow"
	NodeTypeWait        NodeType = "wait"
)

// RetryConfig configures retry behavior for a task node.
type RetryConfig struct {
	MaxAttempts       int     `json:"max_attempts" yaml:"max_attempts"`
	DelaySeconds      float64 `json:"delay_seconds,omitempty" yaml:"delay_seconds,omitempty"`
	BackoffMultiplier float64 `json:"backoff_multiplier,omitempty" yaml:"backoff_multiplier,omitempty"`
}

// Node is a single schedulable unit of work in a workflow. A node runs only
// after every node named in DependsOn has completed.
type Node struct {
	ID          string   `json:"id" yaml:"id"`
	Type        NodeType `json:"type" yaml:"type"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`

	// DependsOn lists the IDs of nodes that must complete before this one.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Inputs maps parameter names to literal values or "${path}" references.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Outputs maps output names to source paths. When empty, the handler's
	// raw outputs are used as-is.
	Outputs map[string]string `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// Task nodes invoke exactly one of these collaborators.
	Agent string `json:"agent,omitempty" yaml:"agent,omitempty"`
	Tool  string `json:"tool,omitempty" yaml:"tool,omitempty"`

	// Decision nodes evaluate Condition and select one branch.
	Condition   string `json:"condition,omitempty" yaml:"condition,omitempty"`
	TrueBranch  string `json:"true_branch,omitempty" yaml:"true_branch,omitempty"`
	FalseBranch string `json:"false_branch,omitempty" yaml:"false_branch,omitempty"`

	// Children holds the child nodes of a parallel node, or the single child
	// template of a map node.
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`

	// SubWorkflow nodes run a nested definition, either inline or referenced
	// by ID from the engine's workflow registry.
	Workflow   *Definition `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	WorkflowID string      `json:"workflow_id,omitempty" yaml:"workflow_id,omitempty"`

	Retry          *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	TimeoutSeconds float64      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`

	// downstream is the inverse of DependsOn, derived during validation.
	// It is never hand-authored and is not serialized.
	downstream []string
}

// Downstream returns the IDs of nodes that depend on this node. It is
// populated by Validate and empty before validation runs.
func (n *Node) Downstream() []string {
	return n.downstream
}
