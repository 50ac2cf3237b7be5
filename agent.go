package workflow

import (
	"context"
)

// Message is the unit of conversation exchanged with an agent.
type Message struct {
	Role     string         `json:"role,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Agent is an external collaborator invoked by task nodes. The engine does
// not implement agents; it dispatches messages to them and records replies.
type Agent interface {

	// Name returns the name the agent is registered under.
	Name() string

	// Invoke sends a message to the agent and returns its reply.
	Invoke(ctx context.Context, message Message) (Message, error)
}

// AgentRegistry is a map of agent names to agents.
type AgentRegistry map[string]Agent

// AgentFunc wraps a function for use as an Agent.
type AgentFunc struct {
	name string
	fn   func(ctx context.Context, message Message) (Message, error)
}

// NewAgentFunc returns an Agent backed by the given function.
func NewAgentFunc(name string, fn func(ctx context.Context, message Message) (Message, error)) *AgentFunc {
	return &AgentFunc{name: name, fn: fn}
}

func (a *AgentFunc) Name() string {
	return a.name
}

func (a *AgentFunc) Invoke(ctx context.Context, message Message) (Message, error) {
	return a.fn(ctx, message)
}
