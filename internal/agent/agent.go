package agent

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Registry.Get when no agent with the requested
// name has been registered.
var ErrNotFound = errors.New("agent not found")

// Agent is the black-box LLM collaborator contract: given a prompt, model,
// and budget, it returns text plus the cost/turns/session metadata needed
// for the cost ledger, or an error (including on timeout -- callers pass a
// context with a deadline and treat context.DeadlineExceeded specially).
type Agent interface {
	// Name returns the agent's identifier (e.g. "claude").
	Name() string

	// Run executes a prompt and returns the normalized result. ctx carries
	// the phase's wall-clock timeout; Run must respect its deadline.
	Run(ctx context.Context, opts RunOpts) (*RunResult, error)

	// CheckPrerequisites verifies the agent's CLI tool is installed and
	// reachable.
	CheckPrerequisites() error
}

// Registry stores named agent instances for lookup. Only one agent backend
// is normally configured per run (AGENT_COMMAND), but the registry allows
// tests to swap in a fake without touching the driver's construction code.
type Registry struct {
	agents map[string]Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent under its Name(), overwriting any prior
// registration with that name.
func (r *Registry) Register(a Agent) {
	r.agents[a.Name()] = a
}

// Get returns the agent registered under name, or ErrNotFound.
func (r *Registry) Get(name string) (Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("get agent %q: %w", name, ErrNotFound)
	}
	return a, nil
}
