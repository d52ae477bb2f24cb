package multiagent

import (
	"log/slog"
	"slices"
	"sync"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
)

// Registry holds the agents the dispatcher may route to, in registration
// order. Registration order decides the last-resort routing fallback.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty agent registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		agents: make(map[string]domain.Agent),
		logger: logger.OrDiscard(log),
	}
}

// Register adds an agent. Returns ErrDuplicateAgent if the name is taken.
func (r *Registry) Register(agent domain.Agent) error {
	if err := agent.Descriptor().Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := agent.Name()
	if _, exists := r.agents[name]; exists {
		return domain.NewDomainError("Registry.Register", domain.ErrDuplicateAgent, name)
	}
	r.agents[name] = agent
	r.order = append(r.order, name)
	r.logger.Info("agent registered", "agent", name)
	return nil
}

// Unregister removes an agent and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[name]; !ok {
		return false
	}
	delete(r.agents, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	r.logger.Info("agent unregistered", "agent", name)
	return true
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (domain.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered agent names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// List returns the registered agents in registration order.
func (r *Registry) List() []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Agent, len(r.order))
	for i, name := range r.order {
		out[i] = r.agents[name]
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// available returns the agents not in excluded, in registration order.
func (r *Registry) available(excluded []string) []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Agent, 0, len(r.order))
	for _, name := range r.order {
		if !slices.Contains(excluded, name) {
			out = append(out, r.agents[name])
		}
	}
	return out
}
