package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Factory is a constructor that creates a DomainAgent.
type Factory func() DomainAgent

// Registry maps agent roles to their factory constructors. External
// integrations can register additional analyzers alongside the built-ins.
type Registry struct {
	mu        sync.Mutex
	factories map[Role]Factory
}

// NewRegistry creates a Registry pre-registered with the built-in analyzers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[Role]Factory)}
	r.factories[RoleVisibility] = func() DomainAgent { return NewVisibilityAgent() }
	r.factories[RoleAccuracy] = func() DomainAgent { return NewAccuracyAgent() }
	r.factories[RoleActionability] = func() DomainAgent { return NewActionabilityAgent() }
	return r
}

// Register adds or replaces the factory for a role.
func (r *Registry) Register(role Role, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[role] = f
}

// Spawn creates a single agent by role.
func (r *Registry) Spawn(role Role) (DomainAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[role]
	if !ok {
		return nil, fmt.Errorf("no factory registered for role %q", role)
	}
	return factory(), nil
}

// SpawnAll creates one agent per registered role, ordered by role name so
// repeated runs construct the same slice.
func (r *Registry) SpawnAll() []DomainAgent {
	r.mu.Lock()
	defer r.mu.Unlock()

	roles := make([]Role, 0, len(r.factories))
	for role := range r.factories {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	agents := make([]DomainAgent, 0, len(roles))
	for _, role := range roles {
		agents = append(agents, r.factories[role]())
	}
	return agents
}
