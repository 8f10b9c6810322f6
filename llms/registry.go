package llms

import (
	"fmt"

	"github.com/crewcore/crewcore/registry"
)

// ============================================================================
// LLM REGISTRY
// ============================================================================

// Registry manages constructed Client instances, keyed by the name an
// AgentConfig's `llm` field references. Since concrete provider
// construction is out of scope, callers build a Client themselves (or use
// a binding from elsewhere) and register it here; the registry only
// handles lookup.
type Registry struct {
	*registry.BaseRegistry[Client]
}

// NewRegistry creates a new, empty LLM registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Client]()}
}

// RegisterClient registers a constructed Client instance under name.
func (r *Registry) RegisterClient(name string, client Client) error {
	if name == "" {
		return fmt.Errorf("llms: client name cannot be empty")
	}
	if client == nil {
		return fmt.Errorf("llms: client cannot be nil")
	}
	return r.Register(name, client)
}

// GetClient retrieves a registered Client by name.
func (r *Registry) GetClient(name string) (Client, error) {
	client, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("llms: client %q not found", name)
	}
	return client, nil
}

// ListClients returns the names of all registered clients, sorted.
func (r *Registry) ListClients() []string {
	return r.Names()
}
