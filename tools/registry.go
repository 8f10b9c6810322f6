package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/crewcore/crewcore/registry"
)

// Repository is a named bundle of tools that can be registered with a
// Registry in addition to individual Tool values, mirroring the
// shape external tool providers expose (MCP servers, plugin bundles). No
// concrete repository is implemented here — registering one is left to
// an embedder — but the registry supports the shape.
type Repository interface {
	Name() string
	DiscoverTools(ctx context.Context) error
	ListTools() []Info
	GetTool(name string) (Tool, bool)
}

type entry struct {
	tool Tool
	repo string // repository name, empty for directly registered tools
}

// Registry is a thread-safe lookup of Tool by name, resolved by the
// Agent either by exact name or case-insensitive type name.
type Registry struct {
	*registry.BaseRegistry[entry]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[entry]()}
}

// RegisterTool adds a single tool directly (not via a repository).
func (r *Registry) RegisterTool(t Tool) error {
	if t == nil {
		return fmt.Errorf("tools: tool cannot be nil")
	}
	return r.Register(t.Name(), entry{tool: t})
}

// RegisterRepository discovers and registers every tool a Repository
// exposes, tagging each with its source repository.
func (r *Registry) RegisterRepository(ctx context.Context, repo Repository) error {
	if err := repo.DiscoverTools(ctx); err != nil {
		return fmt.Errorf("tools: discover from repository %q: %w", repo.Name(), err)
	}
	for _, info := range repo.ListTools() {
		t, ok := repo.GetTool(info.Name)
		if !ok {
			continue
		}
		if err := r.Register(info.Name, entry{tool: t, repo: repo.Name()}); err != nil {
			return fmt.Errorf("tools: register %q from %q: %w", info.Name, repo.Name(), err)
		}
	}
	return nil
}

// Get resolves a tool by exact name, then by case-insensitive name,
// the same resolution rule the reasoning loop applies to USE_TOOL
// sentinels.
func (r *Registry) Get(name string) (Tool, bool) {
	if e, ok := r.BaseRegistry.Get(name); ok {
		return e.tool, true
	}
	lower := strings.ToLower(name)
	for _, n := range r.Names() {
		if strings.ToLower(n) == lower {
			e, _ := r.BaseRegistry.Get(n)
			return e.tool, true
		}
	}
	return nil, false
}

// List returns every registered tool.
func (r *Registry) List() []Tool {
	entries := r.BaseRegistry.List()
	out := make([]Tool, len(entries))
	for i, e := range entries {
		out[i] = e.tool
	}
	return out
}

// Union returns a new, unordered slice combining the registry's tools
// with the extra tools given, de-duplicated by name with extras taking
// precedence. Used to compute an Agent's effective tool set for a
// single Task execution (task-local tools unioned with permanent ones)
// without mutating any shared state.
func (r *Registry) Union(extra []Tool) []Tool {
	seen := make(map[string]Tool)
	for _, t := range r.List() {
		seen[strings.ToLower(t.Name())] = t
	}
	for _, t := range extra {
		seen[strings.ToLower(t.Name())] = t
	}
	out := make([]Tool, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	return out
}
