package prompts

import (
	"fmt"
	"sort"
	"sync"
)

// PromptRegistry manages versioned prompts.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string]map[PromptVersion]*Prompt // ID -> Version -> Prompt
}

var defaultRegistry *PromptRegistry
var defaultRegistryOnce sync.Once

// DefaultRegistry returns the registry holding the built-in prompts.
func DefaultRegistry() *PromptRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewPromptRegistry()
		registerBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// NewPromptRegistry creates an empty registry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{
		prompts: make(map[string]map[PromptVersion]*Prompt),
	}
}

// Register adds p, replacing an earlier registration of the same version.
func (r *PromptRegistry) Register(p *Prompt) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prompts[p.ID] == nil {
		r.prompts[p.ID] = make(map[PromptVersion]*Prompt)
	}
	r.prompts[p.ID][p.Version] = p
}

// Get retrieves a specific version of a prompt.
func (r *PromptRegistry) Get(id string, version PromptVersion) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.prompts[id]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}
	prompt, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("prompt %s version %s not found", id, version)
	}
	return prompt, nil
}

// GetLatest returns the highest non-deprecated version of a prompt, or the
// highest version when all are deprecated.
func (r *PromptRegistry) GetLatest(id string) (*Prompt, error) {
	versions := r.Versions(id)
	if len(versions) == 0 {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(versions) - 1; i >= 0; i-- {
		if p := r.prompts[id][versions[i]]; !p.Deprecated {
			return p, nil
		}
	}
	return r.prompts[id][versions[len(versions)-1]], nil
}

// Versions returns the versions registered for id, lowest first.
func (r *PromptRegistry) Versions(id string) []PromptVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]PromptVersion, 0, len(r.prompts[id]))
	for version := range r.prompts[id] {
		result = append(result, version)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result
}
