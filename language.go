package treelight

import (
	"fmt"
	"sort"
	"sync"

	"github.com/treelight/treelight/syntax"
)

// Language bundles a parser with the queries that drive its highlighting.
type Language struct {
	Name            string
	HighlightsQuery []byte
	InjectionQuery  []byte
	LocalsQuery     []byte
	Parser          syntax.Parser
}

// Registry holds the configurations of known languages and resolves
// injected language names against them. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*Configuration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		configs: make(map[string]*Configuration),
	}
}

// Register builds the configuration for the given language and adds it to
// the registry, replacing any previous registration under the same name.
func (r *Registry) Register(lang Language) (*Configuration, error) {
	cfg, err := NewConfiguration(lang.Parser, lang.Name, lang.HighlightsQuery, lang.InjectionQuery, lang.LocalsQuery)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", lang.Name, err)
	}

	r.mu.Lock()
	r.configs[lang.Name] = cfg
	r.mu.Unlock()
	return cfg, nil
}

// Get returns the configuration registered under name, or nil.
func (r *Registry) Get(name string) *Configuration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configs[name]
}

// Names returns the registered language names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Configure applies the recognized capture names to every registered
// configuration. Call it again whenever the theme changes.
func (r *Registry) Configure(recognizedNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range r.configs {
		cfg.Configure(recognizedNames)
	}
}

// InjectionCallback returns a callback that resolves injected language
// names against the registry.
func (r *Registry) InjectionCallback() InjectionCallback {
	return func(languageName string) *Configuration {
		return r.Get(languageName)
	}
}
