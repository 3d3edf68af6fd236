package lint

import (
	"sort"
	"sync"
)

// globalRegistry is the single registry of compiled-in rule sources.
var globalRegistry = &Registry{
	builtins: make(map[string]Builtin),
}

// Registry stores registered builtin rule sources for discovery.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]Builtin // keyed by Name
}

// Register adds a builtin rule source to the global registry.
// Call this from init() functions in rule packages. A later registration
// with the same name replaces the earlier one.
func Register(b Builtin) {
	if b.Name == "" || b.New == nil {
		panic("lint: Register requires a name and a constructor")
	}
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.builtins[b.Name] = b
}

// LookupBuiltin returns a builtin by name.
func LookupBuiltin(name string) (Builtin, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	b, ok := globalRegistry.builtins[name]
	return b, ok
}

// Builtins returns all registered builtins sorted by name.
func Builtins() []Builtin {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make([]Builtin, 0, len(globalRegistry.builtins))
	for _, b := range globalRegistry.builtins {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered builtins.
func Count() int {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return len(globalRegistry.builtins)
}

// ClearBuiltins removes all registered builtins. Used for testing.
func ClearBuiltins() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.builtins = make(map[string]Builtin)
}
