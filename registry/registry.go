package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/world-in-progress/mimir/nn"
)

// Entrypoint builds a model variant from an argument bag.
type Entrypoint func(args Args) (nn.Model, error)

type entry struct {
	module string
	fn     Entrypoint
}

var (
	mu          sync.RWMutex
	entrypoints = make(map[string]entry)
	modules     = make(map[string][]string)
)

// Register records a model entrypoint under its architecture module
// (e.g. module "efficientnet", name "efficientnet_lite0").
func Register(module, name string, fn Entrypoint) error {
	if module == "" || name == "" {
		return fmt.Errorf("model registration requires module and name")
	}
	if fn == nil {
		return fmt.Errorf("model %s registered with nil entrypoint", name)
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := entrypoints[name]; exists {
		return fmt.Errorf("model %s is already registered", name)
	}
	entrypoints[name] = entry{module: module, fn: fn}
	modules[module] = append(modules[module], name)
	return nil
}

// MustRegister is Register for init()-time use, panicking on error.
func MustRegister(module, name string, fn Entrypoint) {
	if err := Register(module, name, fn); err != nil {
		panic(err)
	}
}

// IsModel reports whether name is a registered model.
func IsModel(name string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := entrypoints[name]
	return ok
}

// IsModelInModules reports whether name belongs to one of the given
// architecture modules.
func IsModelInModules(name string, moduleNames ...string) bool {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := entrypoints[name]
	if !ok {
		return false
	}
	for _, m := range moduleNames {
		if e.module == m {
			return true
		}
	}
	return false
}

// ModelEntrypoint looks up the entrypoint for a registered model.
func ModelEntrypoint(name string) (Entrypoint, error) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := entrypoints[name]
	if !ok {
		return nil, fmt.Errorf("unknown model (%s)", name)
	}
	return e.fn, nil
}

// ModuleOf returns the architecture module a model belongs to.
func ModuleOf(name string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := entrypoints[name]
	return e.module, ok
}

// Names lists all registered model names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(entrypoints))
	for name := range entrypoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleNames lists the model names of one architecture module in sorted order.
func ModuleNames(module string) []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, len(modules[module]))
	copy(names, modules[module])
	sort.Strings(names)
	return names
}
