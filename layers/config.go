package layers

import "sync"

// Config selects layer implementation variants during model construction.
// Nil fields leave the current package default untouched.
type Config struct {
	Scriptable *bool // prefer variants that survive jit scripting
	Exportable *bool // prefer variants that survive tracing / export
	NoJIT      *bool // never pick jit scripted variants
}

var (
	configMu sync.Mutex
	current  = struct {
		scriptable bool
		exportable bool
		noJIT      bool
	}{}
)

// SetLayerConfig overrides the construction-time layer config and returns a
// restore function. Callers must invoke restore once construction is done,
// typically via defer.
func SetLayerConfig(cfg Config) (restore func()) {
	configMu.Lock()
	prev := current

	if cfg.Scriptable != nil {
		current.scriptable = *cfg.Scriptable
	}
	if cfg.Exportable != nil {
		current.exportable = *cfg.Exportable
	}
	if cfg.NoJIT != nil {
		current.noJIT = *cfg.NoJIT
	}
	configMu.Unlock()

	return func() {
		configMu.Lock()
		current = prev
		configMu.Unlock()
	}
}

func jitAllowed() bool {
	configMu.Lock()
	defer configMu.Unlock()
	return !current.noJIT && !current.exportable
}
