package plugin

import (
	"sort"
	"sync"

	"github.com/pgway/pgway/pkg/wayerror"
)

// Builder constructs a plugin instance from its raw settings block.
type Builder func(settings map[string]string) (RoutingPlugin, error)

// Registry maps plugin names to builders. It stands in for the
// dynamic loader: implementations register at load time and the chain
// is resolved from configured names, depending only on the
// RoutingPlugin interface.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{
		builders: map[string]Builder{},
	}
}

func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

func (r *Registry) Build(name string, settings map[string]string) (RoutingPlugin, error) {
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, wayerror.Newf(wayerror.WAY_NO_PLUGIN, "plugin %q is not registered", name)
	}
	return builder(settings)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
