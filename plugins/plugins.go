// Package plugins wires the bundled plugin implementations into a
// registry. External plugins register on top of this at load time.
package plugins

import (
	"github.com/pgway/pgway/pkg/config"
	"github.com/pgway/pgway/pkg/plugin"
	"github.com/pgway/pgway/plugins/acl"
	"github.com/pgway/pgway/plugins/rwsplit"
	"github.com/pgway/pgway/plugins/shardkey"
)

func DefaultRegistry() *plugin.Registry {
	registry := plugin.NewRegistry()
	registry.Register(rwsplit.PluginName, rwsplit.New)
	registry.Register(shardkey.PluginName, shardkey.New)
	registry.Register(acl.PluginName, acl.New)
	return registry
}

// BuildChain resolves the configured plugin names against the registry
// in configured order.
func BuildChain(registry *plugin.Registry, configured []config.Plugin) (*plugin.Chain, error) {
	var loaded []plugin.RoutingPlugin
	for _, pc := range configured {
		p, err := registry.Build(pc.Name, pc.Settings)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, p)
	}
	return plugin.NewChain(loaded...), nil
}
