package plugin

import (
	"sync"

	"github.com/pgway/pgway/pkg/proto"
	"github.com/pgway/pgway/pkg/wayerror"
	"github.com/pgway/pgway/pkg/waylog"
)

// Chain is the ordered, immutable-after-load sequence of plugins
// consulted per statement. Evaluation is short-circuiting: the first
// output whose decision is not NO_DECISION wins and later plugins are
// never invoked.
type Chain struct {
	plugins []RoutingPlugin

	mu          sync.Mutex
	initialized bool
	initErr     error
}

func NewChain(plugins ...RoutingPlugin) *Chain {
	return &Chain{
		plugins: plugins,
	}
}

// Initialize runs every plugin's optional Initialize exactly once,
// serialized. The caller starts routing only after Initialize returns,
// which gives plugins the initialization happens-before any routing
// call. An init failure is fatal for startup and is not retried.
func (c *Chain) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.initErr
	}
	c.initialized = true

	for _, p := range c.plugins {
		init, ok := p.(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(); err != nil {
			c.initErr = wayerror.Newf(wayerror.WAY_PLUGIN_INIT, "plugin %q: %v", p.Name(), err)
			return c.initErr
		}
		waylog.Zero.Info().
			Str("plugin", p.Name()).
			Msg("plugin initialized")
	}
	return nil
}

func (c *Chain) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized && c.initErr == nil
}

// Len reports chain length.
func (c *Chain) Len() int {
	return len(c.plugins)
}

// Names lists the plugins in evaluation order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.plugins))
	for _, p := range c.plugins {
		names = append(names, p.Name())
	}
	return names
}

// Route evaluates the chain for one input and returns the first
// decisive output along with the deciding plugin's name. A plugin call
// error is an internal fault, never the client's problem: it is logged
// and treated as NO_DECISION. An empty chain, or a chain where every
// plugin skips, yields a NO_DECISION output so the host falls back to
// its default routing.
func (c *Chain) Route(input *proto.Input) (proto.Output, string, error) {
	return c.RouteFiltered(input, nil)
}

// RouteFiltered is Route with an acceptance check. A decisive output
// rejected by accept falls through to the next plugin, exactly like a
// NO_DECISION: this is how the interpreter demotes protocol-violating
// outputs without ever surfacing them to the client.
func (c *Chain) RouteFiltered(input *proto.Input, accept func(proto.Output, string) bool) (proto.Output, string, error) {
	if input.Version() != proto.ProtocolVersion {
		return proto.Skip(), "", wayerror.Newf(wayerror.WAY_VERSION_MISMATCH,
			"input version %d, host speaks %d", input.Version(), proto.ProtocolVersion)
	}

	for _, p := range c.plugins {
		output, err := p.RouteQuery(input)
		if err != nil {
			waylog.Zero.Error().
				Err(err).
				Str("plugin", p.Name()).
				Msg("plugin failed, trying next in chain")
			continue
		}
		if !output.Decided() {
			continue
		}
		if accept != nil && !accept(output, p.Name()) {
			continue
		}
		waylog.Zero.Debug().
			Str("plugin", p.Name()).
			Str("decision", output.Decision().String()).
			Msg("plugin decided")
		return output, p.Name(), nil
	}

	return proto.Skip(), "", nil
}
