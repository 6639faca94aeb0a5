package plugin

import (
	"github.com/pgway/pgway/pkg/proto"
)

// RoutingPlugin is the capability a loaded plugin exposes to the
// router. RouteQuery is invoked once per transaction with no
// synchronization guarantee: calls for different statements may be in
// flight concurrently on the same instance. An implementation that
// touches shared mutable state must serialize internally.
//
// Input payloads are borrowed for the duration of the call only; a
// plugin must not retain pointers into them. Heap data a plugin hands
// back inside its Output (intercept rows in particular) becomes
// host-owned the moment RouteQuery returns.
type RoutingPlugin interface {
	Name() string
	RouteQuery(input *proto.Input) (proto.Output, error)
}

// Initializer is the optional one-time setup capability. The chain
// runs it exactly once per plugin, serialized, strictly before any
// RouteQuery call; a plugin may build shared state and its own locks
// here without further coordination.
type Initializer interface {
	Initialize() error
}
