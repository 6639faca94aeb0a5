package interpret

import (
	"github.com/pgway/pgway/pkg/proto"
)

// Action is what the host does with a statement once the chain has
// spoken. One transition per call, nothing persists across calls.
type Action interface {
	iAction()
}

// Forward sends the statement as-is to the resolved targets. Shard is
// concrete or ShardAll after sentinel resolution; with ShardAll the
// result merge must honor OrderBy when present.
type Forward struct {
	Action

	Shard    int
	Affinity proto.Affinity
	Targets  []proto.DatabaseConfig
	OrderBy  []proto.OrderBy
}

// Rewrite replaces the outgoing statement text and forwards it without
// further plugin evaluation. Only produced under the "forward" rewrite
// policy; under "reevaluate" the interpreter re-enters the chain
// itself.
type Rewrite struct {
	Action

	Query string
}

// ClientError aborts the transaction and sends the payload to the
// client verbatim. No backend I/O happens.
type ClientError struct {
	Action

	Error proto.Error
}

// InterceptResult answers the client from the synthesized result set.
// The rows are host-owned now; whoever encodes them frees them.
type InterceptResult struct {
	Action

	Intercept *proto.Intercept
}

// CopyBegin switches the host into bulk-ingestion mode for the rest of
// the client's COPY stream.
type CopyBegin struct {
	Action

	Copy proto.Copy
}

// Fallback means no plugin decided: the host applies its own default
// routing. Never a fabricated decision.
type Fallback struct {
	Action
}
