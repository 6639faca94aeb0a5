// Package rwsplit is the bundled read/write splitting plugin: reads go
// to replicas, cross-shard reads carry merge ordering, writes go to
// the primary.
package rwsplit

import (
	"strings"

	"github.com/pg-sharding/lyx/lyx"
	"go.uber.org/atomic"

	"github.com/pgway/pgway/pkg/plugin"
	"github.com/pgway/pgway/pkg/proto"
	"github.com/pgway/pgway/pkg/waylog"
)

const PluginName = "rwsplit"

type RWSplit struct {
	// Round-robin for table-less selects. Better than random for
	// load distribution.
	rr atomic.Uint64
}

var _ plugin.RoutingPlugin = &RWSplit{}
var _ plugin.Initializer = &RWSplit{}

func New(_ map[string]string) (plugin.RoutingPlugin, error) {
	return &RWSplit{}, nil
}

func (p *RWSplit) Name() string {
	return PluginName
}

func (p *RWSplit) Initialize() error {
	p.rr.Store(0)
	return nil
}

func (p *RWSplit) RouteQuery(input *proto.Input) (proto.Output, error) {
	query, err := input.Query()
	if err != nil {
		// Copy batches belong to the sharding plugin.
		return proto.Skip(), nil
	}

	shards := input.Config().Shards()
	if shards == 0 {
		return proto.Skip(), nil
	}

	switch leadingKeyword(query.Text) {
	case "begin", "start":
		return proto.Forward(proto.Route{Affinity: proto.AffinityTransactionStart, Shard: proto.ShardAny}), nil
	case "commit", "rollback", "end", "abort":
		return proto.Forward(proto.Route{Affinity: proto.AffinityTransactionEnd, Shard: proto.ShardAny}), nil
	}

	stmt, err := lyx.Parse(query.Text)
	if err != nil {
		waylog.Zero.Debug().
			Err(err).
			Msg("rwsplit: unparsable statement, skipping")
		return proto.Skip(), nil
	}

	switch q := stmt.(type) {
	case *lyx.Select:
		if tableless(q) {
			// SELECT 1, SELECT now() and friends: any shard works.
			shard := int(p.rr.Inc() % uint64(shards))
			return proto.Forward(proto.Route{Affinity: proto.AffinityRead, Shard: shard}), nil
		}
		route := proto.Route{Affinity: proto.AffinityRead, Shard: proto.ShardAll}
		if shards == 1 {
			route.Shard = 0
		} else {
			route.OrderBy = extractOrderBy(query.Text)
		}
		return proto.Forward(route), nil

	default:
		route := proto.Route{Affinity: proto.AffinityWrite, Shard: proto.ShardAll}
		if shards == 1 {
			route.Shard = 0
		}
		return proto.Forward(route), nil
	}
}

func tableless(stmt *lyx.Select) bool {
	return len(stmt.FromClause) == 0 && stmt.LArg == nil && stmt.RArg == nil && stmt.WithClause == nil
}

func leadingKeyword(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimRight(fields[0], ";"))
}
