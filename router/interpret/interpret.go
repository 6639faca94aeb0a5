package interpret

import (
	"go.uber.org/atomic"

	"github.com/pgway/pgway/pkg/config"
	"github.com/pgway/pgway/pkg/plugin"
	"github.com/pgway/pgway/pkg/proto"
	"github.com/pgway/pgway/pkg/wayerror"
	"github.com/pgway/pgway/pkg/waylog"
	"github.com/pgway/pgway/router/qclass"
)

// Interpreter turns plugin outputs into host actions. It holds no
// per-statement state; concurrent calls are safe.
type Interpreter struct {
	chain      *plugin.Chain
	classifier *qclass.Classifier

	rewritePolicy string
	maxRewrites   int

	rr atomic.Uint64
}

func New(chain *plugin.Chain, cfg *config.WayConfig) *Interpreter {
	return &Interpreter{
		chain:         chain,
		classifier:    &qclass.Classifier{},
		rewritePolicy: cfg.RewritePolicy,
		maxRewrites:   cfg.MaxRewrites,
	}
}

// RouteStatement evaluates the chain for one statement and maps the
// winning output to an action. Protocol-violating outputs are demoted
// to NO_DECISION and the chain falls through (never surfaced to the
// client as the plugin's message); if nothing decides, the caller gets
// Fallback and applies host default routing.
func (ip *Interpreter) RouteStatement(cluster *proto.Config, query proto.Query) (Action, error) {
	rewrites := 0

	for {
		input := proto.NewQueryInput(cluster, query)

		output, name, err := ip.chain.RouteFiltered(input, func(out proto.Output, pname string) bool {
			if verr := ip.validate(out, cluster); verr != nil {
				waylog.Zero.Error().
					Err(verr).
					Str("plugin", pname).
					Msg("protocol violation, output demoted to NO_DECISION")
				return false
			}
			return true
		})
		if err != nil {
			return Fallback{}, err
		}
		if !output.Decided() {
			return Fallback{}, nil
		}

		switch output.Decision() {
		case proto.DecisionForward:
			route, err := output.Route()
			if err != nil {
				return Fallback{}, err
			}
			return ip.forward(cluster, *route, query.Text), nil

		case proto.DecisionRewrite:
			text, err := output.RewriteQuery()
			if err != nil {
				return Fallback{}, err
			}
			if ip.rewritePolicy != config.RewritePolicyReevaluate {
				return Rewrite{Query: text}, nil
			}
			rewrites++
			if rewrites > ip.maxRewrites {
				waylog.Zero.Error().
					Str("plugin", name).
					Int("rewrites", rewrites).
					Msg("rewrite bound exceeded, falling back")
				return Fallback{}, wayerror.Newf(wayerror.WAY_PROTOCOL_VIOLATION,
					"statement rewritten more than %d times", ip.maxRewrites)
			}
			query = proto.Query{Text: text, Parameters: query.Parameters}
			continue

		case proto.DecisionError:
			perr, err := output.Error()
			if err != nil {
				return Fallback{}, err
			}
			return ClientError{Error: *perr}, nil

		case proto.DecisionIntercept:
			intercept, err := output.Intercept()
			if err != nil {
				return Fallback{}, err
			}
			return InterceptResult{Intercept: intercept}, nil

		case proto.DecisionCopy:
			cp, err := output.Copy()
			if err != nil {
				return Fallback{}, err
			}
			return CopyBegin{Copy: *cp}, nil

		default:
			// COPY_ROWS outside of a copy stream is rejected by
			// validate; anything else is a decision this host does
			// not speak.
			return Fallback{}, wayerror.Newf(wayerror.WAY_PROTOCOL_VIOLATION,
				"unexpected decision %s for a statement", output.Decision())
		}
	}
}

// RouteCopyBatch evaluates the chain for one bulk-row batch. A copy
// stream has no fallback routing: if no plugin answers with COPY_ROWS
// the batch fails.
func (ip *Interpreter) RouteCopyBatch(cluster *proto.Config, batch proto.CopyInput) (*proto.CopyOutput, error) {
	input := proto.NewCopyInput(cluster, batch)

	output, _, err := ip.chain.RouteFiltered(input, func(out proto.Output, pname string) bool {
		if verr := ip.validate(out, cluster); verr != nil {
			waylog.Zero.Error().
				Err(verr).
				Str("plugin", pname).
				Msg("protocol violation in copy stream")
			return false
		}
		return out.Decision() == proto.DecisionCopyRows
	})
	if err != nil {
		return nil, err
	}
	if !output.Decided() {
		return nil, wayerror.New(wayerror.WAY_COPY_MALFORMED, "no plugin produced rows for copy batch")
	}
	return output.CopyRows()
}

// validate checks tag/arm coherence and payload invariants before the
// union is ever read by action mapping. The mismatched arm is never
// touched.
func (ip *Interpreter) validate(output proto.Output, cluster *proto.Config) error {
	switch output.Decision() {
	case proto.DecisionForward:
		route, err := output.Route()
		if err != nil {
			return err
		}
		return proto.ValidateShard(route.Shard, cluster.Shards(), true)

	case proto.DecisionRewrite:
		_, err := output.RewriteQuery()
		return err

	case proto.DecisionError:
		_, err := output.Error()
		return err

	case proto.DecisionIntercept:
		intercept, err := output.Intercept()
		if err != nil {
			return err
		}
		for _, row := range intercept.Rows {
			if row == nil || !row.Allocated() {
				return wayerror.New(wayerror.WAY_PROTOCOL_VIOLATION, "intercept row not built by the row allocator")
			}
			if row.NumColumns() != len(intercept.Description.Columns) {
				return wayerror.Newf(wayerror.WAY_PROTOCOL_VIOLATION,
					"intercept row has %d columns, description has %d",
					row.NumColumns(), len(intercept.Description.Columns))
			}
		}
		return nil

	case proto.DecisionCopy:
		_, err := output.Copy()
		return err

	case proto.DecisionCopyRows:
		out, err := output.CopyRows()
		if err != nil {
			return err
		}
		for _, row := range out.Rows {
			if err := proto.ValidateShard(row.Shard, cluster.Shards(), false); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// forward resolves the route's sentinels and affinity against the
// topology snapshot.
func (ip *Interpreter) forward(cluster *proto.Config, route proto.Route, query string) Forward {
	affinity := ip.classifier.Resolve(route.Affinity, query)
	hint := qclass.Hint(query)

	shard := route.Shard
	if shard == proto.ShardAny {
		if n := cluster.Shards(); n > 0 {
			shard = int(ip.rr.Inc() % uint64(n))
		} else {
			shard = 0
		}
	}

	var targets []proto.DatabaseConfig
	if shard == proto.ShardAll {
		for s := 0; s < cluster.Shards(); s++ {
			if db, ok := shardTarget(cluster, s, affinity, hint); ok {
				targets = append(targets, db)
			}
		}
	} else if db, ok := shardTarget(cluster, shard, affinity, hint); ok {
		targets = append(targets, db)
	}

	return Forward{
		Shard:    shard,
		Affinity: affinity,
		Targets:  targets,
		OrderBy:  route.OrderBy,
	}
}

// shardTarget picks the connection endpoint for one shard: reads
// prefer a replica, everything else lands on the primary. A target
// comment hint in the statement overrides the affinity preference.
func shardTarget(cluster *proto.Config, shard int, affinity proto.Affinity, hint qclass.TargetHint) (proto.DatabaseConfig, bool) {
	var primary, replica *proto.DatabaseConfig
	for _, db := range cluster.Databases() {
		if db.Shard != shard {
			continue
		}
		db := db
		if db.Replica() {
			if replica == nil {
				replica = &db
			}
		} else if primary == nil {
			primary = &db
		}
	}

	preferReplica := affinity == proto.AffinityRead
	switch hint {
	case qclass.TargetPrimary:
		preferReplica = false
	case qclass.TargetReplica:
		preferReplica = true
	}

	if preferReplica && replica != nil {
		return *replica, true
	}
	if primary != nil {
		return *primary, true
	}
	if replica != nil {
		return *replica, true
	}
	return proto.DatabaseConfig{}, false
}
