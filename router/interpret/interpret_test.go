package interpret_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgway/pgway/pkg/config"
	"github.com/pgway/pgway/pkg/plugin"
	"github.com/pgway/pgway/pkg/proto"
	"github.com/pgway/pgway/router/interpret"
)

type stubPlugin struct {
	name  string
	route func(input *proto.Input) (proto.Output, error)

	mu    sync.Mutex
	calls []string
}

func (p *stubPlugin) Name() string {
	return p.name
}

func (p *stubPlugin) RouteQuery(input *proto.Input) (proto.Output, error) {
	if query, err := input.Query(); err == nil {
		p.mu.Lock()
		p.calls = append(p.calls, query.Text)
		p.mu.Unlock()
	}
	return p.route(input)
}

func respond(name string, output proto.Output) *stubPlugin {
	return &stubPlugin{
		name: name,
		route: func(*proto.Input) (proto.Output, error) {
			return output, nil
		},
	}
}

func cluster(shards int) *proto.Config {
	var dbs []proto.DatabaseConfig
	for s := 0; s < shards; s++ {
		dbs = append(dbs,
			proto.DatabaseConfig{Shard: s, Role: proto.RolePrimary, Host: "pg", Port: 5432},
			proto.DatabaseConfig{Shard: s, Role: proto.RoleReplica, Host: "pg-ro", Port: 5432},
		)
	}
	return proto.NewConfig("app", dbs, shards)
}

func interpreter(policy string, plugins ...plugin.RoutingPlugin) *interpret.Interpreter {
	cfg := &config.WayConfig{RewritePolicy: policy, MaxRewrites: 4}
	return interpret.New(plugin.NewChain(plugins...), cfg)
}

func TestForwardConcreteShard(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward,
		respond("p", proto.Forward(proto.Route{Affinity: proto.AffinityRead, Shard: 2})))

	action, err := ip.RouteStatement(cluster(4), proto.Query{Text: "SELECT * FROM t"})
	assert.NoError(err)

	fwd, ok := action.(interpret.Forward)
	assert.True(ok)
	assert.Equal(2, fwd.Shard)
	assert.Equal(proto.AffinityRead, fwd.Affinity)
	assert.Len(fwd.Targets, 1)
	assert.True(fwd.Targets[0].Replica(), "reads prefer the replica")
	assert.Equal(2, fwd.Targets[0].Shard)
}

func TestForwardAnyShardStaysInRange(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward,
		respond("p", proto.Forward(proto.Route{Affinity: proto.AffinityRead, Shard: proto.ShardAny})))

	seen := map[int]bool{}
	for i := 0; i < 32; i++ {
		action, err := ip.RouteStatement(cluster(4), proto.Query{Text: "SELECT 1"})
		assert.NoError(err)
		fwd, ok := action.(interpret.Forward)
		assert.True(ok)
		assert.GreaterOrEqual(fwd.Shard, 0)
		assert.Less(fwd.Shard, 4)
		seen[fwd.Shard] = true
	}
	assert.Greater(len(seen), 1, "round robin should touch more than one shard")
}

func TestForwardAllShards(t *testing.T) {
	assert := assert.New(t)

	orderBy := []proto.OrderBy{proto.OrderByName("id", proto.OrderAscending)}
	ip := interpreter(config.RewritePolicyForward,
		respond("p", proto.Forward(proto.Route{
			Affinity: proto.AffinityRead,
			Shard:    proto.ShardAll,
			OrderBy:  orderBy,
		})))

	action, err := ip.RouteStatement(cluster(3), proto.Query{Text: "SELECT * FROM t ORDER BY id"})
	assert.NoError(err)

	fwd, ok := action.(interpret.Forward)
	assert.True(ok)
	assert.Equal(proto.ShardAll, fwd.Shard)
	assert.Len(fwd.Targets, 3)
	assert.Equal(orderBy, fwd.OrderBy)
}

func TestForwardShardOutOfRangeFallsThrough(t *testing.T) {
	assert := assert.New(t)

	bad := respond("bad", proto.Forward(proto.Route{Affinity: proto.AffinityRead, Shard: 5}))
	good := respond("good", proto.Forward(proto.Route{Affinity: proto.AffinityRead, Shard: 1}))

	ip := interpreter(config.RewritePolicyForward, bad, good)

	action, err := ip.RouteStatement(cluster(4), proto.Query{Text: "SELECT 1"})
	assert.NoError(err)

	fwd, ok := action.(interpret.Forward)
	assert.True(ok)
	assert.Equal(1, fwd.Shard, "violating output must be demoted, next plugin wins")
}

func TestForwardShardOutOfRangeNoFallback(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward,
		respond("bad", proto.Forward(proto.Route{Affinity: proto.AffinityRead, Shard: 5})))

	action, err := ip.RouteStatement(cluster(4), proto.Query{Text: "SELECT 1"})
	assert.NoError(err)
	assert.IsType(interpret.Fallback{}, action)
}

func TestUnknownAffinityNeverOverridesHost(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward,
		respond("p", proto.Forward(proto.Route{Affinity: proto.AffinityUnknown, Shard: 0})))

	action, err := ip.RouteStatement(cluster(2), proto.Query{Text: "SELECT * FROM t"})
	assert.NoError(err)
	fwd := action.(interpret.Forward)
	assert.Equal(proto.AffinityRead, fwd.Affinity, "host classifies the SELECT itself")

	action, err = ip.RouteStatement(cluster(2), proto.Query{Text: "DELETE FROM t"})
	assert.NoError(err)
	fwd = action.(interpret.Forward)
	assert.Equal(proto.AffinityWrite, fwd.Affinity)
}

func TestTargetHintOverridesAffinityPreference(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward,
		respond("p", proto.Forward(proto.Route{Affinity: proto.AffinityUnknown, Shard: 0})))

	// A read pinned to the primary by comment.
	action, err := ip.RouteStatement(cluster(2),
		proto.Query{Text: "SELECT * FROM t /* target: primary */"})
	assert.NoError(err)
	fwd := action.(interpret.Forward)
	assert.Equal(proto.AffinityRead, fwd.Affinity)
	assert.Len(fwd.Targets, 1)
	assert.False(fwd.Targets[0].Replica(), "hint pins the read to the primary")

	// A write steered onto the replica by comment.
	action, err = ip.RouteStatement(cluster(2),
		proto.Query{Text: "DELETE FROM t /* target: replica */"})
	assert.NoError(err)
	fwd = action.(interpret.Forward)
	assert.Equal(proto.AffinityWrite, fwd.Affinity)
	assert.Len(fwd.Targets, 1)
	assert.True(fwd.Targets[0].Replica(), "hint steers the write onto the replica")
}

func TestBlockSurfacesErrorVerbatim(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward,
		respond("acl", proto.Block(proto.Error{Severity: "ERROR", Code: "42501", Message: "denied"})))

	action, err := ip.RouteStatement(cluster(2), proto.Query{Text: "DROP TABLE t"})
	assert.NoError(err)

	ce, ok := action.(interpret.ClientError)
	assert.True(ok)
	assert.Equal("ERROR", ce.Error.Severity)
	assert.Equal("42501", ce.Error.Code)
	assert.Equal("denied", ce.Error.Message)
}

func TestInterceptRowsMustComeFromAllocator(t *testing.T) {
	assert := assert.New(t)

	description := proto.RowDescription{Columns: []proto.RowDescriptionColumn{{Name: "v", OID: 25}}}

	var literal proto.Row
	bad := respond("bad", proto.NewIntercept(description, []*proto.Row{&literal}))

	ip := interpreter(config.RewritePolicyForward, bad)
	action, err := ip.RouteStatement(cluster(1), proto.Query{Text: "SELECT 1"})
	assert.NoError(err)
	assert.IsType(interpret.Fallback{}, action)

	row := proto.RowNew(1)
	row.SetColumn(0, []byte("ok"))
	good := respond("good", proto.NewIntercept(description, []*proto.Row{row}))

	ip = interpreter(config.RewritePolicyForward, good)
	action, err = ip.RouteStatement(cluster(1), proto.Query{Text: "SELECT 1"})
	assert.NoError(err)

	res, ok := action.(interpret.InterceptResult)
	assert.True(ok)
	assert.Len(res.Intercept.Rows, 1)
	assert.Equal([]byte("ok"), res.Intercept.Rows[0].Column(0))
}

func TestRewriteForwardPolicy(t *testing.T) {
	assert := assert.New(t)

	rewriter := respond("rw", proto.Rewrite("SELECT 2"))
	ip := interpreter(config.RewritePolicyForward, rewriter)

	action, err := ip.RouteStatement(cluster(1), proto.Query{Text: "SELECT 1"})
	assert.NoError(err)

	rw, ok := action.(interpret.Rewrite)
	assert.True(ok)
	assert.Equal("SELECT 2", rw.Query)
	assert.Len(rewriter.calls, 1, "forward policy must not re-enter the chain")
}

func TestRewriteReevaluatePolicy(t *testing.T) {
	assert := assert.New(t)

	rewriter := &stubPlugin{name: "rw"}
	rewriter.route = func(input *proto.Input) (proto.Output, error) {
		query, err := input.Query()
		if err != nil {
			return proto.Skip(), err
		}
		if query.Text == "SELECT 1" {
			return proto.Rewrite("SELECT 2"), nil
		}
		return proto.Forward(proto.Route{Affinity: proto.AffinityRead, Shard: 0}), nil
	}

	ip := interpreter(config.RewritePolicyReevaluate, rewriter)

	action, err := ip.RouteStatement(cluster(1), proto.Query{Text: "SELECT 1"})
	assert.NoError(err)
	assert.IsType(interpret.Forward{}, action)
	assert.Equal([]string{"SELECT 1", "SELECT 2"}, rewriter.calls)
}

func TestRewriteLoopIsBounded(t *testing.T) {
	assert := assert.New(t)

	// Always rewrites: would loop forever without the bound.
	ip := interpreter(config.RewritePolicyReevaluate, respond("rw", proto.Rewrite("SELECT 1")))

	action, err := ip.RouteStatement(cluster(1), proto.Query{Text: "SELECT 1"})
	assert.Error(err)
	assert.IsType(interpret.Fallback{}, action)
}

func TestCopyClaim(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward,
		respond("copy", proto.NewCopy(proto.Copy{TableName: "orders", Delimiter: ',', HasHeaders: true})))

	action, err := ip.RouteStatement(cluster(2), proto.Query{Text: "COPY orders FROM STDIN"})
	assert.NoError(err)

	begin, ok := action.(interpret.CopyBegin)
	assert.True(ok)
	assert.Equal("orders", begin.Copy.TableName)
	assert.True(begin.Copy.HasHeaders)
}

func TestRouteCopyBatch(t *testing.T) {
	assert := assert.New(t)

	splitter := &stubPlugin{name: "split"}
	splitter.route = func(input *proto.Input) (proto.Output, error) {
		batch, err := input.Copy()
		if err != nil {
			return proto.Skip(), nil
		}
		assert.Equal(byte(','), batch.Delimiter)
		return proto.NewCopyRows(proto.CopyOutput{
			Rows: []proto.CopyRow{{Data: []byte("1,a"), Shard: 1}},
		}), nil
	}

	ip := interpreter(config.RewritePolicyForward, splitter)

	out, err := ip.RouteCopyBatch(cluster(2), proto.CopyInput{Data: []byte("1,a\n"), Delimiter: ','})
	assert.NoError(err)
	assert.Len(out.Rows, 1)
	assert.Equal(1, out.Rows[0].Shard)
}

func TestRouteCopyBatchRejectsBadShard(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward,
		respond("split", proto.NewCopyRows(proto.CopyOutput{
			Rows: []proto.CopyRow{{Data: []byte("1,a"), Shard: 7}},
		})))

	_, err := ip.RouteCopyBatch(cluster(2), proto.CopyInput{Data: []byte("1,a\n"), Delimiter: ','})
	assert.Error(err)
}

func TestNoDecisionYieldsFallback(t *testing.T) {
	assert := assert.New(t)

	ip := interpreter(config.RewritePolicyForward, respond("p", proto.Skip()))

	action, err := ip.RouteStatement(cluster(2), proto.Query{Text: "SELECT 1"})
	assert.NoError(err)
	assert.IsType(interpret.Fallback{}, action)
}
