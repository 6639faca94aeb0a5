// Package shardkey is the bundled bulk-load sharding plugin. It claims
// COPY statements for the configured table and splits the inbound rows
// across shards by hashing the shard-key column.
package shardkey

import (
	"bytes"
	"strings"

	"github.com/pg-sharding/lyx/lyx"
	"github.com/spaolacci/murmur3"

	"github.com/pgway/pgway/pkg/plugin"
	"github.com/pgway/pgway/pkg/proto"
	"github.com/pgway/pgway/pkg/wayerror"
)

const PluginName = "shardkey"

type ShardKey struct {
	table string
}

var _ plugin.RoutingPlugin = &ShardKey{}

func New(settings map[string]string) (plugin.RoutingPlugin, error) {
	table := settings["table"]
	if table == "" {
		return nil, wayerror.New(wayerror.WAY_PLUGIN_INIT, "shardkey: \"table\" setting is required")
	}
	return &ShardKey{table: table}, nil
}

func (p *ShardKey) Name() string {
	return PluginName
}

func (p *ShardKey) RouteQuery(input *proto.Input) (proto.Output, error) {
	switch input.Type() {
	case proto.CopyInputT:
		batch, err := input.Copy()
		if err != nil {
			return proto.Skip(), err
		}
		return p.splitBatch(batch, input.Config().Shards())
	default:
		query, err := input.Query()
		if err != nil {
			return proto.Skip(), err
		}
		return p.claimCopy(query.Text)
	}
}

// claimCopy answers COPY statements touching the sharded table with a
// COPY decision so the host hands the stream to this plugin.
func (p *ShardKey) claimCopy(query string) (proto.Output, error) {
	stmt, err := lyx.Parse(query)
	if err != nil {
		return proto.Skip(), nil
	}

	cstmt, ok := stmt.(*lyx.Copy)
	if !ok {
		return proto.Skip(), nil
	}

	rv, ok := cstmt.TableRef.(*lyx.RangeVar)
	if !ok || !strings.EqualFold(rv.RelationName, p.table) {
		return proto.Skip(), nil
	}

	claim := proto.Copy{
		TableName: rv.RelationName,
		Delimiter: '\t',
	}

	// COPY options, the same way the executor reads them.
	for _, opt := range cstmt.Options {
		o, ok := opt.(*lyx.Option)
		if !ok {
			continue
		}
		switch strings.ToLower(o.Name) {
		case "delimiter":
			if arg, ok := o.Arg.(*lyx.AExprSConst); ok && len(arg.Value) > 0 {
				claim.Delimiter = arg.Value[0]
			}
		case "format":
			if arg, ok := o.Arg.(*lyx.AExprSConst); ok && arg.Value == "csv" {
				claim.Delimiter = ','
			}
		case "header":
			claim.HasHeaders = true
		}
	}

	return proto.NewCopy(claim), nil
}

// splitBatch tags every row of the batch with its destination shard.
// The input is borrowed; row payloads are copied out before return.
func (p *ShardKey) splitBatch(batch *proto.CopyInput, shards int) (proto.Output, error) {
	if shards <= 0 {
		return proto.Skip(), wayerror.New(wayerror.WAY_COPY_MALFORMED, "shardkey: no shards configured")
	}

	out := proto.CopyOutput{}
	lines := bytes.Split(batch.Data, []byte{'\n'})

	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		if i == 0 && batch.HasHeaders {
			out.Header = append([]byte(nil), line...)
			continue
		}

		key, err := column(line, batch.Delimiter, batch.ShardingColumn)
		if err != nil {
			return proto.Skip(), err
		}

		out.Rows = append(out.Rows, proto.CopyRow{
			Data:  append([]byte(nil), line...),
			Shard: shardFor(key, shards),
		})
	}

	return proto.NewCopyRows(out), nil
}

// shardFor hashes the key into [0, shards).
func shardFor(key []byte, shards int) int {
	return int(murmur3.Sum32(key) % uint32(shards))
}

func column(line []byte, delimiter byte, index int) ([]byte, error) {
	cols := bytes.Split(line, []byte{delimiter})
	if index < 0 || index >= len(cols) {
		return nil, wayerror.Newf(wayerror.WAY_COPY_MALFORMED,
			"shardkey: row has %d columns, sharding column is %d", len(cols), index)
	}
	return cols[index], nil
}
