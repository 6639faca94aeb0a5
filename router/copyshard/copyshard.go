package copyshard

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pgway/pgway/pkg/proto"
	"github.com/pgway/pgway/pkg/wayerror"
	"github.com/pgway/pgway/pkg/waylog"
	"github.com/pgway/pgway/router/interpret"
)

// ShardSink receives the split rows for one shard. Implemented by the
// backend copy connections; tests plug in buffers.
type ShardSink interface {
	WriteHeader(header []byte) error
	WriteRow(data []byte) error
}

// Coordinator drives bulk ingestion once a plugin has claimed a COPY
// stream. The host parses the client stream into row batches; each
// batch goes through the routing chain and the returned shard-tagged
// rows are streamed to the sinks.
//
// Ordering invariant: rows bound for the same shard leave in arrival
// order. Distinct shards flush concurrently, which is safe because the
// batch is partitioned per shard before any sink is touched.
type Coordinator struct {
	interp         *interpret.Interpreter
	copy           proto.Copy
	shardingColumn int
	sinks          []ShardSink

	mu         sync.Mutex
	header     []byte
	headerSent []bool
	firstBatch bool
}

// NewCoordinator sets up ingestion for one claimed COPY stream. sinks
// must hold one entry per configured shard; shardingColumn is the
// zero-based offset of the shard-key column within the stream.
func NewCoordinator(interp *interpret.Interpreter, claimed proto.Copy, shardingColumn int, sinks []ShardSink) *Coordinator {
	return &Coordinator{
		interp:         interp,
		copy:           claimed,
		shardingColumn: shardingColumn,
		sinks:          sinks,
		headerSent:     make([]bool, len(sinks)),
		firstBatch:     true,
	}
}

// Ingest routes one batch of raw rows and streams the split result to
// the shard sinks. data is the delimited text as received from the
// client.
func (c *Coordinator) Ingest(cluster *proto.Config, data []byte) error {
	c.mu.Lock()
	hasHeaders := c.copy.HasHeaders && c.firstBatch
	c.firstBatch = false
	c.mu.Unlock()

	batch := proto.CopyInput{
		Data:           data,
		ShardingColumn: c.shardingColumn,
		Delimiter:      c.copy.Delimiter,
		HasHeaders:     hasHeaders,
	}

	out, err := c.interp.RouteCopyBatch(cluster, batch)
	if err != nil {
		return err
	}

	return c.flush(out, data, hasHeaders)
}

func (c *Coordinator) flush(out *proto.CopyOutput, original []byte, hadHeaders bool) error {
	perShard := make(map[int][][]byte)
	order := make([]int, 0, len(c.sinks))
	for _, row := range out.Rows {
		if row.Shard < 0 || row.Shard >= len(c.sinks) {
			return wayerror.Newf(wayerror.WAY_SHARD_OUT_OF_RANGE,
				"copy row for shard %d, %d sinks attached", row.Shard, len(c.sinks))
		}
		if _, seen := perShard[row.Shard]; !seen {
			order = append(order, row.Shard)
		}
		perShard[row.Shard] = append(perShard[row.Shard], row.Data)
	}

	header := c.resolveHeader(out, original, hadHeaders)

	var eg errgroup.Group
	for _, shard := range order {
		shard := shard
		rows := perShard[shard]
		eg.Go(func() error {
			if err := c.sendHeader(shard, header); err != nil {
				return err
			}
			for _, row := range rows {
				if err := c.sinks[shard].WriteRow(row); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	waylog.Zero.Debug().
		Str("table", c.copy.TableName).
		Int("rows", len(out.Rows)).
		Int("shards", len(order)).
		Msg("copy batch split")
	return nil
}

// resolveHeader pins the header line for the whole stream the first
// time one is seen: a rewritten header from the plugin wins over the
// raw first line of the client stream. Shards contacted for the first
// time in a later batch still get the pinned header.
func (c *Coordinator) resolveHeader(out *proto.CopyOutput, original []byte, hadHeaders bool) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.header == nil {
		switch {
		case out.Header != nil:
			c.header = append([]byte(nil), out.Header...)
		case hadHeaders:
			c.header = append([]byte(nil), firstLine(original)...)
		}
	}
	return c.header
}

// sendHeader forwards the header line at most once per destination
// shard, on first contact. Shards that never receive rows never see a
// header.
func (c *Coordinator) sendHeader(shard int, header []byte) error {
	if header == nil {
		return nil
	}
	c.mu.Lock()
	sent := c.headerSent[shard]
	c.headerSent[shard] = true
	c.mu.Unlock()
	if sent {
		return nil
	}
	return c.sinks[shard].WriteHeader(header)
}

func firstLine(data []byte) []byte {
	for i, b := range data {
		if b == '\n' {
			return data[:i]
		}
	}
	return data
}
