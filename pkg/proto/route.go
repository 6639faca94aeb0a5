package proto

import (
	"github.com/pgway/pgway/pkg/wayerror"
)

// Affinity classifies a statement as a read, a write, or a transaction
// boundary marker. AffinityUnknown means the host must ignore the
// plugin's opinion and use its own classification.
type Affinity int

const (
	AffinityRead             = Affinity(1)
	AffinityWrite            = Affinity(2)
	AffinityUnknown          = Affinity(3)
	AffinityTransactionStart = Affinity(4)
	AffinityTransactionEnd   = Affinity(5)
)

func (a Affinity) String() string {
	switch a {
	case AffinityRead:
		return "READ"
	case AffinityWrite:
		return "WRITE"
	case AffinityUnknown:
		return "UNKNOWN"
	case AffinityTransactionStart:
		return "TRANSACTION_START"
	case AffinityTransactionEnd:
		return "TRANSACTION_END"
	}
	return "invalid"
}

// Shard routing sentinels. A non-negative value is a concrete shard
// index; the sentinels let the host pick any shard or fan out to all
// shards and merge.
const (
	ShardAny = -1
	ShardAll = -2
)

// ValidateShard checks a shard selector against the configured shard
// count. Sentinels are accepted only when allowSentinels is set
// (CopyRow destinations must be concrete).
func ValidateShard(shard int, shards int, allowSentinels bool) error {
	if shard == ShardAny || shard == ShardAll {
		if allowSentinels {
			return nil
		}
		return wayerror.Newf(wayerror.WAY_SHARD_OUT_OF_RANGE, "sentinel shard %d where a concrete index is required", shard)
	}
	if shard < 0 || shard >= shards {
		return wayerror.Newf(wayerror.WAY_SHARD_OUT_OF_RANGE, "shard %d out of range, %d shards configured", shard, shards)
	}
	return nil
}

type OrderByDirection int

const (
	OrderAscending  = OrderByDirection(1)
	OrderDescending = OrderByDirection(2)
)

// OrderBy asks the host to merge an all-shard fan-out result ordered
// by a column, referenced either by name or by 1-based position.
// Exactly one of the two is set; ColumnIndex is negative when the
// column is referenced by name.
type OrderBy struct {
	ColumnName  string
	ColumnIndex int
	Direction   OrderByDirection
}

func OrderByName(name string, direction OrderByDirection) OrderBy {
	return OrderBy{ColumnName: name, ColumnIndex: -1, Direction: direction}
}

func OrderByIndex(index int, direction OrderByDirection) OrderBy {
	return OrderBy{ColumnIndex: index, Direction: direction}
}

// Route is the payload of a FORWARD decision.
type Route struct {
	Affinity Affinity
	Shard    int
	OrderBy  []OrderBy
}

// UnknownRoute is what a plugin returns when it has no routing opinion.
func UnknownRoute() Route {
	return Route{Affinity: AffinityUnknown, Shard: ShardAny}
}

func (r Route) Read() bool {
	return r.Affinity == AffinityRead
}

func (r Route) Write() bool {
	return r.Affinity == AffinityWrite
}

func (r Route) AnyShard() bool {
	return r.Shard == ShardAny
}

// CrossShard reports whether the query should go to every shard.
func (r Route) CrossShard() bool {
	return r.Shard == ShardAll
}
