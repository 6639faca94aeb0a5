package qclass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgway/pgway/pkg/proto"
	"github.com/pgway/pgway/router/qclass"
)

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		query string
		exp   proto.Affinity
	}

	c := &qclass.Classifier{}
	for _, tt := range []tcase{
		{query: "SELECT 1", exp: proto.AffinityRead},
		{query: "SELECT * FROM orders WHERE id = 1", exp: proto.AffinityRead},
		{query: "INSERT INTO orders VALUES (1)", exp: proto.AffinityWrite},
		{query: "UPDATE orders SET v = 2 WHERE id = 1", exp: proto.AffinityWrite},
		{query: "DELETE FROM orders", exp: proto.AffinityWrite},
		{query: "CREATE TABLE t (id int)", exp: proto.AffinityWrite},
		{query: "BEGIN", exp: proto.AffinityTransactionStart},
		{query: "begin;", exp: proto.AffinityTransactionStart},
		{query: "START TRANSACTION", exp: proto.AffinityTransactionStart},
		{query: "COMMIT", exp: proto.AffinityTransactionEnd},
		{query: "ROLLBACK;", exp: proto.AffinityTransactionEnd},
		{query: "not even sql", exp: proto.AffinityWrite},
	} {
		assert.Equal(tt.exp, c.Classify(tt.query), tt.query)
	}
}

func TestResolve(t *testing.T) {
	assert := assert.New(t)

	c := &qclass.Classifier{}

	// A concrete plugin opinion is taken as-is, even when the host
	// disagrees.
	assert.Equal(proto.AffinityWrite, c.Resolve(proto.AffinityWrite, "SELECT 1"))

	// UNKNOWN never survives: the host classifies instead.
	assert.Equal(proto.AffinityRead, c.Resolve(proto.AffinityUnknown, "SELECT 1"))
	assert.Equal(proto.AffinityWrite, c.Resolve(proto.AffinityUnknown, "DELETE FROM t"))
}

func TestComment(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", qclass.Comment("SELECT 1"))
	assert.Equal(" target: replica ", qclass.Comment("SELECT 1 /* target: replica */"))
	assert.Equal(" b ", qclass.Comment("SELECT /* a */ 1 /* b */"))
}

func TestHint(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		query string
		exp   qclass.TargetHint
	}

	for _, tt := range []tcase{
		{query: "SELECT 1", exp: qclass.TargetDefault},
		{query: "SELECT 1 /* target: replica */", exp: qclass.TargetReplica},
		{query: "SELECT 1 /* target: primary */", exp: qclass.TargetPrimary},
		{query: "SELECT 1 /* TARGET: Replica */", exp: qclass.TargetReplica},
		{query: "SELECT 1 /* key: order_id, target: standby */", exp: qclass.TargetReplica},
		{query: "SELECT 1 /* target: nonsense */", exp: qclass.TargetDefault},
		{query: "SELECT 1 /* target replica */", exp: qclass.TargetDefault},
		// The last comment wins, same as Comment.
		{query: "SELECT /* target: primary */ 1 /* target: replica */", exp: qclass.TargetReplica},
	} {
		assert.Equal(tt.exp, qclass.Hint(tt.query), tt.query)
	}
}
