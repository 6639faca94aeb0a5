package rwsplit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgway/pgway/pkg/proto"
)

func TestExtractOrderBy(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		query string
		exp   []proto.OrderBy
	}

	for _, tt := range []tcase{
		{
			query: "SELECT * FROM t",
			exp:   nil,
		},
		{
			query: "SELECT * FROM t ORDER BY id",
			exp:   []proto.OrderBy{proto.OrderByName("id", proto.OrderAscending)},
		},
		{
			query: "SELECT * FROM t ORDER BY id DESC",
			exp:   []proto.OrderBy{proto.OrderByName("id", proto.OrderDescending)},
		},
		{
			query: "SELECT * FROM t ORDER BY id ASC, name DESC",
			exp: []proto.OrderBy{
				proto.OrderByName("id", proto.OrderAscending),
				proto.OrderByName("name", proto.OrderDescending),
			},
		},
		{
			query: "SELECT * FROM t ORDER BY 2 DESC",
			exp:   []proto.OrderBy{proto.OrderByIndex(2, proto.OrderDescending)},
		},
		{
			query: "SELECT * FROM t ORDER BY id LIMIT 10",
			exp:   []proto.OrderBy{proto.OrderByName("id", proto.OrderAscending)},
		},
		{
			query: `SELECT * FROM t ORDER BY "Name" OFFSET 5`,
			exp:   []proto.OrderBy{proto.OrderByName("Name", proto.OrderAscending)},
		},
		{
			query: "SELECT * FROM t ORDER BY id;",
			exp:   []proto.OrderBy{proto.OrderByName("id", proto.OrderAscending)},
		},
	} {
		assert.Equal(tt.exp, extractOrderBy(tt.query), tt.query)
	}
}
