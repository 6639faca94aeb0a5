package rwsplit

import (
	"strconv"
	"strings"

	"github.com/pgway/pgway/pkg/proto"
)

// extractOrderBy pulls the ORDER BY list out of the statement text so
// a cross-shard read can ask the host to merge-sort the fan-out
// result. Columns are referenced by name or by 1-based position.
// lyx does not carry the sort clause in its Select node, so the
// extraction is textual.
func extractOrderBy(query string) []proto.OrderBy {
	upper := strings.ToUpper(query)
	idx := strings.LastIndex(upper, "ORDER BY")
	if idx < 0 {
		return nil
	}

	clause := query[idx+len("ORDER BY"):]
	if end := clauseEnd(strings.ToUpper(clause)); end >= 0 {
		clause = clause[:end]
	}

	var result []proto.OrderBy
	for _, item := range strings.Split(clause, ",") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			return nil
		}

		direction := proto.OrderAscending
		if len(fields) > 1 && strings.EqualFold(fields[len(fields)-1], "DESC") {
			direction = proto.OrderDescending
		}

		column := strings.TrimRight(fields[0], ";")
		if pos, err := strconv.Atoi(column); err == nil {
			if pos < 1 {
				return nil
			}
			result = append(result, proto.OrderByIndex(pos, direction))
			continue
		}
		result = append(result, proto.OrderByName(strings.Trim(column, `"`), direction))
	}
	return result
}

// clauseEnd finds where the ORDER BY list stops.
func clauseEnd(upper string) int {
	end := -1
	for _, stop := range []string{"LIMIT", "OFFSET", "FETCH", "FOR ", ";"} {
		if i := strings.Index(upper, stop); i >= 0 && (end < 0 || i < end) {
			end = i
		}
	}
	return end
}
