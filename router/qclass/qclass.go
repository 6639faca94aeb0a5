package qclass

import (
	"strings"

	"github.com/pg-sharding/lyx/lyx"

	"github.com/pgway/pgway/pkg/proto"
)

// Classifier is the host's own read/write classification of a
// statement. A plugin returning UNKNOWN affinity never overrides it;
// the host falls back to this classification instead.
type Classifier struct{}

// Classify returns the host affinity for a statement. Transaction
// boundary markers are recognized by keyword ahead of parsing.
func (c *Classifier) Classify(query string) proto.Affinity {
	switch keyword(query) {
	case "begin", "start":
		return proto.AffinityTransactionStart
	case "commit", "rollback", "end", "abort":
		return proto.AffinityTransactionEnd
	}

	stmt, err := lyx.Parse(query)
	if err != nil {
		// Unparsable statements go to the primary.
		return proto.AffinityWrite
	}

	switch stmt.(type) {
	case *lyx.Select:
		return proto.AffinityRead
	case *lyx.VariableShowStmt:
		return proto.AffinityRead
	default:
		return proto.AffinityWrite
	}
}

// Resolve replaces a plugin's UNKNOWN affinity with the host's own
// classification. Any other plugin opinion is taken as-is.
func (c *Classifier) Resolve(pluginAffinity proto.Affinity, query string) proto.Affinity {
	if pluginAffinity != proto.AffinityUnknown {
		return pluginAffinity
	}
	return c.Classify(query)
}

func keyword(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimRight(fields[0], ";"))
}

// TargetHint is a client-supplied endpoint preference carried in a
// statement comment, e.g. SELECT 1 /* target: replica */.
type TargetHint int

const (
	TargetDefault TargetHint = iota
	TargetPrimary
	TargetReplica
)

// Hint reads the endpoint preference out of the statement's comment.
// Absent or unrecognized hints leave routing to the affinity defaults.
func Hint(query string) TargetHint {
	for _, field := range strings.Split(Comment(query), ",") {
		key, value, ok := strings.Cut(field, ":")
		if !ok || strings.ToLower(strings.TrimSpace(key)) != "target" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "primary", "master":
			return TargetPrimary
		case "replica", "standby":
			return TargetReplica
		}
	}
	return TargetDefault
}

// Comment extracts the last /* */ comment of a statement. Routing
// hints travel in comments.
func Comment(query string) string {
	comment := ""
	for i := 0; i+4 <= len(query); i++ {

		if query[i] != '/' || query[i+1] != '*' {
			continue
		}
		j := i + 2

		for ; j+1 < len(query); j++ {
			if query[j] == '*' && query[j+1] == '/' {
				break
			}
		}

		if j+1 >= len(query) {
			break
		}

		comment = query[i+2 : j]
	}
	return comment
}
