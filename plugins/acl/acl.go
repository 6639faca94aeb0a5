// Package acl is the bundled access-control plugin: statements
// matching a configured denylist are blocked with a client-visible
// error before any backend is touched. `SHOW routing_rules` is
// intercepted and answered with the active rules.
package acl

import (
	"strings"

	"github.com/pgway/pgway/pkg/plugin"
	"github.com/pgway/pgway/pkg/proto"
)

const PluginName = "acl"

// TEXTOID is the pg catalog oid of the text type, the only column
// type the synthesized rule listing uses.
const TEXTOID = uint32(25)

const showRules = "show routing_rules"

type ACL struct {
	deny []string
}

var _ plugin.RoutingPlugin = &ACL{}

func New(settings map[string]string) (plugin.RoutingPlugin, error) {
	var deny []string
	for _, rule := range strings.Split(settings["deny"], ";") {
		rule = strings.TrimSpace(rule)
		if rule != "" {
			deny = append(deny, strings.ToLower(rule))
		}
	}
	return &ACL{deny: deny}, nil
}

func (p *ACL) Name() string {
	return PluginName
}

func (p *ACL) RouteQuery(input *proto.Input) (proto.Output, error) {
	query, err := input.Query()
	if err != nil {
		return proto.Skip(), nil
	}

	normalized := strings.ToLower(strings.TrimSpace(query.Text))

	if strings.TrimRight(normalized, ";") == showRules {
		return p.interceptRules(), nil
	}

	for _, rule := range p.deny {
		if strings.HasPrefix(normalized, rule) {
			return proto.Block(proto.Error{
				Severity: "ERROR",
				Code:     "42501",
				Message:  "statement denied by routing policy",
				Detail:   "matched rule: " + rule,
			}), nil
		}
	}

	return proto.Skip(), nil
}

// interceptRules synthesizes the rule listing. Rows go through the
// allocator: they become host-owned on return and the host frees them.
func (p *ACL) interceptRules() proto.Output {
	description := proto.RowDescription{
		Columns: []proto.RowDescriptionColumn{
			{Name: "rule", OID: TEXTOID},
		},
	}

	rows := make([]*proto.Row, 0, len(p.deny))
	for _, rule := range p.deny {
		row := proto.RowNew(1)
		row.SetColumn(0, []byte("deny "+rule))
		rows = append(rows, row)
	}

	return proto.NewIntercept(description, rows)
}
