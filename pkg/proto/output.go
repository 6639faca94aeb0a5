package proto

import (
	"github.com/pgway/pgway/pkg/wayerror"
)

// RoutingDecision selects the populated arm of an Output.
type RoutingDecision int

const (
	DecisionForward    = RoutingDecision(1)
	DecisionRewrite    = RoutingDecision(2)
	DecisionError      = RoutingDecision(3)
	DecisionIntercept  = RoutingDecision(4)
	DecisionNoDecision = RoutingDecision(5)
	DecisionCopy       = RoutingDecision(6)
	DecisionCopyRows   = RoutingDecision(7)
)

func (d RoutingDecision) String() string {
	switch d {
	case DecisionForward:
		return "FORWARD"
	case DecisionRewrite:
		return "REWRITE"
	case DecisionError:
		return "ERROR"
	case DecisionIntercept:
		return "INTERCEPT"
	case DecisionNoDecision:
		return "NO_DECISION"
	case DecisionCopy:
		return "COPY"
	case DecisionCopyRows:
		return "COPY_ROWS"
	}
	return "invalid"
}

// Output is the sole return value of a routing call: a decision tag
// plus exactly one payload arm. Arms are unexported; every read goes
// through an accessor that checks the tag and fails with a protocol
// violation on mismatch.
type Output struct {
	decision RoutingDecision

	route     *Route
	rewrite   string
	err       *Error
	intercept *Intercept
	copy      *Copy
	copyRows  *CopyOutput
}

// Skip is the output of a plugin that doesn't want to deal with the
// input. The chain moves on to the next plugin.
func Skip() Output {
	return Output{decision: DecisionNoDecision}
}

// Forward routes the query as-is to the destination carried by route.
func Forward(route Route) Output {
	return Output{decision: DecisionForward, route: &route}
}

// Rewrite replaces the outgoing statement text; the original is
// discarded.
func Rewrite(query string) Output {
	return Output{decision: DecisionRewrite, rewrite: query}
}

// Block denies the statement. The error is sent to the client verbatim
// and the transaction is aborted.
func Block(err Error) Output {
	return Output{decision: DecisionError, err: &err}
}

// NewIntercept answers the query directly with a synthesized result
// set; nothing is sent to any backend.
func NewIntercept(description RowDescription, rows []*Row) Output {
	return Output{decision: DecisionIntercept, intercept: &Intercept{Description: description, Rows: rows}}
}

// NewCopy declares that the plugin wants to own the inbound bulk-load.
func NewCopy(copy Copy) Output {
	return Output{decision: DecisionCopy, copy: &copy}
}

// NewCopyRows answers a bulk-row batch with shard-tagged rows.
func NewCopyRows(out CopyOutput) Output {
	return Output{decision: DecisionCopyRows, copyRows: &out}
}

func (o Output) Decision() RoutingDecision {
	return o.decision
}

// Decided reports whether the chain should stop at this output.
func (o Output) Decided() bool {
	return o.decision != DecisionNoDecision
}

func (o Output) mismatch(want RoutingDecision) error {
	return wayerror.Newf(wayerror.WAY_PROTOCOL_VIOLATION, "output decided %s, %s arm requested", o.decision, want)
}

func (o Output) Route() (*Route, error) {
	if o.decision != DecisionForward {
		return nil, o.mismatch(DecisionForward)
	}
	if o.route == nil {
		return nil, wayerror.New(wayerror.WAY_PROTOCOL_VIOLATION, "FORWARD output with empty route arm")
	}
	return o.route, nil
}

func (o Output) RewriteQuery() (string, error) {
	if o.decision != DecisionRewrite {
		return "", o.mismatch(DecisionRewrite)
	}
	if len(o.rewrite) == 0 {
		return "", wayerror.New(wayerror.WAY_PROTOCOL_VIOLATION, "REWRITE output with empty statement text")
	}
	return o.rewrite, nil
}

func (o Output) Error() (*Error, error) {
	if o.decision != DecisionError {
		return nil, o.mismatch(DecisionError)
	}
	if o.err == nil {
		return nil, wayerror.New(wayerror.WAY_PROTOCOL_VIOLATION, "ERROR output with empty error arm")
	}
	return o.err, nil
}

func (o Output) Intercept() (*Intercept, error) {
	if o.decision != DecisionIntercept {
		return nil, o.mismatch(DecisionIntercept)
	}
	if o.intercept == nil {
		return nil, wayerror.New(wayerror.WAY_PROTOCOL_VIOLATION, "INTERCEPT output with empty result arm")
	}
	return o.intercept, nil
}

func (o Output) Copy() (*Copy, error) {
	if o.decision != DecisionCopy {
		return nil, o.mismatch(DecisionCopy)
	}
	if o.copy == nil {
		return nil, wayerror.New(wayerror.WAY_PROTOCOL_VIOLATION, "COPY output with empty copy arm")
	}
	return o.copy, nil
}

func (o Output) CopyRows() (*CopyOutput, error) {
	if o.decision != DecisionCopyRows {
		return nil, o.mismatch(DecisionCopyRows)
	}
	if o.copyRows == nil {
		return nil, wayerror.New(wayerror.WAY_PROTOCOL_VIOLATION, "COPY_ROWS output with empty rows arm")
	}
	return o.copyRows, nil
}
