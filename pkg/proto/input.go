package proto

import (
	"github.com/pgway/pgway/pkg/wayerror"
)

// ProtocolVersion tags the Input/Output envelope. Historical protocol
// revisions grew by accretion (parameters gained values, Affinity
// gained transaction markers, RoutingDecision gained the COPY pair,
// Input gained the Config envelope); the explicit tag replaces any
// reliance on struct-shape compatibility.
const ProtocolVersion = uint32(2)

type InputType int

const (
	QueryInput = InputType(1)
	CopyInputT = InputType(2)
)

func (t InputType) String() string {
	switch t {
	case QueryInput:
		return "QUERY"
	case CopyInputT:
		return "COPY"
	}
	return "invalid"
}

// Input is the sole argument of a routing call: a version-tagged
// envelope holding the topology snapshot and either a query or a copy
// batch. The populated arm is determined by the input type tag and
// only reachable through the checked accessors.
type Input struct {
	version   uint32
	config    *Config
	inputType InputType

	query *Query
	copy  *CopyInput
}

func NewQueryInput(config *Config, query Query) *Input {
	return &Input{
		version:   ProtocolVersion,
		config:    config,
		inputType: QueryInput,
		query:     &query,
	}
}

func NewCopyInput(config *Config, copy CopyInput) *Input {
	return &Input{
		version:   ProtocolVersion,
		config:    config,
		inputType: CopyInputT,
		copy:      &copy,
	}
}

func (in *Input) Version() uint32 {
	return in.version
}

func (in *Input) Config() *Config {
	return in.config
}

func (in *Input) Type() InputType {
	return in.inputType
}

// Query returns the query arm. Reading it when the input holds a copy
// batch is a protocol violation.
func (in *Input) Query() (*Query, error) {
	if in.inputType != QueryInput {
		return nil, wayerror.Newf(wayerror.WAY_PROTOCOL_VIOLATION, "input holds %s, not QUERY", in.inputType)
	}
	return in.query, nil
}

// Copy returns the copy arm. Reading it when the input holds a query
// is a protocol violation.
func (in *Input) Copy() (*CopyInput, error) {
	if in.inputType != CopyInputT {
		return nil, wayerror.Newf(wayerror.WAY_PROTOCOL_VIOLATION, "input holds %s, not COPY", in.inputType)
	}
	return in.copy, nil
}
