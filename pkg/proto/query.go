package proto

// Parameter is a single bound parameter value. Data length is carried
// by the slice itself, never by a terminator byte.
type Parameter struct {
	Data   []byte
	OID    uint32
	Format int16
}

// Query is the statement text plus its bound parameters. Host-owned,
// borrowed by the plugin for the duration of the routing call.
type Query struct {
	Text       string
	Parameters []Parameter
}

func (q *Query) Parameter(index int) (Parameter, bool) {
	if index < 0 || index >= len(q.Parameters) {
		return Parameter{}, false
	}
	return q.Parameters[index], true
}
