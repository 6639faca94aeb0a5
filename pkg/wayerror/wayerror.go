package wayerror

import "fmt"

const (
	WAY_UNEXPECTED         = "WAYUN"
	WAY_PROTOCOL_VIOLATION = "WAYPV"
	WAY_SHARD_OUT_OF_RANGE = "WAYSH"
	WAY_COPY_MALFORMED     = "WAYCP"
	WAY_PLUGIN_INIT        = "WAYIN"
	WAY_VERSION_MISMATCH   = "WAYVR"
	WAY_NO_PLUGIN          = "WAYNP"
)

var existingErrorCodeMap = map[string]string{
	WAY_PROTOCOL_VIOLATION: "plugin output violates the routing protocol",
	WAY_SHARD_OUT_OF_RANGE: "shard index out of configured range",
	WAY_COPY_MALFORMED:     "malformed copy payload",
	WAY_PLUGIN_INIT:        "plugin initialization failed",
	WAY_VERSION_MISMATCH:   "unsupported protocol version",
	WAY_NO_PLUGIN:          "no such plugin",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &WayError{}

type WayError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *WayError {
	err := &WayError{
		Err:       fmt.Errorf("%s", errorMsg),
		ErrorCode: errorCode,
	}
	return err
}

func Newf(errorCode string, format string, a ...any) *WayError {
	err := &WayError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
	return err
}

func (er *WayError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

// IsProtocolViolation reports whether err is a routing protocol
// violation. The decision interpreter demotes these to NO_DECISION.
func IsProtocolViolation(err error) bool {
	if we, ok := err.(*WayError); ok {
		switch we.ErrorCode {
		case WAY_PROTOCOL_VIOLATION, WAY_SHARD_OUT_OF_RANGE, WAY_COPY_MALFORMED, WAY_VERSION_MISMATCH:
			return true
		}
	}
	return false
}
