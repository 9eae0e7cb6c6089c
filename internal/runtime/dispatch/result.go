package dispatch

import "github.com/drblury/mediabridge/internal/runtime/envelope"

// Result is the decoded response of a boundary call. A degraded call yields
// an empty Result; callers inspect the numeric "result" field themselves.
type Result struct {
	envelope.Payload
}

// Code returns the numeric "result" field.
func (r Result) Code() (int64, bool) {
	return r.Int64("result")
}

// Empty reports whether the call produced no fields at all.
func (r Result) Empty() bool {
	return len(r.Payload) == 0
}
