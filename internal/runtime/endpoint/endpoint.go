// Package endpoint abstracts the boundary to the native media engine: a
// synchronous call entry point, an event callback channel, environment
// lifecycle and out-of-band buffer access.
package endpoint

// EventFunc receives one inbound event envelope. buffers are owned by the
// callee once delivered.
type EventFunc func(name, payload string, buffers [][]byte)

// Endpoint is the native engine's call/event interface.
type Endpoint interface {
	// InvokeCall forwards one call and returns the engine's return code and
	// result text. The buffer count is len(buffers).
	InvokeCall(method, args string, buffers [][]byte) (code int, result string, err error)
	// OnEvent binds fn to events delivered on channel.
	OnEvent(channel string, fn EventFunc) error
	InitializeEnvironment() error
	ReleaseEnvironment() error
	// GetBuffer materializes an out-of-band buffer referenced by handle.
	GetBuffer(handle uint64, length int) ([]byte, error)
}
