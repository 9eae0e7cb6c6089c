package endpoint

import (
	"fmt"
	"sync"
)

// CallHandler scripts the response of a Memory endpoint to one method.
type CallHandler func(args string, buffers [][]byte) (code int, result string, err error)

// Call records one InvokeCall on a Memory endpoint.
type Call struct {
	Method  string
	Args    string
	Buffers [][]byte
}

// Memory is an in-process Endpoint. Tests and the loopback example use it to
// script call results and inject events.
type Memory struct {
	mu          sync.Mutex
	handlers    map[string]CallHandler
	fallback    CallHandler
	calls       []Call
	listeners   map[string][]EventFunc
	buffers     map[uint64][]byte
	initialized int
	released    int

	// InitErr and ReleaseErr are returned from the environment hooks.
	InitErr    error
	ReleaseErr error
}

// NewMemory returns an endpoint that answers every call with
// {"result":0} until scripted otherwise.
func NewMemory() *Memory {
	return &Memory{
		handlers:  make(map[string]CallHandler),
		listeners: make(map[string][]EventFunc),
		buffers:   make(map[uint64][]byte),
		fallback: func(string, [][]byte) (int, string, error) {
			return 0, `{"result":0}`, nil
		},
	}
}

// Handle scripts the response to method.
func (m *Memory) Handle(method string, h CallHandler) {
	m.mu.Lock()
	m.handlers[method] = h
	m.mu.Unlock()
}

// Respond scripts a fixed response to method.
func (m *Memory) Respond(method string, code int, result string) {
	m.Handle(method, func(string, [][]byte) (int, string, error) {
		return code, result, nil
	})
}

// Fallback replaces the response for unscripted methods.
func (m *Memory) Fallback(h CallHandler) {
	m.mu.Lock()
	m.fallback = h
	m.mu.Unlock()
}

func (m *Memory) InvokeCall(method, args string, buffers [][]byte) (int, string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Method: method, Args: args, Buffers: buffers})
	h, ok := m.handlers[method]
	if !ok {
		h = m.fallback
	}
	m.mu.Unlock()
	return h(args, buffers)
}

// Calls returns every recorded call in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the recorded calls of method.
func (m *Memory) CallsTo(method string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Methods returns the method names of every recorded call in order.
func (m *Memory) Methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Method
	}
	return out
}

func (m *Memory) OnEvent(channel string, fn EventFunc) error {
	if fn == nil {
		return fmt.Errorf("endpoint: nil event callback for channel %q", channel)
	}
	m.mu.Lock()
	m.listeners[channel] = append(m.listeners[channel], fn)
	m.mu.Unlock()
	return nil
}

// Emit delivers an event on channel and returns how many callbacks ran.
func (m *Memory) Emit(channel, name, payload string, buffers ...[]byte) int {
	m.mu.Lock()
	fns := append([]EventFunc(nil), m.listeners[channel]...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn(name, payload, buffers)
	}
	return len(fns)
}

func (m *Memory) InitializeEnvironment() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized++
	return m.InitErr
}

func (m *Memory) ReleaseEnvironment() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return m.ReleaseErr
}

// Initialized reports how many times InitializeEnvironment ran.
func (m *Memory) Initialized() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Released reports how many times ReleaseEnvironment ran.
func (m *Memory) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// StoreBuffer makes data available through GetBuffer under handle.
func (m *Memory) StoreBuffer(handle uint64, data []byte) {
	m.mu.Lock()
	m.buffers[handle] = data
	m.mu.Unlock()
}

func (m *Memory) GetBuffer(handle uint64, length int) ([]byte, error) {
	m.mu.Lock()
	data, ok := m.buffers[handle]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("endpoint: unknown buffer handle %d", handle)
	}
	if length < 0 || length > len(data) {
		return nil, fmt.Errorf("endpoint: buffer %d holds %d bytes, %d requested", handle, len(data), length)
	}
	out := make([]byte, length)
	copy(out, data[:length])
	return out, nil
}
