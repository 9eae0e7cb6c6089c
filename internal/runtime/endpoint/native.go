//go:build darwin || linux

package endpoint

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
)

// Native talks to the native bridge library through purego, without cgo.
// The library exports:
//
//	int32_t     bridge_initialize(void);
//	int32_t     bridge_release(void);
//	const char *bridge_call(const char *method, const char *args,
//	                        const uint8_t **buffers, const uint32_t *lengths,
//	                        uint32_t count, int32_t *code);
//	void        bridge_free(const char *result);
//	int32_t     bridge_set_event_callback(const char *channel, event_cb cb, uintptr_t user);
//	int32_t     bridge_get_buffer(uint64_t handle, uint8_t *out, uint32_t length);
//
// where event_cb is
//
//	void (*)(const char *channel, const char *name, const char *payload,
//	         const uint8_t **buffers, const uint32_t *lengths, uint32_t count,
//	         uintptr_t user);
type Native struct {
	path   string
	handle uintptr
	id     uintptr

	mu        sync.RWMutex
	listeners map[string][]EventFunc
	bound     map[string]bool
	closed    bool

	initialize       func() int32
	release          func() int32
	call             func(method, args string, buffers, lengths uintptr, count uint32, code uintptr) uintptr
	free             func(result uintptr)
	setEventCallback func(channel string, cb, user uintptr) int32
	getBuffer        func(handle uint64, out uintptr, length uint32) int32
}

var (
	nativesMu     sync.RWMutex
	natives       = make(map[uintptr]*Native)
	nativeCounter uintptr
	eventCallback uintptr
	callbackOnce  sync.Once
)

// OpenNative loads the native library from the first usable location in
// LibraryCandidates(path).
func OpenNative(path string) (*Native, error) {
	var lastErr error
	for _, candidate := range LibraryCandidates(path) {
		handle, err := purego.Dlopen(candidate, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		n := &Native{
			path:      candidate,
			handle:    handle,
			listeners: make(map[string][]EventFunc),
			bound:     make(map[string]bool),
		}
		if err := n.bindSymbols(); err != nil {
			_ = purego.Dlclose(handle)
			lastErr = err
			continue
		}
		n.register()
		return n, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", errspkg.ErrLibraryNotFound, lastErr)
	}
	return nil, errspkg.ErrLibraryNotFound
}

// Path returns the file the library was loaded from.
func (n *Native) Path() string {
	return n.path
}

func (n *Native) bindSymbols() error {
	symbols := []struct {
		name string
		fptr any
	}{
		{"bridge_initialize", &n.initialize},
		{"bridge_release", &n.release},
		{"bridge_call", &n.call},
		{"bridge_free", &n.free},
		{"bridge_set_event_callback", &n.setEventCallback},
		{"bridge_get_buffer", &n.getBuffer},
	}
	for _, s := range symbols {
		sym, err := purego.Dlsym(n.handle, s.name)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", s.name, err)
		}
		purego.RegisterFunc(s.fptr, sym)
	}
	return nil
}

func (n *Native) register() {
	callbackOnce.Do(func() {
		eventCallback = purego.NewCallback(nativeEventTrampoline)
	})
	nativesMu.Lock()
	nativeCounter++
	n.id = nativeCounter
	natives[n.id] = n
	nativesMu.Unlock()
}

func (n *Native) InvokeCall(method, args string, buffers [][]byte) (int, string, error) {
	if n.isClosed() {
		return 0, "", errors.New("endpoint: native library closed")
	}

	ptrs := make([]uintptr, len(buffers)+1)
	lengths := make([]uint32, len(buffers)+1)
	for i, b := range buffers {
		if len(b) > 0 {
			ptrs[i] = uintptr(unsafe.Pointer(&b[0]))
		}
		lengths[i] = uint32(len(b))
	}

	var code int32
	result := n.call(
		method,
		args,
		uintptr(unsafe.Pointer(&ptrs[0])),
		uintptr(unsafe.Pointer(&lengths[0])),
		uint32(len(buffers)),
		uintptr(unsafe.Pointer(&code)),
	)
	keepAlive(buffers, ptrs, lengths, &code)

	text := cString(result)
	if result != 0 {
		n.free(result)
	}
	return int(code), text, nil
}

func (n *Native) OnEvent(channel string, fn EventFunc) error {
	if fn == nil {
		return fmt.Errorf("endpoint: nil event callback for channel %q", channel)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return errors.New("endpoint: native library closed")
	}
	n.listeners[channel] = append(n.listeners[channel], fn)
	if n.bound[channel] {
		return nil
	}
	if rc := n.setEventCallback(channel, eventCallback, n.id); rc != 0 {
		return fmt.Errorf("endpoint: bind channel %q failed with code %d", channel, rc)
	}
	n.bound[channel] = true
	return nil
}

func (n *Native) InitializeEnvironment() error {
	if rc := n.initialize(); rc != 0 {
		return fmt.Errorf("endpoint: initialize failed with code %d", rc)
	}
	return nil
}

func (n *Native) ReleaseEnvironment() error {
	if rc := n.release(); rc != 0 {
		return fmt.Errorf("endpoint: release failed with code %d", rc)
	}
	return nil
}

func (n *Native) GetBuffer(handle uint64, length int) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	out := make([]byte, length)
	if rc := n.getBuffer(handle, uintptr(unsafe.Pointer(&out[0])), uint32(length)); rc != 0 {
		return nil, fmt.Errorf("endpoint: get buffer %d failed with code %d", handle, rc)
	}
	return out, nil
}

// Close unloads the library. Events arriving afterwards are ignored.
func (n *Native) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.listeners = nil
	n.mu.Unlock()

	nativesMu.Lock()
	delete(natives, n.id)
	nativesMu.Unlock()
	return purego.Dlclose(n.handle)
}

func (n *Native) isClosed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.closed
}

func (n *Native) deliver(channel, name, payload string, buffers [][]byte) {
	n.mu.RLock()
	fns := n.listeners[channel]
	n.mu.RUnlock()
	for _, fn := range fns {
		fn(name, payload, buffers)
	}
}

// nativeEventTrampoline is the C callback shared by every Native instance.
func nativeEventTrampoline(channel, name, payload, buffers, lengths uintptr, count uint32, user uintptr) {
	nativesMu.RLock()
	n, ok := natives[user]
	nativesMu.RUnlock()
	if !ok || n == nil {
		return
	}
	n.deliver(cString(channel), cString(name), cString(payload), copyBuffers(buffers, lengths, count))
}

// copyBuffers copies native buffers into Go memory; the native side frees
// its copies once the callback returns.
func copyBuffers(buffers, lengths uintptr, count uint32) [][]byte {
	if count == 0 || buffers == 0 || lengths == 0 {
		return nil
	}
	ptrs := unsafe.Slice((*uintptr)(unsafe.Pointer(buffers)), count)
	lens := unsafe.Slice((*uint32)(unsafe.Pointer(lengths)), count)
	out := make([][]byte, count)
	for i := range out {
		if ptrs[i] == 0 || lens[i] == 0 {
			out[i] = []byte{}
			continue
		}
		src := unsafe.Slice((*byte)(unsafe.Pointer(ptrs[i])), lens[i])
		out[i] = append([]byte(nil), src...)
	}
	return out
}

// cString converts a NUL-terminated C string to a Go string.
func cString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := unsafe.Pointer(ptr)
	length := 0
	for *(*byte)(unsafe.Add(p, length)) != 0 {
		length++
	}
	return string(unsafe.Slice((*byte)(p), length))
}
