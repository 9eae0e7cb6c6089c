package runtime

import (
	"context"
	"fmt"
	"strconv"

	"github.com/drblury/mediabridge/internal/runtime/dispatch"
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
	loggingpkg "github.com/drblury/mediabridge/internal/runtime/logging"
	"github.com/drblury/mediabridge/internal/runtime/router"
)

const (
	MethodCreateMediaRecorder  = "RtcEngine_createMediaRecorder"
	MethodDestroyMediaRecorder = "RtcEngine_destroyMediaRecorder"

	MethodRecorderSetObserver    = "MediaRecorder_setMediaRecorderObserver"
	MethodRecorderUnsetObserver  = "MediaRecorder_unsetMediaRecorderObserver"
	MethodRecorderStartRecording = "MediaRecorder_startRecording"
	MethodRecorderStopRecording  = "MediaRecorder_stopRecording"
)

// MediaRecorder records a local or remote stream. It is addressed by the
// native handle the engine returned when it was created.
type MediaRecorder struct {
	b      *Bridge
	handle string

	*Listeners
}

// CreateMediaRecorder creates a recorder for the stream described by info.
func (b *Bridge) CreateMediaRecorder(ctx context.Context, info Payload) (*MediaRecorder, error) {
	if b.Released() {
		return nil, errspkg.ErrBridgeReleased
	}
	res := b.Call(ctx, MethodCreateMediaRecorder, Payload{"info": map[string]any(info)})
	handle, ok := handleOf(res)
	if !ok {
		return nil, fmt.Errorf("%w: result %v", errspkg.ErrRecorderCreateFailed, res.Payload["result"])
	}

	r := &MediaRecorder{b: b, handle: handle}
	r.Listeners = &Listeners{
		b:          b,
		scope:      "recorder:" + handle,
		accept:     r.accept,
		usable:     r.usable,
		categories: r.categories,
	}

	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return nil, errspkg.ErrBridgeReleased
	}
	b.recorders[handle] = r
	b.mu.Unlock()

	b.Logger.Debug("Media recorder created", loggingpkg.LogFields{"native_handle": handle})
	return r, nil
}

// handleOf reads the recorder handle from a create result. Numeric handles
// are accepted; zero and negative numbers are error codes.
func handleOf(res Result) (string, bool) {
	switch v := res.Payload["result"].(type) {
	case string:
		return v, v != ""
	case nil:
		return "", false
	}
	n, ok := res.Code()
	if !ok || n <= 0 {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

// MediaRecorder returns the live recorder with handle.
func (b *Bridge) MediaRecorder(handle string) (*MediaRecorder, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.recorders[handle]
	return r, ok
}

// DestroyMediaRecorder drops the recorder's observer and listeners and
// destroys it on the engine.
func (b *Bridge) DestroyMediaRecorder(ctx context.Context, r *MediaRecorder) Result {
	if r == nil {
		return Result{}
	}
	b.mu.Lock()
	live := b.recorders[r.handle] == r
	delete(b.recorders, r.handle)
	b.mu.Unlock()
	if !live {
		return Result{}
	}

	r.RemoveAllListeners()
	b.instances.recorder.Clear(r.handle)
	b.Logger.Debug("Media recorder destroyed", loggingpkg.LogFields{"native_handle": r.handle})
	return b.Call(ctx, MethodDestroyMediaRecorder, Payload{fieldNativeHandle: r.handle})
}

// Handle returns the native handle of the recorder.
func (r *MediaRecorder) Handle() string {
	return r.handle
}

// Call invokes method with the native handle added to args.
func (r *MediaRecorder) Call(ctx context.Context, method string, args Payload) Result {
	return r.b.Call(ctx, method, args, dispatch.WithInstance(fieldNativeHandle, r.handle))
}

// SetMediaRecorderObserver makes obs the only observer of this recorder.
// The engine is told once, when the recorder gets its first observer.
func (r *MediaRecorder) SetMediaRecorderObserver(ctx context.Context, obs any) error {
	if err := checkObserver(obs); err != nil {
		return err
	}
	if err := r.usable(); err != nil {
		return err
	}
	reg := r.b.instances.recorder
	first := reg.Len(r.handle) == 0
	reg.Clear(r.handle)
	reg.Add(r.handle, obs)
	if first {
		r.Call(ctx, MethodRecorderSetObserver, nil)
	}
	return nil
}

// UnsetMediaRecorderObserver removes the recorder's observer.
func (r *MediaRecorder) UnsetMediaRecorderObserver(ctx context.Context) {
	reg := r.b.instances.recorder
	if reg.Len(r.handle) == 0 {
		return
	}
	reg.Clear(r.handle)
	r.Call(ctx, MethodRecorderUnsetObserver, nil)
}

func (r *MediaRecorder) StartRecording(ctx context.Context, config Payload) Result {
	return r.Call(ctx, MethodRecorderStartRecording, Payload{"config": map[string]any(config)})
}

func (r *MediaRecorder) StopRecording(ctx context.Context) Result {
	return r.Call(ctx, MethodRecorderStopRecording, nil)
}

func (r *MediaRecorder) usable() error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if r.b.released {
		return errspkg.ErrBridgeReleased
	}
	if r.b.recorders[r.handle] != r {
		return errspkg.ErrInstanceDestroyed
	}
	return nil
}

func (r *MediaRecorder) accept(evt Event) bool {
	if evt.Family == nil || evt.Family.Kind != router.KindMediaRecorder {
		return false
	}
	handle, ok := recorderHandle(evt.Payload)
	return ok && handle == r.handle
}

func (r *MediaRecorder) categories(event string) []category {
	if len(familiesOf(event, FamilyMediaRecorderObserver)) == 0 {
		return nil
	}
	reg := r.b.instances.recorder
	return []category{{
		family:     FamilyMediaRecorderObserver,
		strict:     true,
		hint:       "SetMediaRecorderObserver",
		registered: func() bool { return reg.Len(r.handle) > 0 },
	}}
}
