package runtime

import (
	"context"

	"github.com/drblury/mediabridge/internal/runtime/registry"
)

// Native methods toggling engine observers.
const (
	MethodRegisterEventHandler                = "RtcEngine_registerEventHandler"
	MethodUnregisterEventHandler              = "RtcEngine_unregisterEventHandler"
	MethodRegisterAudioFrameObserver          = "MediaEngine_registerAudioFrameObserver"
	MethodUnregisterAudioFrameObserver        = "MediaEngine_unregisterAudioFrameObserver"
	MethodRegisterVideoFrameObserver          = "MediaEngine_registerVideoFrameObserver"
	MethodUnregisterVideoFrameObserver        = "MediaEngine_unregisterVideoFrameObserver"
	MethodRegisterAudioEncodedFrameObserver   = "RtcEngine_registerAudioEncodedFrameObserver"
	MethodUnregisterAudioEncodedFrameObserver = "RtcEngine_unregisterAudioEncodedFrameObserver"
	MethodRegisterVideoEncodedFrameObserver   = "MediaEngine_registerVideoEncodedFrameObserver"
	MethodUnregisterVideoEncodedFrameObserver = "MediaEngine_unregisterVideoEncodedFrameObserver"
	MethodRegisterMediaMetadataObserver       = "RtcEngine_registerMediaMetadataObserver"
	MethodUnregisterMediaMetadataObserver     = "RtcEngine_unregisterMediaMetadataObserver"
	MethodRegisterAudioSpectrumObserver       = "RtcEngine_registerAudioSpectrumObserver"
	MethodUnregisterAudioSpectrumObserver     = "RtcEngine_unregisterAudioSpectrumObserver"
	MethodStartDirectCdnStreaming             = "RtcEngine_startDirectCdnStreaming"
	MethodStopDirectCdnStreaming              = "RtcEngine_stopDirectCdnStreaming"
)

type engineRegistries struct {
	eventHandlers *registry.List
	audioFrame    *registry.List
	videoFrame    *registry.List
	audioEncoded  *registry.List
	videoEncoded  *registry.List
	metadata      *registry.List
	spectrum      *registry.List
	cdn           *registry.List
}

func newEngineRegistries() engineRegistries {
	return engineRegistries{
		eventHandlers: registry.NewList(),
		audioFrame:    registry.NewList(),
		videoFrame:    registry.NewList(),
		audioEncoded:  registry.NewList(),
		videoEncoded:  registry.NewList(),
		metadata:      registry.NewList(),
		spectrum:      registry.NewList(),
		cdn:           registry.NewList(),
	}
}

func (r engineRegistries) release() {
	for _, list := range []*registry.List{
		r.eventHandlers, r.audioFrame, r.videoFrame, r.audioEncoded,
		r.videoEncoded, r.metadata, r.spectrum, r.cdn,
	} {
		list.Clear()
	}
}

// instanceRegistries hold observers scoped to one player or recorder.
type instanceRegistries struct {
	source     *registry.Keyed[int64]
	audioFrame *registry.Keyed[int64]
	videoFrame *registry.Keyed[int64]
	spectrum   *registry.Keyed[int64]
	recorder   *registry.Keyed[string]
}

func newInstanceRegistries() instanceRegistries {
	return instanceRegistries{
		source:     registry.NewKeyed[int64](),
		audioFrame: registry.NewKeyed[int64](),
		videoFrame: registry.NewKeyed[int64](),
		spectrum:   registry.NewKeyed[int64](),
		recorder:   registry.NewKeyed[string](),
	}
}

func (r instanceRegistries) forget(playerID int64) {
	r.source.Clear(playerID)
	r.audioFrame.Clear(playerID)
	r.videoFrame.Clear(playerID)
	r.spectrum.Clear(playerID)
}

func (r instanceRegistries) release() {
	r.source.Release()
	r.audioFrame.Release()
	r.videoFrame.Release()
	r.spectrum.Release()
	r.recorder.Release()
}

// RegisterEventHandler adds an engine event handler.
func (b *Bridge) RegisterEventHandler(ctx context.Context, handler any) error {
	return b.registerFirst(ctx, b.engine.eventHandlers, handler, MethodRegisterEventHandler, nil)
}

func (b *Bridge) UnregisterEventHandler(ctx context.Context, handler any) error {
	return b.unregisterLast(ctx, b.engine.eventHandlers, handler, MethodUnregisterEventHandler, nil)
}

// RegisterAudioFrameObserver adds an observer of raw audio frames.
func (b *Bridge) RegisterAudioFrameObserver(ctx context.Context, obs any) error {
	return b.registerFirst(ctx, b.engine.audioFrame, obs, MethodRegisterAudioFrameObserver, nil)
}

func (b *Bridge) UnregisterAudioFrameObserver(ctx context.Context, obs any) error {
	return b.unregisterLast(ctx, b.engine.audioFrame, obs, MethodUnregisterAudioFrameObserver, nil)
}

// RegisterVideoFrameObserver adds an observer of raw video frames.
func (b *Bridge) RegisterVideoFrameObserver(ctx context.Context, obs any) error {
	return b.registerFirst(ctx, b.engine.videoFrame, obs, MethodRegisterVideoFrameObserver, nil)
}

func (b *Bridge) UnregisterVideoFrameObserver(ctx context.Context, obs any) error {
	return b.unregisterLast(ctx, b.engine.videoFrame, obs, MethodUnregisterVideoFrameObserver, nil)
}

// RegisterAudioEncodedFrameObserver adds an observer of encoded audio.
// config is forwarded to the engine with the first registration.
func (b *Bridge) RegisterAudioEncodedFrameObserver(ctx context.Context, config Payload, obs any) error {
	return b.registerFirst(ctx, b.engine.audioEncoded, obs, MethodRegisterAudioEncodedFrameObserver,
		Payload{"config": map[string]any(config)})
}

func (b *Bridge) UnregisterAudioEncodedFrameObserver(ctx context.Context, obs any) error {
	return b.unregisterLast(ctx, b.engine.audioEncoded, obs, MethodUnregisterAudioEncodedFrameObserver, nil)
}

func (b *Bridge) RegisterVideoEncodedFrameObserver(ctx context.Context, obs any) error {
	return b.registerFirst(ctx, b.engine.videoEncoded, obs, MethodRegisterVideoEncodedFrameObserver, nil)
}

func (b *Bridge) UnregisterVideoEncodedFrameObserver(ctx context.Context, obs any) error {
	return b.unregisterLast(ctx, b.engine.videoEncoded, obs, MethodUnregisterVideoEncodedFrameObserver, nil)
}

// RegisterMediaMetadataObserver adds a metadata observer for metadataType.
func (b *Bridge) RegisterMediaMetadataObserver(ctx context.Context, obs any, metadataType int) error {
	return b.registerFirst(ctx, b.engine.metadata, obs, MethodRegisterMediaMetadataObserver,
		Payload{"type": metadataType})
}

func (b *Bridge) UnregisterMediaMetadataObserver(ctx context.Context, obs any, metadataType int) error {
	return b.unregisterLast(ctx, b.engine.metadata, obs, MethodUnregisterMediaMetadataObserver,
		Payload{"type": metadataType})
}

// RegisterAudioSpectrumObserver adds an observer of local spectrum data.
// Spectrum events of media players are routed to the players instead.
func (b *Bridge) RegisterAudioSpectrumObserver(ctx context.Context, obs any) error {
	return b.registerFirst(ctx, b.engine.spectrum, obs, MethodRegisterAudioSpectrumObserver, nil)
}

func (b *Bridge) UnregisterAudioSpectrumObserver(ctx context.Context, obs any) error {
	return b.unregisterLast(ctx, b.engine.spectrum, obs, MethodUnregisterAudioSpectrumObserver, nil)
}

// StartDirectCdnStreaming starts pushing to publishURL and makes handler the
// only receiver of streaming events. The handler stays registered after
// StopDirectCdnStreaming so the final state change still reaches it.
func (b *Bridge) StartDirectCdnStreaming(ctx context.Context, handler any, publishURL string, options Payload) (Result, error) {
	if err := b.checkUsable(handler); err != nil {
		return Result{}, err
	}
	b.engine.cdn.Clear()
	b.engine.cdn.Add(handler)
	return b.Call(ctx, MethodStartDirectCdnStreaming, Payload{
		"publishUrl": publishURL,
		"options":    map[string]any(options),
	}), nil
}

func (b *Bridge) StopDirectCdnStreaming(ctx context.Context) Result {
	return b.Call(ctx, MethodStopDirectCdnStreaming, nil)
}
