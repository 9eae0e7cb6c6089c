package runtime

import (
	"strconv"

	"github.com/drblury/mediabridge/internal/runtime/apply"
	"github.com/drblury/mediabridge/internal/runtime/envelope"
	loggingpkg "github.com/drblury/mediabridge/internal/runtime/logging"
	"github.com/drblury/mediabridge/internal/runtime/registry"
	"github.com/drblury/mediabridge/internal/runtime/router"
)

// Observer families, in routing order.
const (
	FamilyRtcEngineEventHandler          = "RtcEngineEventHandler"
	FamilyDirectCdnStreamingEventHandler = "DirectCdnStreamingEventHandler"
	FamilyMetadataObserver               = "MetadataObserver"
	FamilyAudioEncodedFrameObserver      = "AudioEncodedFrameObserver"
	FamilyAudioSpectrumObserver          = "AudioSpectrumObserver"
	FamilyAudioFrameObserver             = "AudioFrameObserver"
	FamilyVideoFrameObserver             = "VideoFrameObserver"
	FamilyVideoEncodedFrameObserver      = "VideoEncodedFrameObserver"
	FamilyMediaPlayerSourceObserver      = "MediaPlayerSourceObserver"
	FamilyMediaPlayerAudioFrameObserver  = "MediaPlayerAudioFrameObserver"
	FamilyMediaPlayerVideoFrameObserver  = "MediaPlayerVideoFrameObserver"
	FamilyMediaRecorderObserver          = "MediaRecorderObserver"
)

const (
	fieldPlayerID     = "playerId"
	fieldNativeHandle = "nativeHandle"

	fieldBufferHandle = "bufferHandle"
	fieldBufferLength = "bufferLength"
)

var (
	streamMessageBuffers = envelope.Rule{envelope.Field("data")}
	metadataBuffers      = envelope.Rule{envelope.Field("metadata.buffer")}
	audioEncodedBuffers  = envelope.Rule{envelope.Field("frameBuffer")}
	audioFrameBuffers    = envelope.Rule{envelope.Field("audioFrame.buffer")}
	videoFrameBuffers    = envelope.Rule{
		envelope.Field("videoFrame.yBuffer"),
		envelope.Field("videoFrame.uBuffer"),
		envelope.Field("videoFrame.vBuffer"),
		envelope.Field("videoFrame.metadataBuffer"),
		envelope.Field("videoFrame.alphaBuffer"),
	}
	videoEncodedBuffers = envelope.Rule{envelope.Field("imageBuffer")}
	playerAudioBuffers  = envelope.Rule{envelope.Field("frame.buffer")}
	playerVideoBuffers  = envelope.Rule{
		envelope.Field("frame.yBuffer"),
		envelope.Field("frame.uBuffer"),
		envelope.Field("frame.vBuffer"),
	}
)

// families returns the routing table of the bridge. Each resolver reads the
// bridge's own registries, so nothing here is shared between bridges.
func (b *Bridge) families() []router.Family {
	fns := append([]apply.Func{apply.Default}, b.extraApply...)
	family := func(name string, kind router.Kind, pre router.Preprocess, resolve router.Resolver) router.Family {
		return router.Family{
			Name:       name,
			Prefix:     name + "_",
			Kind:       kind,
			Apply:      fns,
			Preprocess: pre,
			Resolve:    resolve,
		}
	}

	return []router.Family{
		family(FamilyRtcEngineEventHandler, router.KindEngine,
			spliceOn("onStreamMessage", streamMessageBuffers), fromList(b.engine.eventHandlers)),
		family(FamilyDirectCdnStreamingEventHandler, router.KindEngine,
			nil, fromList(b.engine.cdn)),
		family(FamilyMetadataObserver, router.KindEngine,
			spliceOn("onMetadataReceived", metadataBuffers), fromList(b.engine.metadata)),
		family(FamilyAudioEncodedFrameObserver, router.KindEngine,
			splice(audioEncodedBuffers), fromList(b.engine.audioEncoded)),
		family(FamilyAudioSpectrumObserver, router.KindEngine,
			nil, b.resolveSpectrum),
		family(FamilyAudioFrameObserver, router.KindMediaEngine,
			splice(audioFrameBuffers), fromList(b.engine.audioFrame)),
		family(FamilyVideoFrameObserver, router.KindMediaEngine,
			splice(videoFrameBuffers), fromList(b.engine.videoFrame)),
		family(FamilyVideoEncodedFrameObserver, router.KindMediaEngine,
			splice(videoEncodedBuffers), fromList(b.engine.videoEncoded)),
		family(FamilyMediaPlayerSourceObserver, router.KindMediaPlayer,
			nil, byPlayer(b.instances.source)),
		family(FamilyMediaPlayerAudioFrameObserver, router.KindMediaPlayer,
			splice(playerAudioBuffers), byPlayer(b.instances.audioFrame)),
		family(FamilyMediaPlayerVideoFrameObserver, router.KindMediaPlayer,
			b.preprocessPlayerVideo, byPlayer(b.instances.videoFrame)),
		family(FamilyMediaRecorderObserver, router.KindMediaRecorder,
			nil, b.resolveRecorder),
	}
}

func splice(rule envelope.Rule) router.Preprocess {
	return func(_ string, payload envelope.Payload, buffers [][]byte) {
		envelope.SpliceAll(payload, rule, buffers)
	}
}

func spliceOn(event string, rule envelope.Rule) router.Preprocess {
	return func(name string, payload envelope.Payload, buffers [][]byte) {
		if name == event {
			envelope.SpliceAll(payload, rule, buffers)
		}
	}
}

// preprocessPlayerVideo splices the plane buffers and, when the frame only
// carries a handle, fetches the frame body from the endpoint.
func (b *Bridge) preprocessPlayerVideo(name string, payload envelope.Payload, buffers [][]byte) {
	envelope.SpliceAll(payload, playerVideoBuffers, buffers)

	frame, ok := payload.Object("frame")
	if !ok {
		return
	}
	handle, ok := frame.Int64(fieldBufferHandle)
	if !ok || handle < 0 {
		return
	}
	length, ok := frame.Int64(fieldBufferLength)
	if !ok || length <= 0 {
		return
	}
	buf, err := b.endpoint.GetBuffer(uint64(handle), int(length))
	if err != nil {
		b.Logger.Warn("Fetching frame buffer failed", loggingpkg.LogFields{
			"event":  name,
			"handle": handle,
			"error":  err.Error(),
		})
		return
	}
	envelope.Splice(payload, []string{"frame", "buffer"}, buf)
}

func fromList(list *registry.List) router.Resolver {
	return func(string, envelope.Payload) ([]any, bool) {
		return list.Snapshot(), true
	}
}

func byPlayer(reg *registry.Keyed[int64]) router.Resolver {
	return func(_ string, payload envelope.Payload) ([]any, bool) {
		id, ok := payload.Int64(fieldPlayerID)
		if !ok {
			return nil, false
		}
		targets := reg.Get(id)
		return targets, targets != nil
	}
}

// resolveSpectrum sends playerId 0 to the engine observers and any other id
// to that player's observers. Events without a playerId are dropped.
func (b *Bridge) resolveSpectrum(event string, payload envelope.Payload) ([]any, bool) {
	id, ok := payload.Int64(fieldPlayerID)
	if !ok {
		return nil, false
	}
	if id == 0 {
		return b.engine.spectrum.Snapshot(), true
	}
	return byPlayer(b.instances.spectrum)(event, payload)
}

func (b *Bridge) resolveRecorder(_ string, payload envelope.Payload) ([]any, bool) {
	handle, ok := recorderHandle(payload)
	if !ok {
		return nil, false
	}
	targets := b.instances.recorder.Get(handle)
	return targets, targets != nil
}

// recorderHandle reads the native handle of a recorder. The engine reports
// it as a string, older builds as a number.
func recorderHandle(p envelope.Payload) (string, bool) {
	if handle, ok := p.String(fieldNativeHandle); ok {
		return handle, handle != ""
	}
	if n, ok := p.Int64(fieldNativeHandle); ok {
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}
