package runtime

// eventNames lists the events each family delivers. Listener prechecks use
// it to find the observer registration an event depends on.
var eventNames = map[string][]string{
	FamilyRtcEngineEventHandler: {
		"onJoinChannelSuccess", "onRejoinChannelSuccess", "onLeaveChannel", "onError", "onWarning",
		"onUserJoined", "onUserOffline", "onUserMuteAudio", "onUserMuteVideo", "onUserEnableVideo",
		"onRtcStats", "onNetworkQuality", "onLastmileQuality", "onLastmileProbeResult",
		"onAudioVolumeIndication", "onActiveSpeaker", "onConnectionStateChanged", "onConnectionLost",
		"onConnectionInterrupted", "onNetworkTypeChanged", "onTokenPrivilegeWillExpire",
		"onRequestToken", "onClientRoleChanged", "onClientRoleChangeFailed",
		"onFirstLocalVideoFrame", "onFirstLocalVideoFramePublished", "onFirstRemoteVideoFrame",
		"onFirstRemoteVideoDecoded", "onFirstLocalAudioFramePublished", "onFirstRemoteAudioFrame",
		"onFirstRemoteAudioDecoded", "onLocalAudioStateChanged", "onRemoteAudioStateChanged",
		"onLocalVideoStateChanged", "onRemoteVideoStateChanged", "onLocalAudioStats",
		"onRemoteAudioStats", "onLocalVideoStats", "onRemoteVideoStats", "onVideoSizeChanged",
		"onStreamMessage", "onStreamMessageError", "onAudioRoutingChanged", "onAudioMixingStateChanged",
		"onAudioMixingFinished", "onAudioEffectFinished", "onRtmpStreamingStateChanged",
		"onRtmpStreamingEvent", "onTranscodingUpdated", "onChannelMediaRelayStateChanged",
		"onSnapshotTaken", "onUserInfoUpdated", "onLocalUserRegistered", "onUploadLogResult",
		"onPermissionError", "onContentInspectResult", "onProxyConnected", "onEncryptionError",
	},
	FamilyDirectCdnStreamingEventHandler: {
		"onDirectCdnStreamingStateChanged", "onDirectCdnStreamingStats",
	},
	FamilyMetadataObserver: {
		"onMetadataReceived",
	},
	FamilyAudioEncodedFrameObserver: {
		"onRecordAudioEncodedFrame", "onPlaybackAudioEncodedFrame", "onMixedAudioEncodedFrame",
	},
	FamilyAudioSpectrumObserver: {
		"onLocalAudioSpectrum", "onRemoteAudioSpectrum",
	},
	FamilyAudioFrameObserver: {
		"onRecordAudioFrame", "onPlaybackAudioFrame", "onMixedAudioFrame",
		"onEarMonitoringAudioFrame", "onPlaybackAudioFrameBeforeMixing",
	},
	FamilyVideoFrameObserver: {
		"onCaptureVideoFrame", "onPreEncodeVideoFrame", "onMediaPlayerVideoFrame",
		"onRenderVideoFrame", "onTranscodedVideoFrame",
	},
	FamilyVideoEncodedFrameObserver: {
		"onEncodedVideoFrameReceived",
	},
	FamilyMediaPlayerSourceObserver: {
		"onPlayerSourceStateChanged", "onPositionChanged", "onPlayerEvent", "onMetaData",
		"onPlayBufferUpdated", "onPreloadEvent", "onCompleted", "onAgoraCDNTokenWillExpire",
		"onPlayerSrcInfoChanged", "onPlayerInfoUpdated", "onAudioVolumeIndication",
	},
	FamilyMediaPlayerAudioFrameObserver: {
		"onFrame",
	},
	FamilyMediaPlayerVideoFrameObserver: {
		"onFrame",
	},
	FamilyMediaRecorderObserver: {
		"onRecorderStateChanged", "onRecorderInfoUpdated",
	},
}

// familiesOf returns the families among candidates that deliver event, in
// candidate order.
func familiesOf(event string, candidates ...string) []string {
	var out []string
	for _, family := range candidates {
		for _, name := range eventNames[family] {
			if name == event {
				out = append(out, family)
				break
			}
		}
	}
	return out
}
