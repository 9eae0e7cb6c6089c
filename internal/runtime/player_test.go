package runtime

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/mediabridge/internal/runtime/endpoint"
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
)

// sequentialPlayers makes the endpoint hand out player ids 1, 2, 3...
func sequentialPlayers(mem *endpoint.Memory) {
	var next atomic.Int64
	mem.Handle(MethodCreateMediaPlayer, func(string, [][]byte) (int, string, error) {
		return 0, fmt.Sprintf(`{"result":%d}`, next.Add(1)), nil
	})
}

func TestCreateMediaPlayer(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)

	first, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)
	second, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID())
	assert.Equal(t, int64(2), second.ID())
	got, ok := b.MediaPlayer(2)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestCreateMediaPlayerFailure(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)

	mem.Respond(MethodCreateMediaPlayer, 0, `{"result":-2}`)
	_, err := b.CreateMediaPlayer(ctx)
	assert.ErrorIs(t, err, errspkg.ErrPlayerCreateFailed)

	mem.Respond(MethodCreateMediaPlayer, -1, "")
	_, err = b.CreateMediaPlayer(ctx)
	assert.ErrorIs(t, err, errspkg.ErrPlayerCreateFailed)

	mem.Respond(MethodCreateMediaPlayer, 0, "not json")
	_, err = b.CreateMediaPlayer(ctx)
	assert.ErrorIs(t, err, errspkg.ErrPlayerCreateFailed)
}

func TestPlayerCallsCarryPlayerID(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	p, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	p.Open(ctx, "https://example.com/a.mp4", 0)
	p.Play(ctx)
	p.Seek(ctx, 1500)

	open := mem.CallsTo(MethodPlayerOpen)
	require.Len(t, open, 1)
	assert.Equal(t, map[string]any{
		"playerId": int64(1),
		"url":      "https://example.com/a.mp4",
		"startPos": int64(0),
	}, callArgs(t, open[0]))

	play := mem.CallsTo(MethodPlayerPlay)
	require.Len(t, play, 1)
	assert.Equal(t, map[string]any{"playerId": int64(1)}, callArgs(t, play[0]))

	seek := mem.CallsTo(MethodPlayerSeek)
	require.Len(t, seek, 1)
	assert.Equal(t, int64(1500), callArgs(t, seek[0])["newPos"])
}

func TestPlayerObserversAreScopedByID(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	one, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)
	two, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	obsOne, obsTwo := &recordingObserver{}, &recordingObserver{}
	require.NoError(t, one.RegisterPlayerSourceObserver(ctx, obsOne))
	require.NoError(t, two.RegisterPlayerSourceObserver(ctx, obsTwo))

	emit(mem, "MediaPlayerSourceObserver_onPlayerSourceStateChanged", `{"playerId":2,"state":1}`)
	emit(mem, "MediaPlayerSourceObserver_onPlayerSourceStateChanged", `{"playerId":1,"state":2}`)
	emit(mem, "MediaPlayerSourceObserver_onPlayerSourceStateChanged", `{"playerId":9,"state":2}`)
	emit(mem, "MediaPlayerSourceObserver_onPlayerSourceStateChanged", `{"state":2}`)

	assert.Equal(t, 1, obsOne.count())
	assert.Equal(t, 1, obsTwo.count())
	state, _ := obsOne.last().Int64("state")
	assert.Equal(t, int64(2), state)

	stats, ok := b.Router().FamilyStats(FamilyMediaPlayerSourceObserver)
	require.True(t, ok)
	assert.Equal(t, uint64(2), stats.Dispatched)
	assert.Equal(t, uint64(2), stats.Excluded)

	registers := mem.CallsTo(MethodPlayerRegisterSourceObserver)
	require.Len(t, registers, 2)
	assert.Equal(t, int64(1), callArgs(t, registers[0])["playerId"])
	assert.Equal(t, int64(2), callArgs(t, registers[1])["playerId"])
}

func TestPlayerListenersOnlySeeTheirPlayer(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	one, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)
	two, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	var gotOne, gotTwo, gotEngine int
	_, ok := one.AddListener("onAudioVolumeIndication", func(Event) { gotOne++ })
	require.True(t, ok)
	_, ok = two.AddListener("onAudioVolumeIndication", func(Event) { gotTwo++ })
	require.True(t, ok)
	_, ok = b.AddListener("onAudioVolumeIndication", func(Event) { gotEngine++ })
	require.True(t, ok)

	emit(mem, "MediaPlayerSourceObserver_onAudioVolumeIndication", `{"playerId":1,"volume":10}`)
	emit(mem, "RtcEngineEventHandler_onAudioVolumeIndication", `{"speakers":[],"totalVolume":3}`)

	assert.Equal(t, 1, gotOne)
	assert.Zero(t, gotTwo)
	assert.Equal(t, 1, gotEngine)

	assert.Len(t, mem.CallsTo(MethodPlayerRegisterSourceObserver), 2)
	assert.Len(t, mem.CallsTo(MethodRegisterEventHandler), 1)
}

func TestPlayerRemoveAllListenersKeepsOtherScopes(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	p, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	_, ok := p.AddListener("onPlayerEvent", func(Event) {})
	require.True(t, ok)
	_, ok = p.AddListener("onCompleted", func(Event) {})
	require.True(t, ok)
	_, ok = b.AddListener("onUserJoined", func(Event) {})
	require.True(t, ok)

	assert.Equal(t, 2, p.RemoveAllListeners())
	assert.Equal(t, 1, b.ListenerCount("onUserJoined"))
	assert.True(t, b.Router().HasListeners("onUserJoined"))
	assert.False(t, b.Router().HasListeners("onPlayerEvent"))
}

func TestSpectrumRouting(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	p, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	engineObs, playerObs := &recordingObserver{}, &recordingObserver{}
	require.NoError(t, b.RegisterAudioSpectrumObserver(ctx, engineObs))
	require.NoError(t, p.RegisterMediaPlayerAudioSpectrumObserver(ctx, playerObs, 100))

	var engineHeard, playerHeard int
	_, ok := b.AddListener("onLocalAudioSpectrum", func(Event) { engineHeard++ })
	require.True(t, ok)
	_, ok = p.AddListener("onLocalAudioSpectrum", func(Event) { playerHeard++ })
	require.True(t, ok)

	emit(mem, "AudioSpectrumObserver_onLocalAudioSpectrum", `{"playerId":0,"data":{}}`)
	emit(mem, "AudioSpectrumObserver_onLocalAudioSpectrum", `{"playerId":1,"data":{}}`)
	emit(mem, "AudioSpectrumObserver_onLocalAudioSpectrum", `{"data":{}}`)

	assert.Equal(t, 1, engineObs.count())
	assert.Equal(t, 1, playerObs.count())
	assert.Equal(t, 1, engineHeard)
	assert.Equal(t, 1, playerHeard)

	stats, _ := b.Router().FamilyStats(FamilyAudioSpectrumObserver)
	assert.Equal(t, uint64(1), stats.Excluded)

	registers := mem.CallsTo(MethodPlayerRegisterAudioSpectrumObserver)
	require.Len(t, registers, 1)
	assert.Equal(t, map[string]any{"playerId": int64(1), "intervalInMS": int64(100)}, callArgs(t, registers[0]))
}

func TestPlayerSpectrumListenerIsStrict(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	p, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	_, ok := p.AddListener("onRemoteAudioSpectrum", func(Event) {})
	assert.False(t, ok)
}

func TestPlayerVideoFrameFetchesBufferByHandle(t *testing.T) {
	ctx := context.Background()
	b, mem, log := newTestBridge(t)
	sequentialPlayers(mem)
	p, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	obs := &recordingObserver{}
	require.NoError(t, p.RegisterVideoFrameObserver(ctx, obs))
	mem.StoreBuffer(42, []byte{9, 8, 7, 6})

	emit(mem, "MediaPlayerVideoFrameObserver_onFrame",
		`{"playerId":1,"frame":{"bufferHandle":42,"bufferLength":3}}`, []byte{1}, []byte{2}, []byte{3})

	require.Equal(t, 1, obs.count())
	frame := obs.last()
	buf, ok := frame.Bytes("frame", "buffer")
	require.True(t, ok)
	assert.Equal(t, []byte{9, 8, 7}, buf)
	y, _ := frame.Bytes("frame", "yBuffer")
	assert.Equal(t, []byte{1}, y)

	emit(mem, "MediaPlayerVideoFrameObserver_onFrame",
		`{"playerId":1,"frame":{"bufferHandle":77,"bufferLength":3}}`)
	require.Equal(t, 2, obs.count())
	assert.False(t, obs.last().Has("frame", "buffer"))
	assert.Equal(t, 1, log.Count("warn"))
}

func TestDestroyMediaPlayer(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	p, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	obs := &recordingObserver{}
	require.NoError(t, p.RegisterAudioFrameObserver(ctx, obs))
	heard := 0
	_, ok := p.AddListener("onFrame", func(Event) { heard++ })
	require.True(t, ok)

	b.DestroyMediaPlayer(ctx, p)
	b.DestroyMediaPlayer(ctx, p)

	destroy := mem.CallsTo(MethodDestroyMediaPlayer)
	require.Len(t, destroy, 1)
	assert.Equal(t, map[string]any{"playerId": int64(1)}, callArgs(t, destroy[0]))

	emit(mem, "MediaPlayerAudioFrameObserver_onFrame", `{"playerId":1,"frame":{}}`, []byte{1})
	assert.Zero(t, obs.count())
	assert.Zero(t, heard)

	_, live := b.MediaPlayer(1)
	assert.False(t, live)
	assert.ErrorIs(t, p.RegisterAudioFrameObserver(ctx, obs), errspkg.ErrInstanceDestroyed)
	_, ok = p.AddListener("onFrame", func(Event) {})
	assert.False(t, ok)
}

func TestPlayerOnFrameListenerEnablesBothFrameObservers(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	p, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	_, ok := p.AddListener("onFrame", func(Event) {})
	require.True(t, ok)

	assert.Len(t, mem.CallsTo(MethodPlayerRegisterAudioFrameObserver), 1)
	assert.Len(t, mem.CallsTo(MethodPlayerRegisterVideoFrameObserver), 1)
}

func TestPlayerDefaultObserversFollowListeners(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	sequentialPlayers(mem)
	p, err := b.CreateMediaPlayer(ctx)
	require.NoError(t, err)

	_, ok := p.AddListener("onFrame", func(Event) {})
	require.True(t, ok)
	assert.Equal(t, 1, p.RemoveAllListeners())
	assert.Len(t, mem.CallsTo(MethodPlayerUnregisterAudioFrameObserver), 1)
	assert.Len(t, mem.CallsTo(MethodPlayerUnregisterVideoFrameObserver), 1)

	_, ok = p.AddListener("onPlayerEvent", func(Event) {})
	require.True(t, ok)
	assert.Len(t, mem.CallsTo(MethodPlayerRegisterSourceObserver), 1)

	// destroying the player discards its observers without unregistering them
	b.DestroyMediaPlayer(ctx, p)
	assert.Empty(t, mem.CallsTo(MethodPlayerUnregisterSourceObserver))
}
