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
	MethodCreateMediaPlayer  = "RtcEngine_createMediaPlayer"
	MethodDestroyMediaPlayer = "RtcEngine_destroyMediaPlayer"

	MethodPlayerOpen  = "MediaPlayer_open"
	MethodPlayerPlay  = "MediaPlayer_play"
	MethodPlayerPause = "MediaPlayer_pause"
	MethodPlayerStop  = "MediaPlayer_stop"
	MethodPlayerSeek  = "MediaPlayer_seek"

	MethodPlayerRegisterSourceObserver          = "MediaPlayer_registerPlayerSourceObserver"
	MethodPlayerUnregisterSourceObserver        = "MediaPlayer_unregisterPlayerSourceObserver"
	MethodPlayerRegisterAudioFrameObserver      = "MediaPlayer_registerAudioFrameObserver"
	MethodPlayerUnregisterAudioFrameObserver    = "MediaPlayer_unregisterAudioFrameObserver"
	MethodPlayerRegisterVideoFrameObserver      = "MediaPlayer_registerVideoFrameObserver"
	MethodPlayerUnregisterVideoFrameObserver    = "MediaPlayer_unregisterVideoFrameObserver"
	MethodPlayerRegisterAudioSpectrumObserver   = "MediaPlayer_registerMediaPlayerAudioSpectrumObserver"
	MethodPlayerUnregisterAudioSpectrumObserver = "MediaPlayer_unregisterMediaPlayerAudioSpectrumObserver"
)

// MediaPlayer is a native media player. Its calls carry the player id and
// its listeners only see events of this player.
type MediaPlayer struct {
	b  *Bridge
	id int64

	*Listeners
}

// CreateMediaPlayer asks the engine for a new player.
func (b *Bridge) CreateMediaPlayer(ctx context.Context) (*MediaPlayer, error) {
	if b.Released() {
		return nil, errspkg.ErrBridgeReleased
	}
	res := b.Call(ctx, MethodCreateMediaPlayer, nil)
	id, ok := res.Code()
	if !ok || id < 0 {
		return nil, fmt.Errorf("%w: result %d", errspkg.ErrPlayerCreateFailed, id)
	}

	p := &MediaPlayer{b: b, id: id}
	p.Listeners = &Listeners{
		b:          b,
		scope:      playerScope(id),
		accept:     p.accept,
		usable:     p.usable,
		categories: p.categories,
	}

	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return nil, errspkg.ErrBridgeReleased
	}
	b.players[id] = p
	b.mu.Unlock()

	b.Logger.Debug("Media player created", loggingpkg.LogFields{"player_id": id})
	return p, nil
}

// MediaPlayer returns the live player with id.
func (b *Bridge) MediaPlayer(id int64) (*MediaPlayer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.players[id]
	return p, ok
}

// DestroyMediaPlayer drops the player's observers and listeners and
// destroys it on the engine. Destroying a player twice does nothing.
func (b *Bridge) DestroyMediaPlayer(ctx context.Context, p *MediaPlayer) Result {
	if p == nil {
		return Result{}
	}
	b.mu.Lock()
	live := b.players[p.id] == p
	delete(b.players, p.id)
	b.mu.Unlock()
	if !live {
		return Result{}
	}

	b.forgetDefaults(p.scope)
	p.RemoveAllListeners()
	b.instances.forget(p.id)
	b.Logger.Debug("Media player destroyed", loggingpkg.LogFields{"player_id": p.id})
	return b.Call(ctx, MethodDestroyMediaPlayer, Payload{fieldPlayerID: p.id})
}

// ID returns the engine-assigned player id.
func (p *MediaPlayer) ID() int64 {
	return p.id
}

// Call invokes method with the player id added to args.
func (p *MediaPlayer) Call(ctx context.Context, method string, args Payload) Result {
	return p.b.Call(ctx, method, args, p.instance())
}

func (p *MediaPlayer) Open(ctx context.Context, url string, startPos int64) Result {
	return p.Call(ctx, MethodPlayerOpen, Payload{"url": url, "startPos": startPos})
}

func (p *MediaPlayer) Play(ctx context.Context) Result {
	return p.Call(ctx, MethodPlayerPlay, nil)
}

func (p *MediaPlayer) Pause(ctx context.Context) Result {
	return p.Call(ctx, MethodPlayerPause, nil)
}

func (p *MediaPlayer) Stop(ctx context.Context) Result {
	return p.Call(ctx, MethodPlayerStop, nil)
}

// Seek moves playback to newPos milliseconds.
func (p *MediaPlayer) Seek(ctx context.Context, newPos int64) Result {
	return p.Call(ctx, MethodPlayerSeek, Payload{"newPos": newPos})
}

func (p *MediaPlayer) RegisterPlayerSourceObserver(ctx context.Context, obs any) error {
	if err := p.usable(); err != nil {
		return err
	}
	return p.b.registerFirstKeyed(ctx, p.b.instances.source, p.id, obs, MethodPlayerRegisterSourceObserver, nil, p.instance())
}

func (p *MediaPlayer) UnregisterPlayerSourceObserver(ctx context.Context, obs any) error {
	return p.b.unregisterLastKeyed(ctx, p.b.instances.source, p.id, obs, MethodPlayerUnregisterSourceObserver, nil, p.instance())
}

func (p *MediaPlayer) RegisterAudioFrameObserver(ctx context.Context, obs any) error {
	if err := p.usable(); err != nil {
		return err
	}
	return p.b.registerFirstKeyed(ctx, p.b.instances.audioFrame, p.id, obs, MethodPlayerRegisterAudioFrameObserver, nil, p.instance())
}

func (p *MediaPlayer) UnregisterAudioFrameObserver(ctx context.Context, obs any) error {
	return p.b.unregisterLastKeyed(ctx, p.b.instances.audioFrame, p.id, obs, MethodPlayerUnregisterAudioFrameObserver, nil, p.instance())
}

func (p *MediaPlayer) RegisterVideoFrameObserver(ctx context.Context, obs any) error {
	if err := p.usable(); err != nil {
		return err
	}
	return p.b.registerFirstKeyed(ctx, p.b.instances.videoFrame, p.id, obs, MethodPlayerRegisterVideoFrameObserver, nil, p.instance())
}

func (p *MediaPlayer) UnregisterVideoFrameObserver(ctx context.Context, obs any) error {
	return p.b.unregisterLastKeyed(ctx, p.b.instances.videoFrame, p.id, obs, MethodPlayerUnregisterVideoFrameObserver, nil, p.instance())
}

// RegisterMediaPlayerAudioSpectrumObserver adds a spectrum observer that is
// called every intervalMs milliseconds.
func (p *MediaPlayer) RegisterMediaPlayerAudioSpectrumObserver(ctx context.Context, obs any, intervalMs int) error {
	if err := p.usable(); err != nil {
		return err
	}
	return p.b.registerFirstKeyed(ctx, p.b.instances.spectrum, p.id, obs, MethodPlayerRegisterAudioSpectrumObserver,
		Payload{"intervalInMS": intervalMs}, p.instance())
}

func (p *MediaPlayer) UnregisterMediaPlayerAudioSpectrumObserver(ctx context.Context, obs any) error {
	return p.b.unregisterLastKeyed(ctx, p.b.instances.spectrum, p.id, obs, MethodPlayerUnregisterAudioSpectrumObserver, nil, p.instance())
}

func (p *MediaPlayer) instance() dispatch.CallOption {
	return dispatch.WithInstance(fieldPlayerID, p.id)
}

func (p *MediaPlayer) usable() error {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if p.b.released {
		return errspkg.ErrBridgeReleased
	}
	if p.b.players[p.id] != p {
		return errspkg.ErrInstanceDestroyed
	}
	return nil
}

// accept passes player events and spectrum events carrying this player's id.
func (p *MediaPlayer) accept(evt Event) bool {
	if evt.Family == nil {
		return false
	}
	if evt.Family.Kind != router.KindMediaPlayer && evt.Family.Name != FamilyAudioSpectrumObserver {
		return false
	}
	id, ok := evt.Payload.Int64(fieldPlayerID)
	return ok && id == p.id
}

func (p *MediaPlayer) categories(event string) []category {
	reg := p.b.instances
	families := familiesOf(event,
		FamilyMediaPlayerSourceObserver,
		FamilyMediaPlayerAudioFrameObserver,
		FamilyMediaPlayerVideoFrameObserver,
		FamilyAudioSpectrumObserver,
	)
	out := make([]category, 0, len(families))
	for _, family := range families {
		c := category{family: family}
		switch family {
		case FamilyMediaPlayerSourceObserver:
			c.registered = func() bool { return reg.source.Len(p.id) > 0 }
			c.register, c.unregister = p.RegisterPlayerSourceObserver, p.UnregisterPlayerSourceObserver
		case FamilyMediaPlayerAudioFrameObserver:
			c.registered = func() bool { return reg.audioFrame.Len(p.id) > 0 }
			c.register, c.unregister = p.RegisterAudioFrameObserver, p.UnregisterAudioFrameObserver
		case FamilyMediaPlayerVideoFrameObserver:
			c.registered = func() bool { return reg.videoFrame.Len(p.id) > 0 }
			c.register, c.unregister = p.RegisterVideoFrameObserver, p.UnregisterVideoFrameObserver
		case FamilyAudioSpectrumObserver:
			c.strict = true
			c.hint = "RegisterMediaPlayerAudioSpectrumObserver"
			c.registered = func() bool { return reg.spectrum.Len(p.id) > 0 }
		}
		out = append(out, c)
	}
	return out
}

func playerScope(id int64) string {
	return "player:" + strconv.FormatInt(id, 10)
}
