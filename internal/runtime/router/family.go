package router

import (
	"github.com/drblury/mediabridge/internal/runtime/apply"
	"github.com/drblury/mediabridge/internal/runtime/envelope"
)

// Kind groups families by the object that owns their observers.
type Kind int

const (
	KindEngine Kind = iota + 1
	KindMediaEngine
	KindMediaPlayer
	KindMediaRecorder
)

func (k Kind) String() string {
	switch k {
	case KindEngine:
		return "engine"
	case KindMediaEngine:
		return "media_engine"
	case KindMediaPlayer:
		return "media_player"
	case KindMediaRecorder:
		return "media_recorder"
	default:
		return "unknown"
	}
}

// Preprocess splices raw buffers into the parsed payload. It runs at most
// once per inbound event.
type Preprocess func(event string, payload envelope.Payload, buffers [][]byte)

// Resolver picks the observers an event is delivered to. ok is false when
// the event is structurally not for this family's observers; such events
// are dropped without preprocessing or republishing.
type Resolver func(event string, payload envelope.Payload) (targets []any, ok bool)

// Family describes one observer interface. A registered family is never
// modified.
type Family struct {
	Name       string
	Prefix     string
	Kind       Kind
	Apply      []apply.Func
	Preprocess Preprocess
	Resolve    Resolver
}

// Event is published on the listener bus after observers ran.
type Event struct {
	// Name is the normalized event name, e.g. "onJoinChannelSuccess".
	Name string
	// RawName is the name as received from the boundary.
	RawName string
	Family  *Family
	Payload envelope.Payload
	Buffers [][]byte
}

// Overlap records two families whose prefixes can match the same event.
// The family registered first receives those events.
type Overlap struct {
	First  string
	Second string
}
