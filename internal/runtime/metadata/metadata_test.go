package metadata

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
)

func TestFromHeadersSkipsEmptyValues(t *testing.T) {
	md := FromHeaders(Headers{
		ContentType: "application/cloudevents+json",
		EventID:     "01J0000000000000000000000",
		EventName:   "onUserJoined",
	})

	if len(md) != 3 {
		t.Fatalf("expected 3 headers, got %v", md)
	}
	if _, ok := md[KeyFamily]; ok {
		t.Fatal("expected empty family to be skipped")
	}
	if got := md.Headers().EventName; got != "onUserJoined" {
		t.Fatalf("expected event name to round trip, got %q", got)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	original := Metadata{KeyFamily: "RtcEngineEventHandler"}
	clone := original.Clone()
	clone[KeyFamily] = "changed"

	if original[KeyFamily] != "RtcEngineEventHandler" {
		t.Fatalf("expected original map to stay untouched, got %q", original[KeyFamily])
	}

	var empty Metadata
	if empty.Clone() == nil {
		t.Fatal("expected non-nil map")
	}
}

func TestWith(t *testing.T) {
	base := Metadata{KeyEventName: "onFrame"}
	enriched := base.With(KeyInstance, "3")
	if base[KeyInstance] != "" {
		t.Fatalf("expected base map to remain unchanged")
	}
	if enriched.Headers().Instance != "3" || enriched.Headers().EventName != "onFrame" {
		t.Fatalf("unexpected headers: %+v", enriched.Headers())
	}
}

func TestToAndFromWatermill(t *testing.T) {
	md := Metadata{KeyEventType: "mediabridge.onUserJoined"}
	wm := ToWatermill(md)
	if wm.Get(KeyEventType) != "mediabridge.onUserJoined" {
		t.Fatalf("expected watermill metadata to copy entries")
	}
	wm[KeyEventType] = "mutation"
	if md[KeyEventType] != "mediabridge.onUserJoined" {
		t.Fatalf("expected original metadata to be immutable to watermill changes")
	}

	if len(ToWatermill(nil)) != 0 {
		t.Fatal("expected nil input to return empty metadata")
	}

	back := FromWatermill(message.Metadata{KeyFamily: "MediaRecorderObserver"})
	if back.Headers().Family != "MediaRecorderObserver" {
		t.Fatalf("expected watermill metadata to convert back")
	}
	if FromWatermill(nil) == nil {
		t.Fatal("expected non-nil map")
	}
}
