package cloudevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracingExtensions(t *testing.T) {
	evt := New("t", "s", nil)

	SetTraceID(&evt, "4bf92f3577b34da6a3ce929d0e0e4736")
	SetCorrelationID(&evt, "session-1")
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(evt))
	assert.Equal(t, "session-1", GetCorrelationID(evt))

	SetTraceID(&evt, "")
	assert.Empty(t, GetTraceID(evt))
	assert.NotContains(t, evt.Extensions, ExtTraceID)
}

func TestRoutingExtensions(t *testing.T) {
	evt := New("t", "s", nil).
		WithExtension(ExtRawName, "MediaPlayerSourceObserver_onPositionChanged").
		WithExtension(ExtInstance, int64(3)).
		WithExtension(ExtBuffers, int64(0))

	assert.Equal(t, "MediaPlayerSourceObserver_onPositionChanged", GetRawName(evt))
	assert.Equal(t, "3", GetInstance(evt))
	assert.Equal(t, 0, GetBuffers(evt))
}

func TestSetOnNilExtensions(t *testing.T) {
	var evt Event
	SetCorrelationID(&evt, "x")
	assert.Equal(t, "x", GetCorrelationID(evt))
}
