package runtime

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/mediabridge/internal/runtime/config"
	"github.com/drblury/mediabridge/internal/runtime/dispatch"
	"github.com/drblury/mediabridge/internal/runtime/envelope"
)

func TestBridgeMetricsRecordCall(t *testing.T) {
	m := NewBridgeMetrics("test", nil)
	require.NoError(t, m.Register())
	require.NoError(t, m.Register())

	m.RecordCall("RtcEngine_joinChannel", dispatch.OutcomeOK, 2*time.Millisecond)
	m.RecordCall("RtcEngine_joinChannel", dispatch.OutcomeNegative, time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.TotalCalls)
	stats := snap.Calls["RtcEngine_joinChannel"]
	require.NotNil(t, stats)
	assert.Equal(t, uint64(1), stats.Outcomes[dispatch.OutcomeOK])
	assert.Equal(t, uint64(1), stats.Outcomes[dispatch.OutcomeNegative])
	assert.Equal(t, 3*time.Millisecond, stats.TotalDuration)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.callsTotal.WithLabelValues("RtcEngine_joinChannel", dispatch.OutcomeOK)))

	// snapshots are copies
	stats.Outcomes[dispatch.OutcomeOK] = 99
	assert.Equal(t, uint64(1), m.Snapshot().Calls["RtcEngine_joinChannel"].Outcomes[dispatch.OutcomeOK])
}

func TestBridgeMetricsListenersAndReset(t *testing.T) {
	m := NewBridgeMetrics("", nil)
	m.SetListeners("onUserJoined", 2)
	m.SetListeners("onUserOffline", 1)
	m.SetListeners("onUserOffline", 0)

	assert.Equal(t, map[string]int{"onUserJoined": 2}, m.Snapshot().Listeners)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.listenerGauge.WithLabelValues("onUserJoined")))

	m.RecordEvent(FamilyRtcEngineEventHandler, EventOutcomeDispatched)
	m.RecordApplyError(FamilyRtcEngineEventHandler)
	m.Reset()

	snap := m.Snapshot()
	assert.Empty(t, snap.Listeners)
	assert.Empty(t, snap.Events)
	assert.Zero(t, snap.TotalEvents)
}

func TestBridgeMetricsHandler(t *testing.T) {
	m := NewBridgeMetrics("handler", nil)
	require.NoError(t, m.Register())
	m.RecordEvent(FamilyVideoFrameObserver, EventOutcomeDispatched)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `handler_bridge_events_total{family="VideoFrameObserver",outcome="dispatched"} 1`)
}

func TestBridgeRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	b, mem, _ := newTestBridge(t, func(conf *configpkg.Config, deps *Dependencies) {
		conf.Metrics.Enabled = true
		deps.Registerer = reg
		deps.ExtraApply = append(deps.ExtraApply, func(any, string, envelope.Payload) error {
			return errors.New("observer rejected event")
		})
	})
	m := b.Metrics()
	require.NotNil(t, m)

	require.NoError(t, b.RegisterVideoFrameObserver(ctx, &recordingObserver{}))
	_, ok := b.AddListener("onCaptureVideoFrame", func(Event) {})
	require.True(t, ok)
	_, ok = b.AddListener("onCaptureVideoFrame", func(Event) {})
	require.True(t, ok)

	emit(mem, "VideoFrameObserver_onCaptureVideoFrame", `{"videoFrame":{}}`)
	emit(mem, "MediaPlayerSourceObserver_onPlayerEvent", `{}`)

	snap := m.Snapshot()
	require.Contains(t, snap.Events, FamilyVideoFrameObserver)
	assert.Equal(t, uint64(1), snap.Events[FamilyVideoFrameObserver].Dispatched)
	assert.Equal(t, uint64(1), snap.Events[FamilyVideoFrameObserver].ApplyErrors)
	assert.Equal(t, uint64(1), snap.Events[FamilyMediaPlayerSourceObserver].Excluded)
	assert.Equal(t, 2, snap.Listeners["onCaptureVideoFrame"])
	assert.Equal(t, uint64(1), snap.Calls[MethodRegisterVideoFrameObserver].Outcomes[dispatch.OutcomeOK])

	count, err := testutil.GatherAndCount(reg, "mediabridge_bridge_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	b.RemoveListener("onCaptureVideoFrame")
	assert.NotContains(t, m.Snapshot().Listeners, "onCaptureVideoFrame")

	b.Release(ctx)
	assert.Equal(t, uint64(1), m.Snapshot().Calls[dispatch.MethodRelease].Outcomes[dispatch.OutcomeReleased])
}
