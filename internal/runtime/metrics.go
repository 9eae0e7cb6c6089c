package runtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event outcomes recorded by BridgeMetrics.
const (
	EventOutcomeDispatched = "dispatched"
	EventOutcomeExcluded   = "excluded"
)

// BridgeMetrics tracks boundary calls, routed events and listeners.
type BridgeMetrics struct {
	mu sync.RWMutex

	calls     map[string]*CallStats
	events    map[string]*EventStats
	listeners map[string]int

	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	eventsTotal   *prometheus.CounterVec
	applyErrors   *prometheus.CounterVec
	listenerGauge *prometheus.GaugeVec

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	registered bool
}

// CallStats holds the counters of one boundary method.
type CallStats struct {
	Total         uint64            `json:"total"`
	Outcomes      map[string]uint64 `json:"outcomes"`
	TotalDuration time.Duration     `json:"total_duration"`
	LastCalledAt  time.Time         `json:"last_called_at"`
}

// EventStats holds the counters of one event family.
type EventStats struct {
	Dispatched  uint64    `json:"dispatched"`
	Excluded    uint64    `json:"excluded"`
	ApplyErrors uint64    `json:"apply_errors"`
	LastEventAt time.Time `json:"last_event_at"`
}

// BridgeMetricsSnapshot is a point-in-time copy of BridgeMetrics.
type BridgeMetricsSnapshot struct {
	TotalCalls  uint64                 `json:"total_calls"`
	TotalEvents uint64                 `json:"total_events"`
	Calls       map[string]*CallStats  `json:"calls"`
	Events      map[string]*EventStats `json:"events"`
	Listeners   map[string]int         `json:"listeners"`
	CollectedAt time.Time              `json:"collected_at"`
}

// NewBridgeMetrics creates the collectors under namespace. A nil registerer
// uses a private registry.
func NewBridgeMetrics(namespace string, registerer prometheus.Registerer) *BridgeMetrics {
	if namespace == "" {
		namespace = "mediabridge"
	}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if registerer == nil {
		reg := prometheus.NewRegistry()
		registerer, gatherer = reg, reg
	} else if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &BridgeMetrics{
		calls:       make(map[string]*CallStats),
		events:      make(map[string]*EventStats),
		listeners:   make(map[string]int),
		registerer:  registerer,
		gatherer:    gatherer,
		callsTotal:  counter("calls_total", "Boundary calls by method and outcome", "method", "outcome"),
		eventsTotal: counter("events_total", "Routed events by family and outcome", "family", "outcome"),
		applyErrors: counter("apply_errors_total", "Observer invocations that failed or panicked", "family"),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "call_duration_seconds",
			Help:      "Duration of boundary calls",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"method"}),
		listenerGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "listeners",
			Help:      "External listeners by event name",
		}, []string{"event"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *BridgeMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	collectors := []prometheus.Collector{
		m.callsTotal,
		m.callDuration,
		m.eventsTotal,
		m.applyErrors,
		m.listenerGauge,
	}
	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

// Handler exposes the registered collectors in the Prometheus text format.
func (m *BridgeMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordCall records a finished boundary call.
func (m *BridgeMetrics) RecordCall(method, outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.calls[method]
	if !ok {
		stats = &CallStats{Outcomes: make(map[string]uint64)}
		m.calls[method] = stats
	}
	stats.Total++
	stats.Outcomes[outcome]++
	stats.TotalDuration += duration
	stats.LastCalledAt = time.Now()

	m.callsTotal.WithLabelValues(method, outcome).Inc()
	m.callDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordEvent records a routed event of family.
func (m *BridgeMetrics) RecordEvent(family, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.eventStats(family)
	switch outcome {
	case EventOutcomeExcluded:
		stats.Excluded++
	default:
		stats.Dispatched++
	}
	stats.LastEventAt = time.Now()
	m.eventsTotal.WithLabelValues(family, outcome).Inc()
}

// RecordApplyError records a failed observer invocation.
func (m *BridgeMetrics) RecordApplyError(family string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventStats(family).ApplyErrors++
	m.applyErrors.WithLabelValues(family).Inc()
}

// SetListeners records the listener count of event.
func (m *BridgeMetrics) SetListeners(event string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 {
		delete(m.listeners, event)
		m.listenerGauge.DeleteLabelValues(event)
		return
	}
	m.listeners[event] = n
	m.listenerGauge.WithLabelValues(event).Set(float64(n))
}

// ResetListeners drops every listener gauge.
func (m *BridgeMetrics) ResetListeners() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = make(map[string]int)
	m.listenerGauge.Reset()
}

func (m *BridgeMetrics) eventStats(family string) *EventStats {
	stats, ok := m.events[family]
	if !ok {
		stats = &EventStats{}
		m.events[family] = stats
	}
	return stats
}

// Snapshot returns a copy of every counter.
func (m *BridgeMetrics) Snapshot() BridgeMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := BridgeMetricsSnapshot{
		Calls:       make(map[string]*CallStats, len(m.calls)),
		Events:      make(map[string]*EventStats, len(m.events)),
		Listeners:   make(map[string]int, len(m.listeners)),
		CollectedAt: time.Now(),
	}
	for method, stats := range m.calls {
		outcomes := make(map[string]uint64, len(stats.Outcomes))
		for k, v := range stats.Outcomes {
			outcomes[k] = v
		}
		cp := *stats
		cp.Outcomes = outcomes
		snapshot.Calls[method] = &cp
		snapshot.TotalCalls += stats.Total
	}
	for family, stats := range m.events {
		cp := *stats
		snapshot.Events[family] = &cp
		snapshot.TotalEvents += stats.Dispatched
	}
	for event, n := range m.listeners {
		snapshot.Listeners[event] = n
	}
	return snapshot
}

// Reset clears all metrics.
func (m *BridgeMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = make(map[string]*CallStats)
	m.events = make(map[string]*EventStats)
	m.listeners = make(map[string]int)
	m.callsTotal.Reset()
	m.callDuration.Reset()
	m.eventsTotal.Reset()
	m.applyErrors.Reset()
	m.listenerGauge.Reset()
}
