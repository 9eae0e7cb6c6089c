package runtime

import (
	"net/http"
	"sort"
	"strings"

	"github.com/drblury/mediabridge/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/mediabridge/internal/runtime/logging"
	"github.com/drblury/mediabridge/internal/runtime/router"
)

// BridgeStatus is the JSON document served by StatusHandler.
type BridgeStatus struct {
	Released  bool                   `json:"released"`
	Families  []router.FamilyStats   `json:"families"`
	Unmatched uint64                 `json:"unmatched"`
	Players   []int64                `json:"players"`
	Recorders []string               `json:"recorders"`
	Listeners map[string]int         `json:"listeners"`
	Metrics   *BridgeMetricsSnapshot `json:"metrics,omitempty"`
}

// Status collects the current routing counters and live instances.
func (b *Bridge) Status() BridgeStatus {
	st := BridgeStatus{
		Released:  b.Released(),
		Families:  b.router.Stats(),
		Unmatched: b.router.Unmatched(),
		Players:   []int64{},
		Recorders: []string{},
		Listeners: map[string]int{},
	}

	b.mu.Lock()
	for id := range b.players {
		st.Players = append(st.Players, id)
	}
	for handle := range b.recorders {
		st.Recorders = append(st.Recorders, handle)
	}
	b.mu.Unlock()
	sort.Slice(st.Players, func(i, j int) bool { return st.Players[i] < st.Players[j] })
	sort.Strings(st.Recorders)

	b.listenMu.Lock()
	for _, events := range b.book {
		for event, subs := range events {
			st.Listeners[event] += len(subs)
		}
	}
	b.listenMu.Unlock()

	if b.metrics != nil {
		snap := b.metrics.Snapshot()
		st.Metrics = &snap
	}
	return st
}

// StatusHandler serves Status as JSON. Requests from an origin listed in
// allowedOrigins ("*" allows all) get CORS headers.
func (b *Bridge) StatusHandler(allowedOrigins ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if origin := allowedCORSOrigin(allowedOrigins, r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
			return
		case http.MethodGet, http.MethodHead:
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := jsoncodec.Encode(w, b.Status()); err != nil {
			b.Logger.Error("Failed to encode bridge status", err, loggingpkg.LogFields{"path": r.URL.Path})
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	})
}

func allowedCORSOrigin(allowed []string, requestOrigin string) string {
	for _, origin := range allowed {
		if origin == "*" {
			return "*"
		}
		if requestOrigin != "" && strings.EqualFold(origin, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
