package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drblury/mediabridge/internal/runtime/jsoncodec"
)

func TestStatusHandlerReturnsJSON(t *testing.T) {
	ctx := context.Background()
	b, mem, _ := newTestBridge(t)
	mem.Respond(MethodCreateMediaPlayer, 0, `{"result":7}`)
	if _, err := b.CreateMediaPlayer(ctx); err != nil {
		t.Fatalf("create player: %v", err)
	}
	if err := b.RegisterEventHandler(ctx, &recordingObserver{}); err != nil {
		t.Fatalf("register handler: %v", err)
	}
	if _, ok := b.AddListener("onUserJoined", func(Event) {}); !ok {
		t.Fatal("expected listener to be added")
	}
	emit(mem, "RtcEngineEventHandler_onUserJoined", `{"remoteUid":1}`)
	emit(mem, "Nobody_onNothing", `{}`)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	b.StatusHandler("http://LOCALHOST:3000").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content type, got %s", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected request origin to be echoed, got %q", got)
	}

	var status BridgeStatus
	if err := jsoncodec.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unexpected error decoding response: %v", err)
	}
	if status.Released {
		t.Fatal("expected bridge to be live")
	}
	if len(status.Families) != 12 {
		t.Fatalf("expected 12 families, got %d", len(status.Families))
	}
	if status.Unmatched != 1 {
		t.Fatalf("expected 1 unmatched event, got %d", status.Unmatched)
	}
	if len(status.Players) != 1 || status.Players[0] != 7 {
		t.Fatalf("unexpected players: %v", status.Players)
	}
	if status.Listeners["onUserJoined"] != 1 {
		t.Fatalf("unexpected listeners: %v", status.Listeners)
	}
	if status.Metrics != nil {
		t.Fatal("expected no metrics when disabled")
	}
}

func TestStatusHandlerCORS(t *testing.T) {
	b, _, _ := newTestBridge(t)

	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	b.StatusHandler("*").ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	b.StatusHandler("http://example.com").ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header, got %q", got)
	}

	rec = httptest.NewRecorder()
	b.StatusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
