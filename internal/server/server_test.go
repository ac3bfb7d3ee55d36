package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/autovod/internal/config"
	"github.com/GriffinCanCode/autovod/internal/fuzzy"
	"github.com/GriffinCanCode/autovod/internal/orchestrator"
	"github.com/GriffinCanCode/autovod/internal/store"
)

// mockPipeline for testing.
type mockPipeline struct {
	mu        sync.Mutex
	captures  []orchestrator.CaptureEvent
	detecting bool
	records   []store.Record
	histErr   error
	events    chan orchestrator.CaptureEvent
}

func newMockPipeline() *mockPipeline {
	return &mockPipeline{
		detecting: true,
		events:    make(chan orchestrator.CaptureEvent, 10),
		captures: []orchestrator.CaptureEvent{
			{ID: "c2", Calibration: "ssbu-1080p", Players: []fuzzy.Result{{Name: "MARIO", Raw: "MARIO", Matched: true}}},
			{ID: "c1", Calibration: "ssbu-1080p"},
		},
	}
}

func (m *mockPipeline) CaptureEvents() <-chan orchestrator.CaptureEvent { return m.events }

func (m *mockPipeline) Recent(n int) []orchestrator.CaptureEvent {
	if n > len(m.captures) {
		n = len(m.captures)
	}
	return m.captures[:n]
}

func (m *mockPipeline) Latest() (orchestrator.CaptureEvent, bool) {
	if len(m.captures) == 0 {
		return orchestrator.CaptureEvent{}, false
	}
	return m.captures[0], true
}

func (m *mockPipeline) Stats() orchestrator.Stats {
	return orchestrator.Stats{Detecting: m.Detecting(), Source: "files", Calibration: "ssbu-1080p"}
}

func (m *mockPipeline) SetDetection(enabled bool) {
	m.mu.Lock()
	m.detecting = enabled
	m.mu.Unlock()
}

func (m *mockPipeline) Detecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detecting
}

func (m *mockPipeline) History(context.Context, int) ([]store.Record, error) {
	return m.records, m.histErr
}

func (m *mockPipeline) Counts(context.Context) ([]store.NameCount, error) {
	return []store.NameCount{{Name: "MARIO", Count: 3}}, m.histErr
}

func newTestServer(t *testing.T, pipe *mockPipeline, origins ...string) *Server {
	t.Helper()
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := New(pipe, &config.Config{CORSOrigins: origins})
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware([]string{"*"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := do(t, handler, "OPTIONS", "/test")
	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin = %q, want %q", v, "*")
	}
	if v := rec.Header().Get("Access-Control-Allow-Methods"); v != "GET, POST, OPTIONS" {
		t.Errorf("CORS methods = %q, want %q", v, "GET, POST, OPTIONS")
	}
}

func TestCORSAllowList(t *testing.T) {
	handler := corsMiddleware([]string{"http://localhost:3000"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:3000", "http://localhost:3000"},
		{"http://evil.example", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/test", http.NoBody)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if v := rec.Header().Get("Access-Control-Allow-Origin"); v != tt.want {
			t.Errorf("origin %q: Allow-Origin = %q, want %q", tt.origin, v, tt.want)
		}
	}
}

func TestCapturesEndpoint(t *testing.T) {
	h := newTestServer(t, newMockPipeline()).Handler()

	rec := do(t, h, "GET", "/api/captures?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var msg HistoryMessage
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if len(msg.Captures) != 1 || msg.Captures[0].ID != "c2" {
		t.Errorf("captures = %+v", msg.Captures)
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Error("trace middleware should set X-Trace-Id")
	}

	for _, bad := range []string{"0", "-1", "abc"} {
		if rec := do(t, h, "GET", "/api/captures?limit="+bad); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestLatestEndpoint(t *testing.T) {
	pipe := newMockPipeline()
	h := newTestServer(t, pipe).Handler()

	rec := do(t, h, "GET", "/api/captures/latest")
	var msg CaptureMessage
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "capture" || msg.Capture.ID != "c2" || msg.Capture.Players[0].Name != "MARIO" {
		t.Errorf("latest = %+v", msg)
	}

	pipe.captures = nil
	if rec := do(t, h, "GET", "/api/captures/latest"); rec.Code != http.StatusNotFound {
		t.Errorf("empty latest status = %d, want 404", rec.Code)
	}
}

func TestDetectionToggle(t *testing.T) {
	pipe := newMockPipeline()
	h := newTestServer(t, pipe).Handler()

	if rec := do(t, h, "POST", "/api/detection/stop"); rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}
	if pipe.Detecting() {
		t.Error("detection should be off")
	}
	do(t, h, "POST", "/api/detection/start")
	if !pipe.Detecting() {
		t.Error("detection should be on")
	}
	if rec := do(t, h, "GET", "/api/detection/start"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET start status = %d, want 405", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestServer(t, newMockPipeline()).Handler()
	rec := do(t, h, "GET", "/api/stats")
	var msg StatsMessage
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if !msg.Stats.Detecting || msg.Stats.Source != "files" {
		t.Errorf("stats = %+v", msg.Stats)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	pipe := newMockPipeline()
	pipe.records = []store.Record{{ID: "r1", Name: "MARIO", Matched: true}}
	h := newTestServer(t, pipe).Handler()

	rec := do(t, h, "GET", "/api/history")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"r1"`) {
		t.Errorf("history = %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, "GET", "/api/history/counts")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":3`) {
		t.Errorf("counts = %d %s", rec.Code, rec.Body)
	}

	pipe.histErr = orchestrator.ErrHistoryDisabled
	rec = do(t, h, "GET", "/api/history")
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled history status = %d, want 404", rec.Code)
	}
	var msg ErrorMessage
	if err := json.NewDecoder(rec.Body).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Code != "CONFIG_INVALID" {
		t.Errorf("error code = %q", msg.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{}
	for i := 0; i < RateLimitMessages; i++ {
		if !rl.allow() {
			t.Fatalf("message %d should be allowed", i)
		}
	}
	if rl.allow() {
		t.Error("message over the limit should be rejected")
	}

	// age every timestamp out of the window
	rl.mu.Lock()
	for i := range rl.timestamps {
		rl.timestamps[i] = rl.timestamps[i].Add(-2 * RateLimitWindow)
	}
	rl.mu.Unlock()
	if !rl.allow() {
		t.Error("message should be allowed after the window passes")
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestWebSocketHistoryAndBroadcast(t *testing.T) {
	pipe := newMockPipeline()
	s := newTestServer(t, pipe)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, conn, HistoryRequest{Type: "history", Limit: 5}); err != nil {
		t.Fatal(err)
	}
	var hist HistoryMessage
	if err := wsjson.Read(ctx, conn, &hist); err != nil {
		t.Fatal(err)
	}
	if hist.Type != "history" || len(hist.Captures) != 2 {
		t.Errorf("history reply = %+v", hist)
	}

	// the reply proves the connection is registered
	if s.Clients() != 1 {
		t.Fatalf("Clients() = %d, want 1", s.Clients())
	}
	pipe.events <- orchestrator.CaptureEvent{ID: "c3"}

	var msg CaptureMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "capture" || msg.Capture.ID != "c3" {
		t.Errorf("broadcast = %+v", msg)
	}
}

func TestWebSocketDetectionAndUnknown(t *testing.T) {
	pipe := newMockPipeline()
	ts := httptest.NewServer(newTestServer(t, pipe).Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, conn, DetectionRequest{Type: "detection", Enabled: false}); err != nil {
		t.Fatal(err)
	}
	var st StatsMessage
	if err := wsjson.Read(ctx, conn, &st); err != nil {
		t.Fatal(err)
	}
	if st.Stats.Detecting || pipe.Detecting() {
		t.Error("detection should be off")
	}

	if err := wsjson.Write(ctx, conn, Message{Type: "chat"}); err != nil {
		t.Fatal(err)
	}
	var e ErrorMessage
	if err := wsjson.Read(ctx, conn, &e); err != nil {
		t.Fatal(err)
	}
	if e.Type != "error" || !strings.Contains(e.Message, "chat") {
		t.Errorf("error reply = %+v", e)
	}
}
