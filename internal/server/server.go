// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/autovod/internal/config"
	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/orchestrator"
	"github.com/GriffinCanCode/autovod/internal/store"
	"github.com/GriffinCanCode/autovod/internal/trace"
)

// Pipeline is the part of the orchestrator the server exposes.
type Pipeline interface {
	CaptureEvents() <-chan orchestrator.CaptureEvent
	Recent(n int) []orchestrator.CaptureEvent
	Latest() (orchestrator.CaptureEvent, bool)
	Stats() orchestrator.Stats
	SetDetection(enabled bool)
	Detecting() bool
	History(ctx context.Context, limit int) ([]store.Record, error)
	Counts(ctx context.Context) ([]store.NameCount, error)
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type HistoryRequest struct {
	Type  string `json:"type"`
	Limit int    `json:"limit"`
}

type DetectionRequest struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type CaptureMessage struct {
	Type    string                    `json:"type"`
	Capture orchestrator.CaptureEvent `json:"capture"`
}

type HistoryMessage struct {
	Type     string                      `json:"type"`
	Captures []orchestrator.CaptureEvent `json:"captures"`
}

type StatsMessage struct {
	Type  string             `json:"type"`
	Stats orchestrator.Stats `json:"stats"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	pipe    Pipeline
	origins []string
	mu      sync.RWMutex
	conns   map[*websocket.Conn]*rateLimiter
	done    chan struct{}
	once    sync.Once
}

// New creates a server and starts the capture broadcaster.
func New(pipe Pipeline, cfg *config.Config) *Server {
	s := &Server{
		pipe:    pipe,
		origins: cfg.CORSOrigins,
		conns:   make(map[*websocket.Conn]*rateLimiter),
		done:    make(chan struct{}),
	}
	go s.broadcastCaptures()
	return s
}

// Close stops the broadcaster.
func (s *Server) Close() {
	s.once.Do(func() { close(s.done) })
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/captures", s.handleCaptures)
	mux.HandleFunc("GET /api/captures/latest", s.handleLatest)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/counts", s.handleCounts)
	mux.HandleFunc("POST /api/detection/start", s.handleDetectionStart)
	mux.HandleFunc("POST /api/detection/stop", s.handleDetectionStop)

	// Apply middleware: trace -> CORS
	return corsMiddleware(s.origins, trace.Middleware(mux))
}

func corsMiddleware(origins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := allowedOrigin(origins, r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func allowedOrigin(origins []string, origin string) string {
	if slices.Contains(origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(origins, origin) {
		return origin
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorMessage{Type: "error", Code: string(apperrors.CodeOf(err)), Message: err.Error()})
}

// limitParam parses ?limit=, clamped to MaxListLimit.
func limitParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return DefaultListLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, apperrors.Newf(apperrors.CodeConfigInvalid, "invalid limit %q", v)
	}
	return min(n, MaxListLimit), nil
}

func (s *Server) handleCaptures(w http.ResponseWriter, r *http.Request) {
	n, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryMessage{Type: "captures", Captures: s.pipe.Recent(n)})
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	c, ok := s.pipe.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorMessage{Type: "error", Message: "no capture yet"})
		return
	}
	writeJSON(w, http.StatusOK, CaptureMessage{Type: "capture", Capture: c})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatsMessage{Type: "stats", Stats: s.pipe.Stats()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	recs, err := s.pipe.History(r.Context(), n)
	if err != nil {
		writeError(w, historyStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.pipe.Counts(r.Context())
	if err != nil {
		writeError(w, historyStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

func historyStatus(err error) int {
	if errors.Is(err, orchestrator.ErrHistoryDisabled) {
		return http.StatusNotFound
	}
	trace.Logger(context.Background()).Error("history query failed", "error", err)
	return http.StatusInternalServerError
}

func (s *Server) handleDetectionStart(w http.ResponseWriter, _ *http.Request) {
	s.pipe.SetDetection(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "detection_started"})
}

func (s *Server) handleDetectionStop(w http.ResponseWriter, _ *http.Request) {
	s.pipe.SetDetection(false)
	writeJSON(w, http.StatusOK, map[string]string{"status": "detection_stopped"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.conns[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			s.write(ctx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			s.write(ctx, conn, ErrorMessage{Type: "error", Message: "invalid message"})
			continue
		}

		switch base.Type {
		case "history":
			var req HistoryRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			n := req.Limit
			if n <= 0 {
				n = DefaultListLimit
			}
			s.write(ctx, conn, HistoryMessage{Type: "history", Captures: s.pipe.Recent(min(n, MaxListLimit))})
		case "stats":
			s.write(ctx, conn, StatsMessage{Type: "stats", Stats: s.pipe.Stats()})
		case "detection":
			var req DetectionRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			s.pipe.SetDetection(req.Enabled)
			s.write(ctx, conn, StatsMessage{Type: "stats", Stats: s.pipe.Stats()})
		default:
			s.write(ctx, conn, ErrorMessage{Type: "error", Message: "unknown message type " + strconv.Quote(base.Type)})
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, v any) {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		slog.Debug("websocket write failed", "error", err)
	}
}

func (s *Server) broadcastCaptures() {
	events := s.pipe.CaptureEvents()
	for {
		select {
		case <-s.done:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			msg := CaptureMessage{Type: "capture", Capture: evt}

			s.mu.RLock()
			for conn := range s.conns {
				go s.write(context.Background(), conn, msg)
			}
			s.mu.RUnlock()
		}
	}
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
