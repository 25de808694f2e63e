// Package httpapi serves the tool catalog over HTTP JSON with an SSE
// activity stream.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/ttypilot/internal/logx"
	"pkt.systems/ttypilot/internal/tools"
	"pkt.systems/ttypilot/internal/version"
	"pkt.systems/ttypilot/schema"
)

const maxBodyBytes = 1 << 20

// ToolCaller runs a tool with a raw JSON argument object.
type ToolCaller interface {
	CallJSON(ctx context.Context, name string, raw []byte) schema.ToolResult
}

// SessionSource reports the id of the active terminal session, or "".
type SessionSource interface {
	SessionID() string
}

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	caller   ToolCaller
	sessions SessionSource
	hub      *Hub
	basePath string
	now      func() time.Time
}

// NewServer constructs an HTTP server. sessions and hub may be nil.
func NewServer(cfg Config, caller ToolCaller, sessions SessionSource, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub(cfg.History)
	}
	return &Server{
		cfg:      cfg,
		caller:   caller,
		sessions: sessions,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
		now:      time.Now,
	}
}

// Hub returns the event hub fed by the dispatcher.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/tools", s.handleCatalog)
	mux.HandleFunc("/api/tools/", s.handleTool)
	mux.HandleFunc("/api/events", s.handleStream)

	handler := withRequestLogging(mux, s.sessionID)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) sessionID() string {
	if s.sessions == nil {
		return ""
	}
	return s.sessions.SessionID()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": version.Current(),
		"session": s.sessionID(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	bundle, err := tools.NewBundle(tools.Catalog(), s.now())
	if err != nil {
		logx.Ctx(r.Context()).Error("http catalog export failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// handleTool serves GET (the tool's definition) and POST (a call) on
// /api/tools/{name}.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tools/"), "/")
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		spec, ok := tools.Lookup(name)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", schema.ErrUnknownTool, name))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":         spec.Name,
			"description":  spec.Description,
			"input_schema": spec.InputSchema(),
		})
	case http.MethodPost:
		s.callTool(w, r, name)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request, name string) {
	log := logx.WithTool(r.Context(), schema.ToolName(name))
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		log.Warn("http tool body read failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		return
	}
	result := s.caller.CallJSON(r.Context(), name, body)
	writeJSON(w, statusFor(result), result.Payload())
}

// statusFor maps a result onto an HTTP status. The JSON body always carries
// the full result.
func statusFor(result schema.ToolResult) int {
	if result.OK() {
		return http.StatusOK
	}
	switch result.Kind() {
	case schema.KindValidation:
		return http.StatusBadRequest
	case schema.KindDispatch:
		return http.StatusNotFound
	default:
		return http.StatusConflict
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.WithSession(logx.Ctx(r.Context()), s.sessionID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	// Subscribe before replaying so nothing published in between is lost.
	ch, unsubscribe, seq, _ := s.hub.Subscribe()
	defer unsubscribe()

	_ = writeSSEvent(w, StreamEvent{
		Type: "snapshot",
		Snapshot: &SnapshotPayload{
			Session: s.sessionID(),
			Tools:   len(tools.Catalog()),
			LastSeq: seq,
		},
		Timestamp: s.now(),
	})
	flusher.Flush()

	replayCount := 0
	sent := seq
	if lastID > 0 && lastID < seq {
		replay := s.hub.Replay(lastID)
		for _, event := range replay {
			if event.Seq > seq {
				break
			}
			_ = writeSSEvent(w, event)
			replayCount++
		}
		flusher.Flush()
	}

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount)
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Seq <= sent {
				continue
			}
			sent = event.Seq
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
