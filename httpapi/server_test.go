package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/backend/memory"
	"pkt.systems/ttypilot/internal/tools"
	"pkt.systems/ttypilot/schema"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	hub := NewHub(cfg.History)
	ctrl := core.NewController(memory.New(memory.Config{Rows: 5, Cols: 20}), nil)
	dispatcher := tools.NewDispatcher(ctrl, schema.ServiceConfig{}, hub)
	return NewServer(cfg, dispatcher, ctrl, hub)
}

func post(t *testing.T, h http.Handler, path, body string) (int, schema.ToolResultPayload) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var payload schema.ToolResultPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode %s response %q: %v", path, rec.Body.String(), err)
	}
	return rec.Code, payload
}

func TestToolCalls(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	code, payload := post(t, h, "/api/tools/send_line", `{"text":"look"}`)
	if code != http.StatusConflict || payload.OK || payload.Kind != schema.KindBackend || payload.Error != "no active session" {
		t.Fatalf("expected no-session conflict, got %d %+v", code, payload)
	}

	code, payload = post(t, h, "/api/tools/start", `{"program":"shell"}`)
	if code != http.StatusOK || !payload.OK || payload.Output != "Started shell" {
		t.Fatalf("unexpected start response %d %+v", code, payload)
	}

	code, payload = post(t, h, "/api/tools/read_output", `{"mode":"diagonal"}`)
	if code != http.StatusBadRequest || payload.Kind != schema.KindValidation {
		t.Fatalf("expected validation failure, got %d %+v", code, payload)
	}

	code, payload = post(t, h, "/api/tools/read_output", ``)
	if code != http.StatusOK || !strings.Contains(payload.Output, "shell") {
		t.Fatalf("unexpected read response %d %+v", code, payload)
	}

	code, payload = post(t, h, "/api/tools/fly", `{}`)
	if code != http.StatusNotFound || payload.Kind != schema.KindDispatch {
		t.Fatalf("expected dispatch failure, got %d %+v", code, payload)
	}

	code, payload = post(t, h, "/api/tools/end", ``)
	if code != http.StatusOK || payload.Output != "Session ended" {
		t.Fatalf("unexpected end response %d %+v", code, payload)
	}
}

func TestToolCallRejectsMalformedBody(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()
	code, payload := post(t, h, "/api/tools/start", `{"program":`)
	if code != http.StatusBadRequest || payload.Kind != schema.KindValidation {
		t.Fatalf("expected validation failure, got %d %+v", code, payload)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var bundle tools.Bundle
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if len(bundle.Tools) != len(tools.Catalog()) || bundle.Tools[0].Function.Name != "start" {
		t.Fatalf("unexpected bundle %+v", bundle)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tools", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools/locate", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"input_schema"`) {
		t.Fatalf("unexpected tool definition %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools/fly", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tool, got %d", rec.Code)
	}
}

func TestHealthzReportsSession(t *testing.T) {
	h := newTestServer(t, Config{BasePath: "/tp/"}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tp", nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect to base path, got %d", rec.Code)
	}

	if code, _ := post(t, h, "/tp/api/tools/start", `{"program":"shell"}`); code != http.StatusOK {
		t.Fatalf("start failed with %d", code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tp/healthz", nil))
	var health struct {
		OK      bool   `json:"ok"`
		Session string `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !health.OK || !strings.HasPrefix(health.Session, "mem-") {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		result schema.ToolResult
		want   int
	}{
		{schema.Success("ok"), http.StatusOK},
		{schema.Failure(schema.Validationf("bad")), http.StatusBadRequest},
		{schema.Failure(&schema.ToolError{Kind: schema.KindDispatch, Err: schema.ErrUnknownTool}), http.StatusNotFound},
		{schema.Failure(schema.Backend(schema.ErrNoSession)), http.StatusConflict},
	}
	for _, tc := range cases {
		if got := statusFor(tc.result); got != tc.want {
			t.Fatalf("statusFor(%+v) = %d, want %d", tc.result.Payload(), got, tc.want)
		}
	}
}

func TestEventStreamReplaysAndFollows(t *testing.T) {
	srv := newTestServer(t, Config{History: 10})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for i := 0; i < 3; i++ {
		srv.Hub().OnToolEvent(schema.ToolEvent{Tool: schema.ToolReadOutput, OK: false, Kind: schema.KindBackend})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() StreamEvent {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var event StreamEvent
				if err := json.Unmarshal([]byte(data), &event); err != nil {
					t.Fatalf("decode event %q: %v", data, err)
				}
				return event
			}
		}
	}

	if first := next(); first.Type != "snapshot" || first.Snapshot == nil || first.Snapshot.LastSeq != 3 {
		t.Fatalf("expected snapshot first, got %+v", first)
	}
	for _, want := range []uint64{2, 3} {
		if event := next(); event.Seq != want || event.Type != "tool" {
			t.Fatalf("expected replayed seq %d, got %+v", want, event)
		}
	}

	go srv.caller.CallJSON(context.Background(), "start", []byte(`{"program":"shell"}`))
	live := next()
	if live.Seq != 4 || live.Tool == nil || live.Tool.Tool != schema.ToolStart || !live.Tool.OK {
		t.Fatalf("unexpected live event %+v", live)
	}
}
