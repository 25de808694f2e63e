package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithSessionAddsField(t *testing.T) {
	capture := &logCapture{}
	log := WithSession(newCaptureLogger(capture), "ttypilot-1a2b")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["session"] != "ttypilot-1a2b" {
		t.Fatalf("expected session field, got %+v", entry)
	}
}

func TestWithSessionSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	log := WithSession(newCaptureLogger(capture), "")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["session"]; ok {
		t.Fatalf("did not expect session field, got %+v", entry)
	}
}

func TestWithToolAddsField(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	log := WithTool(ctx, "read_output")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["tool"] != "read_output" {
		t.Fatalf("expected tool field, got %+v", entry)
	}
}

func TestWithToolDeduplicatesContextMarker(t *testing.T) {
	capture := &logCapture{}
	base := newCaptureLogger(capture)
	ctx := ContextWithToolLogger(context.Background(), base.With("tool", "locate"), "locate")
	log := WithTool(ctx, "locate")
	log.Info("hello")

	line := capture.buf.String()
	if strings.Count(line, `"tool"`) != 1 {
		t.Fatalf("expected a single tool field, got %s", line)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
