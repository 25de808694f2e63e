package httpapi

import (
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/internal/logx"
	"pkt.systems/ttypilot/schema"
)

// responseRecorder captures the status and size of a response. Flush is
// forwarded so the event stream keeps working through it.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// sessionLookupFunc reports the terminal session active after a request.
type sessionLookupFunc func() string

// toolFromPath returns the tool addressed by /api/tools/{name}, or "".
func toolFromPath(path string) schema.ToolName {
	name, ok := strings.CutPrefix(path, "/api/tools/")
	if !ok {
		return ""
	}
	name = strings.Trim(name, "/")
	if name == "" || strings.Contains(name, "/") {
		return ""
	}
	return schema.ToolName(name)
}

// withRequestLogging logs one line per request. Tool calls carry the tool
// name on the request context so dispatcher logs share it, and every line
// carries the session that is active once the request is done.
func withRequestLogging(next http.Handler, lookup sessionLookupFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := pslog.Ctx(r.Context()).With("remote", clientIP(r))
		tool := toolFromPath(r.URL.Path)
		if tool != "" {
			log = log.With("tool", tool)
			r = r.WithContext(logx.ContextWithToolLogger(r.Context(), log, tool))
		}

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		if lookup != nil {
			log = logx.WithSession(log, lookup())
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case rec.status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case r.URL.Path == "/healthz":
			log.Debug("http request", fields...)
		case rec.status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	})
}

// clientIP prefers the first X-Forwarded-For hop over the peer address.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}
