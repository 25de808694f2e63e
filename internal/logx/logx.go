package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/schema"
)

type contextKey int

const (
	toolKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithTool annotates the logger with the tool name if present.
func WithTool(ctx context.Context, tool schema.ToolName) pslog.Logger {
	log := pslog.Ctx(ctx)
	if tool != "" {
		if current, ok := ctx.Value(toolKey).(schema.ToolName); ok && current == tool {
			return log
		}
		log = log.With("tool", tool)
	}
	return log
}

// WithSession annotates the logger with a session id when available.
func WithSession(log pslog.Logger, sessionID string) pslog.Logger {
	if sessionID != "" {
		log = log.With("session", sessionID)
	}
	return log
}

// ContextWithTool stores the tool marker on the context for log de-duplication.
func ContextWithTool(ctx context.Context, tool schema.ToolName) context.Context {
	if ctx == nil || tool == "" {
		return ctx
	}
	return context.WithValue(ctx, toolKey, tool)
}

// ContextWithToolLogger attaches the logger and tool marker to the context.
func ContextWithToolLogger(ctx context.Context, log pslog.Logger, tool schema.ToolName) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTool(ctx, tool)
}
