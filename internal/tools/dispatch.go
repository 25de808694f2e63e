package tools

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/keys"
	"pkt.systems/ttypilot/internal/logx"
	"pkt.systems/ttypilot/schema"
)

// SessionController is the session slot the dispatcher drives.
type SessionController interface {
	Start(ctx context.Context, program string, args []string) (string, error)
	SendLine(ctx context.Context, text string) (string, error)
	SendKeys(ctx context.Context, keys []string) (string, error)
	ReadScreen(ctx context.Context, colorized bool) (string, error)
	End(ctx context.Context) (string, error)
	SessionID() string
}

// EventSink receives one event per completed tool call.
type EventSink interface {
	OnToolEvent(event schema.ToolEvent)
}

// Dispatcher validates tool calls, forwards them to the session controller
// and applies view transforms. Every call yields a ToolResult.
type Dispatcher struct {
	ctrl SessionController
	cfg  schema.ServiceConfig
	sink EventSink
	now  func() time.Time
	seq  atomic.Uint64
}

// NewDispatcher constructs a dispatcher. sink may be nil.
func NewDispatcher(ctrl SessionController, cfg schema.ServiceConfig, sink EventSink) *Dispatcher {
	cfg, _ = schema.NormalizeServiceConfig(cfg)
	return &Dispatcher{ctrl: ctrl, cfg: cfg, sink: sink, now: time.Now}
}

// alias maps a legacy tool name onto a catalog tool.
type alias struct {
	tool   schema.ToolName
	rename map[string]string
}

var aliases = map[string]alias{
	"start_game":   {tool: schema.ToolStart, rename: map[string]string{"game_name": "program"}},
	"end_game":     {tool: schema.ToolEnd},
	"send_command": {tool: schema.ToolSendLine, rename: map[string]string{"command": "text"}},
	"send_line":    {tool: schema.ToolSendLine, rename: map[string]string{"command": "text"}},
	"send_key":     {tool: schema.ToolSendKeys, rename: map[string]string{"key": "keys"}},
}

// resolve maps name and args onto a catalog tool. Legacy argument names are
// renamed unless the current name is also present, and renamed list
// arguments given as a single string are wrapped into a one-element list.
func resolve(name string, args Args) (schema.ToolName, Args) {
	a, ok := aliases[name]
	if !ok {
		return schema.ToolName(name), args
	}
	if len(a.rename) == 0 {
		return a.tool, args
	}
	spec, _ := Lookup(string(a.tool))
	out := make(Args, len(args))
	for k, v := range args {
		if target, ok := a.rename[k]; ok && !hasKey(args, target) {
			if p, ok := spec.Param(target); ok && p.Type == TypeStrings {
				if s, ok := v.(string); ok {
					v = []any{s}
				}
			}
			k = target
		}
		out[k] = v
	}
	return a.tool, out
}

func hasKey(args Args, name string) bool {
	_, ok := args[name]
	return ok
}

// Call runs the named tool with a decoded argument bag.
func (d *Dispatcher) Call(ctx context.Context, name string, args Args) schema.ToolResult {
	return d.invoke(ctx, name, args, nil)
}

// CallJSON runs the named tool with a JSON object argument bag.
func (d *Dispatcher) CallJSON(ctx context.Context, name string, raw []byte) schema.ToolResult {
	args, err := DecodeArgs(raw)
	return d.invoke(ctx, name, args, err)
}

func (d *Dispatcher) invoke(ctx context.Context, name string, args Args, decodeErr error) schema.ToolResult {
	if ctx == nil {
		ctx = context.Background()
	}
	started := d.now()
	tool, args := resolve(strings.TrimSpace(name), args)
	log := logx.WithTool(ctx, tool).With("args", len(args))
	if string(tool) != name {
		log = log.With("alias", name)
	}
	ctx = logx.ContextWithToolLogger(ctx, log, tool)
	if d.cfg.LogArguments && len(args) > 0 {
		log.Debug("tool arguments", "arguments", args)
	}
	sessionID := d.sessionID()

	var result schema.ToolResult
	if decodeErr != nil {
		result = schema.Failure(decodeErr)
	} else {
		out, err := d.dispatch(ctx, tool, args)
		if err != nil {
			result = schema.Failure(err)
		} else {
			result = schema.Success(out)
		}
	}

	if sessionID == "" {
		sessionID = d.sessionID()
	}
	elapsed := d.now().Sub(started)
	log = logx.WithSession(log, sessionID)
	if result.OK() {
		log.Info("tool call", "ok", true, "duration_ms", elapsed.Milliseconds())
	} else {
		log.Warn("tool call", "ok", false, "kind", result.Kind(), "err", result.Error(), "duration_ms", elapsed.Milliseconds())
	}
	d.emit(schema.ToolEvent{
		Tool:     tool,
		OK:       result.OK(),
		Kind:     result.Kind(),
		Error:    result.Error(),
		Session:  sessionID,
		Duration: elapsed,
		Time:     started,
	})
	return result
}

func (d *Dispatcher) sessionID() string {
	if d.ctrl == nil {
		return ""
	}
	return d.ctrl.SessionID()
}

func (d *Dispatcher) emit(event schema.ToolEvent) {
	if d.sink == nil {
		return
	}
	event.Seq = d.seq.Add(1)
	d.sink.OnToolEvent(event)
}

func (d *Dispatcher) dispatch(ctx context.Context, tool schema.ToolName, args Args) (string, error) {
	spec, ok := Lookup(string(tool))
	if !ok {
		return "", &schema.ToolError{Kind: schema.KindDispatch, Err: fmt.Errorf("%w: %s", schema.ErrUnknownTool, tool)}
	}
	if err := args.rejectUnknown(spec); err != nil {
		return "", err
	}
	if d.ctrl == nil {
		return "", schema.Backend(schema.ErrBackendUnavailable)
	}
	switch tool {
	case schema.ToolStart:
		return d.handleStart(ctx, args)
	case schema.ToolSendLine:
		return d.handleSendLine(ctx, args)
	case schema.ToolSendKeys:
		return d.handleSendKeys(ctx, args)
	case schema.ToolReadOutput:
		return d.handleReadOutput(ctx, args)
	case schema.ToolEnd:
		return d.ctrl.End(ctx)
	case schema.ToolLocate:
		return d.handleLocate(ctx, args)
	default:
		return "", &schema.ToolError{Kind: schema.KindDispatch, Err: fmt.Errorf("%w: %s", schema.ErrUnknownTool, tool)}
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, args Args) (string, error) {
	program, err := args.str("program", true)
	if err != nil {
		return "", err
	}
	program = strings.TrimSpace(program)
	if program == "" {
		return "", schema.Validationf("program must not be empty")
	}
	argv, err := args.list("args", false)
	if err != nil {
		return "", err
	}
	return d.ctrl.Start(ctx, program, argv)
}

func (d *Dispatcher) handleSendLine(ctx context.Context, args Args) (string, error) {
	text, err := args.str("text", true)
	if err != nil {
		return "", err
	}
	return d.ctrl.SendLine(ctx, text)
}

func (d *Dispatcher) handleSendKeys(ctx context.Context, args Args) (string, error) {
	list, err := args.list("keys", true)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", schema.Validationf("keys must not be empty")
	}
	if err := keys.Validate(list); err != nil {
		return "", schema.Validation(err)
	}
	return d.ctrl.SendKeys(ctx, list)
}

func (d *Dispatcher) handleReadOutput(ctx context.Context, args Args) (string, error) {
	req, err := viewRequest(args)
	if err != nil {
		return "", err
	}
	screen, err := d.ctrl.ReadScreen(ctx, req.Colorized)
	if err != nil {
		return "", err
	}
	return core.Render(screen, req)
}

func (d *Dispatcher) handleLocate(ctx context.Context, args Args) (string, error) {
	character, err := args.str("character", true)
	if err != nil {
		return "", err
	}
	limit, set, err := args.integer("limit")
	if err != nil {
		return "", err
	}
	if !set {
		limit = d.cfg.DefaultLocateLimit
	} else if limit < 1 {
		return "", schema.Validation(fmt.Errorf("%w, got %d", schema.ErrInvalidLimit, limit))
	}
	req, err := schema.NormalizeLocateRequest(schema.LocateRequest{Character: character, Limit: limit})
	if err != nil {
		return "", err
	}
	screen, err := d.ctrl.ReadScreen(ctx, false)
	if err != nil {
		return "", err
	}
	return core.LocateJSON(screen, req)
}

var boxArgs = [4]string{"top_left_row", "top_left_col", "bottom_right_row", "bottom_right_col"}

// viewRequest builds and validates a ViewRequest before any backend call.
func viewRequest(args Args) (schema.ViewRequest, error) {
	var req schema.ViewRequest
	var err error
	if req.Colorized, err = args.flag("colorized"); err != nil {
		return req, err
	}
	if req.Numbered, err = args.flag("numbered"); err != nil {
		return req, err
	}
	mode, err := args.str("mode", false)
	if err != nil {
		return req, err
	}
	req.Mode = schema.ViewMode(mode)

	var corners [4]int
	present := 0
	for i, name := range boxArgs {
		v, ok, err := args.integer(name)
		if err != nil {
			return req, err
		}
		if ok {
			corners[i] = v
			present++
		}
	}
	switch present {
	case 0:
	case len(boxArgs):
		req.Box = &schema.BoundingBox{
			TopLeft:     schema.Coordinate{Row: corners[0], Col: corners[1]},
			BottomRight: schema.Coordinate{Row: corners[2], Col: corners[3]},
		}
	default:
		return req, schema.Validation(fmt.Errorf("%w: a bounding box needs all of %s", schema.ErrInvalidBox, strings.Join(boxArgs[:], ", ")))
	}
	return schema.NormalizeViewRequest(req)
}
