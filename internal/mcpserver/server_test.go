package mcpserver

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/backend/memory"
	"pkt.systems/ttypilot/internal/tools"
	"pkt.systems/ttypilot/schema"
)

func TestToCallToolResult(t *testing.T) {
	ok := toCallToolResult(schema.Success("Started nethack"))
	if ok.IsError || ok.Content[0].(*mcp.TextContent).Text != "Started nethack" {
		t.Fatalf("unexpected success result %+v", ok)
	}
	failed := toCallToolResult(schema.Failure(schema.Backend(schema.ErrNoSession)))
	if !failed.IsError {
		t.Fatalf("expected IsError")
	}
	if text := failed.Content[0].(*mcp.TextContent).Text; text != "Error: no active session" {
		t.Fatalf("unexpected failure text %q", text)
	}
}

func TestServerOverInMemoryTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := core.NewController(memory.New(memory.Config{}), nil)
	srv := New(tools.NewDispatcher(ctrl, schema.ServiceConfig{}, nil))

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if want := len(tools.Catalog()) + len(tools.LegacySpecs()); len(listed.Tools) != want {
		t.Fatalf("expected %d tools, got %d", want, len(listed.Tools))
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "send_line", Arguments: map[string]any{"text": "look"}})
	if err != nil {
		t.Fatalf("call send_line: %v", err)
	}
	if !res.IsError || res.Content[0].(*mcp.TextContent).Text != "Error: no active session" {
		t.Fatalf("expected no-session failure, got %+v", res)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "start", Arguments: map[string]any{"program": "shell"}})
	if err != nil {
		t.Fatalf("call start: %v", err)
	}
	if res.IsError || res.Content[0].(*mcp.TextContent).Text != "Started shell" {
		t.Fatalf("unexpected start result %+v", res)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "read_output", Arguments: map[string]any{"mode": "both"}})
	if err != nil {
		t.Fatalf("call read_output: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected read failure %+v", res)
	}
}

func TestLegacyToolNamesOverMCP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := core.NewController(memory.New(memory.Config{}), nil)
	srv := New(tools.NewDispatcher(ctrl, schema.ServiceConfig{}, nil))

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "legacy-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	steps := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "send_command", args: map[string]any{"command": "look"}, want: "Error: no active session"},
		{name: "start_game", args: map[string]any{"game_name": "shell"}, want: "Started shell"},
		{name: "send_command", args: map[string]any{"command": "look"}, want: "Line sent: look"},
		{name: "send_key", args: map[string]any{"key": "a"}, want: "Key sent: a"},
		{name: "end_game", args: map[string]any{}, want: "Session ended"},
	}
	for i, step := range steps {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: step.name, Arguments: step.args})
		if err != nil {
			t.Fatalf("step %d %s: %v", i, step.name, err)
		}
		if text := res.Content[0].(*mcp.TextContent).Text; text != step.want {
			t.Fatalf("step %d %s: expected %q, got %q", i, step.name, step.want, text)
		}
		if res.IsError != (i == 0) {
			t.Fatalf("step %d %s: unexpected IsError=%v", i, step.name, res.IsError)
		}
	}
	if ctrl.SessionID() != "" {
		t.Fatalf("expected end_game to clear the session")
	}
}
