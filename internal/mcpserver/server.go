// Package mcpserver exposes the tool catalog over the Model Context Protocol.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/internal/tools"
	"pkt.systems/ttypilot/internal/version"
	"pkt.systems/ttypilot/schema"
)

// Caller runs a tool with a raw JSON argument object.
type Caller interface {
	CallJSON(ctx context.Context, name string, raw []byte) schema.ToolResult
}

// Server is the MCP server for the terminal tools.
type Server struct {
	mcpServer *mcp.Server
	caller    Caller
}

// New creates an MCP server that forwards every catalog and legacy tool to
// caller.
func New(caller Caller) *Server {
	s := &Server{
		caller: caller,
		mcpServer: mcp.NewServer(
			&mcp.Implementation{
				Name:    version.Name,
				Version: version.Current(),
			},
			nil,
		),
	}
	s.registerTools()
	return s
}

// servedSpecs lists the catalog followed by the deprecated names older
// clients still call.
func servedSpecs() []tools.Spec {
	return append(tools.Catalog(), tools.LegacySpecs()...)
}

func (s *Server) registerTools() {
	for _, spec := range servedSpecs() {
		s.mcpServer.AddTool(&mcp.Tool{
			Name:        string(spec.Name),
			Description: spec.Description,
			InputSchema: spec.InputSchema(),
		}, s.handler(string(spec.Name)))
	}
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw []byte
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		return toCallToolResult(s.caller.CallJSON(ctx, name, raw)), nil
	}
}

// toCallToolResult renders failures as "Error: <message>" text with IsError set.
func toCallToolResult(result schema.ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Text()}},
		IsError: !result.OK(),
	}
}

// Run serves MCP on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	pslog.Ctx(ctx).Info("mcp server listening", "transport", "stdio", "tools", len(servedSpecs()))
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP on transport.
func (s *Server) RunTransport(ctx context.Context, transport mcp.Transport) error {
	pslog.Ctx(ctx).Info("mcp server listening", "tools", len(servedSpecs()))
	return s.mcpServer.Run(ctx, transport)
}

// Connect attaches a single session on transport without blocking.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, transport, nil)
}
