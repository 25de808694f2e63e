package ttypilot

import (
	"context"
	"errors"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/httpapi"
	"pkt.systems/ttypilot/internal/mcpserver"
	"pkt.systems/ttypilot/internal/tools"
	"pkt.systems/ttypilot/schema"
)

// Server composes the MCP and HTTP transports around one tool dispatcher.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service schema.ServiceConfig
	HTTP    httpapi.Config
	// KeepSession leaves the active session running on Stop so a later
	// process can adopt it.
	KeepSession bool
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	Backend core.Backend
	// Session is an already running session to adopt, for example a tmux
	// session that survived a restart.
	Session core.Session
	// EventSink receives tool events in addition to the HTTP hub.
	EventSink tools.EventSink
	// MCPTransport overrides stdio for the MCP server.
	MCPTransport mcp.Transport
	Logger       pslog.Logger
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableMCP  bool
	enableHTTP bool
}

// WithMCP enables the MCP server.
func WithMCP() ServerOption {
	return func(o *serverOptions) { o.enableMCP = true }
}

// WithHTTP enables the HTTP API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// New constructs a composable ttypilot server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableMCP && !options.enableHTTP {
		return nil, errors.New("no services enabled")
	}
	if deps.Backend == nil {
		return nil, errors.New("backend dependency is required")
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	ctrl := core.NewController(deps.Backend, deps.Logger)
	if deps.Session != nil {
		if err := ctrl.Adopt(deps.Session); err != nil {
			return nil, err
		}
	}

	var hub *httpapi.Hub
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HTTP.History)
	}
	sinks := make([]tools.EventSink, 0, 2)
	if deps.EventSink != nil {
		sinks = append(sinks, deps.EventSink)
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	var sink tools.EventSink
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = eventFanout{sinks: sinks}
	}

	dispatcher := tools.NewDispatcher(ctrl, cfg.Service, sink)
	srv := &compositeServer{
		cfg:          cfg,
		options:      options,
		ctrl:         ctrl,
		dispatcher:   dispatcher,
		mcpTransport: deps.MCPTransport,
	}
	if options.enableMCP {
		srv.mcpSrv = mcpserver.New(dispatcher)
	}
	if options.enableHTTP {
		srv.httpSrv = httpapi.NewServer(cfg.HTTP, dispatcher, ctrl, hub)
	}
	return srv, nil
}

type compositeServer struct {
	cfg          ServerConfig
	options      serverOptions
	ctrl         *core.Controller
	dispatcher   *tools.Dispatcher
	mcpSrv       *mcpserver.Server
	mcpTransport mcp.Transport
	httpSrv      *httpapi.Server
	logger       pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"mcp", s.options.enableMCP,
		"http", s.options.enableHTTP,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"session", s.ctrl.SessionID(),
	)
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableMCP && s.mcpSrv != nil {
		go func() {
			var err error
			if s.mcpTransport != nil {
				err = s.mcpSrv.RunTransport(s.ctx, s.mcpTransport)
			} else {
				err = s.mcpSrv.Run(s.ctx)
			}
			if err != nil && s.ctx.Err() == nil {
				log.Error("mcp server failed", "err", err)
				s.errCh <- err
				return
			}
			// The client closing stdio ends the process.
			log.Info("mcp client disconnected")
			s.errCh <- nil
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
		}
		_ = s.Stop(context.Background())
		return err
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if s.cfg.KeepSession {
		if id := s.ctrl.SessionID(); id != "" {
			log.Info("server leaving session running", "session", id)
		}
	} else if err := s.ctrl.Close(context.Background()); err != nil {
		log.Warn("server session close failed", "err", err)
	} else {
		log.Info("server session close ok")
	}
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
