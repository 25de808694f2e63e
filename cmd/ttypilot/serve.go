package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot"
	"pkt.systems/ttypilot/httpapi"
	"pkt.systems/ttypilot/internal/appconfig"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var backend string
	var enableMCP bool
	var enableHTTP bool
	var httpAddr string
	var logArguments bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the terminal tools over MCP stdio and/or HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := loadConfig(cfgPath, backend)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("mcp") {
				cfg.MCP.Enabled = enableMCP
			}
			if flags.Changed("http") {
				cfg.HTTP.Enabled = enableHTTP
			}
			if flags.Changed("http-addr") {
				cfg.HTTP.Addr = httpAddr
				cfg.HTTP.Enabled = true
			}
			if flags.Changed("log-arguments") {
				cfg.Logging.LogArguments = logArguments
			}
			if err := appconfig.Validate(cfg); err != nil {
				return err
			}
			opts := serveOptions(cfg)
			if len(opts) == 0 {
				return errors.New("nothing to serve; enable mcp or http")
			}

			sessionBackend, adopted, err := selectBackend(cmd.Context(), cfg, cfg.Tmux.AdoptSession)
			if err != nil {
				return err
			}
			logger.Info("backend selected", "kind", cfg.Backend.Kind, "adopted", adopted != nil)

			server, err := ttypilot.New(ttypilot.ServerConfig{
				Service: cfg.ServiceConfig(),
				HTTP: httpapi.Config{
					Addr:     cfg.HTTP.Addr,
					BasePath: cfg.HTTP.BasePath,
					History:  cfg.HTTP.History,
				},
				KeepSession: cfg.Backend.Kind == appconfig.BackendTmux && cfg.Tmux.AdoptSession,
			}, ttypilot.ServerDeps{
				Backend: sessionBackend,
				Session: adopted,
				Logger:  logger,
			}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&backend, "backend", "", "session backend (tmux, pty, memory)")
	cmd.Flags().BoolVar(&enableMCP, "mcp", false, "serve MCP on stdio")
	cmd.Flags().BoolVar(&enableHTTP, "http", false, "serve the HTTP API")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (implies --http)")
	cmd.Flags().BoolVar(&logArguments, "log-arguments", false, "log tool argument values at debug level")
	return cmd
}

func serveOptions(cfg appconfig.Config) []ttypilot.ServerOption {
	var opts []ttypilot.ServerOption
	if cfg.MCP.Enabled {
		opts = append(opts, ttypilot.WithMCP())
	}
	if cfg.HTTP.Enabled {
		opts = append(opts, ttypilot.WithHTTP())
	}
	return opts
}
