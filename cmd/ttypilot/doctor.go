package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/appconfig"
	"pkt.systems/ttypilot/internal/tools"
	"pkt.systems/ttypilot/schema"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	var backend string
	var program string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run ttypilot diagnostics against the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := loadConfig(cfgPath, backend)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor start", "config", configPath, "backend", cfg.Backend.Kind)

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			if cfg.Backend.Kind == appconfig.BackendTmux {
				v, err := newTmuxBackend(cfg).Version(ctx)
				if err != nil {
					return fmt.Errorf("doctor tmux: %w", err)
				}
				logger.Info("doctor tmux ok", "version", v, "binary", cfg.Tmux.Binary)
			}

			sessionBackend, _, err := selectBackend(ctx, cfg, false)
			if err != nil {
				return err
			}
			ctrl := core.NewController(sessionBackend, logger)
			defer func() { _ = ctrl.Close(context.Background()) }()
			return runDoctorSession(ctx, logger, tools.NewDispatcher(ctrl, cfg.ServiceConfig(), nil), program)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&backend, "backend", "", "session backend (tmux, pty, memory)")
	cmd.Flags().StringVar(&program, "program", "sh", "program to start for the session check")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall diagnostics timeout")
	return cmd
}

type doctorCaller interface {
	Call(ctx context.Context, name string, args tools.Args) schema.ToolResult
}

// runDoctorSession drives one full session through the dispatcher.
func runDoctorSession(ctx context.Context, logger pslog.Logger, d doctorCaller, program string) error {
	steps := []struct {
		tool schema.ToolName
		args tools.Args
	}{
		{schema.ToolStart, tools.Args{"program": program}},
		{schema.ToolSendLine, tools.Args{"text": "echo ttypilot-doctor"}},
		{schema.ToolReadOutput, tools.Args{"mode": string(schema.ViewRows), "numbered": true}},
		{schema.ToolLocate, tools.Args{"character": "$", "limit": 1}},
		{schema.ToolEnd, tools.Args{}},
	}
	for _, step := range steps {
		result := d.Call(ctx, string(step.tool), step.args)
		if !result.OK() {
			return fmt.Errorf("doctor %s failed (%s): %s", step.tool, result.Kind(), result.Error())
		}
		logger.Info("doctor step ok", "tool", step.tool, "output_len", len(result.Output()))
		if step.tool == schema.ToolLocate {
			var located schema.LocateResult
			if err := json.Unmarshal([]byte(result.Output()), &located); err == nil {
				logger.Debug("doctor locate", "found", len(located.Coordinates)+located.Remaining)
			}
		}
	}
	logger.Info("doctor ok", "program", program)
	return nil
}
