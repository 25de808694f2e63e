package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/appconfig"
	"pkt.systems/ttypilot/internal/tools"
	"pkt.systems/ttypilot/schema"
)

var errToolFailed = errors.New("tool call failed")

func newCallCmd() *cobra.Command {
	var cfgPath string
	var backend string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "call <tool> [json-args|-]",
		Short: "Run a single tool call and print its result",
		Long: "Run a single tool call. With the tmux backend the session outlives the\n" +
			"process, so consecutive calls drive the same program.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := loadConfig(cfgPath, backend)
			if err != nil {
				return err
			}
			raw, err := callArguments(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			isTmux := cfg.Backend.Kind == appconfig.BackendTmux
			sessionBackend, adopted, err := selectBackend(cmd.Context(), cfg, isTmux)
			if err != nil {
				return err
			}
			if !isTmux {
				logger.Warn("session does not outlive this call", "backend", cfg.Backend.Kind)
			}
			ctrl := core.NewController(sessionBackend, logger)
			if adopted != nil {
				if err := ctrl.Adopt(adopted); err != nil {
					return err
				}
			}
			if !isTmux {
				defer func() { _ = ctrl.Close(cmd.Context()) }()
			}

			dispatcher := tools.NewDispatcher(ctrl, cfg.ServiceConfig(), nil)
			result := dispatcher.CallJSON(cmd.Context(), args[0], raw)
			if err := printResult(cmd.OutOrStdout(), result, asJSON); err != nil {
				return err
			}
			if !result.OK() {
				return fmt.Errorf("%w: %s (%s)", errToolFailed, args[0], result.Kind())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&backend, "backend", "", "session backend (tmux, pty, memory)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// callArguments returns the JSON argument object from args, or stdin for "-".
func callArguments(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(args[0]) == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read arguments: %w", err)
		}
		return data, nil
	}
	return []byte(args[0]), nil
}

func printResult(w io.Writer, result schema.ToolResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, result.Payload())
	}
	text := result.Text()
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}
