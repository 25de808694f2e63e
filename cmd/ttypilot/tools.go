package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/internal/tools"
)

func newToolsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as function definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := tools.NewBundle(tools.Catalog(), time.Now())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return writeJSON(cmd.OutOrStdout(), bundle)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := writeJSON(f, bundle); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("tools bundle wrote", "path", output, "tools", len(bundle.Tools))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the bundle to a file instead of stdout")
	return cmd
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
