package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/schema"
)

func newRenderCmd() *cobra.Command {
	var mode string
	var numbered bool
	var colorized bool
	var box string
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a saved screen capture as a rows/cols view",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, err := readCapture(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			req := schema.ViewRequest{
				Mode:      schema.ViewMode(mode),
				Numbered:  numbered,
				Colorized: colorized,
			}
			if box != "" {
				parsed, err := parseBox(box)
				if err != nil {
					return err
				}
				req.Box = &parsed
			}
			out, err := core.Render(screen, req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(schema.ViewRows), "view mode (rows, cols, both)")
	cmd.Flags().BoolVar(&numbered, "numbered", false, "prefix each line with its row or column number")
	cmd.Flags().BoolVar(&colorized, "colorized", false, "keep ANSI colour sequences in rows mode")
	cmd.Flags().StringVar(&box, "box", "", "clip to top,left,bottom,right (zero-based, inclusive)")
	return cmd
}

func newLocateCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "locate <character> [file|-]",
		Short: "Find a character in a saved screen capture",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, err := readCapture(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			out, err := core.LocateJSON(screen, schema.LocateRequest{Character: args[0], Limit: limit})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", schema.DefaultLocateLimit, "maximum coordinates to return")
	return cmd
}

// readCapture reads the named file, or stdin when no name or "-" is given.
// One trailing newline is dropped so saved captures keep their row count.
func readCapture(stdin io.Reader, args []string) (string, error) {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read capture: %w", err)
	}
	screen := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(screen, "\r"), nil
}

func parseBox(value string) (schema.BoundingBox, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return schema.BoundingBox{}, fmt.Errorf("--box wants top,left,bottom,right, got %q", value)
	}
	nums := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return schema.BoundingBox{}, fmt.Errorf("--box value %q: %w", part, err)
		}
		nums[i] = n
	}
	return schema.BoundingBox{
		TopLeft:     schema.Coordinate{Row: nums[0], Col: nums[1]},
		BottomRight: schema.Coordinate{Row: nums[2], Col: nums[3]},
	}, nil
}
