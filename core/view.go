package core

import (
	"fmt"
	"strings"

	"pkt.systems/ttypilot/schema"
)

const (
	rowsHeader    = "=== ROWS ==="
	columnsHeader = "=== COLUMNS ==="
)

// Render turns a raw screen capture into the view described by req.
// It has no side effects; invalid modes and bounding boxes are reported as
// validation errors.
func Render(screen string, req schema.ViewRequest) (string, error) {
	req, err := schema.NormalizeViewRequest(req)
	if err != nil {
		return "", err
	}
	// Escapes only survive in a plain, unclipped rows view; every other
	// layout needs character geometry.
	if !req.Colorized || req.Mode != schema.ViewRows || req.Box != nil {
		screen = plainText(screen)
	}
	buf := parseScreen(screen)
	rowStart, colStart := 1, 1
	if req.Box != nil {
		buf = buf.clip(*req.Box)
		rowStart = req.Box.TopLeft.Row + 1
		colStart = req.Box.TopLeft.Col + 1
	}

	switch req.Mode {
	case schema.ViewRows:
		return formatLines(buf.lines(), rowStart, req.Numbered), nil
	case schema.ViewCols, schema.ViewColumns:
		return formatLines(buf.transpose().lines(), colStart, req.Numbered), nil
	case schema.ViewBoth:
		var b strings.Builder
		b.WriteString(rowsHeader)
		b.WriteByte('\n')
		b.WriteString(formatLines(buf.lines(), rowStart, req.Numbered))
		b.WriteString("\n\n")
		b.WriteString(columnsHeader)
		b.WriteByte('\n')
		b.WriteString(formatLines(buf.transpose().lines(), colStart, req.Numbered))
		return b.String(), nil
	default:
		// NormalizeViewRequest rejects anything else.
		return "", schema.Validation(fmt.Errorf("%w %q", schema.ErrInvalidMode, req.Mode))
	}
}

// formatLines joins lines with newlines, prefixing each with a right-aligned
// sequence number starting at start when numbered is set.
func formatLines(lines []string, start int, numbered bool) string {
	if !numbered {
		return strings.Join(lines, "\n")
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%3d: %s", start+i, line)
	}
	return b.String()
}
