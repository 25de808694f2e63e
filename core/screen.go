package core

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"pkt.systems/ttypilot/schema"
)

// screenBuffer is a row-major character grid. Rows may be ragged. Columns
// are rune indexes, so a double-width glyph occupies one column.
type screenBuffer [][]rune

// parseScreen splits a raw capture into rows. A single terminating newline
// does not produce an extra empty row, and a trailing carriage return on a
// row is dropped.
func parseScreen(text string) screenBuffer {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	buf := make(screenBuffer, len(lines))
	for i, line := range lines {
		buf[i] = []rune(strings.TrimSuffix(line, "\r"))
	}
	return buf
}

// plainText removes ANSI escape sequences so positions refer to visible characters.
func plainText(text string) string {
	if !strings.ContainsRune(text, '\x1b') {
		return text
	}
	return ansi.Strip(text)
}

// width returns the length of the longest row.
func (b screenBuffer) width() int {
	max := 0
	for _, row := range b {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// clip keeps the inclusive box region. Rows and columns beyond the
// available range are dropped, not padded.
func (b screenBuffer) clip(box schema.BoundingBox) screenBuffer {
	top, bottom := box.TopLeft.Row, box.BottomRight.Row
	left, right := box.TopLeft.Col, box.BottomRight.Col
	if top >= len(b) {
		return nil
	}
	if bottom >= len(b) {
		bottom = len(b) - 1
	}
	out := make(screenBuffer, 0, bottom-top+1)
	for _, row := range b[top : bottom+1] {
		if left >= len(row) {
			out = append(out, []rune{})
			continue
		}
		end := right + 1
		if end > len(row) {
			end = len(row)
		}
		out = append(out, append([]rune(nil), row[left:end]...))
	}
	return out
}

// padded returns a copy with every row right-padded with spaces to the
// buffer width. The receiver is not modified.
func (b screenBuffer) padded() screenBuffer {
	w := b.width()
	out := make(screenBuffer, len(b))
	for i, row := range b {
		line := make([]rune, w)
		copy(line, row)
		for j := len(row); j < w; j++ {
			line[j] = ' '
		}
		out[i] = line
	}
	return out
}

// transpose returns one synthetic row per column of the padded buffer.
func (b screenBuffer) transpose() screenBuffer {
	grid := b.padded()
	w := grid.width()
	out := make(screenBuffer, w)
	for c := 0; c < w; c++ {
		col := make([]rune, len(grid))
		for r, row := range grid {
			col[r] = row[c]
		}
		out[c] = col
	}
	return out
}

func (b screenBuffer) lines() []string {
	out := make([]string, len(b))
	for i, row := range b {
		out[i] = string(row)
	}
	return out
}
