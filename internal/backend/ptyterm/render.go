package ptyterm

import (
	"strconv"
	"strings"

	"github.com/hinshun/vt10x"
)

// Glyph attribute bits as stored by vt10x.
const (
	attrReverse = 1 << iota
	attrUnderline
	attrBold
	attrGfx
	attrItalic
	attrBlink
)

type style struct {
	fg, bg vt10x.Color
	mode   int16
}

func (s style) plain() bool {
	return s.fg == vt10x.DefaultFG && s.bg == vt10x.DefaultBG && s.mode&(attrReverse|attrUnderline|attrBold|attrItalic|attrBlink) == 0
}

// sgr returns the escape sequence selecting s from a reset state.
func (s style) sgr() string {
	params := []string{"0"}
	if s.mode&attrBold != 0 {
		params = append(params, "1")
	}
	if s.mode&attrItalic != 0 {
		params = append(params, "3")
	}
	if s.mode&attrUnderline != 0 {
		params = append(params, "4")
	}
	if s.mode&attrBlink != 0 {
		params = append(params, "5")
	}
	if s.mode&attrReverse != 0 {
		params = append(params, "7")
	}
	params = appendColor(params, s.fg, vt10x.DefaultFG, 30, 90, 38)
	params = appendColor(params, s.bg, vt10x.DefaultBG, 40, 100, 48)
	return "\x1b[" + strings.Join(params, ";") + "m"
}

func appendColor(params []string, c, def vt10x.Color, base, bright, extended int) []string {
	switch {
	case c == def || c >= vt10x.DefaultFG:
		return params
	case c < 8:
		return append(params, strconv.Itoa(base+int(c)))
	case c < 16:
		return append(params, strconv.Itoa(bright+int(c)-8))
	case c < 256:
		return append(params, strconv.Itoa(extended), "5", strconv.Itoa(int(c)))
	default:
		r, g, b := (c>>16)&0xff, (c>>8)&0xff, c&0xff
		return append(params, strconv.Itoa(extended), "2", strconv.Itoa(int(r)), strconv.Itoa(int(g)), strconv.Itoa(int(b)))
	}
}

// renderView renders every row of the emulator grid. Trailing blank cells
// are trimmed per row; when colorized, SGR sequences are emitted at style
// changes and reset at the end of each styled row.
func renderView(view vt10x.View, colorized bool) string {
	cols, rows := view.Size()
	lines := make([]string, rows)
	for y := 0; y < rows; y++ {
		end := cols
		for end > 0 {
			g := view.Cell(end-1, y)
			if (g.Char != ' ' && g.Char != 0) || (colorized && !cellStyle(g).plain()) {
				break
			}
			end--
		}
		var b strings.Builder
		current := style{fg: vt10x.DefaultFG, bg: vt10x.DefaultBG}
		for x := 0; x < end; x++ {
			g := view.Cell(x, y)
			if colorized {
				if st := cellStyle(g); st != current {
					if st.plain() {
						b.WriteString("\x1b[0m")
					} else {
						b.WriteString(st.sgr())
					}
					current = st
				}
			}
			ch := g.Char
			if ch == 0 {
				ch = ' '
			}
			b.WriteRune(ch)
		}
		if colorized && !current.plain() {
			b.WriteString("\x1b[0m")
		}
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}

func cellStyle(g vt10x.Glyph) style {
	return style{fg: g.FG, bg: g.BG, mode: g.Mode & (attrReverse | attrUnderline | attrBold | attrItalic | attrBlink)}
}
