package core

import (
	"errors"
	"strings"
	"testing"

	"pkt.systems/ttypilot/schema"
)

func box(r1, c1, r2, c2 int) *schema.BoundingBox {
	return &schema.BoundingBox{
		TopLeft:     schema.Coordinate{Row: r1, Col: c1},
		BottomRight: schema.Coordinate{Row: r2, Col: c2},
	}
}

func TestRenderColumnsPadsRaggedRows(t *testing.T) {
	out, err := Render("ab\ncde", schema.ViewRequest{Mode: schema.ViewCols})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ac\nbd\n e" {
		t.Fatalf("unexpected columns view %q", out)
	}
}

func TestRenderColumnsAlias(t *testing.T) {
	cols, err := Render("ab\ncde", schema.ViewRequest{Mode: schema.ViewCols})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	columns, err := Render("ab\ncde", schema.ViewRequest{Mode: schema.ViewColumns})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols != columns {
		t.Fatalf("expected columns alias to match cols, got %q vs %q", columns, cols)
	}
}

func TestRenderRowsDefaultsAndPassesThrough(t *testing.T) {
	out, err := Render("hello\nworld", schema.ViewRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello\nworld" {
		t.Fatalf("unexpected rows view %q", out)
	}
}

func TestRenderNumberedRowsStartAtOne(t *testing.T) {
	out, err := Render("one\ntwo", schema.ViewRequest{Mode: schema.ViewRows, Numbered: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "  1: one\n  2: two"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestRenderNumberedColumnsStartAtOne(t *testing.T) {
	out, err := Render("ab\ncd", schema.ViewRequest{Mode: schema.ViewCols, Numbered: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "  1: ac") {
		t.Fatalf("expected first column numbered 1, got %q", out)
	}
}

func TestRenderNumberingFollowsBoundingBox(t *testing.T) {
	screen := "0123456789\nabcdefghij\nklmnopqrst\nuvwxyzABCD"
	rows, err := Render(screen, schema.ViewRequest{Mode: schema.ViewRows, Numbered: true, Box: box(1, 3, 2, 5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != "  2: def\n  3: nop" {
		t.Fatalf("unexpected boxed rows %q", rows)
	}
	cols, err := Render(screen, schema.ViewRequest{Mode: schema.ViewCols, Numbered: true, Box: box(1, 3, 2, 5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols != "  4: dn\n  5: eo\n  6: fp" {
		t.Fatalf("unexpected boxed cols %q", cols)
	}
}

func TestRenderBoundingBoxTruncatesWithoutPadding(t *testing.T) {
	screen := "abcdef\nxy\n"
	out, err := Render(screen, schema.ViewRequest{Mode: schema.ViewRows, Box: box(0, 3, 5, 10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "def\n" {
		t.Fatalf("expected clipped rows %q, got %q", "def\n", out)
	}
}

func TestRenderBoundingBoxBeyondScreenIsEmpty(t *testing.T) {
	out, err := Render("abc", schema.ViewRequest{Mode: schema.ViewRows, Numbered: true, Box: box(5, 0, 6, 2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty view, got %q", out)
	}
}

func TestRenderRejectsReversedBoundingBox(t *testing.T) {
	_, err := Render("abc", schema.ViewRequest{Mode: schema.ViewRows, Box: box(2, 0, 1, 2)})
	if !errors.Is(err, schema.ErrInvalidBox) {
		t.Fatalf("expected ErrInvalidBox, got %v", err)
	}
}

func TestRenderBothHasOrderedMarkers(t *testing.T) {
	out, err := Render("ab\ncd", schema.ViewRequest{Mode: schema.ViewBoth, Numbered: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(out, rowsHeader) != 1 || strings.Count(out, columnsHeader) != 1 {
		t.Fatalf("expected exactly one marker each, got %q", out)
	}
	if strings.Index(out, rowsHeader) > strings.Index(out, columnsHeader) {
		t.Fatalf("expected rows before columns, got %q", out)
	}
	want := "=== ROWS ===\n  1: ab\n  2: cd\n\n=== COLUMNS ===\n  1: ac\n  2: bd"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestRenderBothOnEmptyScreen(t *testing.T) {
	out, err := Render("", schema.ViewRequest{Mode: schema.ViewBoth})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "=== ROWS ===\n\n\n=== COLUMNS ===\n" {
		t.Fatalf("unexpected empty both view %q", out)
	}
}

func TestRenderRejectsUnknownMode(t *testing.T) {
	_, err := Render("abc", schema.ViewRequest{Mode: "unknown"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if schema.KindOf(err) != schema.KindValidation {
		t.Fatalf("expected validation kind, got %q", schema.KindOf(err))
	}
	for _, want := range []string{"rows", "cols", "columns", "both"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %q", want, err.Error())
		}
	}
}

func TestRenderTransposeRoundTrip(t *testing.T) {
	screens := []string{
		"abc\ndef\nghi",
		"x",
		"ab\ncd\nef\ngh",
		"hello world\n0123456789!",
	}
	for _, screen := range screens {
		cols, err := Render(screen, schema.ViewRequest{Mode: schema.ViewCols})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		back, err := Render(cols, schema.ViewRequest{Mode: schema.ViewCols})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if back != screen {
			t.Fatalf("round trip mismatch: %q -> %q -> %q", screen, cols, back)
		}
	}
}

func TestRenderNumberWidthGrows(t *testing.T) {
	lines := make([]string, 1001)
	for i := range lines {
		lines[i] = "x"
	}
	out, err := Render(strings.Join(lines, "\n"), schema.ViewRequest{Numbered: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := strings.Split(out, "\n")
	if all[998] != "999: x" {
		t.Fatalf("unexpected line 999 %q", all[998])
	}
	if all[1000] != "1001: x" {
		t.Fatalf("unexpected line 1001 %q", all[1000])
	}
}

func TestRenderColorizedRowsKeepsEscapes(t *testing.T) {
	screen := "\x1b[31mred\x1b[0m\nplain"
	out, err := Render(screen, schema.ViewRequest{Colorized: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != screen {
		t.Fatalf("expected escapes preserved, got %q", out)
	}
}

func TestRenderColorizedColumnsUseVisibleCells(t *testing.T) {
	screen := "\x1b[31mab\x1b[0m\ncd"
	out, err := Render(screen, schema.ViewRequest{Colorized: true, Mode: schema.ViewCols})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ac\nbd" {
		t.Fatalf("expected geometry on visible cells, got %q", out)
	}
}

func TestScreenBufferTransposeEdgeCases(t *testing.T) {
	if got := parseScreen("").transpose(); len(got) != 0 {
		t.Fatalf("expected no columns for empty buffer, got %d", len(got))
	}
	if got := parseScreen("\n\n").transpose(); len(got) != 0 {
		t.Fatalf("expected no columns for all-empty rows, got %d", len(got))
	}
	single := parseScreen("abc").transpose().lines()
	if strings.Join(single, ",") != "a,b,c" {
		t.Fatalf("unexpected single-row transpose %v", single)
	}
}

func TestScreenBufferPaddedDoesNotMutate(t *testing.T) {
	buf := parseScreen("a\nabc")
	_ = buf.padded()
	if len(buf[0]) != 1 {
		t.Fatalf("expected original row untouched, got %q", string(buf[0]))
	}
}

func TestParseScreenHandlesCRLF(t *testing.T) {
	buf := parseScreen("ab\r\ncd\r\n")
	if len(buf) != 2 || string(buf[0]) != "ab" || string(buf[1]) != "cd" {
		t.Fatalf("unexpected rows %q", buf.lines())
	}
}
