package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToolName identifies an operation in the tool catalog.
type ToolName string

const (
	// ToolStart starts a new terminal session.
	ToolStart ToolName = "start"
	// ToolSendLine sends literal text followed by Enter.
	ToolSendLine ToolName = "send_line"
	// ToolSendKeys sends symbolic key names or literal characters.
	ToolSendKeys ToolName = "send_keys"
	// ToolReadOutput captures and renders the screen.
	ToolReadOutput ToolName = "read_output"
	// ToolEnd ends the active session.
	ToolEnd ToolName = "end"
	// ToolLocate finds a character on the screen.
	ToolLocate ToolName = "locate"
)

// ViewMode selects the layout of a rendered screen view.
type ViewMode string

const (
	// ViewRows renders the screen row by row.
	ViewRows ViewMode = "rows"
	// ViewCols renders the transposed screen, one line per column.
	ViewCols ViewMode = "cols"
	// ViewColumns is an alias for ViewCols.
	ViewColumns ViewMode = "columns"
	// ViewBoth renders the rows view followed by the columns view.
	ViewBoth ViewMode = "both"
)

// ViewModes lists the accepted view modes in display order.
var ViewModes = []ViewMode{ViewRows, ViewCols, ViewColumns, ViewBoth}

// DefaultLocateLimit caps the number of coordinates returned by locate.
const DefaultLocateLimit = 10

// Coordinate is a zero-indexed (row, col) screen position.
type Coordinate struct {
	Row int
	Col int
}

// MarshalJSON encodes the coordinate as a [row, col] pair.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

// UnmarshalJSON decodes a [row, col] pair.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coordinate must be a [row, col] pair: %w", err)
	}
	c.Row, c.Col = pair[0], pair[1]
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// BoundingBox is an inclusive rectangular region of the screen.
type BoundingBox struct {
	TopLeft     Coordinate
	BottomRight Coordinate
}

// ViewRequest describes how a raw screen capture should be rendered.
type ViewRequest struct {
	Colorized bool
	Mode      ViewMode
	Numbered  bool
	Box       *BoundingBox
}

// LocateRequest asks for the positions of a single character.
type LocateRequest struct {
	Character string
	Limit     int
}

// LocateResult lists up to Limit matches; Remaining counts the rest.
type LocateResult struct {
	Coordinates []Coordinate `json:"coordinates"`
	Remaining   int          `json:"remaining"`
}

// ToolEvent records a completed tool call for activity subscribers.
type ToolEvent struct {
	Seq      uint64        `json:"seq"`
	Tool     ToolName      `json:"tool"`
	OK       bool          `json:"ok"`
	Kind     ErrorKind     `json:"kind,omitempty"`
	Error    string        `json:"error,omitempty"`
	Session  string        `json:"session,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Time     time.Time     `json:"time"`
}
