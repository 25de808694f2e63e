// Package tools defines the tool catalog and the dispatcher that turns a
// tool name plus argument bag into a ToolResult.
package tools

import (
	"github.com/google/jsonschema-go/jsonschema"

	"pkt.systems/ttypilot/schema"
)

// ParamType is the JSON type of a tool argument.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeBoolean ParamType = "boolean"
	TypeInteger ParamType = "integer"
	TypeStrings ParamType = "array"
)

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
	// Min is the minimum for integers, the minimum length for strings and
	// the minimum item count for lists.
	Min *int
	// Max is the maximum length for strings.
	Max *int
}

// Spec describes one tool.
type Spec struct {
	Name        schema.ToolName
	Description string
	Params      []Param
}

func intPtr(v int) *int { return &v }

var catalog = []Spec{
	{
		Name:        schema.ToolStart,
		Description: "Start an interactive terminal program in a fresh session. Only one session may be active at a time.",
		Params: []Param{
			{Name: "program", Type: TypeString, Description: "Program to run, for example nethack or vi.", Required: true, Min: intPtr(1)},
			{Name: "args", Type: TypeStrings, Description: "Optional command line arguments."},
		},
	},
	{
		Name:        schema.ToolSendLine,
		Description: "Type a line of text into the running program and press Enter.",
		Params: []Param{
			{Name: "text", Type: TypeString, Description: "Text to type before Enter.", Required: true},
		},
	},
	{
		Name:        schema.ToolSendKeys,
		Description: "Send keys one at a time. Each entry is a single character or a key name such as Enter, Escape, Tab, Space, BSpace, Up, Down, Left, Right, C-x or M-x.",
		Params: []Param{
			{Name: "keys", Type: TypeStrings, Description: "Keys to send in order.", Required: true, Min: intPtr(1)},
		},
	},
	{
		Name:        schema.ToolReadOutput,
		Description: "Read the current screen. Columns mode transposes the screen so vertical text reads left to right. A bounding box restricts the view and numbering follows absolute screen positions. Columns count characters, so a wide character is one column.",
		Params: []Param{
			{Name: "colorized", Type: TypeBoolean, Description: "Keep terminal colour sequences (rows mode without a bounding box only)."},
			{Name: "mode", Type: TypeString, Description: "View mode.", Enum: modeNames()},
			{Name: "numbered", Type: TypeBoolean, Description: "Prefix each line with its 1-based row or column number."},
			{Name: "top_left_row", Type: TypeInteger, Description: "Bounding box top row, zero-indexed.", Min: intPtr(0)},
			{Name: "top_left_col", Type: TypeInteger, Description: "Bounding box left column, zero-indexed.", Min: intPtr(0)},
			{Name: "bottom_right_row", Type: TypeInteger, Description: "Bounding box bottom row, zero-indexed and inclusive.", Min: intPtr(0)},
			{Name: "bottom_right_col", Type: TypeInteger, Description: "Bounding box right column, zero-indexed and inclusive.", Min: intPtr(0)},
		},
	},
	{
		Name:        schema.ToolEnd,
		Description: "End the active session and terminate its program.",
	},
	{
		Name:        schema.ToolLocate,
		Description: "Find where a character appears on screen. Returns zero-indexed [row, col] pairs in reading order and the number of further matches. Columns count characters, not display cells: a wide character such as a CJK ideograph or emoji is one column, the same unit read_output uses for bounding boxes and column numbers.",
		Params: []Param{
			{Name: "character", Type: TypeString, Description: "Exactly one character to search for.", Required: true, Min: intPtr(1), Max: intPtr(1)},
			{Name: "limit", Type: TypeInteger, Description: "Maximum coordinates to return (default 10).", Min: intPtr(1)},
		},
	},
}

// legacy holds the tool names of the first release. They are not part of
// the catalog; the MCP server lists them for older clients and the
// dispatcher resolves them onto catalog tools.
var legacy = []Spec{
	{
		Name:        "start_game",
		Description: "Deprecated: use start.",
		Params: []Param{
			{Name: "game_name", Type: TypeString, Description: "Program to run.", Required: true, Min: intPtr(1)},
			{Name: "args", Type: TypeStrings, Description: "Optional command line arguments."},
		},
	},
	{
		Name:        "send_command",
		Description: "Deprecated: use send_line.",
		Params: []Param{
			{Name: "command", Type: TypeString, Description: "Text to type before Enter.", Required: true},
		},
	},
	{
		Name:        "send_key",
		Description: "Deprecated: use send_keys.",
		Params: []Param{
			{Name: "key", Type: TypeString, Description: "A single character or key name.", Required: true, Min: intPtr(1)},
		},
	},
	{
		Name:        "end_game",
		Description: "Deprecated: use end.",
	},
}

func modeNames() []string {
	out := make([]string, 0, len(schema.ViewModes))
	for _, mode := range schema.ViewModes {
		out = append(out, string(mode))
	}
	return out
}

// Catalog returns the advertised tools in a stable order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// LegacySpecs returns the deprecated tool names with their original
// argument names.
func LegacySpecs() []Spec {
	out := make([]Spec, len(legacy))
	copy(out, legacy)
	return out
}

// Lookup returns the spec for an advertised tool name.
func Lookup(name string) (Spec, bool) {
	for _, spec := range catalog {
		if string(spec.Name) == name {
			return spec, true
		}
	}
	return Spec{}, false
}

// Param returns the named parameter.
func (s Spec) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// InputSchema renders the argument schema as a JSON Schema object.
func (s Spec) InputSchema() *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(s.Params)),
	}
	for _, p := range s.Params {
		out.Properties[p.Name] = p.schema()
		if p.Required {
			out.Required = append(out.Required, p.Name)
		}
	}
	return out
}

func (p Param) schema() *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:        string(p.Type),
		Description: p.Description,
	}
	switch p.Type {
	case TypeStrings:
		out.Items = &jsonschema.Schema{Type: string(TypeString)}
		out.MinItems = p.Min
	case TypeInteger:
		if p.Min != nil {
			min := float64(*p.Min)
			out.Minimum = &min
		}
	case TypeString:
		out.MinLength = p.Min
		out.MaxLength = p.Max
	}
	for _, value := range p.Enum {
		out.Enum = append(out.Enum, value)
	}
	return out
}
