// Package keys translates symbolic key names into terminal input.
//
// Names follow tmux conventions (Enter, Escape, C-x, M-x, F1, PPage, ...)
// and are matched case-insensitively. Any single character is sent
// literally.
package keys

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrUnknownKey indicates a key name that is neither known nor a single character.
var ErrUnknownKey = errors.New("unknown key")

// Key is a parsed key.
type Key struct {
	// Name is the canonical tmux name, or the character itself for literals.
	Name string
	// Literal is set for single characters that must be typed as-is.
	Literal bool
	// Bytes is the xterm input sequence for the key.
	Bytes []byte
}

type named struct {
	canonical string
	seq       string
}

var namedKeys = map[string]named{
	"enter":     {"Enter", "\r"},
	"return":    {"Enter", "\r"},
	"tab":       {"Tab", "\t"},
	"btab":      {"BTab", "\x1b[Z"},
	"escape":    {"Escape", "\x1b"},
	"esc":       {"Escape", "\x1b"},
	"space":     {"Space", " "},
	"bspace":    {"BSpace", "\x7f"},
	"backspace": {"BSpace", "\x7f"},
	"up":        {"Up", "\x1b[A"},
	"down":      {"Down", "\x1b[B"},
	"right":     {"Right", "\x1b[C"},
	"left":      {"Left", "\x1b[D"},
	"home":      {"Home", "\x1b[H"},
	"end":       {"End", "\x1b[F"},
	"ppage":     {"PPage", "\x1b[5~"},
	"pageup":    {"PPage", "\x1b[5~"},
	"pgup":      {"PPage", "\x1b[5~"},
	"npage":     {"NPage", "\x1b[6~"},
	"pagedown":  {"NPage", "\x1b[6~"},
	"pgdn":      {"NPage", "\x1b[6~"},
	"dc":        {"DC", "\x1b[3~"},
	"delete":    {"DC", "\x1b[3~"},
	"ic":        {"IC", "\x1b[2~"},
	"insert":    {"IC", "\x1b[2~"},
	"f1":        {"F1", "\x1bOP"},
	"f2":        {"F2", "\x1bOQ"},
	"f3":        {"F3", "\x1bOR"},
	"f4":        {"F4", "\x1bOS"},
	"f5":        {"F5", "\x1b[15~"},
	"f6":        {"F6", "\x1b[17~"},
	"f7":        {"F7", "\x1b[18~"},
	"f8":        {"F8", "\x1b[19~"},
	"f9":        {"F9", "\x1b[20~"},
	"f10":       {"F10", "\x1b[21~"},
	"f11":       {"F11", "\x1b[23~"},
	"f12":       {"F12", "\x1b[24~"},
}

// Parse resolves a key name or a single literal character.
func Parse(key string) (Key, error) {
	if key == "" {
		return Key{}, fmt.Errorf("%w: empty key", ErrUnknownKey)
	}
	if utf8.RuneCountInString(key) == 1 {
		return Key{Name: key, Literal: true, Bytes: []byte(key)}, nil
	}
	if k, ok := namedKeys[strings.ToLower(key)]; ok {
		return Key{Name: k.canonical, Bytes: []byte(k.seq)}, nil
	}
	if len(key) > 2 && key[1] == '-' {
		rest := key[2:]
		switch key[0] {
		case 'C', 'c':
			b, ok := controlByte(rest)
			if !ok {
				break
			}
			return Key{Name: "C-" + strings.ToLower(rest), Bytes: []byte{b}}, nil
		case 'M', 'm':
			inner, err := Parse(rest)
			if err != nil {
				break
			}
			return Key{Name: "M-" + inner.Name, Bytes: append([]byte{0x1b}, inner.Bytes...)}, nil
		}
	}
	return Key{}, fmt.Errorf("%w %q: use a single character or a name such as Enter, Escape, Tab, Space, BSpace, Up, Down, Left, Right, C-x, M-x, F1", ErrUnknownKey, key)
}

// Validate checks every key in keys.
func Validate(keys []string) error {
	for i, key := range keys {
		if _, err := Parse(key); err != nil {
			return fmt.Errorf("keys[%d]: %w", i, err)
		}
	}
	return nil
}

// Encode concatenates the input sequences of keys.
func Encode(keys []string) ([]byte, error) {
	var out []byte
	for i, key := range keys {
		k, err := Parse(key)
		if err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		out = append(out, k.Bytes...)
	}
	return out, nil
}

func controlByte(rest string) (byte, bool) {
	if strings.EqualFold(rest, "space") {
		return 0, true
	}
	if len(rest) != 1 {
		return 0, false
	}
	c := rest[0]
	switch {
	case c >= 'a' && c <= 'z':
		return c - 'a' + 1, true
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 1, true
	case c == '@':
		return 0, true
	case c >= '[' && c <= '_':
		return c & 0x1f, true
	case c == '?':
		return 0x7f, true
	}
	return 0, false
}
