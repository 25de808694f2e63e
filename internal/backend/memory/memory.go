// Package memory provides an in-process backend that emulates a line
// oriented terminal program. It is used for tests and for dry runs of the
// tool surface without tmux or a pty.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/keys"
	"pkt.systems/ttypilot/schema"
)

const (
	defaultRows = 24
	defaultCols = 80
	prompt      = "$ "
	exitCommand = "exit"
)

// Config configures the memory backend.
type Config struct {
	Rows int
	Cols int
	// Programs restricts which programs can be started. Empty allows any.
	Programs []string
}

// Backend spawns in-memory sessions.
type Backend struct {
	cfg Config
}

// New constructs a memory backend.
func New(cfg Config) *Backend {
	if cfg.Rows <= 0 {
		cfg.Rows = defaultRows
	}
	if cfg.Cols <= 0 {
		cfg.Cols = defaultCols
	}
	return &Backend{cfg: cfg}
}

// Start implements core.Backend.
func (b *Backend) Start(_ context.Context, program string, args []string) (core.Session, string, error) {
	if len(b.cfg.Programs) > 0 && !contains(b.cfg.Programs, program) {
		return nil, "", fmt.Errorf("can't find command %q", program)
	}
	cmdline := strings.TrimSpace(program + " " + strings.Join(args, " "))
	s := &Session{
		id:   "mem-" + uuid.NewString()[:8],
		rows: b.cfg.Rows,
		cols: b.cfg.Cols,
	}
	s.lines = []string{cmdline, prompt}
	return s, "Started " + program, nil
}

// Session is a running in-memory program. Lines sent to it are echoed
// below a prompt; "exit" terminates it.
type Session struct {
	id   string
	rows int
	cols int

	mu     sync.Mutex
	lines  []string
	closed bool
}

// ID implements core.Session.
func (s *Session) ID() string { return s.id }

// SendLine implements core.Session.
func (s *Session) SendLine(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", schema.ErrSessionClosed
	}
	s.typeText(text)
	s.enter()
	return "Line sent: " + text, nil
}

// SendKeys implements core.Session.
func (s *Session) SendKeys(_ context.Context, names []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", schema.ErrSessionClosed
	}
	var out []string
	for _, name := range names {
		k, err := keys.Parse(name)
		if err != nil {
			return "", err
		}
		switch {
		case k.Literal:
			s.typeText(k.Name)
		case k.Name == "Enter":
			s.enter()
		case k.Name == "Space":
			s.typeText(" ")
		case k.Name == "BSpace":
			s.backspace()
		}
		out = append(out, "Key sent: "+name)
		if s.closed {
			break
		}
	}
	return strings.Join(out, "\n"), nil
}

// ReadScreen implements core.Session. The visible screen is the last rows
// lines, each truncated to cols.
func (s *Session) ReadScreen(_ context.Context, colorized bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", schema.ErrSessionClosed
	}
	start := 0
	if len(s.lines) > s.rows {
		start = len(s.lines) - s.rows
	}
	visible := make([]string, 0, s.rows)
	for _, line := range s.lines[start:] {
		runes := []rune(line)
		if len(runes) > s.cols {
			runes = runes[:s.cols]
		}
		line = string(runes)
		if colorized && strings.HasPrefix(line, prompt) {
			line = "\x1b[1m$\x1b[0m" + line[1:]
		}
		visible = append(visible, line)
	}
	return strings.Join(visible, "\n"), nil
}

// End implements core.Session.
func (s *Session) End(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return "Session ended", nil
}

func (s *Session) typeText(text string) {
	s.lines[len(s.lines)-1] += text
}

func (s *Session) backspace() {
	last := s.lines[len(s.lines)-1]
	if len(last) <= len(prompt) {
		return
	}
	runes := []rune(last)
	s.lines[len(s.lines)-1] = string(runes[:len(runes)-1])
}

func (s *Session) enter() {
	input := strings.TrimPrefix(s.lines[len(s.lines)-1], prompt)
	if strings.TrimSpace(input) == exitCommand {
		s.closed = true
		return
	}
	if input != "" {
		s.lines = append(s.lines, input)
	}
	s.lines = append(s.lines, prompt)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
