// Package tmux runs sessions inside detached tmux sessions.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/keys"
	"pkt.systems/ttypilot/schema"
)

const (
	defaultBinary  = "tmux"
	defaultPrefix  = "ttypilot-"
	defaultCols    = 80
	defaultRows    = 24
	defaultTimeout = 10 * time.Second
)

// Config configures the tmux backend.
type Config struct {
	Binary         string
	SessionPrefix  string
	Socket         string
	Cols           int
	Rows           int
	CommandTimeout time.Duration
	Settle         time.Duration
}

// Backend starts programs in detached tmux sessions.
type Backend struct {
	cfg   Config
	exec  CommandExecutor
	sleep func(ctx context.Context, d time.Duration)
}

// New constructs a tmux backend. A nil executor runs real commands.
func New(cfg Config, executor CommandExecutor) *Backend {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.SessionPrefix == "" {
		cfg.SessionPrefix = defaultPrefix
	}
	if cfg.Cols <= 0 {
		cfg.Cols = defaultCols
	}
	if cfg.Rows <= 0 {
		cfg.Rows = defaultRows
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultTimeout
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	if executor == nil {
		executor = RealCommandExecutor{}
	}
	return &Backend{cfg: cfg, exec: executor, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Version reports the tmux version string.
func (b *Backend) Version(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "-V")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Start implements core.Backend.
func (b *Backend) Start(ctx context.Context, program string, args []string) (core.Session, string, error) {
	if _, err := b.exec.LookPath(program); err != nil {
		return nil, "", fmt.Errorf("can't find command %q: %w", program, err)
	}
	name := b.cfg.SessionPrefix + uuid.NewString()[:8]
	cmd := []string{
		"new-session", "-d",
		"-s", name,
		"-x", strconv.Itoa(b.cfg.Cols),
		"-y", strconv.Itoa(b.cfg.Rows),
		"--", program,
	}
	cmd = append(cmd, args...)
	if _, err := b.run(ctx, cmd...); err != nil {
		return nil, "", err
	}
	b.sleep(ctx, b.cfg.Settle)
	if !b.hasSession(ctx, name) {
		return nil, "", fmt.Errorf("%s exited immediately", program)
	}
	pslog.Ctx(ctx).Debug("tmux session created", "tmux_session", name, "cols", b.cfg.Cols, "rows", b.cfg.Rows)
	return b.session(name), "Started " + program, nil
}

// Adopt attaches to an existing tmux session by name.
func (b *Backend) Adopt(ctx context.Context, name string) (*Session, error) {
	if !b.hasSession(ctx, name) {
		return nil, fmt.Errorf("tmux session %q: %w", name, schema.ErrSessionClosed)
	}
	return b.session(name), nil
}

// Survivors lists running tmux sessions created with the configured prefix.
func (b *Backend) Survivors(ctx context.Context) ([]string, error) {
	out, err := b.output(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		if errors.Is(err, schema.ErrSessionClosed) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, b.cfg.SessionPrefix) {
			names = append(names, line)
		}
	}
	return names, nil
}

func (b *Backend) session(name string) *Session {
	return &Session{backend: b, name: name}
}

func (b *Backend) hasSession(ctx context.Context, name string) bool {
	_, err := b.run(ctx, "has-session", "-t", name)
	return err == nil
}

func (b *Backend) argv(args []string) []string {
	if b.cfg.Socket == "" {
		return args
	}
	return append([]string{"-L", b.cfg.Socket}, args...)
}

// run executes a tmux command and returns combined output.
func (b *Backend) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.CommandTimeout)
	defer cancel()
	out, err := b.exec.ExecCommand(ctx, b.cfg.Binary, b.argv(args)...)
	if err != nil {
		return string(out), commandError(args, out, err)
	}
	return string(out), nil
}

// output executes a tmux command and returns stdout only.
func (b *Backend) output(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.CommandTimeout)
	defer cancel()
	out, err := b.exec.ExecCommandOutput(ctx, b.cfg.Binary, b.argv(args)...)
	if err != nil {
		detail := out
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			detail = exitErr.Stderr
		}
		return "", commandError(args, detail, err)
	}
	return string(out), nil
}

func commandError(args []string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		msg = err.Error()
	}
	op := "tmux"
	if len(args) > 0 {
		op = "tmux " + args[0]
	}
	if isGone(msg) {
		return fmt.Errorf("%s: %s: %w", op, msg, schema.ErrSessionClosed)
	}
	return fmt.Errorf("%s: %s", op, msg)
}

func isGone(msg string) bool {
	return strings.Contains(msg, "can't find session") ||
		strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "session not found")
}

// Session is a program running in a tmux session.
type Session struct {
	backend *Backend
	name    string
}

// ID implements core.Session.
func (s *Session) ID() string { return s.name }

// SendLine implements core.Session.
func (s *Session) SendLine(ctx context.Context, text string) (string, error) {
	if text != "" {
		if _, err := s.backend.run(ctx, "send-keys", "-t", s.name, "-l", "--", text); err != nil {
			return "", err
		}
	}
	if _, err := s.backend.run(ctx, "send-keys", "-t", s.name, "Enter"); err != nil {
		return "", err
	}
	s.backend.sleep(ctx, s.backend.cfg.Settle)
	return "Line sent: " + text, nil
}

// SendKeys implements core.Session. Literal characters are typed with -l so
// tmux does not interpret them as key names or command separators.
func (s *Session) SendKeys(ctx context.Context, names []string) (string, error) {
	sent := make([]string, 0, len(names))
	for _, name := range names {
		k, err := keys.Parse(name)
		if err != nil {
			return "", err
		}
		args := []string{"send-keys", "-t", s.name, k.Name}
		if k.Literal {
			args = []string{"send-keys", "-t", s.name, "-l", "--", k.Name}
		}
		if _, err := s.backend.run(ctx, args...); err != nil {
			return "", err
		}
		sent = append(sent, "Key sent: "+name)
	}
	s.backend.sleep(ctx, s.backend.cfg.Settle)
	return strings.Join(sent, "\n"), nil
}

// ReadScreen implements core.Session.
func (s *Session) ReadScreen(ctx context.Context, colorized bool) (string, error) {
	args := []string{"capture-pane", "-p", "-t", s.name}
	if colorized {
		args = []string{"capture-pane", "-p", "-e", "-t", s.name}
	}
	return s.backend.output(ctx, args...)
}

// End implements core.Session. A session that is already gone counts as ended.
func (s *Session) End(ctx context.Context) (string, error) {
	if _, err := s.backend.run(ctx, "kill-session", "-t", s.name); err != nil && !errors.Is(err, schema.ErrSessionClosed) {
		return "", err
	}
	return "Session ended", nil
}
