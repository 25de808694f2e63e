// Package ptyterm runs sessions on a local pseudo-terminal and keeps the
// screen in a headless vt10x emulator.
package ptyterm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/hinshun/vt10x"
	"golang.org/x/sys/unix"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/keys"
	"pkt.systems/ttypilot/schema"
)

const (
	defaultCols  = 80
	defaultRows  = 24
	defaultTerm  = "xterm-256color"
	defaultGrace = 2 * time.Second
)

// Config configures the pty backend.
type Config struct {
	Cols   int
	Rows   int
	Term   string
	Env    []string
	Settle time.Duration
	// Grace is how long End waits after SIGTERM before sending SIGKILL.
	Grace time.Duration
}

// Backend spawns programs on a pty.
type Backend struct {
	cfg Config
}

// New constructs a pty backend.
func New(cfg Config) (*Backend, error) {
	if cfg.Cols == 0 {
		cfg.Cols = defaultCols
	}
	if cfg.Rows == 0 {
		cfg.Rows = defaultRows
	}
	if cfg.Cols < 0 || cfg.Cols > math.MaxUint16 || cfg.Rows < 0 || cfg.Rows > math.MaxUint16 {
		return nil, fmt.Errorf("pty size %dx%d out of range", cfg.Cols, cfg.Rows)
	}
	if cfg.Term == "" {
		cfg.Term = defaultTerm
	}
	if cfg.Grace <= 0 {
		cfg.Grace = defaultGrace
	}
	return &Backend{cfg: cfg}, nil
}

// Start implements core.Backend.
func (b *Backend) Start(ctx context.Context, program string, args []string) (core.Session, string, error) {
	path, err := exec.LookPath(program)
	if err != nil {
		return nil, "", fmt.Errorf("can't find command %q: %w", program, err)
	}
	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), b.cfg.Env...)
	cmd.Env = append(cmd.Env, "TERM="+b.cfg.Term)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(b.cfg.Rows),
		Cols: uint16(b.cfg.Cols),
	})
	if err != nil {
		return nil, "", fmt.Errorf("start %s on pty: %w", program, err)
	}
	s := &Session{
		id:     "pty-" + uuid.NewString()[:8],
		cmd:    cmd,
		ptmx:   ptmx,
		vt:     vt10x.New(vt10x.WithSize(b.cfg.Cols, b.cfg.Rows), vt10x.WithWriter(ptmx)),
		settle: b.cfg.Settle,
		grace:  b.cfg.Grace,
		done:   make(chan struct{}),
	}
	go s.readLoop()
	pslog.Ctx(ctx).Debug("pty session started", "pid", cmd.Process.Pid, "cols", b.cfg.Cols, "rows", b.cfg.Rows)
	return s, "Started " + program, nil
}

// Session is a program attached to a pty.
type Session struct {
	id     string
	cmd    *exec.Cmd
	ptmx   *os.File
	settle time.Duration
	grace  time.Duration

	mu sync.Mutex
	vt vt10x.Terminal

	done    chan struct{}
	exitErr error
	endOnce sync.Once
}

// readLoop feeds pty output into the emulator until the program exits.
func (s *Session) readLoop() {
	defer close(s.done)
	reader := bufio.NewReader(s.ptmx)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			s.mu.Lock()
			_, _ = s.vt.Write(buf[:n])
			s.mu.Unlock()
		}
		if err != nil {
			break
		}
	}
	s.exitErr = s.cmd.Wait()
}

func (s *Session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// closedErr describes the exit of the program. Only valid once done is closed.
func (s *Session) closedErr() error {
	if s.exitErr != nil {
		return fmt.Errorf("program exited (%v): %w", s.exitErr, schema.ErrSessionClosed)
	}
	return fmt.Errorf("program exited: %w", schema.ErrSessionClosed)
}

func (s *Session) write(ctx context.Context, data []byte) error {
	if s.exited() {
		return s.closedErr()
	}
	if _, err := s.ptmx.Write(data); err != nil {
		if errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, unix.EIO) {
			return fmt.Errorf("write to pty: %w", schema.ErrSessionClosed)
		}
		return fmt.Errorf("write to pty: %w", err)
	}
	s.wait(ctx)
	return nil
}

func (s *Session) wait(ctx context.Context) {
	if s.settle <= 0 {
		return
	}
	timer := time.NewTimer(s.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-s.done:
	case <-timer.C:
	}
}

// ID implements core.Session.
func (s *Session) ID() string { return s.id }

// SendLine implements core.Session.
func (s *Session) SendLine(ctx context.Context, text string) (string, error) {
	if err := s.write(ctx, []byte(text+"\r")); err != nil {
		return "", err
	}
	return "Line sent: " + text, nil
}

// SendKeys implements core.Session.
func (s *Session) SendKeys(ctx context.Context, names []string) (string, error) {
	data, err := keys.Encode(names)
	if err != nil {
		return "", err
	}
	if err := s.write(ctx, data); err != nil {
		return "", err
	}
	sent := make([]string, 0, len(names))
	for _, name := range names {
		sent = append(sent, "Key sent: "+name)
	}
	return strings.Join(sent, "\n"), nil
}

// ReadScreen implements core.Session.
func (s *Session) ReadScreen(_ context.Context, colorized bool) (string, error) {
	if s.exited() {
		return "", s.closedErr()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return renderView(s.vt, colorized), nil
}

// End implements core.Session. The program's process group receives
// SIGTERM, then SIGKILL once the grace period expires.
func (s *Session) End(ctx context.Context) (string, error) {
	var err error
	s.endOnce.Do(func() {
		err = s.terminate(ctx)
	})
	if err != nil {
		return "", err
	}
	return "Session ended", nil
}

func (s *Session) terminate(ctx context.Context) error {
	defer s.ptmx.Close()
	if s.exited() || s.cmd.Process == nil {
		return nil
	}
	pgid := s.cmd.Process.Pid
	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", pgid, err)
	}
	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
	case <-timer.C:
	}
	if err := unix.Kill(-pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", pgid, err)
	}
	return nil
}
