package core

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/internal/logx"
	"pkt.systems/ttypilot/schema"
)

// Controller owns the single session slot. It is empty until Start succeeds
// and is cleared by End or when the backend reports the session closed.
type Controller struct {
	backend Backend
	logger  pslog.Logger

	mu      sync.Mutex
	session Session
}

// NewController constructs a controller for backend.
func NewController(backend Backend, logger pslog.Logger) *Controller {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Controller{backend: backend, logger: logger}
}

// Adopt installs an already running session, for example one that survived
// a restart. It fails if a session is already active.
func (c *Controller) Adopt(sess Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return schema.Backend(schema.ErrSessionActive)
	}
	c.session = sess
	logx.WithSession(c.logger, sess.ID()).Info("session adopted")
	return nil
}

// SessionID returns the id of the active session, or "".
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

// Start launches a new session.
func (c *Controller) Start(ctx context.Context, program string, args []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return "", schema.Backend(schema.ErrSessionActive)
	}
	if c.backend == nil {
		return "", schema.Backend(schema.ErrBackendUnavailable)
	}
	sess, out, err := c.backend.Start(ctx, program, args)
	if err != nil {
		c.logger.Warn("session start failed", "program", program, "err", err)
		return "", schema.Backend(err)
	}
	c.session = sess
	logx.WithSession(c.logger, sess.ID()).Info("session started", "program", program, "args", len(args))
	return out, nil
}

// SendLine forwards text to the active session.
func (c *Controller) SendLine(ctx context.Context, text string) (string, error) {
	return c.call(func(sess Session) (string, error) {
		return sess.SendLine(ctx, text)
	})
}

// SendKeys forwards keys to the active session.
func (c *Controller) SendKeys(ctx context.Context, keys []string) (string, error) {
	return c.call(func(sess Session) (string, error) {
		return sess.SendKeys(ctx, keys)
	})
}

// ReadScreen captures the active session's screen.
func (c *Controller) ReadScreen(ctx context.Context, colorized bool) (string, error) {
	return c.call(func(sess Session) (string, error) {
		return sess.ReadScreen(ctx, colorized)
	})
}

// End terminates the active session. The slot is cleared even when the
// backend reports an error.
func (c *Controller) End(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return "", schema.Backend(schema.ErrNoSession)
	}
	sess := c.session
	c.session = nil
	log := logx.WithSession(c.logger, sess.ID())
	out, err := sess.End(ctx)
	if err != nil {
		log.Warn("session end failed", "err", err)
		return "", schema.Backend(err)
	}
	log.Info("session ended")
	return out, nil
}

// Close ends any active session, ignoring "no active session".
func (c *Controller) Close(ctx context.Context) error {
	_, err := c.End(ctx)
	if err != nil && !errors.Is(err, schema.ErrNoSession) {
		return err
	}
	return nil
}

func (c *Controller) call(fn func(Session) (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return "", schema.Backend(schema.ErrNoSession)
	}
	out, err := fn(c.session)
	if err != nil {
		if errors.Is(err, schema.ErrSessionClosed) {
			logx.WithSession(c.logger, c.session.ID()).Info("session closed by program")
			c.session = nil
		}
		return "", schema.Backend(err)
	}
	return out, nil
}
