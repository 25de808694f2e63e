package main

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/ttypilot/core"
	"pkt.systems/ttypilot/internal/appconfig"
	"pkt.systems/ttypilot/internal/backend/memory"
	"pkt.systems/ttypilot/internal/backend/ptyterm"
	"pkt.systems/ttypilot/internal/backend/tmux"
)

func newTmuxBackend(cfg appconfig.Config) *tmux.Backend {
	return tmux.New(tmux.Config{
		Binary:         cfg.Tmux.Binary,
		SessionPrefix:  cfg.Tmux.SessionPrefix,
		Socket:         cfg.Tmux.Socket,
		Cols:           cfg.Tmux.Cols,
		Rows:           cfg.Tmux.Rows,
		CommandTimeout: cfg.CommandTimeout(),
		Settle:         cfg.Settle(),
	}, nil)
}

func newPTYBackend(cfg appconfig.Config) (*ptyterm.Backend, error) {
	return ptyterm.New(ptyterm.Config{
		Cols:   cfg.PTY.Cols,
		Rows:   cfg.PTY.Rows,
		Term:   cfg.PTY.Term,
		Env:    cfg.PTY.Env,
		Settle: cfg.Settle(),
		Grace:  time.Duration(cfg.PTY.GraceMillis) * time.Millisecond,
	})
}

// selectBackend builds the configured backend. When adopt is set and the
// backend is tmux, a surviving prefixed session is returned for adoption.
func selectBackend(ctx context.Context, cfg appconfig.Config, adopt bool) (core.Backend, core.Session, error) {
	logger := pslog.Ctx(ctx)
	switch cfg.Backend.Kind {
	case appconfig.BackendTmux:
		b := newTmuxBackend(cfg)
		if !adopt {
			return b, nil, nil
		}
		sess, err := adoptSurvivor(ctx, b)
		if err != nil {
			return nil, nil, err
		}
		return b, sess, nil
	case appconfig.BackendPTY:
		b, err := newPTYBackend(cfg)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	case appconfig.BackendMemory:
		logger.Info("memory backend selected", "programs", len(cfg.Memory.Programs))
		return memory.New(memory.Config{
			Cols:     cfg.Memory.Cols,
			Rows:     cfg.Memory.Rows,
			Programs: cfg.Memory.Programs,
		}), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend.kind %q", cfg.Backend.Kind)
	}
}

func adoptSurvivor(ctx context.Context, b *tmux.Backend) (core.Session, error) {
	logger := pslog.Ctx(ctx)
	names, err := b.Survivors(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) > 1 {
		logger.Warn("tmux survivors found", "count", len(names), "adopting", names[0])
	}
	sess, err := b.Adopt(ctx, names[0])
	if err != nil {
		return nil, err
	}
	logger.Info("tmux session adopted", "session", names[0])
	return sess, nil
}
