package tmux

import (
	"context"
	"os/exec"
)

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// ExecCommand runs a command and returns combined output and error.
	ExecCommand(ctx context.Context, name string, args ...string) ([]byte, error)
	// ExecCommandOutput runs a command and returns stdout only.
	ExecCommandOutput(ctx context.Context, name string, args ...string) ([]byte, error)
	// LookPath resolves a program name on PATH.
	LookPath(name string) (string, error)
}

// RealCommandExecutor implements CommandExecutor using exec.CommandContext.
type RealCommandExecutor struct{}

func (RealCommandExecutor) ExecCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (RealCommandExecutor) ExecCommandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (RealCommandExecutor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
