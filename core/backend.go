package core

import "context"

// Backend spawns terminal programs.
type Backend interface {
	// Start launches program with args and returns the live session together
	// with the backend's confirmation text.
	Start(ctx context.Context, program string, args []string) (Session, string, error)
}

// Session is a live terminal program owned by a Backend. Every method
// returns the backend's raw confirmation text or screen capture.
type Session interface {
	ID() string
	SendLine(ctx context.Context, text string) (string, error)
	SendKeys(ctx context.Context, keys []string) (string, error)
	ReadScreen(ctx context.Context, colorized bool) (string, error)
	End(ctx context.Context) (string, error)
}
