package httpapi

// Config defines HTTP API settings.
type Config struct {
	Addr     string
	BasePath string
	// History is the number of tool events kept for Last-Event-ID replay.
	History int
}
