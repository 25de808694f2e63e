package schema

// ServiceConfig defines defaults for the tool dispatcher.
type ServiceConfig struct {
	DefaultLocateLimit int
	// LogArguments includes tool argument values in debug logs.
	LogArguments bool
}

// NormalizeServiceConfig applies defaults.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.DefaultLocateLimit <= 0 {
		cfg.DefaultLocateLimit = DefaultLocateLimit
	}
	return cfg, nil
}
