package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// maxScreenDim bounds configured cols and rows.
const maxScreenDim = 1000

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("backend.kind", cfg.Backend.Kind)
	v.SetDefault("backend.command_timeout_seconds", cfg.Backend.CommandTimeoutSeconds)
	v.SetDefault("backend.settle_millis", cfg.Backend.SettleMillis)
	v.SetDefault("tmux.binary", cfg.Tmux.Binary)
	v.SetDefault("tmux.session_prefix", cfg.Tmux.SessionPrefix)
	v.SetDefault("tmux.socket", cfg.Tmux.Socket)
	v.SetDefault("tmux.adopt_session", cfg.Tmux.AdoptSession)
	v.SetDefault("tmux.cols", cfg.Tmux.Cols)
	v.SetDefault("tmux.rows", cfg.Tmux.Rows)
	v.SetDefault("pty.cols", cfg.PTY.Cols)
	v.SetDefault("pty.rows", cfg.PTY.Rows)
	v.SetDefault("pty.term", cfg.PTY.Term)
	v.SetDefault("pty.env", cfg.PTY.Env)
	v.SetDefault("pty.grace_millis", cfg.PTY.GraceMillis)
	v.SetDefault("memory.cols", cfg.Memory.Cols)
	v.SetDefault("memory.rows", cfg.Memory.Rows)
	v.SetDefault("memory.programs", cfg.Memory.Programs)
	v.SetDefault("locate.default_limit", cfg.Locate.DefaultLimit)
	v.SetDefault("http.enabled", cfg.HTTP.Enabled)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.history", cfg.HTTP.History)
	v.SetDefault("mcp.enabled", cfg.MCP.Enabled)
	v.SetDefault("logging.log_arguments", cfg.Logging.LogArguments)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		// Only the file itself may supply config_version.
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	cfg.Backend.Kind = strings.ToLower(strings.TrimSpace(cfg.Backend.Kind))
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks a config after defaults, file values and flag overrides.
func Validate(cfg Config) error {
	if !slices.Contains(BackendKinds, cfg.Backend.Kind) {
		return fmt.Errorf("unsupported backend.kind %q; expected one of %s", cfg.Backend.Kind, strings.Join(BackendKinds, ", "))
	}
	if cfg.Backend.CommandTimeoutSeconds <= 0 {
		return fmt.Errorf("backend.command_timeout_seconds must be positive")
	}
	if cfg.Backend.SettleMillis < 0 {
		return fmt.Errorf("backend.settle_millis must not be negative")
	}
	if err := validateSize("tmux", cfg.Tmux.Cols, cfg.Tmux.Rows); err != nil {
		return err
	}
	if err := validateSize("pty", cfg.PTY.Cols, cfg.PTY.Rows); err != nil {
		return err
	}
	if err := validateSize("memory", cfg.Memory.Cols, cfg.Memory.Rows); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Tmux.SessionPrefix) == "" {
		return fmt.Errorf("tmux.session_prefix must not be empty")
	}
	if strings.ContainsAny(cfg.Tmux.SessionPrefix, ":. ") {
		return fmt.Errorf("tmux.session_prefix must not contain ':', '.' or spaces")
	}
	for _, entry := range cfg.PTY.Env {
		if key, _, ok := strings.Cut(entry, "="); !ok || key == "" {
			return fmt.Errorf("pty.env entry %q must be KEY=value", entry)
		}
	}
	if cfg.Locate.DefaultLimit < 1 {
		return fmt.Errorf("locate.default_limit must be at least 1")
	}
	return validateHTTPConfig(cfg.HTTP)
}

func validateSize(section string, cols, rows int) error {
	if cols < 1 || cols > maxScreenDim {
		return fmt.Errorf("%s.cols must be between 1 and %d", section, maxScreenDim)
	}
	if rows < 1 || rows > maxScreenDim {
		return fmt.Errorf("%s.rows must be between 1 and %d", section, maxScreenDim)
	}
	return nil
}

func validateHTTPConfig(cfg HTTPConfig) error {
	if cfg.Enabled && strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("http.addr is required when http.enabled is true")
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	if cfg.History < 0 {
		return fmt.Errorf("http.history must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Tmux.Binary = expandEnv(cfg.Tmux.Binary)
	cfg.Tmux.Socket = expandEnv(cfg.Tmux.Socket)
	cfg.HTTP.Addr = expandEnv(cfg.HTTP.Addr)
	for i, entry := range cfg.PTY.Env {
		cfg.PTY.Env[i] = expandEnv(entry)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
