package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/ttypilot/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Backend       BackendConfig `mapstructure:"backend" yaml:"backend"`
	Tmux          TmuxConfig    `mapstructure:"tmux" yaml:"tmux"`
	PTY           PTYConfig     `mapstructure:"pty" yaml:"pty"`
	Memory        MemoryConfig  `mapstructure:"memory" yaml:"memory"`
	Locate        LocateConfig  `mapstructure:"locate" yaml:"locate"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	MCP           MCPConfig     `mapstructure:"mcp" yaml:"mcp"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Backend kinds.
const (
	BackendTmux   = "tmux"
	BackendPTY    = "pty"
	BackendMemory = "memory"
)

// BackendKinds lists the accepted backend.kind values.
var BackendKinds = []string{BackendTmux, BackendPTY, BackendMemory}

// BackendConfig selects and tunes the session backend.
type BackendConfig struct {
	Kind                  string `mapstructure:"kind" yaml:"kind"`
	CommandTimeoutSeconds int    `mapstructure:"command_timeout_seconds" yaml:"command_timeout_seconds"`
	SettleMillis          int    `mapstructure:"settle_millis" yaml:"settle_millis"`
}

// TmuxConfig configures the tmux backend.
type TmuxConfig struct {
	Binary        string `mapstructure:"binary" yaml:"binary"`
	SessionPrefix string `mapstructure:"session_prefix" yaml:"session_prefix"`
	Socket        string `mapstructure:"socket" yaml:"socket"`
	// AdoptSession re-attaches to a surviving prefixed session on start.
	AdoptSession bool `mapstructure:"adopt_session" yaml:"adopt_session"`
	Cols         int  `mapstructure:"cols" yaml:"cols"`
	Rows         int  `mapstructure:"rows" yaml:"rows"`
}

// PTYConfig configures the built-in pseudo-terminal backend.
type PTYConfig struct {
	Cols int    `mapstructure:"cols" yaml:"cols"`
	Rows int    `mapstructure:"rows" yaml:"rows"`
	Term string `mapstructure:"term" yaml:"term"`
	// Env holds extra KEY=value entries. Viper folds map keys to lower
	// case, so variables are listed rather than mapped.
	Env         []string `mapstructure:"env" yaml:"env"`
	GraceMillis int      `mapstructure:"grace_millis" yaml:"grace_millis"`
}

// MemoryConfig configures the in-process scripted backend.
type MemoryConfig struct {
	Cols     int      `mapstructure:"cols" yaml:"cols"`
	Rows     int      `mapstructure:"rows" yaml:"rows"`
	Programs []string `mapstructure:"programs" yaml:"programs"`
}

// LocateConfig controls the locate tool.
type LocateConfig struct {
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr"`
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
	History  int    `mapstructure:"history" yaml:"history"`
}

// MCPConfig configures the MCP stdio server.
type MCPConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// LoggingConfig controls log detail.
type LoggingConfig struct {
	LogArguments bool `mapstructure:"log_arguments" yaml:"log_arguments"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Backend: BackendConfig{
			Kind:                  BackendTmux,
			CommandTimeoutSeconds: 10,
			SettleMillis:          100,
		},
		Tmux: TmuxConfig{
			Binary:        "tmux",
			SessionPrefix: "ttypilot-",
			Socket:        "",
			AdoptSession:  false,
			Cols:          80,
			Rows:          24,
		},
		PTY: PTYConfig{
			Cols:        80,
			Rows:        24,
			Term:        "xterm-256color",
			Env:         []string{},
			GraceMillis: 2000,
		},
		Memory: MemoryConfig{
			Cols:     80,
			Rows:     24,
			Programs: []string{},
		},
		Locate: LocateConfig{
			DefaultLimit: schema.DefaultLocateLimit,
		},
		HTTP: HTTPConfig{
			Enabled:  false,
			Addr:     "127.0.0.1:27490",
			BasePath: "",
			History:  1000,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			LogArguments: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ttypilot", "config.yaml"), nil
}

// ServiceConfig derives the dispatcher settings.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.ServiceConfig{
		DefaultLocateLimit: c.Locate.DefaultLimit,
		LogArguments:       c.Logging.LogArguments,
	}
}

// CommandTimeout returns backend.command_timeout_seconds as a duration.
func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.Backend.CommandTimeoutSeconds) * time.Second
}

// Settle returns backend.settle_millis as a duration.
func (c Config) Settle() time.Duration {
	return time.Duration(c.Backend.SettleMillis) * time.Millisecond
}
