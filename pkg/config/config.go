// Package config loads the engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Recorder RecorderConfig `yaml:"recorder"`
	Replay   ReplayConfig   `yaml:"replay"`
	Executor ExecutorConfig `yaml:"executor"`
	Store    StoreConfig    `yaml:"store"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RecorderConfig configures the recording machine.
type RecorderConfig struct {
	TypeDebounceMS    int     `yaml:"typeDebounceMs"`
	MinScrollDistance float64 `yaml:"minScrollDistance"`
	CaptureScroll     bool    `yaml:"captureScroll"`
}

// TypeDebounce returns the debounce window as a duration.
func (c RecorderConfig) TypeDebounce() time.Duration {
	return time.Duration(c.TypeDebounceMS) * time.Millisecond
}

// ReplayConfig holds the default run options.
type ReplayConfig struct {
	Speed           float64 `yaml:"speed"`
	ErrorMode       string  `yaml:"errorMode"`
	MaxRetries      int     `yaml:"maxRetries"`
	ActionTimeoutMS int     `yaml:"actionTimeoutMs"`
}

// ActionTimeout returns the per-action timeout as a duration.
func (c ReplayConfig) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutMS) * time.Millisecond
}

// ExecutorConfig selects and configures the execution surface.
type ExecutorConfig struct {
	// Mode is "ws" (browser extension over WebSocket) or "rod" (local
	// browser driven by go-rod).
	Mode string `yaml:"mode"`

	WS  WSExecutorConfig  `yaml:"ws"`
	Rod RodExecutorConfig `yaml:"rod"`
}

// WSExecutorConfig configures the WebSocket bridge executor.
type WSExecutorConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	Token      string `yaml:"token"`
	TimeoutMS  int    `yaml:"timeoutMs"`
}

// RodExecutorConfig configures the go-rod executor.
type RodExecutorConfig struct {
	Headless   bool   `yaml:"headless"`
	BrowserURL string `yaml:"browserUrl"`
}

// StoreConfig configures recording persistence.
type StoreConfig struct {
	// Dir is the recordings directory; empty selects the in-memory store.
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: "127.0.0.1:8077"},
		Recorder: RecorderConfig{
			TypeDebounceMS:    500,
			MinScrollDistance: 100,
			CaptureScroll:     false,
		},
		Replay: ReplayConfig{
			Speed:           1.0,
			ErrorMode:       "pause",
			MaxRetries:      3,
			ActionTimeoutMS: 30000,
		},
		Executor: ExecutorConfig{
			Mode: "ws",
			WS: WSExecutorConfig{
				ListenAddr: "127.0.0.1:8765",
				TimeoutMS:  30000,
			},
			Rod: RodExecutorConfig{Headless: true},
		},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	switch c.Executor.Mode {
	case "ws", "rod":
	default:
		return fmt.Errorf("executor.mode must be ws or rod, got %q", c.Executor.Mode)
	}
	switch c.Replay.ErrorMode {
	case "fail", "skip", "retry", "pause":
	default:
		return fmt.Errorf("replay.errorMode must be one of fail/skip/retry/pause, got %q", c.Replay.ErrorMode)
	}
	if c.Replay.Speed <= 0 || c.Replay.Speed > 10 {
		return fmt.Errorf("replay.speed must be in (0, 10], got %v", c.Replay.Speed)
	}
	return nil
}
