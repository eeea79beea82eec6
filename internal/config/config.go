// Package config loads the client configuration from ~/.tada/config.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	// Base URL of the remote store.
	Server string `yaml:"server" mapstructure:"server"`

	// Per-request timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Where exports are saved as todos.csv.
	DownloadDir string `yaml:"download_dir" mapstructure:"download_dir"`

	// classic | neon | mono
	Theme string `yaml:"theme" mapstructure:"theme"`

	// refresh | optimistic
	Strategy string `yaml:"strategy" mapstructure:"strategy"`

	LogFile  string `yaml:"log_file" mapstructure:"log_file"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:      "http://localhost:8080",
		Timeout:     10 * time.Second,
		DownloadDir: ".",
		Theme:       "classic",
		Strategy:    "refresh",
		LogFile:     filepath.Join(Dir(), "tada.log"),
		LogLevel:    "info",
	}
}

// Dir is ~/.tada, or .tada when there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tada"
	}
	return filepath.Join(home, ".tada")
}

// Path is the default config file location.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load merges the file at path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path. Existing files are
// kept unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Marshal renders cfg as yaml.
func Marshal(cfg *Config) ([]byte, error) {
	out := struct {
		Server      string `yaml:"server"`
		Timeout     string `yaml:"timeout"`
		DownloadDir string `yaml:"download_dir"`
		Theme       string `yaml:"theme"`
		Strategy    string `yaml:"strategy"`
		LogFile     string `yaml:"log_file"`
		LogLevel    string `yaml:"log_level"`
	}{
		Server:      cfg.Server,
		Timeout:     cfg.Timeout.String(),
		DownloadDir: cfg.DownloadDir,
		Theme:       cfg.Theme,
		Strategy:    cfg.Strategy,
		LogFile:     cfg.LogFile,
		LogLevel:    cfg.LogLevel,
	}
	b, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	return b, nil
}

// Level maps LogLevel to a slog level; unknown values mean info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
