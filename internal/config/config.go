// Package config loads codevis settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Mr-Dark-debug/codevis/internal/style"
)

// Environment overrides.
const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvTheme       = "CODEVIS_THEME"
)

// Config is the full settings tree. Zero values are filled by Default.
type Config struct {
	Theme      string   `yaml:"theme"`
	Extensions []string `yaml:"extensions"`

	Focus  FocusConfig  `yaml:"focus"`
	GitHub GitHubConfig `yaml:"github"`
	Cache  CacheConfig  `yaml:"cache"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// FocusConfig tunes the camera fly-to.
type FocusConfig struct {
	Distance   float64 `yaml:"distance"`
	DurationMs int     `yaml:"duration_ms"`
}

// GitHubConfig configures the tree-listing client.
type GitHubConfig struct {
	APIURL  string        `yaml:"api_url"`
	Token   string        `yaml:"token"`
	Ref     string        `yaml:"ref"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig configures the manifest cache. Path ":memory:" keeps the
// cache for the life of the process only.
type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// ServerConfig configures the HTTP daemon.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	Watch  bool   `yaml:"watch"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Theme:      string(style.ThemeDark),
		Extensions: append([]string(nil), style.DefaultExtensions...),
		Focus: FocusConfig{
			Distance:   40,
			DurationMs: 1000,
		},
		GitHub: GitHubConfig{
			APIURL:  "https://api.github.com",
			Ref:     "main",
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Path: ":memory:",
			TTL:  10 * time.Minute,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:9800",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// DefaultPath returns ~/.codevis/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".codevis", "config.yaml")
	}
	return filepath.Join(home, ".codevis", "config.yaml")
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if tok := os.Getenv(EnvGitHubToken); tok != "" {
		c.GitHub.Token = tok
	}
	if th := os.Getenv(EnvTheme); th != "" {
		c.Theme = th
	}
}

// Validate rejects settings the rest of the program cannot honor.
func (c *Config) Validate() error {
	if _, err := style.ParseTheme(c.Theme); err != nil {
		return err
	}
	for _, ext := range c.Extensions {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.Contains(ext, "/") {
			return fmt.Errorf("extension %q must look like \".ts\"", ext)
		}
	}
	if c.Focus.Distance <= 0 {
		return fmt.Errorf("focus.distance must be positive, got %v", c.Focus.Distance)
	}
	if c.Focus.DurationMs < 0 {
		return fmt.Errorf("focus.duration_ms must not be negative, got %d", c.Focus.DurationMs)
	}
	if c.GitHub.Timeout < 0 {
		return fmt.Errorf("github.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}

// ThemeValue returns the parsed theme. Call after Validate.
func (c *Config) ThemeValue() style.Theme {
	th, err := style.ParseTheme(c.Theme)
	if err != nil {
		return style.ThemeDark
	}
	return th
}
