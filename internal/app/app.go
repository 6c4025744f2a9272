// Package app wires configuration, logging, the manifest cache and the
// view controller together for the codevis binaries.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Mr-Dark-debug/codevis/internal/config"
	"github.com/Mr-Dark-debug/codevis/internal/database"
	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/logging"
	"github.com/Mr-Dark-debug/codevis/internal/manifest"
	"github.com/Mr-Dark-debug/codevis/internal/style"
)

// Build information, set with -ldflags at release time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionString formats the build information.
func VersionString(binary string) string {
	return fmt.Sprintf("%s v%s (commit: %s, built: %s)", binary, Version, GitCommit, BuildTime)
}

// SourceFlags selects one manifest location. Every binary embeds it.
type SourceFlags struct {
	Repo     string `help:"GitHub repository URL, e.g. https://github.com/owner/repo/tree/main." xor:"source"`
	Manifest string `help:"Manifest file (JSON or YAML)." type:"path" xor:"source"`
	Dir      string `help:"Local directory to walk." type:"path" xor:"source"`
}

// Selector converts the flags.
func (f SourceFlags) Selector() manifest.Selector {
	return manifest.Selector{Repo: f.Repo, Manifest: f.Manifest, Dir: f.Dir}
}

// Empty reports whether no source was given.
func (f SourceFlags) Empty() bool {
	return f.Repo == "" && f.Manifest == "" && f.Dir == ""
}

// Options tweaks Setup per binary.
type Options struct {
	ConfigPath string // "" selects config.DefaultPath
	LogOutput  string // overrides log.output when set
	LogLevel   string // overrides log.level when set
	Theme      string // overrides theme when set
}

// Env is everything a binary needs after startup.
type Env struct {
	Config     config.Config
	Theme      style.Theme
	Store      *database.DBService
	Resolver   *manifest.Resolver
	Controller *explorer.Controller
}

// Setup loads configuration, installs the global logger and opens the
// manifest cache. Callers must Close the returned Env.
func Setup(opts Options) (*Env, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.LogOutput != "" {
		cfg.Log.Output = opts.LogOutput
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Theme != "" {
		cfg.Theme = opts.Theme
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	}); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	store, err := openStore(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config: cfg,
		Theme:  cfg.ThemeValue(),
		Store:  store,
		Resolver: &manifest.Resolver{
			GitHub: manifest.GitHubOptions{
				APIURL:     cfg.GitHub.APIURL,
				Token:      cfg.GitHub.Token,
				DefaultRef: cfg.GitHub.Ref,
				Timeout:    cfg.GitHub.Timeout,
			},
			Cache:    store,
			CacheTTL: cfg.Cache.TTL,
		},
		Controller: explorer.New(explorer.Options{
			Styler: style.NewStyler(cfg.Extensions),
			Camera: explorer.Camera{
				FocusDistance:   cfg.Focus.Distance,
				FocusDurationMs: cfg.Focus.DurationMs,
				ZoomDurationMs:  explorer.DefaultZoomDurationMs,
				Home:            explorer.DefaultHome,
			},
		}),
	}
	logging.Debug("codevis configured",
		logging.String("config", path),
		logging.String("cache", store.Path()),
		logging.String("theme", string(env.Theme)),
	)
	return env, nil
}

// openStore opens the cache, creating its directory for file paths.
func openStore(path string) (*database.DBService, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	store, err := database.NewDBService(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest cache %s: %w", path, err)
	}
	return store, nil
}

// Close releases the cache and flushes the logger.
func (e *Env) Close() error {
	err := e.Store.Close()
	_ = logging.Sync()
	return err
}
