// codevis daemon: the HTTP service a browser force-graph renderer drives.
//
// Usage:
//
//	codevis-daemon [flags]
//
// Flags:
//
//	--listen     HTTP address (default: server.listen from the config)
//	--repo       GitHub repository to load at start
//	--manifest   Manifest file to load at start
//	--dir        Local directory to load at start
//	--watch      Reload --manifest whenever it changes on disk
//	--config     Config file (default: ~/.codevis/config.yaml)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/Mr-Dark-debug/codevis/internal/app"
	"github.com/Mr-Dark-debug/codevis/internal/logging"
	"github.com/Mr-Dark-debug/codevis/internal/server"
)

// CLI holds the daemon flags.
type CLI struct {
	Source   app.SourceFlags `embed:""`
	Listen   string          `help:"HTTP listen address."`
	Watch    bool            `help:"Reload --manifest whenever it changes on disk."`
	Config   string          `help:"Config file." type:"path" placeholder:"FILE"`
	Theme    string          `help:"Default theme for /api/graph (dark or light)."`
	LogLevel string          `help:"Log level." enum:"debug,info,warn,error," default:""`
	Version  bool            `help:"Print version information and exit."`
}

func (c *CLI) Run() error {
	if c.Version {
		fmt.Println(app.VersionString("codevis-daemon"))
		return nil
	}

	env, err := app.Setup(app.Options{
		ConfigPath: c.Config,
		LogLevel:   c.LogLevel,
		Theme:      c.Theme,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := server.DefaultConfig()
	cfg.ListenAddr = env.Config.Server.Listen
	if c.Listen != "" {
		cfg.ListenAddr = c.Listen
	}
	cfg.Theme = env.Theme
	if c.Watch || env.Config.Server.Watch {
		if c.Source.Manifest == "" {
			return errors.New("--watch requires --manifest")
		}
		cfg.WatchManifest = c.Source.Manifest
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(cfg, env.Controller, env.Resolver)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}

	// A watched manifest is loaded by the server itself.
	if !c.Source.Empty() && cfg.WatchManifest == "" {
		src, err := env.Resolver.Resolve(c.Source.Selector())
		if err != nil {
			srv.Stop()
			return err
		}
		if _, err := env.Controller.Load(ctx, src); err != nil {
			logging.Error("initial load failed", logging.Source(src.Name()), logging.Err(err))
		}
	}

	// Print startup banner
	fmt.Println()
	fmt.Println("  CODEVIS DAEMON")
	fmt.Println()
	fmt.Printf("  API:     http://%s/api/graph\n", srv.Addr())
	fmt.Printf("  Metrics: http://%s/metrics\n", srv.Addr())
	if name, _ := env.Controller.Source(); name != "" {
		fmt.Printf("  Source:  %s\n", name)
	}
	fmt.Printf("  Cache:   %s\n", env.Store.Path())
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop.")
	fmt.Println()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n  Shutting down gracefully...")
	cancel()
	if err := srv.Stop(); err != nil {
		logging.Error("error during shutdown", logging.Err(err))
	}

	fmt.Println("  Done.")
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("codevis-daemon"),
		kong.Description("Serve a repository graph to a browser renderer over HTTP."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
