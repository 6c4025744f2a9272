// codevis TUI: interactive terminal explorer for repository trees.
//
// Usage:
//
//	codevis-tui [flags]
//
// Flags:
//
//	--repo       GitHub repository to open at start
//	--manifest   Manifest file to open at start
//	--dir        Local directory to open at start
//	--config     Config file (default: ~/.codevis/config.yaml)
//	--log        Log file (default: ~/.codevis/tui.log)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mr-Dark-debug/codevis/internal/app"
	"github.com/Mr-Dark-debug/codevis/internal/manifest"
	"github.com/Mr-Dark-debug/codevis/internal/tui"
)

// CLI holds the TUI flags.
type CLI struct {
	Source  app.SourceFlags `embed:""`
	Config  string          `help:"Config file." type:"path" placeholder:"FILE"`
	Theme   string          `help:"Start with this theme (dark or light)."`
	Log     string          `help:"Log file; the terminal itself is reserved for drawing." type:"path" placeholder:"FILE"`
	Version bool            `help:"Print version information and exit."`
}

func (c *CLI) Run() error {
	if c.Version {
		fmt.Println(app.VersionString("codevis-tui"))
		return nil
	}

	logPath := c.Log
	if logPath == "" {
		home, _ := os.UserHomeDir()
		logPath = filepath.Join(home, ".codevis", "tui.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	env, err := app.Setup(app.Options{
		ConfigPath: c.Config,
		LogOutput:  logPath,
		Theme:      c.Theme,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	var initial manifest.Source
	if !c.Source.Empty() {
		if initial, err = env.Resolver.Resolve(c.Source.Selector()); err != nil {
			return err
		}
	}

	model := tui.NewModel(tui.Options{
		Controller: env.Controller,
		Resolver:   env.Resolver,
		Store:      env.Store,
		Initial:    initial,
		Theme:      env.Theme,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("codevis-tui"),
		kong.Description("Explore a repository tree in the terminal."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
