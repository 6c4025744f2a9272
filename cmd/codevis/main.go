// codevis CLI: one-shot operations on a repository manifest.
//
// Usage:
//
//	codevis <command> [flags]
//
// Commands:
//
//	analyze       Summarize a repository tree
//	snapshot      Print the visible graph for a collapse state
//	export        Draw the visible graph as SVG
//	focus         Compute the camera move to a node
//	cache list    List cached manifests
//	cache clear   Remove cached manifests
//	version       Print version information
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Mr-Dark-debug/codevis/internal/analysis"
	"github.com/Mr-Dark-debug/codevis/internal/app"
	"github.com/Mr-Dark-debug/codevis/internal/export"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/logging"
	"github.com/Mr-Dark-debug/codevis/internal/style"
	"github.com/Mr-Dark-debug/codevis/pkg/timeutil"
)

// Globals are accepted by every command.
type Globals struct {
	Config   string `help:"Config file (default ~/.codevis/config.yaml)." type:"path" placeholder:"FILE"`
	Theme    string `help:"Override the configured theme (dark or light)."`
	LogLevel string `help:"Log level." default:"warn" enum:"debug,info,warn,error"`
}

// setup builds the environment with CLI logging on stderr.
func (g *Globals) setup() (*app.Env, error) {
	return app.Setup(app.Options{
		ConfigPath: g.Config,
		LogOutput:  "stderr",
		LogLevel:   g.LogLevel,
		Theme:      g.Theme,
	})
}

// CLI is the top-level command structure.
type CLI struct {
	Globals `embed:""`

	Analyze  AnalyzeCmd  `cmd:"" help:"Summarize a repository tree."`
	Snapshot SnapshotCmd `cmd:"" help:"Print the visible graph for a collapse state."`
	Export   ExportCmd   `cmd:"" help:"Draw the visible graph as SVG."`
	Focus    FocusCmd    `cmd:"" help:"Compute the camera move to a node at its layout position."`
	Cache    CacheCmd    `cmd:"" help:"Inspect the manifest cache."`
	Version  VersionCmd  `cmd:"" help:"Print version information."`
}

// ────────────────────────────────────────────────────────────
// Shared loading
// ────────────────────────────────────────────────────────────

// ViewFlags describe a collapse state on top of the initial view.
type ViewFlags struct {
	Expand []string `help:"Directory to expand (repeatable)." placeholder:"ID"`
	Reveal []string `help:"Node to make visible by expanding its ancestors (repeatable)." placeholder:"ID"`
}

// loadView loads the selected manifest into env's controller and applies
// view.
func loadView(env *app.Env, src app.SourceFlags, view ViewFlags) (*graph.Snapshot, error) {
	if src.Empty() {
		return nil, errors.New("one of --repo, --manifest or --dir is required")
	}
	source, err := env.Resolver.Resolve(src.Selector())
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := env.Controller.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logging.Warn("structural warning", logging.String("path", w.Path), logging.String("reason", w.Reason))
	}

	snap := res.Snapshot
	for _, id := range view.Expand {
		if snap, err = env.Controller.Expand(id); err != nil {
			return nil, fmt.Errorf("expanding %q: %w", id, err)
		}
	}
	for _, id := range view.Reveal {
		if snap, err = env.Controller.Reveal(id); err != nil {
			return nil, fmt.Errorf("revealing %q: %w", id, err)
		}
	}
	return snap, nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// ────────────────────────────────────────────────────────────
// Commands
// ────────────────────────────────────────────────────────────

// AnalyzeCmd prints tree statistics.
type AnalyzeCmd struct {
	Source app.SourceFlags `embed:""`
	Format string          `help:"Output format." default:"markdown" enum:"markdown,json"`
	Top    int             `help:"Rows in the extension table." default:"10"`
}

func (c *AnalyzeCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	start := time.Now()
	if _, err := loadView(env, c.Source, ViewFlags{}); err != nil {
		return err
	}
	name, _ := env.Controller.Source()
	report := analysis.Analyze(env.Controller.Tree(), analysis.Options{
		Source:       name,
		LoadDuration: time.Since(start),
		Styler:       env.Controller.Styler(),
		TopN:         c.Top,
	})

	if c.Format == "json" {
		return writeJSON(os.Stdout, report)
	}
	fmt.Print(analysis.FormatReport(report))
	return nil
}

// SnapshotCmd prints the visible nodes and edges.
type SnapshotCmd struct {
	Source app.SourceFlags `embed:""`
	View   ViewFlags       `embed:""`
	Render bool            `help:"Print the renderer document (colors and sizes) instead of the raw snapshot."`
}

func (c *SnapshotCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	snap, err := loadView(env, c.Source, c.View)
	if err != nil {
		return err
	}
	if c.Render {
		return writeJSON(os.Stdout, env.Controller.Render(env.Theme))
	}
	return writeJSON(os.Stdout, snap)
}

// ExportCmd writes an SVG drawing of the visible graph.
type ExportCmd struct {
	Source     app.SourceFlags `embed:""`
	View       ViewFlags       `embed:""`
	Output     string          `short:"o" help:"Output file; - for stdout." default:"-"`
	Width      int             `help:"Canvas width in pixels." default:"1200"`
	Height     int             `help:"Canvas height in pixels." default:"1200"`
	Labels     bool            `help:"Draw node names." default:"true" negatable:""`
	LabelDepth int             `help:"Only label nodes at most this deep; 0 labels all."`
	Spacing    float64         `help:"Distance between depth rings." default:"60"`
}

func (c *ExportCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	snap, err := loadView(env, c.Source, c.View)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if c.Output != "-" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	err = export.WriteSVG(w, env.Controller.Render(env.Theme), export.RadialLayout(snap, c.Spacing), export.SVGOptions{
		Width:      c.Width,
		Height:     c.Height,
		Labels:     c.Labels,
		LabelDepth: c.LabelDepth,
	})
	if err != nil {
		return err
	}
	if c.Output != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %d nodes to %s\n", len(snap.Nodes), c.Output)
	}
	return nil
}

// FocusCmd computes the camera target for a node, placing nodes with the
// same radial layout export uses.
type FocusCmd struct {
	Source  app.SourceFlags `embed:""`
	View    ViewFlags       `embed:""`
	ID      string          `arg:"" optional:"" help:"Node id (slash path); omit for the root."`
	Camera  []float64       `help:"Current camera position x,y,z." default:"0,0,200"`
	Spacing float64         `help:"Distance between depth rings." default:"60"`
}

func (c *FocusCmd) Run(g *Globals) error {
	if len(c.Camera) != 3 {
		return fmt.Errorf("--camera takes three coordinates, got %d", len(c.Camera))
	}

	env, err := g.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	if c.ID != "" {
		c.View.Reveal = append(c.View.Reveal, c.ID)
	}
	snap, err := loadView(env, c.Source, c.View)
	if err != nil {
		return err
	}

	pos, ok := export.RadialLayout(snap, c.Spacing).Position(c.ID)
	if !ok {
		return fmt.Errorf("node %q is not visible", c.ID)
	}
	camera := r3.Vec{X: c.Camera[0], Y: c.Camera[1], Z: c.Camera[2]}
	ft, err := env.Controller.ComputeFocusTarget(c.ID, pos, camera)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, ft)
}

// CacheCmd groups cache maintenance.
type CacheCmd struct {
	List  CacheListCmd  `cmd:"" help:"List cached manifests, newest first."`
	Clear CacheClearCmd `cmd:"" help:"Remove cached manifests."`
}

// CacheListCmd prints cached manifest headers.
type CacheListCmd struct {
	Limit int `help:"Maximum rows." default:"50"`
}

func (c *CacheListCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	if env.Store.Path() == ":memory:" {
		fmt.Fprintln(os.Stderr, "The cache is in memory; set cache.path in the config to keep manifests between runs.")
	}
	infos, err := env.Store.ListManifests(c.Limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tENTRIES\tTRUNCATED\tFETCHED")
	for _, m := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s (%s)\n", m.Key, timeutil.FormatCount(m.EntryCount), m.Truncated,
			timeutil.FormatTimestampFull(m.FetchedAt), timeutil.RelativeTime(m.FetchedAt))
	}
	return tw.Flush()
}

// CacheClearCmd deletes one manifest or everything older than a cutoff.
type CacheClearCmd struct {
	Key       string        `arg:"" optional:"" help:"Manifest key to remove, e.g. github:owner/repo@main."`
	OlderThan time.Duration `help:"Remove manifests fetched longer ago than this; 0 removes all." default:"0s"`
}

func (c *CacheClearCmd) Run(g *Globals) error {
	env, err := g.setup()
	if err != nil {
		return err
	}
	defer env.Close()

	if c.Key != "" {
		if err := env.Store.DeleteManifest(c.Key); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", c.Key)
		return nil
	}
	n, err := env.Store.Purge(time.Now().Add(-c.OlderThan))
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d cached manifests\n", n)
	return nil
}

// VersionCmd prints build information.
type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println(app.VersionString("codevis"))
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("codevis"),
		kong.Description("Explore a repository as a collapsible graph. Themes: "+string(style.ThemeDark)+", "+string(style.ThemeLight)+"."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
