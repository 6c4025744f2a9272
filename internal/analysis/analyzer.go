// Package analysis computes deterministic statistics over a built tree:
// shape (size, depth, fan-out), the extension mix, structural warnings, and
// directories whose fan-out is a statistical outlier.
//
// Everything here is a single pass over graph.Tree plus sorting; nothing
// performs I/O.
package analysis

import (
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/style"
	"github.com/Mr-Dark-debug/codevis/pkg/timeutil"
)

// Options tunes Analyze.
type Options struct {
	Source       string
	LoadDuration time.Duration
	Styler       *style.Styler // nil selects style.NewStyler(nil)
	TopN         int           // rows kept in the extension table; default 10
}

// ============================================================
// Shape
// ============================================================

// DirStat describes one directory by its immediate fan-out.
type DirStat struct {
	Path     string `json:"path"`
	Children int    `json:"children"`
}

// ExtCount is one row of the extension histogram.
type ExtCount struct {
	Ext   string `json:"ext"` // "" for files without an extension
	Count int    `json:"count"`
}

// ============================================================
// Fan-out Hotspot Detection
// ============================================================

// Hotspot is a directory whose child count is far above the mean.
type Hotspot struct {
	DirStat
	ZScore   float64 `json:"z_score"`
	Severity string  `json:"severity"` // "low", "medium", "high"
}

// detectHotspots calculates the Z-score of fan-out across all non-empty
// directories. A Z-score > 2.0 is "medium" and > 3.0 is "high".
func detectHotspots(dirs []DirStat) []Hotspot {
	if len(dirs) < 2 {
		return nil
	}

	var sum, sumSq float64
	for _, d := range dirs {
		v := float64(d.Children)
		sum += v
		sumSq += v * v
	}
	n := float64(len(dirs))
	mean := sum / n
	stddev := math.Sqrt(sumSq/n - mean*mean)
	if stddev == 0 {
		return nil
	}

	var hotspots []Hotspot
	for _, d := range dirs {
		z := (float64(d.Children) - mean) / stddev
		if z <= 1.5 {
			continue
		}
		severity := "low"
		if z > 3.0 {
			severity = "high"
		} else if z > 2.0 {
			severity = "medium"
		}
		hotspots = append(hotspots, Hotspot{
			DirStat:  d,
			ZScore:   math.Round(z*100) / 100,
			Severity: severity,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].ZScore != hotspots[j].ZScore {
			return hotspots[i].ZScore > hotspots[j].ZScore
		}
		return hotspots[i].Path < hotspots[j].Path
	})
	return hotspots
}

// ============================================================
// Full Report
// ============================================================

// Report is the output of `codevis analyze`.
type Report struct {
	Source       string                    `json:"source,omitempty"`
	GeneratedAt  string                    `json:"generated_at"`
	LoadMs       int64                     `json:"load_ms"`
	Nodes        int                       `json:"nodes"`
	Files        int                       `json:"files"`
	Directories  int                       `json:"directories"` // root excluded
	TypedFiles   int                       `json:"typed_files"`
	MaxDepth     int                       `json:"max_depth"`
	DeepestPath  string                    `json:"deepest_path"`
	WidestDir    DirStat                   `json:"widest_dir"`
	Extensions   []ExtCount                `json:"extensions"`
	Hotspots     []Hotspot                 `json:"hotspots"`
	Warnings     []graph.StructuralWarning `json:"warnings"`
	WarningCount int                       `json:"warning_count"`
}

// Analyze walks the tree once and summarizes it.
func Analyze(t *graph.Tree, opts Options) *Report {
	if opts.Styler == nil {
		opts.Styler = style.NewStyler(nil)
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}

	r := &Report{
		Source:      opts.Source,
		GeneratedAt: time.Now().Format(time.RFC3339),
		LoadMs:      opts.LoadDuration.Milliseconds(),
		Nodes:       t.Len(),
		WidestDir:   DirStat{Path: graph.RootID, Children: len(t.Root().Children)},
	}

	exts := map[string]int{}
	var dirs []DirStat

	t.Walk(func(n *graph.Node) bool {
		d := n.Depth()
		if d > r.MaxDepth || (d == r.MaxDepth && d > 0 && n.ID < r.DeepestPath) {
			r.MaxDepth = d
			r.DeepestPath = n.ID
		}

		if n.Kind == graph.KindFile {
			r.Files++
			exts[path.Ext(n.Name)]++
			if opts.Styler.Typed(n.Name) {
				r.TypedFiles++
			}
			return true
		}

		if !n.IsRoot() {
			r.Directories++
		}
		if len(n.Children) > 0 {
			ds := DirStat{Path: n.ID, Children: len(n.Children)}
			dirs = append(dirs, ds)
			if ds.Children > r.WidestDir.Children {
				r.WidestDir = ds
			}
		}
		return true
	})

	r.Extensions = histogram(exts, opts.TopN)
	r.Hotspots = detectHotspots(dirs)
	r.Warnings = t.Warnings()
	r.WarningCount = len(r.Warnings)
	return r
}

// histogram sorts by count descending, then extension ascending, and keeps
// the first n rows.
func histogram(counts map[string]int, n int) []ExtCount {
	out := make([]ExtCount, 0, len(counts))
	for ext, c := range counts {
		out = append(out, ExtCount{Ext: ext, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Ext < out[j].Ext
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func displayPath(p string) string {
	if p == graph.RootID {
		return "/"
	}
	return p
}

func displayExt(e string) string {
	if e == "" {
		return "(none)"
	}
	return e
}

// FormatReport generates a human-readable markdown report.
func FormatReport(report *Report) string {
	var b strings.Builder

	b.WriteString("# codevis Analysis Report\n\n")
	if report.Source != "" {
		fmt.Fprintf(&b, "**Source:** `%s`\n", report.Source)
	}
	fmt.Fprintf(&b, "**Generated:** %s\n\n", report.GeneratedAt)

	b.WriteString("## Tree Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Nodes | %d |\n", report.Nodes)
	fmt.Fprintf(&b, "| Files | %d |\n", report.Files)
	fmt.Fprintf(&b, "| Directories | %d |\n", report.Directories)
	fmt.Fprintf(&b, "| Typed Files | %d |\n", report.TypedFiles)
	fmt.Fprintf(&b, "| Max Depth | %d |\n", report.MaxDepth)
	if report.DeepestPath != "" {
		fmt.Fprintf(&b, "| Deepest Path | `%s` |\n", report.DeepestPath)
	}
	fmt.Fprintf(&b, "| Widest Directory | `%s` (%d children) |\n", displayPath(report.WidestDir.Path), report.WidestDir.Children)
	if report.LoadMs > 0 {
		fmt.Fprintf(&b, "| Load Time | %s |\n", timeutil.FormatDuration(report.LoadMs))
	}
	b.WriteString("\n")

	if len(report.Extensions) > 0 {
		b.WriteString("## Extensions\n\n")
		b.WriteString("| Extension | Files | % |\n")
		b.WriteString("|-----------|-------|---|\n")
		for _, e := range report.Extensions {
			pct := 0.0
			if report.Files > 0 {
				pct = float64(e.Count) / float64(report.Files) * 100
			}
			fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", displayExt(e.Ext), e.Count, pct)
		}
		b.WriteString("\n")
	}

	if len(report.Hotspots) > 0 {
		b.WriteString("## Fan-out Hotspots\n\n")
		b.WriteString("| Directory | Children | Z-Score | Severity |\n")
		b.WriteString("|-----------|----------|---------|----------|\n")
		for _, h := range report.Hotspots {
			fmt.Fprintf(&b, "| `%s` | %d | %.2f | %s |\n", displayPath(h.Path), h.Children, h.ZScore, h.Severity)
		}
		b.WriteString("\n")
	}

	if report.WarningCount > 0 {
		b.WriteString("## Structural Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
