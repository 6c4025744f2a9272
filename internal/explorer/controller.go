// Package explorer holds the view controller: the loaded tree, its collapse
// state, the published snapshot, the current selection, and the camera
// math adapters use to fly to a node.
//
// A Controller is safe for concurrent use. Snapshots are published through
// an atomic pointer and are never modified after publication, so readers
// always see a whole snapshot.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/logging"
	"github.com/Mr-Dark-debug/codevis/internal/style"
)

// Controller errors.
var (
	ErrNoTree      = errors.New("no tree loaded")
	ErrBusy        = errors.New("a manifest load is in progress")
	ErrSuperseded  = errors.New("load superseded by a newer request")
	ErrNoSelection = errors.New("no node selected")
)

// Fetcher supplies a manifest. manifest.Source implementations satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context) ([]graph.Entry, error)
	Name() string
}

// Options configures a Controller.
type Options struct {
	Styler *style.Styler // nil selects style.NewStyler(nil)
	Camera Camera        // zero selects DefaultCamera
}

// LoadResult describes a completed load.
type LoadResult struct {
	Source   string
	Nodes    int
	Warnings []graph.StructuralWarning
	Duration time.Duration
	Snapshot *graph.Snapshot
}

// NodeInfo is what adapters show for a single node.
type NodeInfo struct {
	graph.Meta
	ChildCount int  `json:"child_count"`
	Depth      int  `json:"depth"`
	Collapsed  bool `json:"collapsed"`
	Visible    bool `json:"visible"`
}

// Controller owns one tree at a time and its view state.
type Controller struct {
	styler *style.Styler
	camera Camera

	mu        sync.Mutex
	tree      *graph.Tree
	exp       graph.Expansion
	source    string
	loadedAt  time.Time
	selected  string
	hasSel    bool
	loadSeq   uint64
	cancelRun context.CancelFunc // non-nil while a load is outstanding

	snap atomic.Pointer[graph.Snapshot]
}

// New creates an empty controller.
func New(opts Options) *Controller {
	if opts.Styler == nil {
		opts.Styler = style.NewStyler(nil)
	}
	if opts.Camera == (Camera{}) {
		opts.Camera = DefaultCamera()
	}
	return &Controller{styler: opts.Styler, camera: opts.Camera}
}

// Styler returns the styler used by Render.
func (c *Controller) Styler() *style.Styler { return c.styler }

// Camera returns the camera settings.
func (c *Controller) Camera() Camera { return c.camera }

// ============================================================
// Loading
// ============================================================

// Load fetches a manifest, builds its tree and swaps it in. The previous
// tree stays published until the new one is complete, and stays in place
// if the load fails.
//
// Last request wins: starting a load cancels any load still in flight,
// whose call then returns ErrSuperseded. While a load is outstanding,
// state transitions return ErrBusy.
func (c *Controller) Load(ctx context.Context, src Fetcher) (*LoadResult, error) {
	c.mu.Lock()
	if c.cancelRun != nil {
		c.cancelRun()
	}
	c.loadSeq++
	seq := c.loadSeq
	runCtx, cancel := context.WithCancel(ctx)
	c.cancelRun = cancel
	c.mu.Unlock()
	defer cancel()

	start := time.Now()
	logging.Info("loading manifest", logging.Source(src.Name()))

	entries, err := src.Fetch(runCtx)
	var tree *graph.Tree
	if err == nil {
		tree, err = graph.BuildTree(entries)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.loadSeq {
		logging.Debug("discarding superseded load", logging.Source(src.Name()))
		return nil, ErrSuperseded
	}
	c.cancelRun = nil

	if err != nil {
		logging.Warn("manifest load failed", logging.Source(src.Name()), logging.Err(err))
		return nil, fmt.Errorf("loading %s: %w", src.Name(), err)
	}

	exp := tree.InitialExpansion()
	snap := graph.Prune(exp)

	c.tree = tree
	c.exp = exp
	c.source = src.Name()
	c.loadedAt = time.Now()
	c.selected, c.hasSel = "", false
	c.snap.Store(snap)

	res := &LoadResult{
		Source:   c.source,
		Nodes:    tree.Len(),
		Warnings: tree.Warnings(),
		Duration: time.Since(start),
		Snapshot: snap,
	}
	logging.Info("manifest loaded",
		logging.Source(res.Source),
		logging.Int("nodes", res.Nodes),
		logging.Int("warnings", len(res.Warnings)),
		logging.Duration("duration", res.Duration),
	)
	for _, w := range res.Warnings {
		logging.Debug("structural warning", logging.String("path", w.Path), logging.String("reason", w.Reason))
	}
	return res, nil
}

// Loading reports whether a load is outstanding.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelRun != nil
}

// ============================================================
// State transitions
// ============================================================

// transition applies fn to the current expansion and publishes the result.
// Callers hold no lock.
func (c *Controller) transition(fn func(graph.Expansion) (graph.Expansion, error)) (*graph.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelRun != nil {
		return nil, ErrBusy
	}
	if c.tree == nil {
		return nil, ErrNoTree
	}
	next, err := fn(c.exp)
	if err != nil {
		return nil, err
	}
	snap := graph.Prune(next)
	c.exp = next
	c.snap.Store(snap)
	return snap, nil
}

// ToggleNode flips the collapse state of id and publishes the new
// snapshot.
func (c *Controller) ToggleNode(id string) (*graph.Snapshot, error) {
	snap, err := c.transition(func(x graph.Expansion) (graph.Expansion, error) {
		return x.Toggle(id)
	})
	if err != nil {
		return nil, err
	}
	logging.Debug("node toggled", logging.NodeID(id), logging.Int("visible", len(snap.Nodes)))
	return snap, nil
}

// Expand expands id, leaving it expanded if it already was.
func (c *Controller) Expand(id string) (*graph.Snapshot, error) {
	return c.transition(func(x graph.Expansion) (graph.Expansion, error) {
		return x.Expand(id)
	})
}

// Reveal expands every ancestor of id so it becomes visible.
func (c *Controller) Reveal(id string) (*graph.Snapshot, error) {
	return c.transition(func(x graph.Expansion) (graph.Expansion, error) {
		return x.Reveal(id)
	})
}

// CollapseAll returns to the initial view.
func (c *Controller) CollapseAll() (*graph.Snapshot, error) {
	return c.transition(func(x graph.Expansion) (graph.Expansion, error) {
		return x.CollapseAll(), nil
	})
}

// ============================================================
// Reads
// ============================================================

// Snapshot returns the published snapshot, or nil before the first load.
func (c *Controller) Snapshot() *graph.Snapshot {
	return c.snap.Load()
}

// Tree returns the loaded tree, or nil.
func (c *Controller) Tree() *graph.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// Source returns the name of the source the current tree came from and
// when it was loaded.
func (c *Controller) Source() (string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source, c.loadedAt
}

// Warnings returns the structural warnings of the loaded tree.
func (c *Controller) Warnings() []graph.StructuralWarning {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return nil
	}
	return c.tree.Warnings()
}

// Render decorates the published snapshot for theme t.
func (c *Controller) Render(t style.Theme) *RenderGraph {
	return Render(c.Snapshot(), c.styler, t)
}

// Info describes node id under the current view state.
func (c *Controller) Info(id string) (NodeInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infoLocked(id)
}

func (c *Controller) infoLocked(id string) (NodeInfo, error) {
	if c.tree == nil {
		return NodeInfo{}, ErrNoTree
	}
	n, ok := c.tree.Lookup(id)
	if !ok {
		return NodeInfo{}, &graph.UnknownNodeError{ID: id}
	}
	info := NodeInfo{
		Meta:       n.Meta,
		ChildCount: len(n.Children),
		Depth:      n.Depth(),
		Collapsed:  c.exp.Collapsed(n),
		Visible:    true,
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if c.exp.Collapsed(p) {
			info.Visible = false
			break
		}
	}
	return info, nil
}

// Select marks id as the selected node.
func (c *Controller) Select(id string) (NodeInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, err := c.infoLocked(id)
	if err != nil {
		return NodeInfo{}, err
	}
	c.selected, c.hasSel = id, true
	logging.Debug("node selected", logging.NodeID(id))
	return info, nil
}

// Selected returns the selected node.
func (c *Controller) Selected() (NodeInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSel {
		return NodeInfo{}, ErrNoSelection
	}
	return c.infoLocked(c.selected)
}

// ClearSelection forgets the selected node.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selected, c.hasSel = "", false
	c.mu.Unlock()
}

// ============================================================
// Camera
// ============================================================

// ComputeFocusTarget returns the camera move that centers node id, whose
// rendered position is nodePos. camera is the current camera position;
// it only matters for the root, which gets the home view on the camera's
// side of the scene. Any other node at the origin yields *FocusError.
func (c *Controller) ComputeFocusTarget(id string, nodePos, camera r3.Vec) (FocusTarget, error) {
	c.mu.Lock()
	tree := c.tree
	c.mu.Unlock()

	if tree == nil {
		return FocusTarget{}, ErrNoTree
	}
	if _, ok := tree.Lookup(id); !ok {
		return FocusTarget{}, &graph.UnknownNodeError{ID: id}
	}
	if id == graph.RootID && r3.Norm(nodePos) == 0 {
		return c.camera.FocusRoot(camera), nil
	}
	return c.camera.Focus(id, nodePos)
}

// ZoomIn returns the zoom-in camera move.
func (c *Controller) ZoomIn(camera, lookAt r3.Vec) FocusTarget {
	return c.camera.ZoomIn(camera, lookAt)
}

// ZoomOut returns the zoom-out camera move.
func (c *Controller) ZoomOut(camera, lookAt r3.Vec) FocusTarget {
	return c.camera.ZoomOut(camera, lookAt)
}

// ResetCamera returns the home view.
func (c *Controller) ResetCamera() FocusTarget {
	return c.camera.Reset()
}
