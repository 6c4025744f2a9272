package export

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/style"
)

// SVGOptions controls the drawing.
type SVGOptions struct {
	Width      int     // default 1200
	Height     int     // default 1200
	Margin     int     // default 40
	NodeScale  float64 // pixels per unit of node val; default 4
	Labels     bool
	LabelDepth int // label nodes at most this deep; 0 labels every depth
}

func (o *SVGOptions) defaults() {
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 1200
	}
	if o.Margin <= 0 {
		o.Margin = 40
	}
	if o.NodeScale <= 0 {
		o.NodeScale = 4
	}
}

// WriteSVG draws g at the positions in layout. Nodes missing from the
// layout are skipped along with their links.
func WriteSVG(w io.Writer, g *explorer.RenderGraph, layout *Layout, opts SVGOptions) error {
	opts.defaults()
	pal := style.PaletteFor(g.Theme)

	cx := float64(opts.Width) / 2
	cy := float64(opts.Height) / 2
	avail := math.Min(cx, cy) - float64(opts.Margin)
	scale := 1.0
	if layout.Radius() > 0 && avail > 0 {
		scale = avail / layout.Radius()
	}
	project := func(id string) (int, int, bool) {
		p, ok := layout.Position(id)
		if !ok {
			return 0, 0, false
		}
		return int(math.Round(cx + p.X*scale)), int(math.Round(cy + p.Y*scale)), true
	}

	cw := &countingWriter{w: w}
	canvas := svg.New(cw)
	canvas.Start(opts.Width, opts.Height)
	canvas.Title("codevis")
	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:"+string(pal.Background))

	canvas.Gid("links")
	for _, l := range g.Links {
		x1, y1, ok1 := project(l.Source)
		x2, y2, ok2 := project(l.Target)
		if !ok1 || !ok2 {
			continue
		}
		canvas.Line(x1, y1, x2, y2, fmt.Sprintf("stroke:%s;stroke-width:1;stroke-opacity:0.6", pal.Link))
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range g.Nodes {
		x, y, ok := project(n.ID)
		if !ok {
			continue
		}
		r := int(math.Max(2, math.Round(n.Val*opts.NodeScale)))
		stroke := ""
		if n.Kind == "directory" && n.Collapsed {
			stroke = fmt.Sprintf(";stroke:%s;stroke-width:1", pal.Text)
		}
		canvas.Circle(x, y, r, "fill:"+n.Color+stroke)
		if opts.Labels && (opts.LabelDepth == 0 || n.Depth <= opts.LabelDepth) {
			label := n.Name
			if label == "" {
				label = "/"
			}
			canvas.Text(x+r+3, y+4, label, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", pal.Text))
		}
	}
	canvas.Gend()
	canvas.End()

	return cw.err
}

// countingWriter remembers the first write error; svgo does not report
// errors itself.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil {
		c.err = fmt.Errorf("writing svg: %w", err)
	}
	return n, err
}
