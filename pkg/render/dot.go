package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/solution"
)

// DefaultSize is the side of the drawing area in points.
const DefaultSize = 600.0

// Options configures map rendering.
type Options struct {
	// Size is the side of the square drawing area in points. Zero means
	// DefaultSize.
	Size float64

	// Labels adds populations to node labels and distances to edges.
	Labels bool
}

var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f", "#edc948",
	"#b07aa1", "#ff9da7", "#9c755f", "#bab0ac", "#86bcb6", "#d37295",
}

// ToDOT converts an instance and a solution to Graphviz DOT. Communities not
// covered by sol are drawn grey. A nil sol draws the bare instance.
func ToDOT(inst *instance.Instance, sol *solution.Solution, opts Options) string {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	place := projector(inst.Points(), size)

	color := make(map[int]string)
	isCenter := make(map[int]bool)
	if sol != nil {
		for k, c := range sol.Deployed {
			isCenter[c] = true
			for _, j := range sol.Assignments[c] {
				color[j] = palette[k%len(palette)]
			}
			color[c] = palette[k%len(palette)]
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "graph %q {\n", nameOr(inst.Name, "siteplan"))
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fontsize=10, fixedsize=true, width=0.35, fontcolor=white];\n")
	buf.WriteString("  edge [color=\"#888888\", penwidth=0.8];\n")
	buf.WriteString("\n")

	for _, c := range inst.Communities {
		id := c.Index + 1
		x, y := place(c.Location)
		attrs := fmt.Sprintf("pos=\"%.2f,%.2f!\"", x, y)

		label := fmt.Sprint(id)
		if opts.Labels {
			label = fmt.Sprintf("%d\\n%d", id, c.Population)
		}
		attrs += fmt.Sprintf(", label=\"%s\"", label)

		fill, ok := color[id]
		if !ok {
			fill = "#cccccc"
		}
		attrs += fmt.Sprintf(", fillcolor=%q", fill)
		if isCenter[id] {
			attrs += ", shape=doublecircle, penwidth=2"
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", id, attrs)
	}

	if sol != nil {
		buf.WriteString("\n")
		for _, c := range sol.Deployed {
			if c < 1 || c > inst.N() {
				continue
			}
			for _, j := range sol.Assignments[c] {
				if j == c || j < 1 || j > inst.N() {
					continue
				}
				if opts.Labels {
					d := dist(inst.Communities[c-1].Location, inst.Communities[j-1].Location)
					fmt.Fprintf(&buf, "  n%d -- n%d [label=\"%.1f\", fontsize=8];\n", c, j, d)
					continue
				}
				fmt.Fprintf(&buf, "  n%d -- n%d;\n", c, j)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// projector maps instance coordinates into a size×size box, keeping the
// aspect ratio.
func projector(pts []instance.Point, size float64) func(instance.Point) (float64, float64) {
	if len(pts) == 0 {
		return func(instance.Point) (float64, float64) { return 0, 0 }
	}
	minX, maxX, minY, maxY := pts[0].X, pts[0].X, pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	span := math.Max(maxX-minX, maxY-minY)
	scale := 1.0
	if span > 0 {
		scale = size / span
	}
	return func(p instance.Point) (float64, float64) {
		return (p.X - minX) * scale, (p.Y - minY) * scale
	}
}

func dist(a, b instance.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
