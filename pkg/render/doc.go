// Package render draws an instance and its assignment as a map.
//
// Every community becomes a node pinned at its coordinates, colored by the
// center serving it. Deployed centers are drawn as double circles and each
// member is joined to its center by an edge. Layout is done by Graphviz's
// neato engine, which keeps the pinned positions.
//
// # Usage
//
//	dot := render.ToDOT(inst, sol, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//	png, err := render.RenderPNG(ctx, dot)
//
// [ToDOT] output can also be saved and processed with external Graphviz tools
// (neato -n2 -Tsvg).
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG and PNG
// rendering. PDF conversion requires librsvg (rsvg-convert).
package render
