package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/siteplan/pkg/errors"
)

// Format constants for output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
}

// Render converts DOT source to the requested format.
func Render(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return RenderSVG(ctx, dot)
	case FormatPNG:
		return RenderPNG(ctx, dot)
	case FormatPDF:
		svg, err := RenderSVG(ctx, dot)
		if err != nil {
			return nil, err
		}
		return ToPDF(ctx, svg)
	default:
		return nil, fmt.Errorf("unsupported format %q (must be one of: dot, svg, png, pdf)", format)
	}
}

// RenderSVG lays out DOT with neato and renders it to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return renderGraphviz(ctx, dot, graphviz.SVG)
}

// RenderPNG lays out DOT with neato and renders it to PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderGraphviz(ctx, dot, graphviz.PNG)
}

func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// ToPDF converts an SVG map to PDF with rsvg-convert from librsvg. A missing
// converter is reported as UNSUPPORTED.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	bin, err := exec.LookPath("rsvg-convert")
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "pdf output needs rsvg-convert (librsvg) on PATH")
	}

	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--format", "pdf")
	cmd.Stdin = bytes.NewReader(svg)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rsvg-convert: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out.Bytes(), nil
}
