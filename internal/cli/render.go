package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/pipeline"
	"github.com/matzehuels/siteplan/pkg/render"
	"github.com/matzehuels/siteplan/pkg/solution"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string  // output base path; each format appends its extension
	formats  string  // comma-separated: dot, svg, png, pdf, json
	size     float64 // side of the drawing area in points
	labels   bool    // show populations and distances
	strategy string  // strategy used when no solution file is given
	noCache  bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{size: render.DefaultSize}

	cmd := &cobra.Command{
		Use:   "render <instance> [solution]",
		Short: "Draw an instance and its assignment",
		Long: `Draw the communities of an instance on a map, colored by the center that
serves them. Centers are drawn as boxes, and each community is joined to its
center by an edge.

Without a solution file the instance is solved first. Each format is written
to <output>.<format>.

Examples:
  siteplan render Instance_1.txt Sol_Instance_1.txt
  siteplan render -f svg,png --labels Instance_1.txt
  siteplan render -f dot -o map Instance_1.txt`,
		ValidArgsFunction: completeTextFiles,
		Args:              cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			solPath := ""
			if len(args) == 2 {
				solPath = args[1]
			}
			return c.runRender(cmd, args[0], solPath, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: instance name)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: dot, svg, png, pdf, json (default: svg)")
	cmd.Flags().Float64Var(&opts.size, "size", render.DefaultSize, "side of the drawing area in points")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "label populations and distances")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "strategy when solving first: backtrack, greedy")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, instPath, solPath string, opts renderOpts) error {
	ctx := cmd.Context()

	formats := parseFormats(opts.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	inst, err := runner.Load(ctx, instPath)
	if err != nil {
		return err
	}

	var sol *solution.Solution
	if solPath != "" {
		if sol, err = runner.LoadSolution(ctx, solPath); err != nil {
			return err
		}
	} else {
		res, err := c.solveOne(ctx, runner, instPath, opts.strategy)
		if err != nil {
			return err
		}
		sol = res.Solution
	}

	artifacts, err := runner.Render(ctx, inst, sol, formats, render.Options{Size: opts.size, Labels: opts.labels})
	if err != nil {
		return err
	}

	base := opts.output
	if base == "" {
		base = strings.TrimSuffix(instPath, filepath.Ext(instPath))
	}
	paths, err := writeArtifacts(base, artifacts)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s (%d centers)", inst.Name, len(sol.Deployed))
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// writeArtifacts writes each rendered format to base.<format> and returns the
// written paths sorted by name.
func writeArtifacts(base string, artifacts map[string][]byte) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory %s", dir)
		}
	}
	paths := make([]string, 0, len(artifacts))
	for format, data := range artifacts {
		path := base + "." + format
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths, nil
}
