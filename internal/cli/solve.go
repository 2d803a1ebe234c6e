package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/pipeline"
	"github.com/matzehuels/siteplan/pkg/solution"
)

// solveOpts holds the command-line flags for the solve command.
type solveOpts struct {
	strategy  string // assignment strategy (config default when empty)
	outDir    string // directory for Sol_ files (next to the instance when empty)
	stdout    bool   // print solutions instead of writing files
	noSummary bool   // omit the fairness summary after the objective line
	refresh   bool   // skip the cache lookup
	noCache   bool   // disable the cache entirely
	workers   int    // parallel searches (config default when zero)
}

// solveCommand creates the solve command.
func (c *CLI) solveCommand() *cobra.Command {
	var opts solveOpts

	cmd := &cobra.Command{
		Use:   "solve <instance>...",
		Short: "Assign communities to health centers",
		Long: `Assign every community of each instance to a health center.

The default backtrack strategy returns the first assignment that satisfies
coverage, the center limit, capacity and both fairness bounds. The greedy
strategy only guarantees coverage, the center limit and capacity.

Each solution is written as Sol_<instance> next to its instance, or into
--out. Several instances are solved in parallel.

Examples:
  siteplan solve Instance_1.txt
  siteplan solve --strategy greedy --out solutions/ Instance_*.txt
  siteplan solve --stdout Instance_1.txt`,
		ValidArgsFunction: completeTextFiles,
		Args:              cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSolve(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "assignment strategy: backtrack (default), greedy")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "directory for solution files (default: next to each instance)")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "print solutions to stdout instead of writing files")
	cmd.Flags().BoolVar(&opts.noSummary, "no-summary", false, "omit the fairness summary")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached assignments")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "parallel searches (default: number of CPUs)")

	return cmd
}

func (c *CLI) runSolve(cmd *cobra.Command, paths []string, opts solveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	pipeOpts := c.solveOptions(opts.strategy, opts.workers, opts.refresh)
	if err := pipeOpts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if opts.outDir != "" && !opts.stdout {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory %s", opts.outDir)
		}
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	insts, err := runner.LoadBatch(ctx, paths)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Solving %d instance(s) with %s...", len(insts), pipeOpts.Strategy))
	if !opts.stdout {
		spinner.Start()
	}
	items, err := runner.SolveBatch(ctx, insts, pipeOpts)
	spinner.Stop()
	if err != nil {
		return err
	}

	var failed []error
	for i, item := range items {
		if item.Err != nil {
			failed = append(failed, item.Err)
			printError("%s: %s", item.Instance.Name, errors.UserMessage(item.Err))
			continue
		}
		if err := c.emitSolution(cmd, paths[i], item.Result, opts); err != nil {
			return err
		}
	}
	if len(items) > 1 {
		prog.done(fmt.Sprintf("Solved %d of %d instances", len(items)-len(failed), len(items)))
	}

	switch len(failed) {
	case 0:
		if !opts.stdout && len(items) == 1 {
			printNextStep("Verify with", fmt.Sprintf("%s verify %s %s", appName, paths[0], pipeline.SolutionPath(paths[0], opts.outDir)))
		}
		return nil
	case 1:
		return failed[0]
	default:
		return fmt.Errorf("%d of %d instances failed: %w", len(failed), len(items), failed[0])
	}
}

// emitSolution writes one solved instance to its Sol_ file or stdout.
func (c *CLI) emitSolution(cmd *cobra.Command, instPath string, res *pipeline.Result, opts solveOpts) error {
	sum := res.Summary
	if opts.noSummary {
		sum = nil
	}
	if opts.stdout {
		return solution.Write(cmd.OutOrStdout(), res.Solution, sum)
	}

	out := pipeline.SolutionPath(instPath, opts.outDir)
	if err := solution.WriteFile(out, res.Solution, sum); err != nil {
		return err
	}

	printSuccess("%s: %d centers, objective %s",
		res.Instance.Name,
		len(res.Solution.Deployed),
		StyleNumber.Render(fmt.Sprintf("%.4f", res.Solution.Objective)))
	printStats(solveStats{
		nodes:      res.Stats.Search.Nodes,
		backtracks: res.Stats.Search.Backtracks,
		duration:   res.Stats.Duration,
		cached:     res.CacheHit,
		balanced:   res.Feasible(),
	})
	printFile(out)
	return nil
}

// solveOne is the single-instance path shared by render and inspect when no
// solution file is given.
func (c *CLI) solveOne(ctx context.Context, runner *pipeline.Runner, instPath, strategy string) (*pipeline.Result, error) {
	inst, err := runner.Load(ctx, instPath)
	if err != nil {
		return nil, err
	}
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Solving %s...", inst.Name))
	spinner.Start()
	res, err := runner.Solve(ctx, inst, c.solveOptions(strategy, 0, false))
	if err != nil {
		spinner.StopWithError(errors.UserMessage(err))
		return nil, err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Solved %s (objective %.4f)", inst.Name, res.Solution.Objective))
	return res, nil
}
