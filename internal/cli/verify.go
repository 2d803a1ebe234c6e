package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/verify"
)

// verifyOpts holds the command-line flags for the verify command.
type verifyOpts struct {
	dir     string // directory holding Instance_<id>.txt / Sol_Instance_<id>.txt pairs
	ids     string // comma-separated ids or ranges, e.g. "1,3,5-8"
	jsonOut bool   // print reports as JSON
	noCache bool
}

// verifyCommand creates the verify command.
func (c *CLI) verifyCommand() *cobra.Command {
	var opts verifyOpts

	cmd := &cobra.Command{
		Use:   "verify <instance> <solution> | --dir <dir> --ids <ids>",
		Short: "Check a solution against its instance",
		Long: `Check a solution file against its instance.

The verifier checks the center limit, that every assigned center was
deployed, that every community is covered exactly once, the capacity of
each center, the reported objective, and both fairness bounds.

Structural failures are reported as ERROR lines followed by a FAIL verdict.
The command exits with status 2 when any solution fails.

Examples:
  siteplan verify Instance_1.txt Sol_Instance_1.txt
  siteplan verify --dir data --ids 1,3,5-8
  siteplan verify --json Instance_1.txt Sol_Instance_1.txt`,
		ValidArgsFunction: completeTextFiles,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.dir != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dir != "" {
				return c.runVerifyDir(cmd, opts)
			}
			return c.runVerifyPair(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "directory of numbered instance/solution pairs")
	cmd.Flags().StringVar(&opts.ids, "ids", "", "instance ids to verify with --dir, e.g. 1,3,5-8")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print reports as JSON")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runVerifyPair(cmd *cobra.Command, instPath, solPath string, opts verifyOpts) error {
	ctx := cmd.Context()
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	report, err := runner.VerifyFiles(ctx, instPath, solPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		if err := writeReportJSON(out, []reportJSON{newReportJSON(0, instPath, solPath, report, nil)}); err != nil {
			return err
		}
	} else if _, err := report.WriteTo(out); err != nil {
		return err
	}

	if !report.OK() {
		return ErrVerificationFailed
	}
	return nil
}

func (c *CLI) runVerifyDir(cmd *cobra.Command, opts verifyOpts) error {
	ids, err := parseIDs(opts.ids)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	pairs, err := runner.VerifyDir(ctx, opts.dir, ids)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	if opts.jsonOut {
		reports := make([]reportJSON, len(pairs))
		for i, p := range pairs {
			reports[i] = newReportJSON(p.ID, p.InstancePath, p.SolutionPath, p.Report, p.Err)
			if p.Err != nil || !p.Report.OK() {
				failed++
			}
		}
		if err := writeReportJSON(out, reports); err != nil {
			return err
		}
	} else {
		for _, p := range pairs {
			fmt.Fprintf(out, "== Instance %d ==\n", p.ID)
			if p.Err != nil {
				failed++
				fmt.Fprintf(out, "ERROR: %s\n", errors.UserMessage(p.Err))
				fmt.Fprintln(out, "FAIL: could not load files.")
				continue
			}
			if _, err := p.Report.WriteTo(out); err != nil {
				return err
			}
			if !p.Report.OK() {
				failed++
			}
		}
	}

	if failed > 0 {
		printWarning("%d of %d solutions failed", failed, len(pairs))
		return ErrVerificationFailed
	}
	printSuccess("All %d solutions verified", len(pairs))
	return nil
}

// reportJSON is the --json form of one verification.
type reportJSON struct {
	ID       int            `json:"id,omitempty"`
	Instance string         `json:"instance"`
	Solution string         `json:"solution"`
	OK       bool           `json:"ok"`
	Verdict  string         `json:"verdict"`
	Error    string         `json:"error,omitempty"`
	Report   *verify.Report `json:"report,omitempty"`
}

func newReportJSON(id int, instPath, solPath string, report *verify.Report, err error) reportJSON {
	r := reportJSON{ID: id, Instance: instPath, Solution: solPath, Report: report}
	if err != nil {
		r.Error = errors.UserMessage(err)
		r.Verdict = "FAIL: could not load files."
		return r
	}
	r.OK = report.OK()
	r.Verdict = report.Verdict()
	return r
}

func writeReportJSON(w io.Writer, reports []reportJSON) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

// parseIDs parses "1,3,5-8" into [1 3 5 6 7 8]. Duplicates are kept in order.
func parseIDs(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "--ids is required with --dir")
	}
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := parseID(lo)
		if err != nil {
			return nil, err
		}
		to := from
		if isRange {
			if to, err = parseID(hi); err != nil {
				return nil, err
			}
		}
		if to < from {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid id range %q", part)
		}
		for id := from; id <= to; id++ {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no ids in %q", s)
	}
	return ids, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 1 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid instance id %q", s)
	}
	return id, nil
}
