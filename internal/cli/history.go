package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/store"
)

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var (
		f       store.Filter
		kind    string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded solve and verify runs",
		Long: `List recorded solve and verify runs, newest first.

Examples:
  siteplan history
  siteplan history --instance Instance_1 --kind verify
  siteplan history --json --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch store.Kind(kind) {
			case "", store.KindSolve, store.KindVerify:
				f.Kind = store.Kind(kind)
			default:
				return errors.New(errors.ErrCodeInvalidInput, "invalid kind %q (must be solve or verify)", kind)
			}
			if f.Limit < 0 {
				return errors.New(errors.ErrCodeInvalidInput, "limit must not be negative")
			}

			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List(ctx, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if runs == nil {
					runs = []*store.Run{}
				}
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				printInfo("No recorded runs")
				return nil
			}
			fmt.Fprintln(out, historyTable(runs))
			return nil
		},
	}

	cmd.Flags().StringVar(&f.Instance, "instance", "", "only runs of this instance")
	cmd.Flags().StringVar(&kind, "kind", "", "only runs of this kind: solve, verify")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", store.DefaultListLimit, "maximum number of runs")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print runs as JSON")

	return cmd
}

// historyTable renders runs as a bordered table.
func historyTable(runs []*store.Run) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		verdict := r.Verdict
		if r.Error != "" {
			verdict = "error"
		}
		rows[i] = []string{
			r.ID[:min(8, len(r.ID))],
			string(r.Kind),
			r.Instance,
			r.Strategy,
			strconv.Itoa(len(r.Centers)),
			fmt.Sprintf("%.4f", r.Objective),
			verdict,
			formatRelativeTime(r.CreatedAt),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Kind", "Instance", "Strategy", "Centers", "Objective", "Verdict", "When").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader.Padding(0, 1)
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 6 && row >= 0 && row < len(runs) {
				if runs[row].OK() {
					return base.Foreground(colorGreen)
				}
				return base.Foreground(colorRed)
			}
			if col == 0 || col == 7 {
				return base.Foreground(colorDim)
			}
			return base
		})
	return t.Render()
}
