package cli

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/siteplan/pkg/distance"
	"github.com/matzehuels/siteplan/pkg/fairness"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/solution"
	"github.com/matzehuels/siteplan/pkg/verify"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		strategy string
		plain    bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <instance> [solution]",
		Short: "Browse an assignment center by center",
		Long: `Browse an assignment interactively. The list shows every deployed center
with its load, capacity and farthest community; enter opens the members of
the selected center.

Without a solution file the instance is solved first. --plain prints the
center table and exits.`,
		ValidArgsFunction: completeTextFiles,
		Args:              cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			inst, err := runner.Load(ctx, args[0])
			if err != nil {
				return err
			}
			var sol *solution.Solution
			if len(args) == 2 {
				if sol, err = runner.LoadSolution(ctx, args[1]); err != nil {
					return err
				}
			} else {
				res, err := c.solveOne(ctx, runner, args[0], strategy)
				if err != nil {
					return err
				}
				sol = res.Solution
			}

			m := newInspectModel(inst, sol)
			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), m.View())
				return nil
			}
			_, err = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "strategy when solving first: backtrack, greedy")
	cmd.Flags().BoolVar(&plain, "plain", false, "print the center table without the interactive view")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// =============================================================================
// inspectModel - Interactive center browser
// =============================================================================

// memberRow is one community served by a center.
type memberRow struct {
	Index      int // 1-based
	Population int
	Distance   float64
}

// centerRow summarizes one deployed center.
type centerRow struct {
	Center   int // 1-based
	Members  []memberRow
	Load     int
	Capacity int
	MaxDist  float64
	// Weighted is the largest population-weighted distance at this center.
	Weighted float64
}

// Overloaded reports whether the center serves more than its capacity.
func (r centerRow) Overloaded() bool { return r.Load > r.Capacity }

// inspectModel is the bubbletea model for browsing an assignment.
type inspectModel struct {
	Title   string
	Rows    []centerRow
	Verdict string
	OK      bool
	Cursor  int
	Offset  int
	Height  int
	Detail  bool
}

// newInspectModel measures every center of sol. Indices outside the
// instance are listed with zero population and distance.
func newInspectModel(inst *instance.Instance, sol *solution.Solution) inspectModel {
	dm := distance.ForInstance(inst)
	n := inst.N()

	rows := make([]centerRow, 0, len(sol.Deployed))
	for _, c := range sol.Deployed {
		row := centerRow{Center: c, Capacity: inst.Capacity}
		members := slices.Clone(sol.Assignments[c])
		slices.Sort(members)
		for _, j := range members {
			mr := memberRow{Index: j}
			if j >= 1 && j <= n {
				mr.Population = inst.Communities[j-1].Population
				if c >= 1 && c <= n {
					mr.Distance = dm.At(c-1, j-1)
				}
			}
			row.Load += mr.Population
			row.MaxDist = math.Max(row.MaxDist, mr.Distance)
			row.Weighted = math.Max(row.Weighted, float64(mr.Population)*mr.Distance)
			row.Members = append(row.Members, mr)
		}
		rows = append(rows, row)
	}

	report := verify.VerifyWith(inst, dm, fairness.Compute(inst, dm), sol)
	return inspectModel{
		Title:   fmt.Sprintf("%s  %d communities, %d of %d centers, objective %.4f", inst.Name, n, len(sol.Deployed), inst.MaxCenters, sol.Objective),
		Rows:    rows,
		Verdict: report.Verdict(),
		OK:      report.OK(),
		Height:  15,
	}
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.Detail {
				m.Detail = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if !m.Detail && m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if !m.Detail && m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Rows) > 0 {
				m.Detail = !m.Detail
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m inspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	if m.Detail {
		b.WriteString(listDimStyle.Render("esc back  q quit"))
		b.WriteString("\n\n")
		b.WriteString(m.detailView())
	} else {
		b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ members  q quit"))
		b.WriteString("\n\n")
		b.WriteString(m.centerTable())
	}
	b.WriteString("\n\n")

	verdict := StyleSuccess.Render(m.Verdict)
	if !m.OK {
		verdict = StyleFailure.Render(m.Verdict)
	}
	b.WriteString(verdict)
	if len(m.Rows) > 0 {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))
	}
	return b.String()
}

func (m inspectModel) centerTable() string {
	end := min(m.Offset+m.Height, len(m.Rows))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			strconv.Itoa(r.Center),
			strconv.Itoa(len(r.Members)),
			fmt.Sprintf("%d/%d", r.Load, r.Capacity),
			fmt.Sprintf("%.2f", r.MaxDist),
			fmt.Sprintf("%.4f", r.Weighted),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Center", "Members", "Load", "Max dist", "Weighted").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			idx := m.Offset + row
			if idx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			if col == 3 && m.Rows[idx].Overloaded() {
				return lipgloss.NewStyle().Foreground(colorRed)
			}
			if idx == m.Cursor {
				return listSelectedStyle
			}
			return listNormalStyle
		})
	return t.Render()
}

func (m inspectModel) detailView() string {
	r := m.Rows[m.Cursor]

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", StyleTitle.Render("Center"), StyleNumber.Render(strconv.Itoa(r.Center)))
	fmt.Fprintf(&b, "%s\n\n", listDimStyle.Render(fmt.Sprintf("load %d of %d, farthest member %.2f", r.Load, r.Capacity, r.MaxDist)))

	rows := make([][]string, len(r.Members))
	for i, mr := range r.Members {
		rows[i] = []string{
			strconv.Itoa(mr.Index),
			strconv.Itoa(mr.Population),
			fmt.Sprintf("%.2f", mr.Distance),
			fmt.Sprintf("%.4f", float64(mr.Population)*mr.Distance),
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Community", "Population", "Distance", "Weighted").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return listNormalStyle
		})
	b.WriteString(t.Render())
	return b.String()
}
