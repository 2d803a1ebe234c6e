package solution

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/siteplan/pkg/errors"
)

const (
	centerPrefix    = "Healthcenter deployed at"
	objectivePrefix = "Objective Value"
)

var centerLineRe = regexp.MustCompile(`^Healthcenter deployed at\s+(\d+)\s*:\s*Communities Assigned\s*=\s*\{([^}]*)\}\s*$`)

// ReadFile parses the solution file at path.
func ReadFile(path string) (*Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open solution %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open solution %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a solution up to and including its objective line. Lines that
// are neither center lines nor the objective line are skipped. A center line
// that does not match the format, a center listed twice, or a missing
// objective line fails the parse.
func Parse(r io.Reader) (*Solution, error) {
	sol := &Solution{Assignments: make(map[int][]int)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, centerPrefix):
			center, members, err := parseCenterLine(line)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidSolution, err, "line %d", n)
			}
			if _, dup := sol.Assignments[center]; dup {
				return nil, errors.New(errors.ErrCodeInvalidSolution, "line %d: center %d listed twice", n, center)
			}
			sol.Deployed = append(sol.Deployed, center)
			sol.Assignments[center] = members

		case strings.HasPrefix(line, objectivePrefix):
			_, value, ok := strings.Cut(line, ":")
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidSolution, "line %d: objective line has no value", n)
			}
			obj, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return nil, errors.New(errors.ErrCodeInvalidSolution, "line %d: invalid objective %q", n, strings.TrimSpace(value))
			}
			sol.Objective = obj
			return sol, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSolution, err, "read solution")
	}
	return nil, errors.New(errors.ErrCodeInvalidSolution, "missing %q line", objectivePrefix)
}

func parseCenterLine(line string) (int, []int, error) {
	m := centerLineRe.FindStringSubmatch(line)
	if m == nil {
		return 0, nil, fmt.Errorf("malformed center line %q", line)
	}
	center, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid center %q", m[1])
	}

	body := strings.TrimSpace(m[2])
	if body == "" {
		return center, []int{}, nil
	}
	parts := strings.Split(body, ",")
	members := make([]int, 0, len(parts))
	for _, p := range parts {
		j, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, nil, fmt.Errorf("invalid community %q", strings.TrimSpace(p))
		}
		members = append(members, j)
	}
	return center, members, nil
}

// Write serializes sol. When sum is non-nil the workload and distance
// fairness checks are appended after the objective line.
func Write(w io.Writer, sol *Solution, sum *Summary) error {
	bw := bufio.NewWriter(w)
	for _, c := range sol.Deployed {
		fmt.Fprintf(bw, "%s %d: Communities Assigned = {%s}\n", centerPrefix, c, joinInts(sol.Assignments[c]))
	}
	fmt.Fprintf(bw, "\n%s: %.10f\n", objectivePrefix, sol.Objective)

	if sum != nil {
		m, th := sum.Metrics, sum.Thresholds
		fmt.Fprintf(bw, "\nWorkload Fairness Check:\n")
		fmt.Fprintf(bw, "  Min workload = %.2f, Max workload = %.2f\n", float64(m.WorkloadMin), float64(m.WorkloadMax))
		fmt.Fprintf(bw, "  Workload Gap = %.2f (Threshold Alpha = %d)\n\n", float64(m.WorkloadGap()), th.Alpha)
		fmt.Fprintf(bw, "Distance Fairness Check:\n")
		fmt.Fprintf(bw, "  Min Distance = %.2f, Max Distance = %.2f\n", m.DistanceMin, m.DistanceMax)
		fmt.Fprintf(bw, "  Distance Gap = %.2f (Threshold Beta = %s)\n", m.DistanceGap(), strconv.FormatFloat(th.Beta, 'g', -1, 64))
	}
	return bw.Flush()
}

// WriteFile writes sol to path, replacing any existing file.
func WriteFile(path string, sol *Solution, sum *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create solution %s", path)
	}
	if err := Write(f, sol, sum); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// JoinIndices formats indices the way solution files list them: "1, 4, 9".
func JoinIndices(xs []int) string { return joinInts(xs) }

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
