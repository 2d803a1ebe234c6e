package solution

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/siteplan/pkg/assign"
	"github.com/matzehuels/siteplan/pkg/distance"
	errs "github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/instance"
)

// twoClusters has a heavy community in the middle of each cluster and the
// light ones interleaved, so the search settles on centers 1 and 2.
const twoClusters = `6 2
1 0 0 30 20
2 10 0 30 20
3 -1 0 30 5
4 9 0 30 5
5 1 0 30 5
6 11 0 30 5
`

const twoClustersSolution = `Healthcenter deployed at 1: Communities Assigned = {1, 3, 5}
Healthcenter deployed at 2: Communities Assigned = {2, 4, 6}

Objective Value: 5.0000000000

Workload Fairness Check:
  Min workload = 30.00, Max workload = 30.00
  Workload Gap = 0.00 (Threshold Alpha = 6)

Distance Fairness Check:
  Min Distance = 0.00, Max Distance = 1.00
  Distance Gap = 1.00 (Threshold Beta = 2.4)
`

func TestParse(t *testing.T) {
	sol, err := Parse(strings.NewReader(twoClustersSolution))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, sol.Deployed)
	assert.Equal(t, []int{1, 3, 5}, sol.Assignments[1])
	assert.Equal(t, []int{2, 4, 6}, sol.Assignments[2])
	assert.Equal(t, 5.0, sol.Objective)
	assert.Equal(t, []int{1, 3, 5, 2, 4, 6}, sol.Communities())
}

func TestParseEmptyBracesAndNoise(t *testing.T) {
	input := `Stage-1:
Healthcenter deployed at 4: Communities Assigned = {}
Healthcenter deployed at 9: Communities Assigned = {1,2}
Objective Value: 12.5
Healthcenter deployed at 7: Communities Assigned = {3}
`
	sol, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []int{4, 9}, sol.Deployed, "scanning stops at the objective line")
	assert.Empty(t, sol.Assignments[4])
	assert.Equal(t, []int{1, 2}, sol.Assignments[9])
	assert.Equal(t, 12.5, sol.Objective)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no objective", "Healthcenter deployed at 1: Communities Assigned = {1}\n"},
		{"bad objective", "Objective Value: twelve\n"},
		{"objective without colon", "Objective Value 12\n"},
		{"malformed center line", "Healthcenter deployed at one: Communities Assigned = {1}\nObjective Value: 1\n"},
		{"bad community", "Healthcenter deployed at 1: Communities Assigned = {1, x}\nObjective Value: 1\n"},
		{"duplicate center", "Healthcenter deployed at 1: Communities Assigned = {1}\nHealthcenter deployed at 1: Communities Assigned = {2}\nObjective Value: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := Parse(strings.NewReader(tt.input))
			assert.Nil(t, sol)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.ErrCodeInvalidSolution), "got %v", err)
		})
	}
}

func TestFromAssignmentAndWrite(t *testing.T) {
	inst, err := instance.Parse(strings.NewReader(twoClusters))
	require.NoError(t, err)
	dm := distance.ForInstance(inst)

	a, _, err := assign.Solve(inst, assign.StrategyBacktrack)
	require.NoError(t, err)

	sol, sum := FromAssignment(inst, dm, a)
	assert.Equal(t, 5.0, sol.Objective)
	assert.Equal(t, 6, sum.Thresholds.Alpha)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sol, sum))
	assert.Equal(t, twoClustersSolution, buf.String())

	back, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, sol, back)
}

func TestWriteWithoutSummary(t *testing.T) {
	sol := &Solution{
		Deployed:    []int{3},
		Assignments: map[int][]int{3: {}},
		Objective:   0,
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sol, nil))
	assert.Equal(t, "Healthcenter deployed at 3: Communities Assigned = {}\n\nObjective Value: 0.0000000000\n", buf.String())
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Sol_Instance_1.txt")
	sol := &Solution{
		Deployed:    []int{2},
		Assignments: map[int][]int{2: {1, 2}},
		Objective:   3.25,
	}
	require.NoError(t, WriteFile(path, sol, nil))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sol, got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, errs.Is(err, errs.ErrCodeFileNotFound))
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestJoinIndices(t *testing.T) {
	assert.Equal(t, "", JoinIndices(nil))
	assert.Equal(t, "7", JoinIndices([]int{7}))
	assert.Equal(t, "1, 4, 9", JoinIndices([]int{1, 4, 9}))
}
