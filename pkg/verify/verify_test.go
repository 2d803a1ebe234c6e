package verify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/siteplan/pkg/assign"
	"github.com/matzehuels/siteplan/pkg/distance"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/solution"
)

const twoClusters = `6 2
1 0 0 30 20
2 10 0 30 20
3 -1 0 30 5
4 9 0 30 5
5 1 0 30 5
6 11 0 30 5
`

func mustInstance(t *testing.T, text string) *instance.Instance {
	t.Helper()
	inst, err := instance.Parse(strings.NewReader(text))
	require.NoError(t, err)
	return inst
}

func mustSolution(t *testing.T, text string) *solution.Solution {
	t.Helper()
	sol, err := solution.Parse(strings.NewReader(text))
	require.NoError(t, err)
	return sol
}

func render(t *testing.T, r *Report) string {
	t.Helper()
	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	return buf.String()
}

func TestVerifyOK(t *testing.T) {
	inst := mustInstance(t, twoClusters)
	sol := mustSolution(t, `Healthcenter deployed at 1: Communities Assigned = {1, 3, 5}
Healthcenter deployed at 2: Communities Assigned = {2, 4, 6}

Objective Value: 5.0000000000
`)
	r := Verify(inst, sol)
	assert.True(t, r.OK())
	assert.Equal(t, Check(""), r.Failed())
	require.NotNil(t, r.Metrics)
	assert.Equal(t, 0, r.Metrics.WorkloadGap())

	want := `Reported objective  : 5.0000000000
Recomputed objective: 5.0000000000
Workload gap        : 0 (alpha=6)
Distance gap        : 1.00 (beta=2.40)
Solution verified OK.
`
	assert.Equal(t, want, render(t, r))
}

func TestVerifyMissingCommunity(t *testing.T) {
	inst := mustInstance(t, twoClusters)
	sol := mustSolution(t, `Healthcenter deployed at 1: Communities Assigned = {1, 3, 5}
Healthcenter deployed at 2: Communities Assigned = {2, 6}
Objective Value: 5.0
`)
	r := Verify(inst, sol)
	assert.Equal(t, CoverageMismatch, r.Failed())
	assert.Nil(t, r.Metrics)
	require.Len(t, r.Findings, 1)
	assert.Equal(t, []string{"Missing: [4]"}, r.Findings[0].Details)

	out := render(t, r)
	assert.Contains(t, out, "Missing: [4]\n")
	assert.True(t, strings.HasSuffix(out, "FAIL: Some communities missing or duplicated.\n"))
}

func TestVerifyDuplicateAndUnknownCommunities(t *testing.T) {
	inst := mustInstance(t, twoClusters)
	sol := mustSolution(t, `Healthcenter deployed at 1: Communities Assigned = {1, 3, 5, 4}
Healthcenter deployed at 2: Communities Assigned = {2, 4, 6, 9}
Objective Value: 5.0
`)
	r := Verify(inst, sol)
	require.Equal(t, CoverageMismatch, r.Failed())
	assert.Equal(t, []string{"Duplicates: [4]", "Unknown: [9]"}, r.Findings[0].Details)
}

func TestVerifyObjectiveOffByOne(t *testing.T) {
	inst := mustInstance(t, twoClusters)
	sol := mustSolution(t, `Healthcenter deployed at 1: Communities Assigned = {1, 3, 5}
Healthcenter deployed at 2: Communities Assigned = {2, 4, 6}
Objective Value: 6.0000000000
`)
	r := Verify(inst, sol)
	assert.Equal(t, ObjectiveMismatch, r.Failed())
	require.NotNil(t, r.Metrics)
	assert.InDelta(t, 1.0, r.Reported-r.Metrics.Objective, 1e-12)

	out := render(t, r)
	assert.Contains(t, out, "Reported objective  : 6.0000000000\n")
	assert.Contains(t, out, "Recomputed objective: 5.0000000000\n")
	assert.True(t, strings.HasSuffix(out, "FAIL: Objective mismatch.\n"))
}

func TestVerifyStructuralChecks(t *testing.T) {
	tests := []struct {
		name    string
		sol     string
		check   Check
		message string
	}{
		{
			name: "too many centers",
			sol: `Healthcenter deployed at 1: Communities Assigned = {1, 3}
Healthcenter deployed at 2: Communities Assigned = {2, 4}
Healthcenter deployed at 5: Communities Assigned = {5, 6}
Objective Value: 0
`,
			check:   TooManyCenters,
			message: "Too many centers deployed: 3 > 2",
		},
		{
			name: "center outside instance",
			sol: `Healthcenter deployed at 1: Communities Assigned = {1, 2, 3}
Healthcenter deployed at 7: Communities Assigned = {4, 5, 6}
Objective Value: 0
`,
			check:   OrphanAssignment,
			message: "Centers outside 1..6: [7]",
		},
		{
			name: "capacity",
			sol: `Healthcenter deployed at 1: Communities Assigned = {1, 2}
Healthcenter deployed at 3: Communities Assigned = {3, 4, 5, 6}
Objective Value: 200
`,
			check:   CapacityExceeded,
			message: "Capacity exceeded at center 1: 40 > 30",
		},
	}
	inst := mustInstance(t, twoClusters)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Verify(inst, mustSolution(t, tt.sol))
			require.Len(t, r.Findings, 1)
			assert.Equal(t, tt.check, r.Failed())
			assert.True(t, tt.check.Structural())
			assert.Equal(t, tt.message, r.Findings[0].Message)
			assert.Nil(t, r.Metrics)

			out := render(t, r)
			assert.True(t, strings.HasPrefix(out, "ERROR: "+tt.message+"\n"), out)
		})
	}
}

func TestVerifyOrphanAssignmentKeys(t *testing.T) {
	inst := mustInstance(t, twoClusters)
	sol := &solution.Solution{
		Deployed:    []int{1},
		Assignments: map[int][]int{1: {1, 2, 3}, 4: {4, 5, 6}},
	}
	r := Verify(inst, sol)
	assert.Equal(t, OrphanAssignment, r.Failed())
	assert.Equal(t, "Assignments to non-deployed centers: [4]", r.Findings[0].Message)
}

func TestVerifyReportsEveryMetricFailure(t *testing.T) {
	// Both centers off the heavy communities: loads 50/10, distances 0..11.
	inst := mustInstance(t, `6 2
1 0 0 60 20
2 10 0 60 20
3 -1 0 60 5
4 9 0 60 5
5 1 0 60 5
6 11 0 60 5
`)
	sol := mustSolution(t, `Healthcenter deployed at 3: Communities Assigned = {1, 2, 3, 5}
Healthcenter deployed at 4: Communities Assigned = {4, 6}
Objective Value: 0
`)
	r := Verify(inst, sol)
	require.NotNil(t, r.Metrics)
	assert.Equal(t, ObjectiveMismatch, r.Failed())
	assert.True(t, r.Has(WorkloadGapExceeded))
	assert.True(t, r.Has(DistanceGapExceeded))
	assert.False(t, ObjectiveMismatch.Structural())
	assert.Equal(t, "FAIL: Objective mismatch.", r.Verdict())
}

func TestVerifySingleCommunity(t *testing.T) {
	inst := mustInstance(t, "1 1\n0 5 5\n1 5 5 10 7\n")
	sol := mustSolution(t, "Healthcenter deployed at 1: Communities Assigned = {1}\n\nObjective Value: 0.0000000000\n")

	r := Verify(inst, sol)
	assert.True(t, r.OK(), r.Verdict())
	assert.Zero(t, r.Thresholds.Beta)
	assert.Zero(t, r.Metrics.DistanceGap())
}

func TestSearchResultVerifies(t *testing.T) {
	for _, text := range []string{twoClusters, "1 1\n1 0 0 5 5\n"} {
		inst := mustInstance(t, text)
		dm := distance.ForInstance(inst)

		a, _, err := assign.Solve(inst, assign.StrategyBacktrack)
		require.NoError(t, err)
		sol, sum := solution.FromAssignment(inst, dm, a)

		var buf bytes.Buffer
		require.NoError(t, solution.Write(&buf, sol, sum))
		back, err := solution.Parse(&buf)
		require.NoError(t, err)

		r := VerifyWith(inst, dm, sum.Thresholds, back)
		assert.Equal(t, "Solution verified OK.", r.Verdict())
	}
}
