package assign

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/siteplan/pkg/distance"
	errs "github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/fairness"
	"github.com/matzehuels/siteplan/pkg/instance"
)

func newInstance(maxCenters, capacity int, pts []instance.Point, pops []int) *instance.Instance {
	inst := &instance.Instance{MaxCenters: maxCenters, Capacity: capacity}
	for i := range pts {
		inst.Communities = append(inst.Communities, instance.Community{
			Index:      i,
			Location:   pts[i],
			Population: pops[i],
		})
	}
	return inst
}

// triangle is three communities of 10 people each at mutual distance ≤ √2.
func triangle() *instance.Instance {
	return newInstance(2, 20,
		[]instance.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
		[]int{10, 10, 10})
}

func TestSearchTwoCentersWithRelaxedBounds(t *testing.T) {
	inst := triangle()
	dm := distance.ForInstance(inst)

	a, stats, err := Search(inst, dm, fairness.Thresholds{Alpha: 10, Beta: 10})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, a.Centers)
	assert.Equal(t, []int{0, 1}, a.Members[0])
	assert.Equal(t, []int{2}, a.Members[2])
	assert.Equal(t, []int{20, 10}, a.Loads(inst.Populations()))
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 0, stats.Backtracks)
	assert.Equal(t, 3, stats.MaxDepth)
}

func TestSearchDerivedBoundsRejectUnbalancedSplit(t *testing.T) {
	// alpha = round(30/10) = 3, so the only capacity-feasible split (20/10)
	// breaks the workload bound.
	inst := triangle()
	dm := distance.ForInstance(inst)
	th := fairness.Compute(inst, dm)
	require.Equal(t, 3, th.Alpha)

	a, stats, err := Search(inst, dm, th)
	require.Error(t, err)
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, ErrNoFeasibleSolution))
	assert.True(t, errs.Is(err, errs.ErrCodeNoFeasibleSolution))
	assert.Equal(t, stats.Nodes, stats.Backtracks, "every commit must be reverted on exhaustion")
}

func TestSearchSingleCommunity(t *testing.T) {
	inst := newInstance(1, 50, []instance.Point{{X: 3, Y: 3}}, []int{42})
	dm := distance.ForInstance(inst)
	th := fairness.Compute(inst, dm)

	a, _, err := Search(inst, dm, th)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, a.Centers)
	assert.Equal(t, []int{0}, a.Members[0])

	m := fairness.Measure(inst.Populations(), dm, a.Groups())
	assert.Zero(t, m.WorkloadGap())
	assert.Zero(t, m.DistanceGap())
	assert.Zero(t, m.Objective)
}

func TestSearchCapacityInfeasible(t *testing.T) {
	inst := newInstance(1, 5, []instance.Point{{X: 0, Y: 0}}, []int{6})
	_, _, err := Solve(inst, StrategyBacktrack)
	assert.ErrorIs(t, err, ErrNoFeasibleSolution)
}

func TestSearchPrefersClosestOpenCenter(t *testing.T) {
	// Two far apart pairs. The large communities cannot share a center, the
	// small ones join whichever center is nearer.
	inst := newInstance(2, 25,
		[]instance.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 1, Y: 0}, {X: 99, Y: 0}},
		[]int{20, 20, 5, 5})
	dm := distance.ForInstance(inst)

	a, _, err := Search(inst, dm, fairness.Thresholds{Alpha: 100, Beta: 1000})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, a.Centers)
	assert.Equal(t, 0, a.CenterOf(2))
	assert.Equal(t, 1, a.CenterOf(3))
}

func TestSearchTieBreaksByCenterIndex(t *testing.T) {
	// Community 2 is equidistant from centers 0 and 1. Center 1 opens first
	// (larger population) and both have room, so only the index decides.
	inst := newInstance(2, 12,
		[]instance.Point{{X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 0}},
		[]int{10, 11, 1})
	dm := distance.ForInstance(inst)

	a, _, err := Search(inst, dm, fairness.Thresholds{Alpha: 100, Beta: 1000})
	require.NoError(t, err)
	assert.Equal(t, 0, a.CenterOf(2))
}

func TestSearchDoesNotMutateInstance(t *testing.T) {
	inst := triangle()
	before := inst.Canonical()

	_, _, _ = Solve(inst, StrategyBacktrack)
	_, _, _ = Solve(inst, StrategyGreedy)

	assert.Equal(t, before, inst.Canonical())
}

func TestSearchDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for k := 0; k < 20; k++ {
		inst := randomInstance(rng, k)
		a1, s1, err1 := Solve(inst, StrategyBacktrack)
		a2, s2, err2 := Solve(inst, StrategyBacktrack)

		assert.Equal(t, err1 == nil, err2 == nil)
		assert.Equal(t, a1, a2)
		assert.Equal(t, s1, s2)
	}
}

func TestSearchProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	solved := 0

	for k := 0; k < 60; k++ {
		inst := randomInstance(rng, k)
		dm := distance.ForInstance(inst)
		th := fairness.Compute(inst, dm)

		a, _, err := Search(inst, dm, th)
		if err != nil {
			require.ErrorIs(t, err, ErrNoFeasibleSolution)
			continue
		}
		solved++
		assertFeasible(t, inst, dm, th, a)
	}
	assert.Positive(t, solved)
}

// randomInstance draws a small instance. Every third one is built so that
// each community needs its own center and a solution is guaranteed.
func randomInstance(rng *rand.Rand, k int) *instance.Instance {
	n := 1 + rng.IntN(7)
	pts := make([]instance.Point, n)
	pops := make([]int, n)

	if k%3 == 0 {
		for i := range pts {
			pts[i] = instance.Point{X: float64(i), Y: 0}
			pops[i] = 10
		}
		return newInstance(n, 10, pts, pops)
	}

	for i := range pts {
		pts[i] = instance.Point{X: math.Round(rng.Float64()*100) / 10, Y: math.Round(rng.Float64()*100) / 10}
		pops[i] = 5 + rng.IntN(20)
	}
	m := 1 + rng.IntN(n)
	return newInstance(m, 30+rng.IntN(40), pts, pops)
}

func assertFeasible(t *testing.T, inst *instance.Instance, dm *distance.Matrix, th fairness.Thresholds, a *Assignment) {
	t.Helper()

	seen := make(map[int]int)
	for _, c := range a.Centers {
		for _, j := range a.Members[c] {
			seen[j]++
		}
	}
	require.Len(t, seen, inst.N(), "coverage")
	for j := 0; j < inst.N(); j++ {
		require.Equal(t, 1, seen[j], "community %d", j)
	}

	require.LessOrEqual(t, a.NumCenters(), inst.MaxCenters)
	for _, load := range a.Loads(inst.Populations()) {
		require.LessOrEqual(t, load, inst.Capacity)
	}

	m := fairness.Measure(inst.Populations(), dm, a.Groups())
	require.LessOrEqual(t, m.WorkloadGap(), th.Alpha)
	require.LessOrEqual(t, m.DistanceGap(), th.Beta)
}
