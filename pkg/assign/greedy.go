package assign

import (
	"github.com/matzehuels/siteplan/pkg/distance"
	"github.com/matzehuels/siteplan/pkg/instance"
)

// Greedy builds a capacity-feasible assignment in a single pass.
//
// Communities are taken by descending population. Each one goes to the open
// center with enough residual capacity that minimizes population × distance
// (the first such center in opening order wins ties). When no open center
// fits, a new center is opened at the community itself if fewer than M are
// open. Otherwise the instance is reported infeasible.
//
// Greedy runs in O(N·M) and never backtracks. It ignores the fairness bounds.
func Greedy(inst *instance.Instance, dm *distance.Matrix) (*Assignment, error) {
	n := inst.N()
	pops := inst.Populations()
	owner := make([]int, n)
	load := make([]int, n)
	var open []int

	for _, j := range populationOrder(pops) {
		best := -1
		bestCost := 0.0
		for _, i := range open {
			if load[i]+pops[j] > inst.Capacity {
				continue
			}
			if cost := float64(pops[j]) * dm.At(i, j); best < 0 || cost < bestCost {
				best, bestCost = i, cost
			}
		}

		if best < 0 {
			if len(open) >= inst.MaxCenters || pops[j] > inst.Capacity {
				return nil, noFeasible("greedy", inst)
			}
			open = append(open, j)
			best = j
		}
		owner[j] = best
		load[best] += pops[j]
	}
	return fromOwners(owner), nil
}
