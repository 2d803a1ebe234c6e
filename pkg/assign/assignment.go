// Package assign builds capacity- and fairness-feasible assignments of
// communities to centers.
//
// Two constructive strategies are provided:
//
//   - [Search] is an exhaustive depth-first backtracking search with
//     admissibility pruning. It returns the first assignment that satisfies
//     coverage, the center count limit, capacity, and both fairness bounds.
//   - [Greedy] places each community at the cheapest open center that still
//     has room. It respects coverage, count and capacity but ignores the
//     fairness bounds, so its output should be checked by the verifier.
//
// Neither strategy optimizes the weighted-distance objective. The result is
// a seed, not an optimum.
//
// Both strategies are deterministic, never mutate the instance, and keep all
// search state local to a single call, so independent instances may be solved
// concurrently.
package assign

import (
	"slices"

	"github.com/matzehuels/siteplan/pkg/fairness"
)

// Assignment maps open centers to the communities they serve. All indices
// are 0-based. Centers is sorted ascending and so is every member list.
type Assignment struct {
	Centers []int         `json:"centers"`
	Members map[int][]int `json:"members"`
}

// NumCenters returns the number of open centers.
func (a *Assignment) NumCenters() int { return len(a.Centers) }

// Groups returns the assignment as fairness groups in center order.
func (a *Assignment) Groups() []fairness.Group {
	groups := make([]fairness.Group, len(a.Centers))
	for k, c := range a.Centers {
		groups[k] = fairness.Group{Center: c, Members: a.Members[c]}
	}
	return groups
}

// Loads returns the workload of every open center in center order.
func (a *Assignment) Loads(pops []int) []int {
	loads := make([]int, len(a.Centers))
	for k, c := range a.Centers {
		for _, j := range a.Members[c] {
			loads[k] += pops[j]
		}
	}
	return loads
}

// CenterOf returns the center serving community j, or -1.
func (a *Assignment) CenterOf(j int) int {
	for _, c := range a.Centers {
		if _, ok := slices.BinarySearch(a.Members[c], j); ok {
			return c
		}
	}
	return -1
}

// fromOwners builds a canonical assignment from a community -> center table.
func fromOwners(owner []int) *Assignment {
	a := &Assignment{Members: make(map[int][]int)}
	for j, c := range owner {
		if _, ok := a.Members[c]; !ok {
			a.Centers = append(a.Centers, c)
		}
		a.Members[c] = append(a.Members[c], j)
	}
	slices.Sort(a.Centers)
	return a
}

// populationOrder returns community indices by population descending. Equal
// populations keep ascending index order.
func populationOrder(pops []int) []int {
	order := make([]int, len(pops))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return pops[b] - pops[a]
	})
	return order
}
