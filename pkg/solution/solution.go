// Package solution reads and writes persisted siting solutions.
//
// A solution file lists one line per deployed center followed by the
// objective value:
//
//	Healthcenter deployed at 3: Communities Assigned = {1, 3, 4}
//	Healthcenter deployed at 7: Communities Assigned = {2, 5, 6, 7}
//
//	Objective Value: 118.2413562100
//
// Indices are 1-based. Reading stops at the objective line, so anything
// written after it (such as the fairness summary produced by [Write]) is
// ignored by [Parse].
package solution

import (
	"slices"

	"github.com/matzehuels/siteplan/pkg/assign"
	"github.com/matzehuels/siteplan/pkg/distance"
	"github.com/matzehuels/siteplan/pkg/fairness"
	"github.com/matzehuels/siteplan/pkg/instance"
)

// Solution is a persisted assignment. Unlike [assign.Assignment] it uses the
// file's 1-based indices and keeps whatever the file said, valid or not;
// checking it is the verifier's job.
type Solution struct {
	// Deployed lists the centers in file order.
	Deployed []int `json:"deployed"`
	// Assignments maps a center to the communities it serves.
	Assignments map[int][]int `json:"assignments"`
	// Objective is the reported max population-weighted distance.
	Objective float64 `json:"objective"`
}

// Summary is the fairness block appended after the objective line.
type Summary struct {
	Metrics    fairness.Metrics
	Thresholds fairness.Thresholds
}

// FromAssignment converts a search result into a solution for inst. The
// objective is recomputed from the assignment. The returned summary holds the
// metrics and thresholds of the same assignment.
func FromAssignment(inst *instance.Instance, dm *distance.Matrix, a *assign.Assignment) (*Solution, *Summary) {
	sol := &Solution{
		Deployed:    make([]int, 0, a.NumCenters()),
		Assignments: make(map[int][]int, a.NumCenters()),
	}
	for _, c := range a.Centers {
		members := make([]int, len(a.Members[c]))
		for k, j := range a.Members[c] {
			members[k] = j + 1
		}
		slices.Sort(members)
		sol.Deployed = append(sol.Deployed, c+1)
		sol.Assignments[c+1] = members
	}

	m := fairness.Measure(inst.Populations(), dm, a.Groups())
	sol.Objective = m.Objective
	return sol, &Summary{Metrics: m, Thresholds: fairness.Compute(inst, dm)}
}

// Communities returns every community index referenced by the solution in
// deployed order, duplicates included.
func (s *Solution) Communities() []int {
	var all []int
	for _, c := range s.Deployed {
		all = append(all, s.Assignments[c]...)
	}
	return all
}
