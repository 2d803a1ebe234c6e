// Package verify checks a persisted solution against its instance.
//
// The verifier shares nothing with the search beyond the distance matrix and
// the threshold functions, so it can audit solutions from any producer. It
// never fails on a bad solution: every outcome is a [Report].
//
// Checks run in a fixed order. The structural checks (center count, orphan
// centers, coverage, capacity) stop at the first failure. When they all pass,
// the metric checks (objective, workload gap, distance gap) all run and are
// all reported; the verdict names the first one that failed.
package verify

import (
	"fmt"
	"slices"

	"github.com/matzehuels/siteplan/pkg/distance"
	"github.com/matzehuels/siteplan/pkg/fairness"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/solution"
)

// Check identifies a verifier check.
type Check string

const (
	TooManyCenters      Check = "TooManyCenters"
	OrphanAssignment    Check = "OrphanAssignment"
	CoverageMismatch    Check = "CoverageMismatch"
	CapacityExceeded    Check = "CapacityExceeded"
	ObjectiveMismatch   Check = "ObjectiveMismatch"
	WorkloadGapExceeded Check = "WorkloadGapExceeded"
	DistanceGapExceeded Check = "DistanceGapExceeded"
)

// Structural reports whether c is one of the short-circuiting checks.
func (c Check) Structural() bool {
	switch c {
	case TooManyCenters, OrphanAssignment, CoverageMismatch, CapacityExceeded:
		return true
	}
	return false
}

// Finding is one failed check.
type Finding struct {
	Check Check `json:"check"`
	// Reason is the short form used in the verdict line.
	Reason string `json:"reason"`
	// Message is the full diagnostic.
	Message string `json:"message"`
	// Details holds extra diagnostic lines, such as missing indices.
	Details []string `json:"details,omitempty"`
}

// Report is the outcome of verifying one solution.
type Report struct {
	Findings   []Finding           `json:"findings"`
	Thresholds fairness.Thresholds `json:"thresholds"`
	// Reported is the objective value claimed by the solution.
	Reported float64 `json:"reported_objective"`
	// Metrics is nil when a structural check failed.
	Metrics *fairness.Metrics `json:"metrics,omitempty"`
}

// OK reports whether every check passed.
func (r *Report) OK() bool { return len(r.Findings) == 0 }

// Failed returns the first failed check, or "" when the report is OK.
func (r *Report) Failed() Check {
	if r.OK() {
		return ""
	}
	return r.Findings[0].Check
}

// Has reports whether check c failed.
func (r *Report) Has(c Check) bool {
	for _, f := range r.Findings {
		if f.Check == c {
			return true
		}
	}
	return false
}

// Verdict returns the terminal line of the report.
func (r *Report) Verdict() string {
	if r.OK() {
		return "Solution verified OK."
	}
	return "FAIL: " + r.Findings[0].Reason + "."
}

// Verify runs every check of sol against inst.
func Verify(inst *instance.Instance, sol *solution.Solution) *Report {
	dm := distance.ForInstance(inst)
	return VerifyWith(inst, dm, fairness.Compute(inst, dm), sol)
}

// VerifyWith is Verify with a precomputed matrix and thresholds.
func VerifyWith(inst *instance.Instance, dm *distance.Matrix, th fairness.Thresholds, sol *solution.Solution) *Report {
	r := &Report{Thresholds: th, Reported: sol.Objective}

	for _, check := range []func(*instance.Instance, *solution.Solution) *Finding{
		checkCenterCount,
		checkOrphans,
		checkCoverage,
		checkCapacity,
	} {
		if f := check(inst, sol); f != nil {
			r.Findings = append(r.Findings, *f)
			return r
		}
	}

	groups := make([]fairness.Group, 0, len(sol.Deployed))
	for _, c := range sol.Deployed {
		g := fairness.Group{Center: c - 1, Members: make([]int, 0, len(sol.Assignments[c]))}
		for _, j := range sol.Assignments[c] {
			g.Members = append(g.Members, j-1)
		}
		groups = append(groups, g)
	}
	m := fairness.Measure(inst.Populations(), dm, groups)
	r.Metrics = &m

	if diff := m.Objective - sol.Objective; diff > fairness.Tolerance || diff < -fairness.Tolerance {
		r.Findings = append(r.Findings, Finding{
			Check:   ObjectiveMismatch,
			Reason:  "Objective mismatch",
			Message: fmt.Sprintf("Reported objective %.10f differs from recomputed %.10f", sol.Objective, m.Objective),
		})
	}
	if float64(m.WorkloadGap()) > float64(th.Alpha)+fairness.Tolerance {
		r.Findings = append(r.Findings, Finding{
			Check:   WorkloadGapExceeded,
			Reason:  "Workload gap exceeds alpha",
			Message: fmt.Sprintf("Workload gap %d exceeds alpha %d", m.WorkloadGap(), th.Alpha),
		})
	}
	if m.DistanceGap() > th.Beta+fairness.Tolerance {
		r.Findings = append(r.Findings, Finding{
			Check:   DistanceGapExceeded,
			Reason:  "Distance gap exceeds beta",
			Message: fmt.Sprintf("Distance gap %.6f exceeds beta %.6f", m.DistanceGap(), th.Beta),
		})
	}
	return r
}

func checkCenterCount(inst *instance.Instance, sol *solution.Solution) *Finding {
	if len(sol.Deployed) <= inst.MaxCenters {
		return nil
	}
	return &Finding{
		Check:   TooManyCenters,
		Reason:  "Too many centers deployed",
		Message: fmt.Sprintf("Too many centers deployed: %d > %d", len(sol.Deployed), inst.MaxCenters),
	}
}

// checkOrphans rejects assignment keys that are not deployed, deployed
// centers that are not communities of the instance, and centers deployed
// twice.
func checkOrphans(inst *instance.Instance, sol *solution.Solution) *Finding {
	deployed := make(map[int]int, len(sol.Deployed))
	var outside, repeated []int
	for _, c := range sol.Deployed {
		deployed[c]++
		if deployed[c] == 2 {
			repeated = append(repeated, c)
		}
		if c < 1 || c > inst.N() {
			outside = append(outside, c)
		}
	}
	var orphans []int
	for c := range sol.Assignments {
		if deployed[c] == 0 {
			orphans = append(orphans, c)
		}
	}
	slices.Sort(orphans)
	slices.Sort(outside)
	slices.Sort(repeated)

	switch {
	case len(orphans) > 0:
		return &Finding{
			Check:   OrphanAssignment,
			Reason:  "Assignments to non-deployed centers",
			Message: "Assignments to non-deployed centers: " + list(orphans),
		}
	case len(outside) > 0:
		return &Finding{
			Check:   OrphanAssignment,
			Reason:  "Centers outside the instance",
			Message: fmt.Sprintf("Centers outside 1..%d: %s", inst.N(), list(outside)),
		}
	case len(repeated) > 0:
		return &Finding{
			Check:   OrphanAssignment,
			Reason:  "Centers deployed more than once",
			Message: "Centers deployed more than once: " + list(repeated),
		}
	}
	return nil
}

func checkCoverage(inst *instance.Instance, sol *solution.Solution) *Finding {
	n := inst.N()
	count := make(map[int]int, n)
	for _, j := range sol.Communities() {
		count[j]++
	}

	var missing, dups, unknown []int
	for j := 1; j <= n; j++ {
		if count[j] == 0 {
			missing = append(missing, j)
		}
	}
	for j, k := range count {
		switch {
		case j < 1 || j > n:
			unknown = append(unknown, j)
		case k > 1:
			dups = append(dups, j)
		}
	}
	if len(missing)+len(dups)+len(unknown) == 0 {
		return nil
	}
	slices.Sort(dups)
	slices.Sort(unknown)

	f := &Finding{
		Check:   CoverageMismatch,
		Reason:  "Some communities missing or duplicated",
		Message: "Some communities missing or duplicated in assignments.",
	}
	if len(missing) > 0 {
		f.Details = append(f.Details, "Missing: "+list(missing))
	}
	if len(dups) > 0 {
		f.Details = append(f.Details, "Duplicates: "+list(dups))
	}
	if len(unknown) > 0 {
		f.Details = append(f.Details, "Unknown: "+list(unknown))
	}
	return f
}

func checkCapacity(inst *instance.Instance, sol *solution.Solution) *Finding {
	for _, c := range sol.Deployed {
		load := 0
		for _, j := range sol.Assignments[c] {
			load += inst.Communities[j-1].Population
		}
		if load > inst.Capacity {
			return &Finding{
				Check:   CapacityExceeded,
				Reason:  fmt.Sprintf("Capacity exceeded at center %d", c),
				Message: fmt.Sprintf("Capacity exceeded at center %d: %d > %d", c, load, inst.Capacity),
			}
		}
	}
	return nil
}

func list(xs []int) string {
	return "[" + solution.JoinIndices(xs) + "]"
}
