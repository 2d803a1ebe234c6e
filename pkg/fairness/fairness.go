// Package fairness derives the workload and distance balance bounds of an
// instance and measures how well an assignment respects them.
//
// Both bounds are pure functions of the instance:
//
//	alpha = round(total population / (5·M))     workload gap bound
//	beta  = (max pairwise distance) / 5          distance gap bound
//
// The search that produces assignments and the verifier that checks them must
// agree on alpha to the unit, so the rounding rule lives in exactly one place:
// [Alpha]. Do not round alpha anywhere else.
package fairness

import (
	"math"

	"github.com/matzehuels/siteplan/pkg/distance"
	"github.com/matzehuels/siteplan/pkg/instance"
)

const (
	// Divisor scales the aggregates down to the two gap bounds.
	Divisor = 5

	// Tolerance absorbs floating point noise when comparing recomputed
	// values against bounds or reported values.
	Tolerance = 1e-6
)

// Thresholds are the two fairness bounds of an instance.
type Thresholds struct {
	Alpha int     `json:"alpha"` // max workload gap
	Beta  float64 `json:"beta"`  // max distance gap
}

// Alpha returns round(total / (Divisor·maxCenters)) using round-half-to-even,
// the convention of the tooling that produced the existing solution files.
func Alpha(totalPopulation, maxCenters int) int {
	return int(math.RoundToEven(float64(totalPopulation) / float64(Divisor*maxCenters)))
}

// Beta returns the largest distance between two distinct communities divided
// by Divisor. It is 0 for single-community instances.
func Beta(dm *distance.Matrix) float64 {
	return dm.MaxPairwise() / Divisor
}

// Compute derives both thresholds for inst.
func Compute(inst *instance.Instance, dm *distance.Matrix) Thresholds {
	return Thresholds{
		Alpha: Alpha(inst.TotalPopulation(), inst.MaxCenters),
		Beta:  Beta(dm),
	}
}

// Group is one open center and the communities it serves, by 0-based index.
type Group struct {
	Center  int
	Members []int
}

// Metrics summarizes an assignment.
type Metrics struct {
	// Objective is the largest population-weighted distance between a
	// community and its center.
	Objective   float64 `json:"objective"`
	WorkloadMin int     `json:"workload_min"`
	WorkloadMax int     `json:"workload_max"`
	DistanceMin float64 `json:"distance_min"`
	DistanceMax float64 `json:"distance_max"`
}

// WorkloadGap returns max-min workload over the open centers.
func (m Metrics) WorkloadGap() int { return m.WorkloadMax - m.WorkloadMin }

// DistanceGap returns max-min center-to-member distance over all pairs.
func (m Metrics) DistanceGap() float64 { return m.DistanceMax - m.DistanceMin }

// Within reports whether both gaps respect th, allowing Tolerance.
func (m Metrics) Within(th Thresholds) bool {
	return float64(m.WorkloadGap()) <= float64(th.Alpha)+Tolerance &&
		m.DistanceGap() <= th.Beta+Tolerance
}

// Measure computes the metrics of groups. Every group counts toward the
// workload extrema, including groups with no members. Distance extrema are 0
// when no community is assigned.
func Measure(pops []int, dm *distance.Matrix, groups []Group) Metrics {
	var m Metrics
	firstLoad, firstDist := true, true
	for _, g := range groups {
		load := 0
		for _, j := range g.Members {
			load += pops[j]
			d := dm.At(g.Center, j)
			if w := float64(pops[j]) * d; w > m.Objective {
				m.Objective = w
			}
			if firstDist {
				m.DistanceMin, m.DistanceMax = d, d
				firstDist = false
				continue
			}
			m.DistanceMin = min(m.DistanceMin, d)
			m.DistanceMax = max(m.DistanceMax, d)
		}
		if firstLoad {
			m.WorkloadMin, m.WorkloadMax = load, load
			firstLoad = false
			continue
		}
		m.WorkloadMin = min(m.WorkloadMin, load)
		m.WorkloadMax = max(m.WorkloadMax, load)
	}
	return m
}
