// Package instance defines the siting problem instance and its text format.
//
// An instance is a set of communities, each with a 2-D coordinate and an
// integer population, together with the maximum number of centers M and a
// uniform center capacity C. Every community site is also a candidate center
// site, so the same point set serves both roles.
//
// # File Format
//
// The first line is "<N> <M>". Two layouts follow it:
//
//	5 2
//	0 12.5 40.0              <- depot line, older layout only (ignored)
//	1 10.0 20.0 120 35       <- "<index> <x> <y> <capacity> <population>"
//	...
//
// Indices in the file are 1-based; [Community.Index] is 0-based. Blank lines
// are ignored. Capacity is read from the first node; all nodes are expected
// to carry the same value.
package instance

import (
	"math"

	"github.com/matzehuels/siteplan/pkg/errors"
)

// Point is a 2-D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Community is a demand point. It is immutable once loaded.
type Community struct {
	Index      int   `json:"index"` // 0-based
	Location   Point `json:"location"`
	Population int   `json:"population"`
}

// Instance is a loaded siting problem.
type Instance struct {
	// Name identifies the instance in logs and the run history.
	// It is usually the base name of the file it was read from.
	Name        string      `json:"name,omitempty"`
	MaxCenters  int         `json:"max_centers"`
	Capacity    int         `json:"capacity"`
	Communities []Community `json:"communities"`

	// Depot is set when the instance used the older layout. The siting
	// stage never reads it; it is kept so the instance can be written back.
	Depot *Point `json:"depot,omitempty"`
}

// N returns the number of communities.
func (inst *Instance) N() int { return len(inst.Communities) }

// Points returns the community coordinates in index order.
func (inst *Instance) Points() []Point {
	pts := make([]Point, len(inst.Communities))
	for i, c := range inst.Communities {
		pts[i] = c.Location
	}
	return pts
}

// Populations returns the community populations in index order.
func (inst *Instance) Populations() []int {
	pops := make([]int, len(inst.Communities))
	for i, c := range inst.Communities {
		pops[i] = c.Population
	}
	return pops
}

// TotalPopulation returns the sum of all community populations.
func (inst *Instance) TotalPopulation() int {
	total := 0
	for _, c := range inst.Communities {
		total += c.Population
	}
	return total
}

// Validate checks the structural invariants of an instance built in code
// rather than parsed from a file.
func (inst *Instance) Validate() error {
	if len(inst.Communities) == 0 {
		return errors.New(errors.ErrCodeInvalidInstance, "instance has no communities")
	}
	if inst.MaxCenters < 1 {
		return errors.New(errors.ErrCodeInvalidInstance, "max centers must be at least 1, got %d", inst.MaxCenters)
	}
	if inst.Capacity < 0 {
		return errors.New(errors.ErrCodeInvalidInstance, "capacity must be non-negative, got %d", inst.Capacity)
	}
	for i, c := range inst.Communities {
		if c.Index != i {
			return errors.New(errors.ErrCodeInvalidInstance, "community at position %d has index %d", i, c.Index)
		}
		if c.Population < 0 {
			return errors.New(errors.ErrCodeInvalidInstance, "community %d has negative population %d", i+1, c.Population)
		}
		if !finite(c.Location.X) || !finite(c.Location.Y) {
			return errors.New(errors.ErrCodeInvalidInstance, "community %d has a non-finite coordinate", i+1)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
