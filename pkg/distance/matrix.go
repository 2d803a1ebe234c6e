// Package distance precomputes pairwise Euclidean distances between sites.
//
// Communities and candidate center sites are the same point set, so a single
// square matrix serves both the search and the verifier. Construction is
// O(N²); lookups are O(1) reads from a dense row-major buffer.
package distance

import (
	"math"

	"github.com/matzehuels/siteplan/pkg/instance"
)

// Matrix holds symmetric pairwise distances with a zero diagonal.
// It is read-only after construction and safe for concurrent use.
type Matrix struct {
	n int
	w []float64 // w[i*n+j]
	// maxPair is the largest distance between two distinct points.
	maxPair float64
}

// New computes the distance matrix for pts. Coordinates are assumed finite.
func New(pts []instance.Point) *Matrix {
	n := len(pts)
	m := &Matrix{n: n, w: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			d := euclid(pts[i], pts[j])
			m.w[i*n+j] = d
			m.w[j*n+i] = d
			if d > m.maxPair {
				m.maxPair = d
			}
		}
	}
	return m
}

// ForInstance computes the distance matrix over an instance's communities.
func ForInstance(inst *instance.Instance) *Matrix {
	return New(inst.Points())
}

// At returns the distance between nodes i and j.
func (m *Matrix) At(i, j int) float64 { return m.w[i*m.n+j] }

// N returns the number of nodes.
func (m *Matrix) N() int { return m.n }

// MaxPairwise returns the largest distance between two distinct nodes, or 0
// when there are fewer than two nodes.
func (m *Matrix) MaxPairwise() float64 { return m.maxPair }

// Row returns the distances from node i to every node. The returned slice
// aliases the matrix and must not be modified.
func (m *Matrix) Row(i int) []float64 { return m.w[i*m.n : (i+1)*m.n] }

// euclid uses sqrt(dx²+dy²) rather than math.Hypot so that recomputed values
// match solution files written by earlier tooling bit for bit.
func euclid(a, b instance.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
