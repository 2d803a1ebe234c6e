package assign

import (
	"cmp"
	"slices"

	"github.com/matzehuels/siteplan/pkg/distance"
	"github.com/matzehuels/siteplan/pkg/fairness"
	"github.com/matzehuels/siteplan/pkg/instance"
)

// Stats describes the work done by a search.
type Stats struct {
	// Nodes counts tentative commits (community placed at a center).
	Nodes int `json:"nodes"`
	// Backtracks counts commits that were reverted.
	Backtracks int `json:"backtracks"`
	// MaxDepth is the largest number of communities placed at once.
	MaxDepth int `json:"max_depth"`
}

// Search finds a feasible assignment by depth-first backtracking.
//
// Communities are placed in order of descending population. For each
// community j the candidates are the currently open centers by ascending
// distance to j (ties by ascending center index), followed, while fewer than
// M centers are open, by opening a new center at j itself. A candidate is
// committed when it has residual capacity for j; the commit is kept only
// while the distance gap over all committed pairs stays within th.Beta and
// the workload gap over open centers stays within th.Alpha. The first
// complete placement is returned; no further candidates are explored.
//
// Every backtrack restores the exact prior state: distance extrema, the
// center's load and residual capacity, the placement itself, and the open
// flag when the candidate had opened the center.
//
// The worst case is exponential in the number of communities. Capacity and
// fairness pruning together with the closest-first order usually converge
// quickly, but there is no polynomial bound. Search never times out; it runs
// until it succeeds or proves the space exhausted, in which case the error
// satisfies errors.Is(err, ErrNoFeasibleSolution).
func Search(inst *instance.Instance, dm *distance.Matrix, th fairness.Thresholds) (*Assignment, Stats, error) {
	s := newSearcher(inst, dm, th)
	if !s.place(0) {
		return nil, s.stats, noFeasible("backtracking", inst)
	}
	return fromOwners(s.owner), s.stats, nil
}

// searcher holds the mutable state of one Search call.
type searcher struct {
	pops       []int
	dm         *distance.Matrix
	th         fairness.Thresholds
	capacity   int
	maxCenters int
	order      []int

	open     []int // open centers in opening order
	isOpen   []bool
	load     []int
	residual []int
	owner    []int // community -> center, -1 when unplaced

	// Distance extrema over committed (center, community) pairs.
	// hasDist is false until the first commit.
	dmin, dmax float64
	hasDist    bool

	stats Stats
}

func newSearcher(inst *instance.Instance, dm *distance.Matrix, th fairness.Thresholds) *searcher {
	n := inst.N()
	pops := inst.Populations()
	s := &searcher{
		pops:       pops,
		dm:         dm,
		th:         th,
		capacity:   inst.Capacity,
		maxCenters: inst.MaxCenters,
		order:      populationOrder(pops),
		isOpen:     make([]bool, n),
		load:       make([]int, n),
		residual:   make([]int, n),
		owner:      make([]int, n),
	}
	for j := range s.owner {
		s.owner[j] = -1
	}
	return s
}

// place assigns order[depth:] and reports whether a full placement was found.
func (s *searcher) place(depth int) bool {
	if depth == len(s.order) {
		return true
	}
	j := s.order[depth]

	for _, i := range s.candidates(j) {
		opening := i == j && !s.isOpen[i]
		if opening {
			s.openCenter(i)
		}
		if s.residual[i] < s.pops[j] {
			if opening {
				s.closeCenter(i)
			}
			continue
		}

		prevMin, prevMax, prevHas := s.dmin, s.dmax, s.hasDist
		s.commit(i, j)
		s.stats.Nodes++
		s.stats.MaxDepth = max(s.stats.MaxDepth, depth+1)

		if s.admissible() && s.place(depth+1) {
			return true
		}

		s.dmin, s.dmax, s.hasDist = prevMin, prevMax, prevHas
		s.uncommit(i, j)
		if opening {
			s.closeCenter(i)
		}
		s.stats.Backtracks++
	}
	return false
}

// candidates lists the open centers closest-first, then j itself when
// another center may still be opened.
func (s *searcher) candidates(j int) []int {
	cands := make([]int, len(s.open), len(s.open)+1)
	copy(cands, s.open)
	slices.SortFunc(cands, func(a, b int) int {
		if c := cmp.Compare(s.dm.At(a, j), s.dm.At(b, j)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(s.open) < s.maxCenters {
		cands = append(cands, j)
	}
	return cands
}

func (s *searcher) openCenter(i int) {
	s.isOpen[i] = true
	s.open = append(s.open, i)
	s.residual[i] = s.capacity
}

// closeCenter undoes openCenter. Only the most recently opened center is
// ever closed, so popping the tail is exact.
func (s *searcher) closeCenter(i int) {
	s.isOpen[i] = false
	s.open = s.open[:len(s.open)-1]
	s.residual[i] = 0
}

func (s *searcher) commit(i, j int) {
	s.owner[j] = i
	s.residual[i] -= s.pops[j]
	s.load[i] += s.pops[j]

	d := s.dm.At(i, j)
	if !s.hasDist {
		s.dmin, s.dmax, s.hasDist = d, d, true
		return
	}
	s.dmin = min(s.dmin, d)
	s.dmax = max(s.dmax, d)
}

func (s *searcher) uncommit(i, j int) {
	s.owner[j] = -1
	s.residual[i] += s.pops[j]
	s.load[i] -= s.pops[j]
}

// admissible checks both fairness bounds on the partial placement.
func (s *searcher) admissible() bool {
	if s.dmax-s.dmin > s.th.Beta {
		return false
	}
	lo, hi := s.load[s.open[0]], s.load[s.open[0]]
	for _, c := range s.open[1:] {
		lo = min(lo, s.load[c])
		hi = max(hi, s.load[c])
	}
	return hi-lo <= s.th.Alpha
}
