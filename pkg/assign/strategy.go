package assign

import (
	"errors"

	"github.com/matzehuels/siteplan/pkg/distance"
	errs "github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/fairness"
	"github.com/matzehuels/siteplan/pkg/instance"
)

// ErrNoFeasibleSolution is returned when a strategy exhausts its options
// without placing every community. It is a legitimate outcome for tight
// instances, not a fault; callers may relax M or C and try again.
var ErrNoFeasibleSolution = errors.New("no feasible solution")

// noFeasible wraps ErrNoFeasibleSolution with the instance limits so that
// both errors.Is(err, ErrNoFeasibleSolution) and the NO_FEASIBLE_SOLUTION
// code match.
func noFeasible(strategy string, inst *instance.Instance) error {
	return errs.Wrap(errs.ErrCodeNoFeasibleSolution, ErrNoFeasibleSolution,
		"%s search exhausted: %d communities, at most %d centers of capacity %d",
		strategy, inst.N(), inst.MaxCenters, inst.Capacity)
}

// Strategy selects how an assignment is constructed.
type Strategy string

const (
	StrategyBacktrack Strategy = "backtrack"
	StrategyGreedy    Strategy = "greedy"
)

// DefaultStrategy is the strategy used when none is configured.
const DefaultStrategy = StrategyBacktrack

// ValidStrategies is the set of supported strategies.
var ValidStrategies = map[Strategy]bool{
	StrategyBacktrack: true,
	StrategyGreedy:    true,
}

// ParseStrategy converts a name into a Strategy. The empty string selects
// DefaultStrategy.
func ParseStrategy(name string) (Strategy, error) {
	if name == "" {
		return DefaultStrategy, nil
	}
	s := Strategy(name)
	if !ValidStrategies[s] {
		return "", errs.New(errs.ErrCodeInvalidInput, "invalid strategy: %q (must be one of: backtrack, greedy)", name)
	}
	return s, nil
}

// Solve derives the distance matrix and thresholds for inst and runs the
// chosen strategy. Stats are zero for the greedy strategy.
func Solve(inst *instance.Instance, strategy Strategy) (*Assignment, Stats, error) {
	dm := distance.ForInstance(inst)
	switch strategy {
	case StrategyGreedy:
		a, err := Greedy(inst, dm)
		return a, Stats{}, err
	case StrategyBacktrack, "":
		return Search(inst, dm, fairness.Compute(inst, dm))
	default:
		return nil, Stats{}, errs.New(errs.ErrCodeUnsupported, "unsupported strategy %q", strategy)
	}
}
