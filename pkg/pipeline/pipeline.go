// Package pipeline provides the solve and verify pipeline for siteplan.
//
// This package implements the load → solve → write and load → verify flows
// used by the CLI and the HTTP server. By centralizing this logic, both entry
// points share caching, run recording, hooks and logging.
//
// # Architecture
//
// A solve runs in three stages:
//
//  1. Load: Parse the instance file
//  2. Solve: Look the assignment up in the cache, or run the configured
//     strategy and cache the result
//  3. Record: Convert the assignment to a solution, measure it and store a
//     run record
//
// A verify loads an instance and a solution and checks one against the other.
//
// # Usage
//
// Create a Runner and solve an instance:
//
//	runner := pipeline.NewRunner(cache, nil, store, logger)
//	inst, err := runner.Load(ctx, "Instance_1.txt")
//	result, err := runner.Solve(ctx, inst, pipeline.Options{Strategy: "backtrack"})
//	err = solution.Write(os.Stdout, result.Solution, result.Summary)
//
// Verify a solution file:
//
//	report, err := runner.VerifyFiles(ctx, "Instance_1.txt", "Sol_Instance_1.txt")
//	report.WriteTo(os.Stdout)
package pipeline

import (
	"runtime"
	"time"

	"github.com/matzehuels/siteplan/pkg/assign"
	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/fairness"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/solution"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultStrategy is the assignment strategy used when none is set.
	DefaultStrategy = string(assign.DefaultStrategy)

	// DefaultCacheTTL is how long solved assignments stay cached. Results
	// never go stale, the TTL only bounds cache growth.
	DefaultCacheTTL = 30 * 24 * time.Hour

	// MaxWorkers bounds batch parallelism.
	MaxWorkers = 256
)

// DefaultWorkers is the batch parallelism used when none is set.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a solve. It supports JSON for API requests.
type Options struct {
	Strategy string `json:"strategy,omitempty" validate:"omitempty,oneof=backtrack greedy"`
	Refresh  bool   `json:"refresh,omitempty"` // Skip the cache lookup
	Workers  int    `json:"workers,omitempty" validate:"gte=0,lte=256"`

	// Runtime options (not serialized)
	CacheTTL time.Duration `json:"-" validate:"gte=0"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := errors.ValidateStruct(errors.ErrCodeInvalidInput, o); err != nil {
		return err
	}
	if o.Strategy == "" {
		o.Strategy = DefaultStrategy
	}
	if o.Workers == 0 {
		o.Workers = min(DefaultWorkers(), MaxWorkers)
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	o.validated = true
	return nil
}

// StrategyValue returns the parsed strategy.
func (o *Options) StrategyValue() assign.Strategy {
	s, err := assign.ParseStrategy(o.Strategy)
	if err != nil {
		return assign.DefaultStrategy
	}
	return s
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of one solve.
type Result struct {
	Instance *instance.Instance

	// InstanceHash is the content hash of the canonical instance text.
	InstanceHash string

	Assignment *assign.Assignment
	Solution   *solution.Solution
	Summary    *solution.Summary

	// Stats contains search counters and timing.
	Stats Stats

	// CacheHit is true when the assignment came from the cache.
	CacheHit bool

	// RunID is the ID of the recorded run.
	RunID string
}

// Stats contains solve statistics.
type Stats struct {
	Search   assign.Stats
	Duration time.Duration
}

// Feasible reports whether the solution meets both fairness bounds. It is
// always true for the backtracking strategy.
func (r *Result) Feasible() bool {
	return r.Summary.Metrics.Within(r.Summary.Thresholds)
}

// Thresholds returns the fairness bounds the solution was measured against.
func (r *Result) Thresholds() fairness.Thresholds {
	return r.Summary.Thresholds
}
