package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/siteplan/pkg/assign"
	"github.com/matzehuels/siteplan/pkg/cache"
	"github.com/matzehuels/siteplan/pkg/distance"
	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/observability"
	"github.com/matzehuels/siteplan/pkg/solution"
	"github.com/matzehuels/siteplan/pkg/store"
)

// Runner encapsulates pipeline execution with caching and run recording.
// Both CLI and API use this to avoid duplicating that logic.
//
// The Runner holds no per-solve state. Multiple goroutines can safely use the
// same Runner; every search gets its own state.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store
	Logger *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
// If st is nil, a NullStore is used (runs are not recorded).
func NewRunner(c cache.Cache, keyer cache.Keyer, st store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if st == nil {
		st = store.NewNullStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  cache.NewObserved(c),
		Keyer:  keyer,
		Store:  st,
		Logger: logger,
	}
}

// Solve assigns the communities of inst using opts.Strategy. A cached
// assignment is reused unless opts.Refresh is set. The outcome, success or
// not, is recorded in the store.
func (r *Runner) Solve(ctx context.Context, inst *instance.Instance, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	strategy := opts.StrategyValue()
	start := time.Now()

	result := &Result{
		Instance:     inst,
		InstanceHash: cache.Hash(inst.Canonical()),
	}
	run := store.NewRun(store.KindSolve, inst.Name)
	run.InstanceHash = result.InstanceHash
	run.Strategy = string(strategy)

	a, stats, hit, err := r.assignment(ctx, inst, result.InstanceHash, strategy, opts)
	result.Stats = Stats{Search: stats, Duration: time.Since(start)}
	result.CacheHit = hit
	run.Nodes, run.Backtracks, run.CacheHit = stats.Nodes, stats.Backtracks, hit
	run.Duration = store.NewDuration(result.Stats.Duration)

	if err != nil {
		run.Error = errors.UserMessage(err)
		run.Verdict = string(errors.GetCode(err))
		r.record(ctx, run)
		return nil, err
	}

	dm := distance.ForInstance(inst)
	result.Assignment = a
	result.Solution, result.Summary = solution.FromAssignment(inst, dm, a)

	run.Centers = result.Solution.Deployed
	run.Objective = result.Summary.Metrics.Objective
	run.WorkloadGap = result.Summary.Metrics.WorkloadGap()
	run.DistanceGap = result.Summary.Metrics.DistanceGap()
	run.Verdict = store.VerdictOK
	if !result.Feasible() {
		run.Verdict = "UNBALANCED"
	}
	r.record(ctx, run)
	result.RunID = run.ID

	r.Logger.Info("solved instance",
		"instance", inst.Name,
		"strategy", strategy,
		"centers", a.NumCenters(),
		"objective", fmt.Sprintf("%.4f", run.Objective),
		"cached", hit,
		"duration", result.Stats.Duration)
	return result, nil
}

// assignment returns the cached assignment for inst or computes and caches a
// new one.
func (r *Runner) assignment(ctx context.Context, inst *instance.Instance, hash string, strategy assign.Strategy, opts Options) (*assign.Assignment, assign.Stats, bool, error) {
	key := r.Keyer.SolutionKey(hash, string(strategy))

	if !opts.Refresh {
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.Logger.Warn("cache lookup failed", "error", err)
		}
		if hit {
			var a assign.Assignment
			if err := json.Unmarshal(data, &a); err == nil {
				r.Logger.Debug("assignment from cache", "instance", inst.Name, "key", key)
				return &a, assign.Stats{}, true, nil
			}
			// Unreadable entries fall through to a fresh search
		}
	}

	hooks := observability.Search()
	hooks.OnSearchStart(ctx, inst.Name, string(strategy), inst.N())
	start := time.Now()
	a, stats, err := assign.Solve(inst, strategy)
	hooks.OnSearchComplete(ctx, inst.Name, string(strategy), stats.Nodes, stats.Backtracks, time.Since(start), err)

	r.Logger.Debug("search finished",
		"instance", inst.Name,
		"strategy", strategy,
		"nodes", stats.Nodes,
		"backtracks", stats.Backtracks,
		"max_depth", stats.MaxDepth,
		"duration", time.Since(start))
	if err != nil {
		return nil, stats, false, err
	}

	if data, err := json.Marshal(a); err == nil {
		if err := r.Cache.Set(ctx, key, data, opts.CacheTTL); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		}
	}
	return a, stats, false, nil
}

// record stores run, logging instead of failing when the store is down.
func (r *Runner) record(ctx context.Context, run *store.Run) {
	if err := r.Store.Record(ctx, run); err != nil {
		r.Logger.Warn("could not record run", "id", run.ID, "error", err)
	}
}

// History lists recorded runs, newest first.
func (r *Runner) History(ctx context.Context, f store.Filter) ([]*store.Run, error) {
	return r.Store.List(ctx, f)
}

// Close releases resources held by the runner (the cache and the store).
func (r *Runner) Close() error {
	var first error
	if r.Cache != nil {
		first = r.Cache.Close()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
