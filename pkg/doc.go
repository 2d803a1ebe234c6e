// Package pkg provides the core libraries for siteplan health-center siting.
//
// # Overview
//
// Siteplan places at most M health centers among N communities. Every
// community is assigned to exactly one deployed center, no center serves
// more population than its capacity, and the assignment must be balanced:
// the workload gap between the busiest and idlest center is bounded by
// alpha, and the gap between the farthest assignment distances is bounded
// by beta. The objective is the largest population-weighted distance.
//
// The pkg directory is organized by stage:
//
//  1. [instance] - Problem instances and their text format
//  2. [distance], [fairness] - Pairwise distances, thresholds and metrics
//  3. [assign] - Backtracking and greedy assignment strategies
//  4. [solution], [verify] - Solution files and the checks run against them
//  5. [pipeline] - Orchestration (load → solve → record, load → verify)
//
// # Architecture
//
// The typical data flow:
//
//	Instance_<k>.txt
//	       ↓
//	  [instance] package (parse)
//	       ↓
//	  [assign] package (search, via [cache])
//	       ↓
//	  [solution] package (write Sol_Instance_<k>.txt)
//	       ↓
//	  [verify] package (check) and [store] (run history)
//
// # Quick Start
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, store.NewNullStore(), logger)
//	inst, _ := runner.Load(ctx, "Instance_1.txt")
//	res, _ := runner.Solve(ctx, inst, pipeline.Options{})
//	_ = solution.Write(os.Stdout, res.Solution, res.Summary)
//
// # Supporting Packages
//
// [cache] - File, Redis and null caches for solved assignments.
//
// [store] - File, MongoDB and null stores for recorded runs.
//
// [render] - Graphviz maps of an assignment (DOT, SVG, PNG, PDF).
//
// [observability] - Hooks for search, verify, cache and HTTP events.
//
// [errors] - Coded errors and struct validation.
//
// [buildinfo] - Version information set at build time.
//
// # Testing
//
//	go test ./...
//	go test ./pkg/assign/...
package pkg
