package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/observability"
	"github.com/matzehuels/siteplan/pkg/solution"
	"github.com/matzehuels/siteplan/pkg/store"
	"github.com/matzehuels/siteplan/pkg/verify"
)

// Verify checks sol against inst and records the run. Verification findings
// are part of the report, never an error.
func (r *Runner) Verify(ctx context.Context, inst *instance.Instance, sol *solution.Solution) (*verify.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hooks := observability.Verify()
	hooks.OnVerifyStart(ctx, inst.Name)
	start := time.Now()

	report := verify.Verify(inst, sol)
	elapsed := time.Since(start)
	hooks.OnVerifyComplete(ctx, inst.Name, string(report.Failed()), elapsed)

	run := store.NewRun(store.KindVerify, inst.Name)
	run.Centers = sol.Deployed
	run.Objective = sol.Objective
	run.Duration = store.NewDuration(elapsed)
	run.Verdict = store.VerdictOK
	if !report.OK() {
		run.Verdict = string(report.Failed())
	}
	if m := report.Metrics; m != nil {
		run.WorkloadGap = m.WorkloadGap()
		run.DistanceGap = m.DistanceGap()
	}
	r.record(ctx, run)

	r.Logger.Info("verified solution",
		"instance", inst.Name,
		"centers", len(sol.Deployed),
		"verdict", report.Verdict())
	return report, nil
}

// VerifyFiles loads both files and verifies the solution.
func (r *Runner) VerifyFiles(ctx context.Context, instancePath, solutionPath string) (*verify.Report, error) {
	inst, err := r.Load(ctx, instancePath)
	if err != nil {
		return nil, err
	}
	sol, err := r.LoadSolution(ctx, solutionPath)
	if err != nil {
		return nil, err
	}
	return r.Verify(ctx, inst, sol)
}

// PairReport is the outcome of verifying one numbered instance.
type PairReport struct {
	ID           int
	InstancePath string
	SolutionPath string
	Report       *verify.Report
	Err          error
}

// VerifyDir verifies Sol_Instance_<id>.txt against Instance_<id>.txt in dir
// for every id, in order. Load failures are reported per pair; only a
// cancelled ctx stops the loop.
func (r *Runner) VerifyDir(ctx context.Context, dir string, ids []int) ([]PairReport, error) {
	out := make([]PairReport, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		instPath, solPath := InstancePairPaths(dir, id)
		report, err := r.VerifyFiles(ctx, instPath, solPath)
		out = append(out, PairReport{
			ID:           id,
			InstancePath: instPath,
			SolutionPath: solPath,
			Report:       report,
			Err:          err,
		})
	}
	return out, nil
}
