package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/siteplan/pkg/instance"
)

// BatchItem is the outcome of one instance in a batch.
type BatchItem struct {
	Instance *instance.Instance
	Result   *Result
	Err      error
}

// SolveBatch solves independent instances in parallel with at most
// opts.Workers searches running at once. A failing instance does not stop the
// others; its error is reported in its item. Items keep the input order.
// The returned error is non-nil only when ctx is cancelled.
func (r *Runner) SolveBatch(ctx context.Context, insts []*instance.Instance, opts Options) ([]BatchItem, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(insts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, inst := range insts {
		items[i].Instance = inst
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return err
			}
			items[i].Result, items[i].Err = r.Solve(gctx, inst, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, nil
}

// LoadBatch parses every instance file. It stops at the first failure.
func (r *Runner) LoadBatch(ctx context.Context, paths []string) ([]*instance.Instance, error) {
	insts := make([]*instance.Instance, 0, len(paths))
	for _, p := range paths {
		inst, err := r.Load(ctx, p)
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}
	return insts, nil
}
