package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/solution"
)

// Load parses the instance file at path.
func (r *Runner) Load(ctx context.Context, path string) (*instance.Instance, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inst, err := instance.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("loaded instance",
		"instance", inst.Name,
		"communities", inst.N(),
		"max_centers", inst.MaxCenters,
		"capacity", inst.Capacity,
		"depot", inst.Depot != nil)
	return inst, nil
}

// LoadSolution parses the solution file at path.
func (r *Runner) LoadSolution(ctx context.Context, path string) (*solution.Solution, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return solution.ReadFile(path)
}

// SolutionPath returns the conventional solution file name for an instance
// file: Instance_7.txt becomes Sol_Instance_7.txt in dir, or next to the
// instance when dir is empty.
func SolutionPath(instancePath, dir string) string {
	if dir == "" {
		dir = filepath.Dir(instancePath)
	}
	return filepath.Join(dir, "Sol_"+filepath.Base(instancePath))
}

// InstancePairPaths returns the instance and solution paths for a numbered
// instance in dir.
func InstancePairPaths(dir string, id int) (string, string) {
	inst := filepath.Join(dir, fmt.Sprintf("Instance_%d.txt", id))
	return inst, SolutionPath(inst, dir)
}
