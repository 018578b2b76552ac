package resolver

import (
	"context"
	"log/slog"
	"slices"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
)

// uninstallWalk plans removing root from snap along with the dependencies
// that nothing outside the removal still needs. forUpdate skips the check
// for dependents of root, since an update reinstalls it.
func (r *OperationResolver) uninstallWalk(
	ctx context.Context, snap *state.Snapshot, root *repository.Package, forUpdate bool,
) ([]*PackageOperation, error) {
	if found := snap.Find(root.Identity()); found != nil {
		root = found
	} else {
		v := root.Version
		return nil, &PackageNotFoundError{ID: root.ID, Version: &v, Source: "installed packages"}
	}

	var order []*repository.Package
	visited := map[string]bool{}
	var visit func(p *repository.Package) error
	visit = func(p *repository.Package) error {
		if err := ctx.Err(); err != nil {
			return &ResolutionCancelledError{Cause: err}
		}
		if visited[p.Identity().Key()] {
			return nil
		}
		visited[p.Identity().Key()] = true
		if !r.opts.KeepDependencies {
			for _, dep := range snap.DependenciesOf(p, r.opts.TargetFramework) {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		order = append(order, p)
		return nil
	}
	if err := visit(root); err != nil {
		return nil, err
	}

	removing := make(map[string]bool, len(order))
	for _, p := range order {
		removing[p.Identity().Key()] = true
	}

	// A package stays when anything not being removed still depends on it.
	// Keeping one can strand its own dependencies, hence the fixpoint. The
	// root takes part too, since a kept dependency may depend on it in turn;
	// an update replaces the root, and force removes it regardless.
	pinRoot := forUpdate || r.opts.ForceRemove
	for changed := true; changed; {
		changed = false
		for _, p := range order {
			key := p.Identity().Key()
			if !removing[key] || (p == root && pinRoot) {
				continue
			}
			for _, d := range snap.Dependents(p, r.opts.TargetFramework) {
				if !removing[d.Identity().Key()] {
					slog.Debug("keeping package still in use", "package", p, "dependent", d)
					removing[key] = false
					changed = true
					break
				}
			}
		}
	}

	if !forUpdate {
		var outside []*repository.Package
		for _, d := range snap.Dependents(root, r.opts.TargetFramework) {
			if !removing[d.Identity().Key()] {
				outside = append(outside, d)
			}
		}
		if len(outside) > 0 {
			switch {
			case r.opts.ForceRemove:
				slog.Debug("forcing removal of package with dependents", "package", root, "dependents", outside)
			case r.opts.SkipPackagesWithDependents:
				slog.Debug("skipping package with dependents", "package", root, "dependents", outside)
				return nil, nil
			default:
				return nil, &PackageHasDependentsError{Package: root, Dependents: outside}
			}
		}
	}

	ops := make([]*PackageOperation, 0, len(order))
	for _, p := range slices.Backward(order) {
		if removing[p.Identity().Key()] {
			ops = append(ops, NewOperation(p, Uninstall))
		}
	}
	return ops, nil
}
