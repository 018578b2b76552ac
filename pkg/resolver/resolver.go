package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
	"github.com/pingcap/errors"
)

// Options configures one OperationResolver.
type Options struct {
	// AllowPrereleaseVersions lets dependency selection consider prerelease versions.
	// Explicitly requested packages may always be prereleases.
	AllowPrereleaseVersions bool
	// IgnoreDependencies only plans the requested packages themselves.
	IgnoreDependencies bool
	DependencyVersion  DependencyVersion
	// TargetFramework selects dependency sets; empty uses all of them.
	TargetFramework string
	// AllowSideBySide lets several versions of one ID be installed at once.
	AllowSideBySide bool

	// ForceRemove uninstalls a package even when installed packages depend on it.
	ForceRemove bool
	// KeepDependencies uninstalls only the requested package.
	KeepDependencies bool
	// SkipPackagesWithDependents returns an empty plan instead of a
	// PackageHasDependentsError.
	SkipPackagesWithDependents bool
}

func (o Options) String() string {
	return fmt.Sprintf("{prerelease=%t ignore-deps=%t policy=%s framework=%q side-by-side=%t}",
		o.AllowPrereleaseVersions, o.IgnoreDependencies, o.DependencyVersion, o.TargetFramework, o.AllowSideBySide)
}

// OperationResolver turns a requested action into an ordered list of operations.
// It holds no per-walk state, so one resolver may serve concurrent calls as
// long as its repository is safe for concurrent use.
type OperationResolver struct {
	repo      repository.Repository
	installed *state.Snapshot
	opts      Options
}

// NewOperationResolver creates a resolver over repo for a target whose
// installed packages are captured in installed (nil means nothing is installed).
func NewOperationResolver(
	repo repository.Repository, installed *state.Snapshot, opts Options,
) *OperationResolver {
	if installed == nil {
		installed = state.NewSnapshot()
	}
	return &OperationResolver{repo: repo, installed: installed, opts: opts}
}

// ResolveOperations plans action for pkg.
func (r *OperationResolver) ResolveOperations(
	ctx context.Context, pkg *repository.Package, action PackageAction,
) ([]*PackageOperation, error) {
	switch action {
	case Install:
		return r.ResolveInstall(ctx, pkg)
	case Uninstall:
		return r.ResolveUninstall(ctx, pkg)
	default:
		return nil, errors.Errorf("unknown package action %v", action)
	}
}

// ResolveInstall plans the installation of roots and everything they depend
// on. All roots share one walk, so requirements between them that no single
// version satisfies are reported as conflicts. Dependencies always precede their dependents in the result.
func (r *OperationResolver) ResolveInstall(
	ctx context.Context, roots ...*repository.Package,
) ([]*PackageOperation, error) {
	w, err := r.installRoots(ctx, r.installed, nil, roots...)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved install", "roots", roots, "operations", w.ops, "options", r.opts)
	return w.ops, nil
}

// ResolveUninstall plans the removal of pkg and of the dependencies nothing
// else needs. Dependents always precede their dependencies in the result.
func (r *OperationResolver) ResolveUninstall(
	ctx context.Context, pkg *repository.Package,
) ([]*PackageOperation, error) {
	ops, err := r.uninstallWalk(ctx, r.installed, pkg, false)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved uninstall", "package", pkg, "operations", ops, "options", r.opts)
	return ops, nil
}

// ResolveUpdate plans replacing the installed version(s) of pkg.ID with pkg:
// the reduction of uninstalling the old closure and installing the new one.
func (r *OperationResolver) ResolveUpdate(
	ctx context.Context, pkg *repository.Package,
) ([]*PackageOperation, error) {
	olds := r.installed.Versions(pkg.ID)
	if len(olds) == 0 {
		return nil, &PackageNotFoundError{ID: pkg.ID, Version: nil, Source: "installed packages"}
	}
	if r.opts.AllowSideBySide {
		// only the newest side-by-side install is updated
		olds = olds[len(olds)-1:]
	}

	var ops []*PackageOperation
	snap := r.installed
	removed := make(map[string]*repository.Package)
	for _, old := range olds {
		if old.Identity().Equals(pkg.Identity()) {
			continue
		}
		uops, err := r.uninstallWalk(ctx, snap, old, true)
		if err != nil {
			return nil, err
		}
		ops = append(ops, uops...)
		for _, op := range uops {
			removed[repository.NormalizeID(op.Package.ID)] = op.Package
			snap = snap.Without(op.Package.Identity())
		}
	}

	w, err := r.installRoots(ctx, snap, removed, pkg)
	if err != nil {
		return nil, err
	}
	ops = append(ops, w.ops...)

	reduced := Reduce(ops)
	slog.Debug("resolved update", "package", pkg, "raw", ops, "reduced", reduced)
	return reduced, nil
}
