package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
	"github.com/pingcap/errors"
)

const requestedBy = "the install request"

// maxNarrowings bounds how often one ID's range is narrowed before the walk
// gives up and reports the conflict.
const maxNarrowings = 16

type selection struct {
	pkg       *repository.Package
	held      Requirement
	installed bool
}

// installWalk is the state of one install walk. It is never shared.
type installWalk struct {
	r         *OperationResolver
	installed *state.Snapshot
	// preferred holds versions an update just removed, by normalized ID;
	// re-selecting them lets reduction cancel the churn
	preferred map[string]*repository.Package

	// pins narrow the versions of an ID (normalized) to what every
	// requirement seen by an earlier attempt accepts
	pins map[string]*manifest.VersionRange

	visited  map[string]bool
	selected map[string][]*selection
	// replaced holds identity keys of installed packages this walk uninstalls
	replaced map[string]bool
	ops      []*PackageOperation
}

// narrowing aborts an attempt so the walk can restart with id pinned to rng.
type narrowing struct {
	id       string
	rng      *manifest.VersionRange
	conflict *DependencyConflictError
}

func (n *narrowing) Error() string {
	return fmt.Sprintf("retrying with %s narrowed to %s", n.id, n.rng)
}

// installRoots walks roots, restarting from scratch whenever two requirements
// on one ID overlap but the version picked first only satisfies one of them.
// Each restart strictly narrows the range of one ID.
func (r *OperationResolver) installRoots(
	ctx context.Context, installed *state.Snapshot, preferred map[string]*repository.Package,
	roots ...*repository.Package,
) (*installWalk, error) {
	pins := make(map[string]*manifest.VersionRange)
	attempts := make(map[string]int)
	for {
		w := r.newInstallWalk(installed, preferred, pins)
		err := w.walkRoots(ctx, roots)
		n, ok := err.(*narrowing) //nolint:errorlint
		if !ok {
			if err != nil {
				return nil, err
			}
			return w, nil
		}
		attempts[n.id]++
		if attempts[n.id] > maxNarrowings {
			return nil, n.conflict
		}
		pins[n.id] = n.rng
	}
}

func (r *OperationResolver) newInstallWalk(
	installed *state.Snapshot, preferred map[string]*repository.Package, pins map[string]*manifest.VersionRange,
) *installWalk {
	return &installWalk{
		r:         r,
		installed: installed,
		preferred: preferred,
		pins:      pins,
		visited:   make(map[string]bool),
		selected:  make(map[string][]*selection),
		replaced:  make(map[string]bool),
		ops:       nil,
	}
}

func (w *installWalk) walkRoots(ctx context.Context, roots []*repository.Package) error {
	for _, root := range roots {
		if err := w.walkRoot(ctx, root); err != nil {
			return err
		}
	}
	return nil
}

func (w *installWalk) walkRoot(ctx context.Context, root *repository.Package) error {
	req := Requirement{RequiredBy: requestedBy, VersionSpec: manifest.ExactRange(root.Version)}
	id := repository.NormalizeID(root.ID)
	for _, s := range w.selected[id] {
		if s.pkg.Version.Equal(root.Version) {
			return nil
		}
	}
	if sels := w.selected[id]; len(sels) > 0 && !w.r.opts.AllowSideBySide {
		return w.conflict(ctx, root.ID, sels[0], req)
	}
	w.selectPackage(root, req, false)
	return w.walk(ctx, root, req)
}

func (w *installWalk) selectPackage(pkg *repository.Package, req Requirement, installed bool) {
	id := repository.NormalizeID(pkg.ID)
	w.selected[id] = append(w.selected[id], &selection{pkg: pkg, held: req, installed: installed})
}

// walk emits pkg's dependencies (post-order) and then pkg itself, unless it
// is already installed.
func (w *installWalk) walk(ctx context.Context, pkg *repository.Package, req Requirement) error {
	if err := ctx.Err(); err != nil {
		return &ResolutionCancelledError{Cause: err}
	}
	key := pkg.Identity().Key()
	if w.visited[key] {
		return nil
	}
	w.visited[key] = true

	present := w.installed.Exists(pkg.Identity())
	var replacing []*repository.Package
	if !present && !w.r.opts.AllowSideBySide {
		replacing = w.installed.Versions(pkg.ID)
		for _, old := range replacing {
			w.replaced[old.Identity().Key()] = true
		}
		if err := w.checkInstalledRequirements(pkg, req); err != nil {
			return err
		}
	}

	if !w.r.opts.IgnoreDependencies {
		for _, dep := range pkg.DependenciesFor(w.r.opts.TargetFramework) {
			if err := w.walkDependency(ctx, pkg, dep); err != nil {
				return err
			}
		}
	}

	if present {
		slog.Debug("package already installed", "package", pkg)
		return nil
	}
	for _, old := range replacing {
		slog.Debug("replacing installed package", "old", old, "new", pkg)
		w.ops = append(w.ops, NewOperation(old, Uninstall))
	}
	w.ops = append(w.ops, NewOperation(pkg, Install))
	return nil
}

func (w *installWalk) walkDependency(ctx context.Context, parent *repository.Package, dep repository.PackageDependency) error {
	req := Requirement{RequiredBy: parent.String(), VersionSpec: dep.VersionSpec}
	id := repository.NormalizeID(dep.ID)

	if sels := w.selected[id]; len(sels) > 0 {
		for _, s := range sels {
			if dep.VersionSpec.Satisfies(s.pkg.Version) {
				return nil
			}
		}
		if !w.r.opts.AllowSideBySide {
			return w.conflict(ctx, dep.ID, sels[0], req)
		}
	}

	// a pin that excludes dep entirely is left for the requirer that
	// contributed it to report as a conflict
	rng := dep.VersionSpec
	if pinned, ok := dep.VersionSpec.Intersect(w.pins[id]); ok {
		rng = pinned
	}

	installed := w.installed.Versions(dep.ID)
	for _, p := range slices.Backward(installed) {
		if w.replaced[p.Identity().Key()] || !rng.Satisfies(p.Version) {
			continue
		}
		slog.Debug("dependency satisfied by installed package", "dependency", dep, "installed", p)
		w.selectPackage(p, req, true)
		return w.walk(ctx, p, req)
	}

	pick, err := w.choose(ctx, dep.ID, rng, req)
	if err != nil {
		return err
	}
	slog.Debug("selected dependency", "dependency", dep, "required_by", parent, "selected", pick,
		"policy", w.r.opts.DependencyVersion)
	w.selectPackage(pick, req, false)
	return w.walk(ctx, pick, req)
}

// conflict handles wanted missing s, the version already selected for id.
// When some available version satisfies wanted, s's requirement and any
// earlier pin, the attempt is abandoned with id narrowed to that intersection.
func (w *installWalk) conflict(ctx context.Context, id string, s *selection, wanted Requirement) error {
	conflict := &DependencyConflictError{ID: id, Version: s.pkg.Version, Installed: s.installed, Held: s.held, Wanted: wanted}
	rng, ok := w.pins[repository.NormalizeID(id)].Intersect(s.held.VersionSpec)
	if ok {
		rng, ok = rng.Intersect(wanted.VersionSpec)
	}
	if ok {
		all, err := w.allVersions(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range slices.Concat(w.selectable(all), w.installed.Versions(id)) {
			if rng.Satisfies(p.Version) {
				slog.Debug("narrowing dependency range", "package", id, "range", rng, "held", s.held, "wanted", wanted)
				return &narrowing{id: repository.NormalizeID(id), rng: rng, conflict: conflict}
			}
		}
	}
	slog.Debug("dependency conflict", "package", id, "selected", s.pkg.Version, "held", s.held, "wanted", wanted)
	return conflict
}

// selectable drops the versions dependency selection may not pick.
func (w *installWalk) selectable(all []*repository.Package) []*repository.Package {
	if w.r.opts.AllowPrereleaseVersions {
		return all
	}
	return slices.DeleteFunc(slices.Clone(all), func(p *repository.Package) bool {
		return p.Version.IsPrerelease()
	})
}

func (w *installWalk) allVersions(ctx context.Context, id string) ([]*repository.Package, error) {
	all, err := w.r.repo.FindVersions(ctx, id)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to find versions of %s", id)
	}
	return all, nil
}

// choose applies the version policy to the repository's candidates within
// rng. Candidates installed dependents also accept are preferred; when none
// exist the policy's pick is returned and walk reports the conflict.
func (w *installWalk) choose(
	ctx context.Context, id string, rng *manifest.VersionRange, req Requirement,
) (*repository.Package, error) {
	all, err := w.allVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	candidates := w.selectable(all)

	installedReqs := w.installedRequirements(id)
	acceptable := func(p *repository.Package) bool {
		for _, ir := range installedReqs {
			if !ir.VersionSpec.Satisfies(p.Version) {
				return false
			}
		}
		return true
	}

	if pref := w.preferred[repository.NormalizeID(id)]; pref != nil &&
		rng.Satisfies(pref.Version) && acceptable(pref) {
		return pref, nil
	}

	policy := w.r.opts.DependencyVersion
	pick := SelectVersion(policy, rng, candidates)
	if pick == nil {
		available := make([]manifest.SemanticVersion, 0, len(all))
		for _, p := range all {
			available = append(available, p.Version)
		}
		return nil, &DependencyResolutionError{ID: id, Requirement: req, Available: available}
	}
	if !w.r.opts.AllowSideBySide && len(installedReqs) > 0 {
		if p := SelectVersion(policy, rng, slices.DeleteFunc(slices.Clone(candidates), func(p *repository.Package) bool {
			return !acceptable(p)
		})); p != nil {
			pick = p
		}
	}
	return pick, nil
}

// installedRequirements collects what installed packages (other than those
// being replaced) require of id.
func (w *installWalk) installedRequirements(id string) []Requirement {
	var reqs []Requirement
	for _, p := range w.installed.Packages() {
		if w.replaced[p.Identity().Key()] {
			continue
		}
		for _, d := range p.DependenciesFor(w.r.opts.TargetFramework) {
			if repository.NormalizeID(d.ID) == repository.NormalizeID(id) {
				reqs = append(reqs, Requirement{RequiredBy: p.String(), VersionSpec: d.VersionSpec})
			}
		}
	}
	return reqs
}

// checkInstalledRequirements makes sure pkg, about to be installed, does not
// break an installed package that depends on its ID.
func (w *installWalk) checkInstalledRequirements(pkg *repository.Package, req Requirement) error {
	for _, ir := range w.installedRequirements(pkg.ID) {
		if ir.VersionSpec.Satisfies(pkg.Version) {
			continue
		}
		conflict := &DependencyConflictError{ID: pkg.ID, Version: pkg.Version, Installed: false, Held: ir, Wanted: req}
		if v, ok := w.installed.IsInstalled(pkg.ID); ok {
			conflict.Version, conflict.Installed = v, true
		} else if pref := w.preferred[repository.NormalizeID(pkg.ID)]; pref != nil {
			conflict.Version, conflict.Installed = pref.Version, true
		}
		slog.Debug("installed dependent conflict", "package", pkg, "held", ir, "wanted", req)
		return conflict
	}
	return nil
}
