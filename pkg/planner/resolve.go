package planner

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/resolver"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
	"github.com/pingcap/errors"
	"golang.org/x/sync/errgroup"
)

// ActionResolver turns a request into a plan of actions for one target.
type ActionResolver struct {
	repo    repository.Repository
	metrics *Metrics
}

// NewActionResolver creates an ActionResolver. metrics may be nil.
func NewActionResolver(repo repository.Repository, metrics *Metrics) *ActionResolver {
	return &ActionResolver{repo: repo, metrics: metrics}
}

// ResolveActions plans actionType for the given identities against the
// installed packages in installed. An identity with a zero Version means the
// highest available version (for install/update) or the highest installed
// version (for uninstall). Install and update plans end with an AcceptLicense
// action for every package to be installed that requires one.
func (a *ActionResolver) ResolveActions(
	ctx context.Context, actionType ActionType, installed *state.Snapshot, cfg Config, idents ...repository.Identity,
) ([]*Action, error) {
	start := time.Now()
	actions, err := a.resolveActions(ctx, actionType, installed, cfg, idents)
	a.metrics.observeResolution(actionType, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved actions", "action", actionType, "packages", idents, "actions", actions)
	return actions, nil
}

func (a *ActionResolver) resolveActions(
	ctx context.Context, actionType ActionType, installed *state.Snapshot, cfg Config, idents []repository.Identity,
) ([]*Action, error) {
	if installed == nil {
		installed = state.NewSnapshot()
	}
	opts := cfg.resolverOptions()

	var ops []*resolver.PackageOperation
	switch actionType {
	case InstallAction:
		pkgs, err := a.lookupAvailable(ctx, cfg, idents)
		if err != nil {
			return nil, err
		}
		ops, err = resolver.NewOperationResolver(a.repo, installed, opts).ResolveInstall(ctx, pkgs...)
		if err != nil {
			return nil, err
		}
	case UninstallAction:
		snap := installed
		for _, ident := range idents {
			pkg, err := lookupInstalled(snap, ident)
			if err != nil {
				return nil, err
			}
			uops, err := resolver.NewOperationResolver(a.repo, snap, opts).ResolveUninstall(ctx, pkg)
			if err != nil {
				return nil, err
			}
			ops = append(ops, uops...)
			snap = apply(snap, uops)
		}
	case UpdateAction:
		pkgs, err := a.lookupAvailable(ctx, cfg, idents)
		if err != nil {
			return nil, err
		}
		snap := installed
		for _, pkg := range pkgs {
			uops, err := resolver.NewOperationResolver(a.repo, snap, opts).ResolveUpdate(ctx, pkg)
			if err != nil {
				return nil, err
			}
			ops = append(ops, uops...)
			snap = apply(snap, uops)
		}
		ops = resolver.Reduce(ops)
	default:
		return nil, errors.Errorf("unknown action type %v", actionType)
	}

	actions := make([]*Action, 0, len(ops))
	for _, op := range ops {
		actions = append(actions, actionFromOperation(op))
	}
	if actionType != UninstallAction {
		for _, op := range ops {
			if op.Action == resolver.Install && op.Package.RequireLicenseAcceptance {
				actions = append(actions, &Action{Kind: AcceptLicense, Package: op.Package})
			}
		}
	}
	return actions, nil
}

// lookupAvailable finds the metadata of each requested identity before any
// walk starts.
func (a *ActionResolver) lookupAvailable(
	ctx context.Context, cfg Config, idents []repository.Identity,
) ([]*repository.Package, error) {
	pkgs := make([]*repository.Package, 0, len(idents))
	for _, ident := range idents {
		versions, err := a.repo.FindVersions(ctx, ident.ID)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to look up %s", ident.ID)
		}
		var found *repository.Package
		for _, p := range slices.Backward(versions) {
			if ident.Version.IsZero() {
				if !p.Version.IsPrerelease() || cfg.AllowPrereleaseVersions {
					found = p
					break
				}
				continue
			}
			if p.Version.Equal(ident.Version) {
				found = p
				break
			}
		}
		if found == nil {
			return nil, notFound(ident, a.repo.String())
		}
		pkgs = append(pkgs, found)
	}
	return pkgs, nil
}

func lookupInstalled(snap *state.Snapshot, ident repository.Identity) (*repository.Package, error) {
	var found *repository.Package
	if ident.Version.IsZero() {
		if vs := snap.Versions(ident.ID); len(vs) > 0 {
			found = vs[len(vs)-1]
		}
	} else {
		found = snap.Find(ident)
	}
	if found == nil {
		return nil, notFound(ident, "installed packages")
	}
	return found, nil
}

func notFound(ident repository.Identity, source string) error {
	err := &resolver.PackageNotFoundError{ID: ident.ID, Version: nil, Source: source}
	if !ident.Version.IsZero() {
		v := ident.Version
		err.Version = &v
	}
	return err
}

// apply returns the snapshot that results from executing ops against snap.
func apply(snap *state.Snapshot, ops []*resolver.PackageOperation) *state.Snapshot {
	var removed []repository.Identity
	var added []*repository.Package
	for _, op := range ops {
		if op.Action == resolver.Uninstall {
			removed = append(removed, op.Package.Identity())
		} else {
			added = append(added, op.Package)
		}
	}
	return state.NewSnapshot(append(snap.Without(removed...).Packages(), added...)...)
}

// ResolveForTargets resolves the same request for several targets
// concurrently. Each target gets its own snapshot and walk; the first
// failure cancels the rest.
func (a *ActionResolver) ResolveForTargets(
	ctx context.Context, actionType ActionType, targets map[string]state.Target, cfg Config,
	idents ...repository.Identity,
) (map[string][]*Action, error) {
	var mu sync.Mutex
	plans := make(map[string][]*Action, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for name, target := range targets {
		g.Go(func() error {
			snap, err := state.TakeSnapshot(gctx, target)
			if err != nil {
				return err
			}
			actions, err := a.ResolveActions(gctx, actionType, snap, cfg, idents...)
			if err != nil {
				return errors.Annotatef(err, "target %s", name)
			}
			mu.Lock()
			defer mu.Unlock()
			plans[name] = actions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}
