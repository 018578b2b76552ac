package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
	"github.com/pingcap/errors"
)

// LicenseAcceptor decides whether the license of pkg is accepted.
type LicenseAcceptor interface {
	AcceptLicense(ctx context.Context, pkg *repository.Package) (bool, error)
}

type LicenseAcceptorFunc func(ctx context.Context, pkg *repository.Package) (bool, error)

func (f LicenseAcceptorFunc) AcceptLicense(ctx context.Context, pkg *repository.Package) (bool, error) {
	return f(ctx, pkg)
}

// AcceptAllLicenses accepts every license; use it only when the user said so.
var AcceptAllLicenses = LicenseAcceptorFunc(func(context.Context, *repository.Package) (bool, error) {
	return true, nil
})

type LicenseNotAcceptedError struct {
	Package *repository.Package
}

func (e *LicenseNotAcceptedError) Error() string {
	return fmt.Sprintf("the license of %s has not been accepted", e.Package)
}

// ExecutionError reports the action that failed and everything applied before it.
type ExecutionError struct {
	Index   int
	Action  *Action
	Applied []*Action
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to %s (step %d, %d applied before it): %v",
		e.Action, e.Index+1, len(e.Applied), e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type ExecutorOption func(*Executor)

// WithNoOp makes Execute log the plan without touching the target.
func WithNoOp(noOp bool) ExecutorOption {
	return func(e *Executor) { e.noOp = noOp }
}

func WithLicenseAcceptor(a LicenseAcceptor) ExecutorOption {
	return func(e *Executor) { e.acceptor = a }
}

func WithMetrics(m *Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// Executor applies plans to one target, in order, stopping at the first failure.
type Executor struct {
	target   state.Target
	noOp     bool
	acceptor LicenseAcceptor
	metrics  *Metrics
}

func NewExecutor(target state.Target, opts ...ExecutorOption) *Executor {
	e := &Executor{target: target, noOp: false, acceptor: nil, metrics: nil}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies actions and returns the install/uninstall actions that were
// (or, in no-op mode, would have been) applied. Licenses are checked before
// anything is mutated; without a LicenseAcceptor no license is accepted. No-op
// mode asks for no licenses.
func (e *Executor) Execute(ctx context.Context, actions []*Action) ([]*Action, error) {
	if e.noOp {
		var planned []*Action
		for _, a := range actions {
			if a.Kind == AcceptLicense {
				slog.Info("[dry run] would ask for license acceptance", "package", a.Package)
				continue
			}
			slog.Info("[dry run] would apply", "action", a.Kind, "package", a.Package, "target", e.target)
			planned = append(planned, a)
		}
		return planned, nil
	}

	for _, a := range actions {
		if a.Kind != AcceptLicense {
			continue
		}
		if err := e.checkLicense(ctx, a.Package); err != nil {
			e.metrics.observeAction(AcceptLicense, "rejected")
			return nil, err
		}
		e.metrics.observeAction(AcceptLicense, "ok")
	}

	if l, ok := e.target.(state.Locker); ok {
		unlock, err := l.Lock(ctx)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to lock %s", e.target)
		}
		defer func() {
			if err := unlock(); err != nil {
				slog.Error("failed to unlock target", "target", e.target, "error", err)
			}
		}()
	}

	var applied []*Action
	for i, a := range actions {
		if a.Kind == AcceptLicense {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = e.apply(ctx, a)
		}
		if err != nil {
			e.metrics.observeAction(a.Kind, "error")
			slog.Error("failed to apply action", "action", a.Kind, "package", a.Package, "error", err)
			return applied, &ExecutionError{Index: i, Action: a, Applied: applied, Err: err}
		}
		e.metrics.observeAction(a.Kind, "ok")
		slog.Info("applied", "action", a.Kind, "package", a.Package, "target", e.target)
		applied = append(applied, a)
	}
	return applied, nil
}

func (e *Executor) checkLicense(ctx context.Context, pkg *repository.Package) error {
	if e.acceptor == nil {
		return &LicenseNotAcceptedError{Package: pkg}
	}
	ok, err := e.acceptor.AcceptLicense(ctx, pkg)
	if err != nil {
		return errors.Annotatef(err, "failed to ask for license acceptance of %s", pkg)
	}
	if !ok {
		return &LicenseNotAcceptedError{Package: pkg}
	}
	return nil
}

func (e *Executor) apply(ctx context.Context, a *Action) error {
	switch a.Kind {
	case Install:
		return errors.AddStack(e.target.AddPackage(ctx, a.Package))
	case Uninstall:
		return errors.AddStack(e.target.RemovePackage(ctx, a.Package))
	case AcceptLicense:
		return nil
	default:
		return errors.Errorf("unknown action kind %v", a.Kind)
	}
}
