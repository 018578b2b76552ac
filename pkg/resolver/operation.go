package resolver

import (
	"fmt"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
)

type PackageAction int

const (
	Install PackageAction = iota
	Uninstall
)

func (a PackageAction) String() string {
	switch a {
	case Install:
		return "install"
	case Uninstall:
		return "uninstall"
	default:
		return fmt.Sprintf("PackageAction(%d)", int(a))
	}
}

// PackageOperation is one step of a plan. Operations are never mutated after
// the walk that created them returns.
type PackageOperation struct {
	Package *repository.Package
	Action  PackageAction
}

func NewOperation(pkg *repository.Package, action PackageAction) *PackageOperation {
	return &PackageOperation{Package: pkg, Action: action}
}

func (o *PackageOperation) String() string {
	return fmt.Sprintf("%s %s", o.Action, o.Package)
}

// Reduce cancels matching install/uninstall pairs of the same identity. The
// result holds the surviving uninstalls followed by the surviving installs,
// each in their original order, with duplicates dropped.
func Reduce(ops []*PackageOperation) []*PackageOperation {
	toRemove := map[string]bool{}
	toAdd := map[string]bool{}
	for _, op := range ops {
		key := op.Package.Identity().Key()
		switch op.Action {
		case Install:
			toAdd[key] = true
		case Uninstall:
			toRemove[key] = true
		}
	}

	var removes, adds []*PackageOperation
	emitted := map[string]bool{}
	for _, op := range ops {
		key := op.Package.Identity().Key()
		if toAdd[key] && toRemove[key] {
			continue
		}
		dedupe := op.Action.String() + " " + key
		if emitted[dedupe] {
			continue
		}
		emitted[dedupe] = true
		if op.Action == Uninstall {
			removes = append(removes, op)
		} else {
			adds = append(adds, op)
		}
	}
	return append(removes, adds...)
}
