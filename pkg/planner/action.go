package planner

import (
	"fmt"
	"strings"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/resolver"
	"github.com/pingcap/errors"
)

// ActionType is what the caller asked for.
type ActionType int

const (
	InstallAction ActionType = iota
	UninstallAction
	UpdateAction
)

func (t ActionType) String() string {
	switch t {
	case InstallAction:
		return "install"
	case UninstallAction:
		return "uninstall"
	case UpdateAction:
		return "update"
	default:
		return fmt.Sprintf("ActionType(%d)", int(t))
	}
}

// ActionKind is what one step of a plan does.
type ActionKind int

const (
	Install ActionKind = iota
	Uninstall
	// AcceptLicense gates the plan: the executor refuses to mutate the
	// target until every AcceptLicense action has been accepted.
	AcceptLicense
)

func (k ActionKind) String() string {
	switch k {
	case Install:
		return "install"
	case Uninstall:
		return "uninstall"
	case AcceptLicense:
		return "accept-license"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

type Action struct {
	Kind    ActionKind
	Package *repository.Package
}

func (a *Action) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.Package)
}

func actionFromOperation(op *resolver.PackageOperation) *Action {
	kind := Install
	if op.Action == resolver.Uninstall {
		kind = Uninstall
	}
	return &Action{Kind: kind, Package: op.Package}
}

// DependencyBehavior is the caller-facing form of the resolver's version
// policy, with an extra Ignore that skips dependencies altogether.
type DependencyBehavior int

const (
	DependencyLowest DependencyBehavior = iota
	DependencyHighestPatch
	DependencyHighestMinor
	DependencyHighest
	DependencyIgnore
)

func (b DependencyBehavior) String() string {
	if b == DependencyIgnore {
		return "ignore"
	}
	return b.policy().String()
}

func (b DependencyBehavior) policy() resolver.DependencyVersion {
	switch b {
	case DependencyHighestPatch:
		return resolver.HighestPatch
	case DependencyHighestMinor:
		return resolver.HighestMinor
	case DependencyHighest:
		return resolver.Highest
	case DependencyLowest, DependencyIgnore:
		return resolver.Lowest
	default:
		return resolver.Lowest
	}
}

func ParseDependencyBehavior(s string) (DependencyBehavior, error) {
	if strings.EqualFold(strings.TrimSpace(s), "ignore") {
		return DependencyIgnore, nil
	}
	d, err := resolver.ParseDependencyVersion(s)
	if err != nil {
		return DependencyLowest, errors.Errorf("unknown dependency behavior %q", s)
	}
	switch d {
	case resolver.HighestPatch:
		return DependencyHighestPatch, nil
	case resolver.HighestMinor:
		return DependencyHighestMinor, nil
	case resolver.Highest:
		return DependencyHighest, nil
	case resolver.Lowest:
		return DependencyLowest, nil
	default:
		return DependencyLowest, nil
	}
}

// Config is everything a caller may tune about one resolution.
type Config struct {
	AllowPrereleaseVersions bool
	DependencyBehavior      DependencyBehavior
	TargetFramework         string
	AllowSideBySide         bool

	ForceRemove                bool
	KeepDependencies           bool
	SkipPackagesWithDependents bool
}

func (c Config) resolverOptions() resolver.Options {
	return resolver.Options{
		AllowPrereleaseVersions:    c.AllowPrereleaseVersions,
		IgnoreDependencies:         c.DependencyBehavior == DependencyIgnore,
		DependencyVersion:          c.DependencyBehavior.policy(),
		TargetFramework:            c.TargetFramework,
		AllowSideBySide:            c.AllowSideBySide,
		ForceRemove:                c.ForceRemove,
		KeepDependencies:           c.KeepDependencies,
		SkipPackagesWithDependents: c.SkipPackagesWithDependents,
	}
}
