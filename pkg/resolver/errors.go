package resolver

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
	"github.com/pingcap/errors"
)

// Requirement records who asked for which versions of a package.
type Requirement struct {
	RequiredBy  string
	VersionSpec *manifest.VersionRange
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s (required by %s)", r.VersionSpec, r.RequiredBy)
}

// DependencyResolutionError means no available version satisfies a dependency.
type DependencyResolutionError struct {
	ID          string
	Requirement Requirement
	// Available is every version considered, before range filtering
	Available []manifest.SemanticVersion
}

func (e *DependencyResolutionError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "unable to resolve dependency '%s %s' required by %s",
		e.ID, e.Requirement.VersionSpec, e.Requirement.RequiredBy)
	if len(e.Available) == 0 {
		fmt.Fprintf(&buf, ": no versions of %s are available", e.ID)
		return buf.String()
	}
	vs := make([]string, 0, len(e.Available))
	for _, v := range e.Available {
		vs = append(vs, v.String())
	}
	fmt.Fprintf(&buf, ": available versions are %s", strings.Join(vs, ", "))
	return buf.String()
}

// DependencyConflictError means two requirements on one package cannot be met
// by a single version.
type DependencyConflictError struct {
	ID string
	// Version is the version already selected in this walk, or installed in the target
	Version   manifest.SemanticVersion
	Installed bool
	// Held is the requirement that put Version in place
	Held Requirement
	// Wanted is the requirement Version does not satisfy
	Wanted Requirement
}

func (e *DependencyConflictError) Error() string {
	where := "selected"
	if e.Installed {
		where = "installed"
	}
	return fmt.Sprintf(
		"dependency conflict on %s: %s version %s is required by %s (%s), but %s requires %s",
		e.ID, where, e.Version, e.Held.RequiredBy, e.Held.VersionSpec, e.Wanted.RequiredBy, e.Wanted.VersionSpec)
}

// PackageHasDependentsError means an uninstall was refused because installed
// packages still need the package.
type PackageHasDependentsError struct {
	Package    *repository.Package
	Dependents []*repository.Package
}

func (e *PackageHasDependentsError) Error() string {
	names := make([]string, 0, len(e.Dependents))
	for _, d := range e.Dependents {
		names = append(names, d.String())
	}
	return fmt.Sprintf("unable to uninstall %s because %s depend(s) on it",
		e.Package, strings.Join(names, ", "))
}

// ResolutionCancelledError is returned when the context ends mid-walk.
type ResolutionCancelledError struct {
	Cause error
}

func (e *ResolutionCancelledError) Error() string {
	return "dependency resolution cancelled: " + e.Cause.Error()
}

func (e *ResolutionCancelledError) Unwrap() error {
	return e.Cause
}

// PackageNotFoundError means the requested package does not exist where it was looked up.
type PackageNotFoundError struct {
	ID      string
	Version *manifest.SemanticVersion
	Source  string
}

func (e *PackageNotFoundError) Error() string {
	if e.Version == nil {
		return fmt.Sprintf("unable to find package '%s' in %s", e.ID, e.Source)
	}
	return fmt.Sprintf("unable to find package '%s %s' in %s", e.ID, e.Version, e.Source)
}

// IsCancelled reports whether err (or its cause) is a ResolutionCancelledError.
func IsCancelled(err error) bool {
	_, ok := errors.Cause(err).(*ResolutionCancelledError) //nolint:errorlint
	return ok
}
