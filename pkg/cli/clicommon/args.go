package clicommon

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
	"github.com/clintharrison/go-pkg-planner/pkg/resolver"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
	"github.com/pingcap/errors"
)

const versionChars = `[0-9A-Za-z.+-]+`

var constraintRegexp = regexp.MustCompile(
	`^(?<package_id>[A-Za-z0-9_][A-Za-z0-9_.-]*?)` +
		`(?:` +
		// @1.2.3 or @[1.0,2.0)
		`@(?<range>\S+)` +
		`|(?:[\s,]*(?:` +
		// = or ==1.2.3
		`(?:==?\s*(?<eql>` + versionChars + `))` +
		// >=1.2.3
		`|(?:>=\s*(?<min>` + versionChars + `))` +
		// <1.2.3
		`|(?:\<\s*(?<max>` + versionChars + `))` +
		// comma and spaces are allowed between constraints
		`)[\s,]*)*)$`)

// Constraint is a package request from the command line. A nil Range means
// any version.
type Constraint struct {
	ID    string
	Range *manifest.VersionRange
}

func (c *Constraint) String() string {
	if c.Range.IsAny() {
		return c.ID
	}
	return c.ID + "@" + c.Range.String()
}

// ParseConstraint handles:
//
//	package-id
//	package-id=version (or ==)
//	package-id>=version (must be >=)
//	package-id<version  (must only be <)
//	package-id>=1.0.0,<2.0.0 (combined constraints, order doesn't matter)
//	package-id@version or package-id@[1.0,2.0) (interval notation)
func ParseConstraint(arg string) (*Constraint, error) {
	matches := constraintRegexp.FindStringSubmatch(arg)
	if matches == nil {
		return nil, errors.Errorf("unable to parse constraint from arg %q", arg)
	}
	group := func(name string) string {
		return matches[constraintRegexp.SubexpIndex(name)]
	}
	c := &Constraint{ID: group("package_id"), Range: nil}

	if rng := group("range"); rng != "" {
		if strings.ContainsAny(rng[:1], "[(") {
			r, err := manifest.ParseVersionRange(rng)
			if err != nil {
				return nil, errors.Annotatef(err, "unable to parse version range from arg %q", arg)
			}
			c.Range = r
			return c, nil
		}
		sv, err := manifest.ParseVersion(rng)
		if err != nil {
			return nil, errors.Annotatef(err, "unable to parse version from arg %q", arg)
		}
		c.Range = manifest.ExactRange(sv)
		return c, nil
	}

	if eql := group("eql"); eql != "" {
		sv, err := manifest.ParseVersion(eql)
		if err != nil {
			return nil, errors.Annotatef(err, "unable to parse equality version from arg %q", arg)
		}
		c.Range = manifest.ExactRange(sv)
		return c, nil
	}

	minStr, maxStr := group("min"), group("max")
	if minStr == "" && maxStr == "" {
		return c, nil
	}
	c.Range = &manifest.VersionRange{} //nolint:exhaustruct
	if minStr != "" {
		sv, err := manifest.ParseVersion(minStr)
		if err != nil {
			return nil, errors.Annotatef(err, "unable to parse minimum version from arg %q", arg)
		}
		c.Range.MinVersion, c.Range.IsMinInclusive = &sv, true
	}
	if maxStr != "" {
		sv, err := manifest.ParseVersion(maxStr)
		if err != nil {
			return nil, errors.Annotatef(err, "unable to parse maximum version from arg %q", arg)
		}
		c.Range.MaxVersion, c.Range.IsMaxInclusive = &sv, false
	}
	return c, nil
}

func ConstraintsFromArgs(args []string) ([]*Constraint, error) {
	var constraints []*Constraint
	for _, arg := range args {
		c, err := ParseConstraint(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse constraint from arg %q", arg)
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}

// AvailableIdentities picks, for each constraint, the highest repository
// version it allows. Unconstrained requests keep a zero version so the
// planner chooses the latest itself.
func AvailableIdentities(
	ctx context.Context, repo repository.Repository, allowPrerelease bool, cs []*Constraint,
) ([]repository.Identity, error) {
	idents := make([]repository.Identity, 0, len(cs))
	for _, c := range cs {
		if c.Range.IsAny() || c.Range.IsExact() {
			idents = append(idents, exactOrLatest(c))
			continue
		}
		versions, err := repo.FindVersions(ctx, c.ID)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to look up %s", c.ID)
		}
		p := highestMatching(versions, c.Range, allowPrerelease)
		if p == nil {
			return nil, &resolver.PackageNotFoundError{ID: c.String(), Version: nil, Source: repo.String()}
		}
		idents = append(idents, p.Identity())
	}
	return idents, nil
}

// InstalledIdentities is AvailableIdentities against installed packages.
func InstalledIdentities(snap *state.Snapshot, cs []*Constraint) ([]repository.Identity, error) {
	idents := make([]repository.Identity, 0, len(cs))
	for _, c := range cs {
		if c.Range.IsAny() || c.Range.IsExact() {
			idents = append(idents, exactOrLatest(c))
			continue
		}
		p := highestMatching(snap.Versions(c.ID), c.Range, true)
		if p == nil {
			return nil, &resolver.PackageNotFoundError{ID: c.String(), Version: nil, Source: "installed packages"}
		}
		idents = append(idents, p.Identity())
	}
	return idents, nil
}

func exactOrLatest(c *Constraint) repository.Identity {
	if c.Range.IsExact() {
		return repository.NewIdentity(c.ID, *c.Range.MinVersion)
	}
	return repository.NewIdentity(c.ID, manifest.SemanticVersion{})
}

func highestMatching(
	ascending []*repository.Package, r *manifest.VersionRange, allowPrerelease bool,
) *repository.Package {
	for _, p := range slices.Backward(ascending) {
		if r.Satisfies(p.Version) && (allowPrerelease || !p.Version.IsPrerelease()) {
			return p
		}
	}
	return nil
}
