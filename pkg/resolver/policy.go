package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
	"github.com/pingcap/errors"
)

// DependencyVersion picks one version when several satisfy a dependency.
type DependencyVersion int

const (
	Lowest DependencyVersion = iota
	HighestPatch
	HighestMinor
	Highest
)

var dependencyVersionNames = map[DependencyVersion]string{
	Lowest:       "lowest",
	HighestPatch: "highest-patch",
	HighestMinor: "highest-minor",
	Highest:      "highest",
}

func (d DependencyVersion) String() string {
	if s, ok := dependencyVersionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("DependencyVersion(%d)", int(d))
}

// ParseDependencyVersion accepts "lowest", "highest-patch" (or "HighestPatch"),
// "highest-minor" and "highest", case-insensitively.
func ParseDependencyVersion(s string) (DependencyVersion, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	for d, name := range dependencyVersionNames {
		if strings.ReplaceAll(name, "-", "") == norm {
			return d, nil
		}
	}
	return Lowest, errors.Errorf("unknown dependency version policy %q", s)
}

// SelectVersion applies policy to the candidates satisfying r (every
// candidate, when r is nil). Candidates need not be sorted. It returns nil
// when nothing satisfies r.
func SelectVersion(
	policy DependencyVersion, r *manifest.VersionRange, candidates []*repository.Package,
) *repository.Package {
	var ok []*repository.Package
	for _, c := range candidates {
		if r.Satisfies(c.Version) {
			ok = append(ok, c)
		}
	}
	if len(ok) == 0 {
		return nil
	}
	slices.SortStableFunc(ok, func(a, b *repository.Package) int { return a.Version.Compare(b.Version) })

	lowest := ok[0]
	switch policy {
	case Lowest:
		return lowest
	case Highest:
		return ok[len(ok)-1]
	case HighestPatch:
		return lastMatching(ok, func(v manifest.SemanticVersion) bool {
			return v.Major() == lowest.Version.Major() && v.Minor() == lowest.Version.Minor()
		})
	case HighestMinor:
		return lastMatching(ok, func(v manifest.SemanticVersion) bool {
			return v.Major() == lowest.Version.Major()
		})
	default:
		return lowest
	}
}

// lastMatching scans an ascending list; pkgs[0] always matches.
func lastMatching(pkgs []*repository.Package, match func(manifest.SemanticVersion) bool) *repository.Package {
	best := pkgs[0]
	for _, p := range pkgs[1:] {
		if match(p.Version) {
			best = p
		}
	}
	return best
}
