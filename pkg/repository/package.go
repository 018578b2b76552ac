package repository

import (
	"fmt"
	"strings"

	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
)

// Identity is the (ID, Version) pair that names one package artifact.
// IDs compare case-insensitively, versions exactly.
type Identity struct {
	ID      string
	Version manifest.SemanticVersion
}

func NewIdentity(id string, version manifest.SemanticVersion) Identity {
	return Identity{ID: id, Version: version}
}

func (i Identity) Equals(other Identity) bool {
	return i.SameID(other) && i.Version.Equal(other.Version)
}

// SameID is the weaker, ID-only equality.
func (i Identity) SameID(other Identity) bool {
	return strings.EqualFold(i.ID, other.ID)
}

// Key is a map key consistent with Equals: build metadata does not take
// part in version precedence, so it is left out.
func (i Identity) Key() string {
	v, _, _ := strings.Cut(i.Version.String(), "+")
	return NormalizeID(i.ID) + "@" + v
}

func (i Identity) String() string {
	return i.ID + "-" + i.Version.String()
}

// NormalizeID is the canonical form of a package ID for map lookups.
func NormalizeID(id string) string {
	return strings.ToLower(id)
}

// PackageDependency is a constraint on another package. A nil VersionSpec
// accepts any version.
type PackageDependency struct {
	ID          string
	VersionSpec *manifest.VersionRange
}

func (d PackageDependency) String() string {
	if d.VersionSpec.IsAny() {
		return d.ID
	}
	return fmt.Sprintf("%s %s", d.ID, d.VersionSpec)
}

// DependencySet is the list of dependencies for one target framework; an
// empty TargetFramework applies everywhere.
type DependencySet struct {
	TargetFramework string
	Dependencies    []PackageDependency
}

// Package is a specific version of a package, with the metadata resolution needs.
type Package struct {
	ID                       string
	Version                  manifest.SemanticVersion
	RepositoryID             string
	Title                    string
	Description              string
	DependencySets           []DependencySet
	RequireLicenseAcceptance bool
}

func NewPackage(
	packageID string, repoID string, pkg *manifest.Package, art *manifest.Artifact,
) *Package {
	p := &Package{
		ID:                       packageID,
		Version:                  art.Version,
		RepositoryID:             repoID,
		Title:                    "",
		Description:              "",
		DependencySets:           convertDependencySets(art.AllDependencySets()),
		RequireLicenseAcceptance: art.RequireLicenseAcceptance,
	}
	if pkg != nil {
		p.Title = pkg.Name
		p.Description = pkg.Description
	}
	return p
}

// NewPackageFromManifest converts an installed-package record.
func NewPackageFromManifest(m *manifest.Manifest) *Package {
	return &Package{
		ID:                       m.ID,
		Version:                  m.Version,
		RepositoryID:             m.RepositoryID,
		Title:                    m.Name,
		Description:              m.Description,
		DependencySets:           convertDependencySets(m.DependencySets),
		RequireLicenseAcceptance: m.RequireLicenseAcceptance,
	}
}

// Manifest is the inverse of NewPackageFromManifest.
func (p *Package) Manifest() *manifest.Manifest {
	sets := make([]manifest.DependencySet, 0, len(p.DependencySets))
	for _, s := range p.DependencySets {
		ds := make([]manifest.Dependency, 0, len(s.Dependencies))
		for _, d := range s.Dependencies {
			ds = append(ds, manifest.Dependency{ID: d.ID, Version: d.VersionSpec})
		}
		sets = append(sets, manifest.DependencySet{TargetFramework: s.TargetFramework, Dependencies: ds})
	}
	return &manifest.Manifest{
		ID:                       p.ID,
		Version:                  p.Version,
		Name:                     p.Title,
		Description:              p.Description,
		RepositoryID:             p.RepositoryID,
		DependencySets:           sets,
		RequireLicenseAcceptance: p.RequireLicenseAcceptance,
	}
}

func convertDependencySets(sets []manifest.DependencySet) []DependencySet {
	res := make([]DependencySet, 0, len(sets))
	for _, s := range sets {
		ds := make([]PackageDependency, 0, len(s.Dependencies))
		for _, d := range s.Dependencies {
			spec := d.Version
			if spec.IsAny() {
				spec = nil
			}
			ds = append(ds, PackageDependency{ID: d.ID, VersionSpec: spec})
		}
		res = append(res, DependencySet{TargetFramework: s.TargetFramework, Dependencies: ds})
	}
	return res
}

func (p *Package) Identity() Identity {
	return Identity{ID: p.ID, Version: p.Version}
}

func (p *Package) String() string {
	return p.Identity().String()
}

// DependenciesFor returns the dependencies that apply to framework. With no
// framework, the union of every set is returned (first occurrence of an ID wins).
func (p *Package) DependenciesFor(framework string) []PackageDependency {
	if framework == "" {
		var res []PackageDependency
		seen := map[string]bool{}
		for _, s := range p.DependencySets {
			for _, d := range s.Dependencies {
				id := NormalizeID(d.ID)
				if seen[id] {
					continue
				}
				seen[id] = true
				res = append(res, d)
			}
		}
		return res
	}

	set := nearestDependencySet(framework, p.DependencySets)
	if set == nil {
		return nil
	}
	return set.Dependencies
}
