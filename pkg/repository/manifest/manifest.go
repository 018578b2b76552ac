package manifest

type Dependency struct {
	ID string `json:"id"`
	// Version is the accepted range in interval notation; empty means any version
	Version *VersionRange `json:"version,omitempty"`
}

// DependencySet groups dependencies that apply to one target framework.
// An empty TargetFramework applies to every framework.
type DependencySet struct {
	TargetFramework string       `json:"target_framework,omitempty"`
	Dependencies    []Dependency `json:"dependencies"`
}

type Artifact struct {
	URL     string          `json:"url,omitempty"`
	Version SemanticVersion `json:"version"`
	// Dependencies is shorthand for a single framework-agnostic DependencySet
	Dependencies             []Dependency    `json:"dependencies,omitempty"`
	DependencySets           []DependencySet `json:"dependency_sets,omitempty"`
	RequireLicenseAcceptance bool            `json:"require_license_acceptance,omitempty"`
}

type Package struct {
	Name        string     `json:"name"`
	Author      string     `json:"author,omitempty"`
	Description string     `json:"description,omitempty"`
	Artifacts   []Artifact `json:"artifacts"`
}

// RepositoryConfig is the index document served by a repository.
type RepositoryConfig struct {
	Version     int                `json:"manifest_version"`
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Packages    map[string]Package `json:"packages"`
}

// Manifest is the record a target keeps for each installed package.
type Manifest struct {
	ID                       string          `json:"id"`
	Version                  SemanticVersion `json:"version"`
	Name                     string          `json:"name,omitempty"`
	Description              string          `json:"description,omitempty"`
	RepositoryID             string          `json:"repository_id,omitempty"`
	DependencySets           []DependencySet `json:"dependency_sets,omitempty"`
	RequireLicenseAcceptance bool            `json:"require_license_acceptance,omitempty"`
}

// AllDependencySets folds the Dependencies shorthand into the explicit sets.
func (a *Artifact) AllDependencySets() []DependencySet {
	if len(a.Dependencies) == 0 {
		return a.DependencySets
	}
	sets := make([]DependencySet, 0, len(a.DependencySets)+1)
	sets = append(sets, DependencySet{TargetFramework: "", Dependencies: a.Dependencies})
	return append(sets, a.DependencySets...)
}
