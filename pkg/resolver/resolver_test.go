package resolver

import (
	"context"
	"testing"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
	"github.com/stretchr/testify/require"
)

func mkPkg(id, version string, deps ...repository.PackageDependency) *repository.Package {
	return &repository.Package{ //nolint:exhaustruct
		ID:             id,
		Version:        manifest.MustParseVersion(version),
		DependencySets: []repository.DependencySet{{TargetFramework: "", Dependencies: deps}},
	}
}

func mkDep(id, rng string) repository.PackageDependency {
	return repository.PackageDependency{ID: id, VersionSpec: manifest.MustParseVersionRange(rng)}
}

func opStrings(ops []*PackageOperation) []string {
	res := []string{}
	for _, op := range ops {
		res = append(res, op.String())
	}
	return res
}

// universe is a small repository shared by most tests:
//
//	App 1.0.0 -> Lib [1.0,2.0)
//	App 1.1.0 -> Lib [1.0,2.0)
//	App 2.0.0 -> Lib [1.5,3.0), Logging 1.0
//	Lib 1.0.0, 1.5.0, 2.0.0
//	Logging 1.0.0, 1.1.0-beta
func universe() []*repository.Package {
	return []*repository.Package{
		mkPkg("App", "1.0.0", mkDep("Lib", "[1.0,2.0)")),
		mkPkg("App", "1.1.0", mkDep("Lib", "[1.0,2.0)")),
		mkPkg("App", "2.0.0", mkDep("Lib", "[1.5,3.0)"), mkDep("Logging", "1.0")),
		mkPkg("Lib", "1.0.0"),
		mkPkg("Lib", "1.5.0"),
		mkPkg("Lib", "2.0.0"),
		mkPkg("Logging", "1.0.0"),
		mkPkg("Logging", "1.1.0-beta"),
	}
}

func find(t *testing.T, repo repository.Repository, id, version string) *repository.Package {
	t.Helper()
	p, err := repository.Find(context.Background(), repo, id, manifest.MustParseVersion(version))
	require.NoError(t, err)
	require.NotNil(t, p, "%s %s is not in the repository", id, version)
	return p
}

func TestSelectVersion(t *testing.T) {
	t.Parallel()
	candidates := []*repository.Package{
		mkPkg("C", "2.0.0"),
		mkPkg("C", "1.0.0"),
		mkPkg("C", "1.2.0"),
		mkPkg("C", "1.0.5"),
	}
	atLeast1 := manifest.MustParseVersionRange("1.0.0")

	tests := []struct {
		policy   DependencyVersion
		rng      *manifest.VersionRange
		expected string
	}{
		{Lowest, atLeast1, "1.0.0"},
		{HighestPatch, atLeast1, "1.0.5"},
		{HighestMinor, atLeast1, "1.2.0"},
		{Highest, atLeast1, "2.0.0"},
		{Highest, manifest.MustParseVersionRange("[1.0,2.0)"), "1.2.0"},
		{HighestPatch, manifest.MustParseVersionRange("(1.0.0,)"), "1.0.5"},
		{HighestMinor, nil, "1.2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String()+" "+tt.rng.String(), func(t *testing.T) {
			t.Parallel()
			p := SelectVersion(tt.policy, tt.rng, candidates)
			require.NotNil(t, p)
			require.Equal(t, tt.expected, p.Version.String())
		})
	}

	require.Nil(t, SelectVersion(Highest, manifest.MustParseVersionRange("3.0"), candidates))
	require.Nil(t, SelectVersion(Lowest, nil, nil))
}

func TestParseDependencyVersion(t *testing.T) {
	t.Parallel()
	for in, expected := range map[string]DependencyVersion{
		"lowest":        Lowest,
		"HighestPatch":  HighestPatch,
		"highest-minor": HighestMinor,
		" Highest ":     Highest,
	} {
		d, err := ParseDependencyVersion(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, d, in)
	}
	_, err := ParseDependencyVersion("newest")
	require.Error(t, err)
}

func TestReduce(t *testing.T) {
	t.Parallel()
	a1 := mkPkg("A", "1.0.0")
	a1Again := mkPkg("a", "1.0.0")
	a2 := mkPkg("A", "2.0.0")
	b1 := mkPkg("B", "1.0.0")

	tests := []struct {
		name     string
		ops      []*PackageOperation
		expected []string
	}{
		{
			name:     "same identity cancels",
			ops:      []*PackageOperation{NewOperation(a1, Uninstall), NewOperation(a1Again, Install)},
			expected: []string{},
		},
		{
			name:     "build metadata does not tell identities apart",
			ops:      []*PackageOperation{NewOperation(mkPkg("A", "1.0.0+build.1"), Uninstall), NewOperation(mkPkg("A", "1.0.0+build.2"), Install)},
			expected: []string{},
		},
		{
			name:     "different versions survive",
			ops:      []*PackageOperation{NewOperation(a1, Uninstall), NewOperation(a2, Install)},
			expected: []string{"uninstall A-1.0.0", "install A-2.0.0"},
		},
		{
			name: "removes come first and duplicates are dropped",
			ops: []*PackageOperation{
				NewOperation(b1, Install),
				NewOperation(a1, Uninstall),
				NewOperation(b1, Install),
				NewOperation(a2, Install),
			},
			expected: []string{"uninstall A-1.0.0", "install B-1.0.0", "install A-2.0.0"},
		},
		{
			name:     "empty",
			ops:      nil,
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, opStrings(Reduce(tt.ops)))
		})
	}
}

func TestResolveInstall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		universe  []*repository.Package
		installed []*repository.Package
		opts      Options
		root      [2]string
		expected  []string
	}{
		{
			name:     "end to end with highest policy",
			universe: universe(),
			opts:     Options{DependencyVersion: Highest}, //nolint:exhaustruct
			root:     [2]string{"App", "1.0.0"},
			expected: []string{"install Lib-1.5.0", "install App-1.0.0"},
		},
		{
			name:     "lowest policy",
			universe: universe(),
			opts:     Options{DependencyVersion: Lowest}, //nolint:exhaustruct
			root:     [2]string{"App", "1.0.0"},
			expected: []string{"install Lib-1.0.0", "install App-1.0.0"},
		},
		{
			name:     "dependencies precede dependents",
			universe: universe(),
			opts:     Options{DependencyVersion: Lowest}, //nolint:exhaustruct
			root:     [2]string{"App", "2.0.0"},
			expected: []string{"install Lib-1.5.0", "install Logging-1.0.0", "install App-2.0.0"},
		},
		{
			name:     "prerelease dependencies are skipped by default",
			universe: universe(),
			opts:     Options{DependencyVersion: Highest}, //nolint:exhaustruct
			root:     [2]string{"App", "2.0.0"},
			expected: []string{"install Lib-2.0.0", "install Logging-1.0.0", "install App-2.0.0"},
		},
		{
			name:     "prerelease dependencies when allowed",
			universe: universe(),
			opts:     Options{DependencyVersion: Highest, AllowPrereleaseVersions: true}, //nolint:exhaustruct
			root:     [2]string{"App", "2.0.0"},
			expected: []string{"install Lib-2.0.0", "install Logging-1.1.0-beta", "install App-2.0.0"},
		},
		{
			name:     "prerelease root is always allowed",
			universe: universe(),
			opts:     Options{}, //nolint:exhaustruct
			root:     [2]string{"Logging", "1.1.0-beta"},
			expected: []string{"install Logging-1.1.0-beta"},
		},
		{
			name:     "ignore dependencies",
			universe: universe(),
			opts:     Options{IgnoreDependencies: true}, //nolint:exhaustruct
			root:     [2]string{"App", "2.0.0"},
			expected: []string{"install App-2.0.0"},
		},
		{
			name:      "already installed closure is a no-op",
			universe:  universe(),
			installed: []*repository.Package{mkPkg("App", "1.0.0", mkDep("Lib", "[1.0,2.0)")), mkPkg("Lib", "1.0.0")},
			opts:      Options{DependencyVersion: Highest}, //nolint:exhaustruct
			root:      [2]string{"App", "1.0.0"},
			expected:  []string{},
		},
		{
			name:      "installed dependency is reused",
			universe:  universe(),
			installed: []*repository.Package{mkPkg("Lib", "1.0.0")},
			opts:      Options{DependencyVersion: Highest}, //nolint:exhaustruct
			root:      [2]string{"App", "1.0.0"},
			expected:  []string{"install App-1.0.0"},
		},
		{
			name:      "installed package is completed",
			universe:  universe(),
			installed: []*repository.Package{mkPkg("App", "1.0.0", mkDep("Lib", "[1.0,2.0)"))},
			opts:      Options{DependencyVersion: Lowest}, //nolint:exhaustruct
			root:      [2]string{"App", "1.0.0"},
			expected:  []string{"install Lib-1.0.0"},
		},
		{
			name:      "other installed version is replaced",
			universe:  universe(),
			installed: []*repository.Package{mkPkg("Lib", "1.0.0")},
			opts:      Options{}, //nolint:exhaustruct
			root:      [2]string{"Lib", "2.0.0"},
			expected:  []string{"uninstall Lib-1.0.0", "install Lib-2.0.0"},
		},
		{
			name:      "side by side keeps the other version",
			universe:  universe(),
			installed: []*repository.Package{mkPkg("Lib", "1.0.0")},
			opts:      Options{AllowSideBySide: true}, //nolint:exhaustruct
			root:      [2]string{"Lib", "2.0.0"},
			expected:  []string{"install Lib-2.0.0"},
		},
		{
			name:     "installed dependents narrow the choice",
			universe: universe(),
			installed: []*repository.Package{
				mkPkg("Tool", "1.0.0", mkDep("Lib", "[1.0,1.5]")),
			},
			opts:     Options{DependencyVersion: Highest}, //nolint:exhaustruct
			root:     [2]string{"App", "2.0.0"},
			expected: []string{"install Lib-1.5.0", "install Logging-1.0.0", "install App-2.0.0"},
		},
		{
			name: "cycles terminate",
			universe: []*repository.Package{
				mkPkg("A", "1.0.0", mkDep("B", "1.0")),
				mkPkg("B", "1.0.0", mkDep("A", "1.0")),
			},
			opts:     Options{}, //nolint:exhaustruct
			root:     [2]string{"A", "1.0.0"},
			expected: []string{"install B-1.0.0", "install A-1.0.0"},
		},
		{
			name: "diamond selects once",
			universe: []*repository.Package{
				mkPkg("Top", "1.0.0", mkDep("Left", "1.0"), mkDep("Right", "1.0")),
				mkPkg("Left", "1.0.0", mkDep("Base", "[1.0,2.0)")),
				mkPkg("Right", "1.0.0", mkDep("base", "1.2")),
				mkPkg("Base", "1.0.0"),
				mkPkg("Base", "1.2.0"),
			},
			opts:     Options{DependencyVersion: Highest}, //nolint:exhaustruct
			root:     [2]string{"Top", "1.0.0"},
			expected: []string{"install Base-1.2.0", "install Left-1.0.0", "install Right-1.0.0", "install Top-1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := repository.NewMemoryRepository("test", tt.universe...)
			r := NewOperationResolver(repo, state.NewSnapshot(tt.installed...), tt.opts)
			ops, err := r.ResolveInstall(context.Background(), find(t, repo, tt.root[0], tt.root[1]))
			require.NoError(t, err)
			require.Equal(t, tt.expected, opStrings(ops))
		})
	}
}

func TestResolveInstallFramework(t *testing.T) {
	t.Parallel()
	web := &repository.Package{ //nolint:exhaustruct
		ID:      "Web",
		Version: manifest.MustParseVersion("3.1.0"),
		DependencySets: []repository.DependencySet{
			{TargetFramework: "net45", Dependencies: []repository.PackageDependency{mkDep("Lib", "[1.0]")}},
			{TargetFramework: "netstandard2.0", Dependencies: []repository.PackageDependency{{ID: "Logging", VersionSpec: nil}}},
		},
	}
	repo := repository.NewMemoryRepository("test", append(universe(), web)...)

	for framework, expected := range map[string][]string{
		"net48":          {"install Lib-1.0.0", "install Web-3.1.0"},
		"netstandard2.1": {"install Logging-1.0.0", "install Web-3.1.0"},
		"":               {"install Lib-1.0.0", "install Logging-1.0.0", "install Web-3.1.0"},
	} {
		r := NewOperationResolver(repo, nil, Options{TargetFramework: framework}) //nolint:exhaustruct
		ops, err := r.ResolveInstall(context.Background(), web)
		require.NoError(t, err, framework)
		require.Equal(t, expected, opStrings(ops), framework)
	}
}

func TestResolveInstallIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewMemoryRepository("test", universe()...)
	app := find(t, repo, "App", "2.0.0")

	ops, err := NewOperationResolver(repo, nil, Options{}).ResolveInstall(ctx, app) //nolint:exhaustruct
	require.NoError(t, err)
	require.NotEmpty(t, ops)

	var installed []*repository.Package
	for _, op := range ops {
		installed = append(installed, op.Package)
	}
	r := NewOperationResolver(repo, state.NewSnapshot(installed...), Options{}) //nolint:exhaustruct
	again, err := r.ResolveInstall(ctx, app)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestResolveInstallConflict(t *testing.T) {
	t.Parallel()
	repo := repository.NewMemoryRepository("test",
		mkPkg("A", "1.0.0", mkDep("C", "2.0")),
		mkPkg("B", "1.0.0", mkDep("C", "(,2.0)")),
		mkPkg("C", "1.0.0"),
		mkPkg("C", "2.0.0"),
	)
	r := NewOperationResolver(repo, nil, Options{}) //nolint:exhaustruct
	_, err := r.ResolveInstall(context.Background(), find(t, repo, "A", "1.0.0"), find(t, repo, "B", "1.0.0"))
	require.Error(t, err)

	var conflict *DependencyConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "C", conflict.ID)
	require.Equal(t, "A-1.0.0", conflict.Held.RequiredBy)
	require.Equal(t, "B-1.0.0", conflict.Wanted.RequiredBy)
	require.Contains(t, err.Error(), "dependency conflict on C")
	require.Contains(t, err.Error(), "A-1.0.0")
	require.Contains(t, err.Error(), "B-1.0.0")
}

func TestResolveInstallOverlappingRequirements(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		universe []*repository.Package
		roots    [][2]string
		expected []string
	}{
		{
			name: "transitive requirement narrows an earlier pick",
			universe: []*repository.Package{
				mkPkg("App", "1.0.0", repository.PackageDependency{ID: "B", VersionSpec: nil}, mkDep("C", "[1.0]")),
				mkPkg("C", "1.0.0", mkDep("B", "[1.0,2.0)")),
				mkPkg("B", "1.0.0"),
				mkPkg("B", "2.0.0"),
			},
			roots:    [][2]string{{"App", "1.0.0"}},
			expected: []string{"install B-1.0.0", "install C-1.0.0", "install App-1.0.0"},
		},
		{
			name: "sibling roots share one version",
			universe: []*repository.Package{
				mkPkg("A", "1.0.0", mkDep("C", "1.0")),
				mkPkg("B", "1.0.0", mkDep("C", "(,2.0)")),
				mkPkg("C", "1.0.0"),
				mkPkg("C", "2.0.0"),
			},
			roots:    [][2]string{{"A", "1.0.0"}, {"B", "1.0.0"}},
			expected: []string{"install C-1.0.0", "install A-1.0.0", "install B-1.0.0"},
		},
		{
			name: "explicit root narrows a dependency",
			universe: []*repository.Package{
				mkPkg("A", "1.0.0", mkDep("C", "1.0")),
				mkPkg("C", "1.0.0"),
				mkPkg("C", "1.5.0"),
				mkPkg("C", "2.0.0"),
			},
			roots:    [][2]string{{"A", "1.0.0"}, {"C", "1.5.0"}},
			expected: []string{"install C-1.5.0", "install A-1.0.0"},
		},
		{
			name: "narrowing accumulates over several requirers",
			universe: []*repository.Package{
				mkPkg("Top", "1.0.0", mkDep("X", "1.0"), mkDep("Y", "1.0"), mkDep("Z", "1.0")),
				mkPkg("X", "1.0.0", mkDep("C", "1.0")),
				mkPkg("Y", "1.0.0", mkDep("C", "(,3.0)")),
				mkPkg("Z", "1.0.0", mkDep("C", "(,2.0)")),
				mkPkg("C", "1.0.0"),
				mkPkg("C", "2.0.0"),
				mkPkg("C", "3.0.0"),
			},
			roots:    [][2]string{{"Top", "1.0.0"}},
			expected: []string{"install C-1.0.0", "install X-1.0.0", "install Y-1.0.0", "install Z-1.0.0", "install Top-1.0.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := repository.NewMemoryRepository("test", tt.universe...)
			var roots []*repository.Package
			for _, root := range tt.roots {
				roots = append(roots, find(t, repo, root[0], root[1]))
			}
			r := NewOperationResolver(repo, nil, Options{DependencyVersion: Highest}) //nolint:exhaustruct
			ops, err := r.ResolveInstall(context.Background(), roots...)
			require.NoError(t, err)
			require.Equal(t, tt.expected, opStrings(ops))
		})
	}
}

func TestResolveInstallConflictAfterNarrowing(t *testing.T) {
	t.Parallel()
	repo := repository.NewMemoryRepository("test",
		mkPkg("Top", "1.0.0", mkDep("X", "1.0"), mkDep("Y", "1.0"), mkDep("Z", "1.0")),
		mkPkg("X", "1.0.0", mkDep("C", "1.0")),
		mkPkg("Y", "1.0.0", mkDep("C", "(,2.0)")),
		mkPkg("Z", "1.0.0", mkDep("C", "2.0")),
		mkPkg("C", "1.0.0"),
		mkPkg("C", "2.0.0"),
	)
	r := NewOperationResolver(repo, nil, Options{DependencyVersion: Highest}) //nolint:exhaustruct
	_, err := r.ResolveInstall(context.Background(), find(t, repo, "Top", "1.0.0"))

	var conflict *DependencyConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "C", conflict.ID)
	require.Equal(t, "1.0.0", conflict.Version.String())
	require.Equal(t, "Z-1.0.0", conflict.Wanted.RequiredBy)
}

func TestResolveInstallConflictWithInstalledDependent(t *testing.T) {
	t.Parallel()
	repo := repository.NewMemoryRepository("test", universe()...)
	installed := state.NewSnapshot(mkPkg("App", "1.0.0", mkDep("Lib", "[1.0,2.0)")), mkPkg("Lib", "1.0.0"))
	r := NewOperationResolver(repo, installed, Options{}) //nolint:exhaustruct

	_, err := r.ResolveInstall(context.Background(), find(t, repo, "Lib", "2.0.0"))
	var conflict *DependencyConflictError
	require.ErrorAs(t, err, &conflict)
	require.True(t, conflict.Installed)
	require.Equal(t, "1.0.0", conflict.Version.String())
	require.Equal(t, "App-1.0.0", conflict.Held.RequiredBy)
}

func TestResolveInstallUnresolvable(t *testing.T) {
	t.Parallel()
	repo := repository.NewMemoryRepository("test",
		mkPkg("App", "1.0.0", mkDep("Lib", "[3.0,4.0)")),
		mkPkg("Lib", "1.0.0"),
		mkPkg("Lib", "2.0.0"),
		mkPkg("Tool", "1.0.0", mkDep("Missing", "1.0")),
	)
	r := NewOperationResolver(repo, nil, Options{}) //nolint:exhaustruct

	_, err := r.ResolveInstall(context.Background(), find(t, repo, "App", "1.0.0"))
	var resErr *DependencyResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Equal(t, "Lib", resErr.ID)
	require.Len(t, resErr.Available, 2)
	require.Contains(t, err.Error(), "available versions are 1.0.0, 2.0.0")

	_, err = r.ResolveInstall(context.Background(), find(t, repo, "Tool", "1.0.0"))
	require.ErrorAs(t, err, &resErr)
	require.Contains(t, err.Error(), "no versions of Missing are available")
}

func TestResolveCancelled(t *testing.T) {
	t.Parallel()
	repo := repository.NewMemoryRepository("test", universe()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewOperationResolver(repo, nil, Options{}) //nolint:exhaustruct
	_, err := r.ResolveInstall(ctx, find(t, repo, "App", "1.0.0"))
	require.True(t, IsCancelled(err))
	require.ErrorIs(t, err, context.Canceled)
}

func TestResolveUninstall(t *testing.T) {
	t.Parallel()
	app := mkPkg("App", "1.0.0", mkDep("Lib", "[1.0,2.0)"))
	lib := mkPkg("Lib", "1.0.0", mkDep("Core", "1.0"))
	core := mkPkg("Core", "1.0.0")
	tool := mkPkg("Tool", "1.0.0", mkDep("Core", "1.0"))
	// A and B depend on each other; C only needs B
	cycleA := mkPkg("A", "1.0.0", mkDep("B", "1.0"))
	cycleB := mkPkg("B", "1.0.0", mkDep("A", "1.0"))
	cycleC := mkPkg("C", "1.0.0", mkDep("B", "1.0"))

	tests := []struct {
		name      string
		installed []*repository.Package
		opts      Options
		root      *repository.Package
		expected  []string
	}{
		{
			name:      "dependents before dependencies",
			installed: []*repository.Package{core, lib, app},
			root:      app,
			expected:  []string{"uninstall App-1.0.0", "uninstall Lib-1.0.0", "uninstall Core-1.0.0"},
		},
		{
			name:      "shared dependencies stay",
			installed: []*repository.Package{core, lib, app, tool},
			root:      app,
			expected:  []string{"uninstall App-1.0.0", "uninstall Lib-1.0.0"},
		},
		{
			name:      "keep dependencies",
			installed: []*repository.Package{core, lib, app},
			opts:      Options{KeepDependencies: true}, //nolint:exhaustruct
			root:      app,
			expected:  []string{"uninstall App-1.0.0"},
		},
		{
			name:      "force removes a package with dependents",
			installed: []*repository.Package{core, lib, app},
			opts:      Options{ForceRemove: true}, //nolint:exhaustruct
			root:      lib,
			expected:  []string{"uninstall Lib-1.0.0", "uninstall Core-1.0.0"},
		},
		{
			name:      "skip packages with dependents",
			installed: []*repository.Package{core, lib, app},
			opts:      Options{SkipPackagesWithDependents: true}, //nolint:exhaustruct
			root:      lib,
			expected:  []string{},
		},
		{
			name: "cycles terminate",
			installed: []*repository.Package{
				mkPkg("A", "1.0.0", mkDep("B", "1.0")),
				mkPkg("B", "1.0.0", mkDep("A", "1.0")),
			},
			root:     mkPkg("A", "1.0.0"),
			expected: []string{"uninstall A-1.0.0", "uninstall B-1.0.0"},
		},
		{
			name:      "cycle kept by an outside dependent is skipped",
			installed: []*repository.Package{cycleA, cycleB, cycleC},
			opts:      Options{SkipPackagesWithDependents: true}, //nolint:exhaustruct
			root:      cycleA,
			expected:  []string{},
		},
		{
			name:      "force removes only the root of a kept cycle",
			installed: []*repository.Package{cycleA, cycleB, cycleC},
			opts:      Options{ForceRemove: true}, //nolint:exhaustruct
			root:      cycleA,
			expected:  []string{"uninstall A-1.0.0"},
		},
		{
			name:      "removing the outside dependent takes the cycle with it",
			installed: []*repository.Package{cycleA, cycleB, cycleC},
			root:      cycleC,
			expected:  []string{"uninstall C-1.0.0", "uninstall B-1.0.0", "uninstall A-1.0.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewOperationResolver(repository.NewMemoryRepository("empty"), state.NewSnapshot(tt.installed...), tt.opts)
			ops, err := r.ResolveOperations(context.Background(), tt.root, Uninstall)
			require.NoError(t, err)
			require.Equal(t, tt.expected, opStrings(ops))
		})
	}
}

func TestResolveUninstallErrors(t *testing.T) {
	t.Parallel()
	app := mkPkg("App", "1.0.0", mkDep("Lib", "[1.0,2.0)"))
	lib := mkPkg("Lib", "1.0.0")
	r := NewOperationResolver(repository.NewMemoryRepository("empty"), state.NewSnapshot(app, lib), Options{}) //nolint:exhaustruct

	_, err := r.ResolveUninstall(context.Background(), lib)
	var hasDeps *PackageHasDependentsError
	require.ErrorAs(t, err, &hasDeps)
	require.Equal(t, []*repository.Package{app}, hasDeps.Dependents)
	require.Contains(t, err.Error(), "App-1.0.0 depend(s) on it")

	cycle := NewOperationResolver(repository.NewMemoryRepository("empty"), state.NewSnapshot(
		mkPkg("A", "1.0.0", mkDep("B", "1.0")),
		mkPkg("B", "1.0.0", mkDep("A", "1.0")),
		mkPkg("C", "1.0.0", mkDep("B", "1.0")),
	), Options{}) //nolint:exhaustruct
	ops, err := cycle.ResolveUninstall(context.Background(), mkPkg("A", "1.0.0"))
	require.ErrorAs(t, err, &hasDeps)
	require.Empty(t, ops)
	require.Equal(t, "A-1.0.0", hasDeps.Package.String())
	require.Equal(t, "B-1.0.0", hasDeps.Dependents[0].String())

	_, err = r.ResolveUninstall(context.Background(), mkPkg("Lib", "2.0.0"))
	var notFound *PackageNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "installed packages", notFound.Source)
}

func TestResolveUpdate(t *testing.T) {
	t.Parallel()
	repo := repository.NewMemoryRepository("test", universe()...)
	installed := state.NewSnapshot(mkPkg("App", "1.0.0", mkDep("Lib", "[1.0,2.0)")), mkPkg("Lib", "1.0.0"))

	tests := []struct {
		name     string
		version  string
		expected []string
	}{
		{
			name:     "unchanged dependency cancels out",
			version:  "1.1.0",
			expected: []string{"uninstall App-1.0.0", "install App-1.1.0"},
		},
		{
			name:    "dependency moves when the range does",
			version: "2.0.0",
			expected: []string{
				"uninstall App-1.0.0", "uninstall Lib-1.0.0",
				"install Lib-1.5.0", "install Logging-1.0.0", "install App-2.0.0",
			},
		},
		{
			name:     "same version is a no-op",
			version:  "1.0.0",
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewOperationResolver(repo, installed, Options{}) //nolint:exhaustruct
			ops, err := r.ResolveUpdate(context.Background(), find(t, repo, "App", tt.version))
			require.NoError(t, err)
			require.Equal(t, tt.expected, opStrings(ops))
		})
	}

	r := NewOperationResolver(repo, nil, Options{}) //nolint:exhaustruct
	_, err := r.ResolveUpdate(context.Background(), find(t, repo, "App", "2.0.0"))
	var notFound *PackageNotFoundError
	require.ErrorAs(t, err, &notFound)
}
