package state

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
	"github.com/pingcap/errors"
)

// Target is where packages get installed. Only the executor mutates it.
type Target interface {
	fmt.Stringer
	// IsInstalled reports the installed version of id (the highest one, when
	// several versions are installed side by side).
	IsInstalled(ctx context.Context, id string) (manifest.SemanticVersion, bool, error)
	InstalledPackages(ctx context.Context) ([]*repository.Package, error)
	AddPackage(ctx context.Context, pkg *repository.Package) error
	RemovePackage(ctx context.Context, pkg *repository.Package) error
}

// Locker is implemented by targets that can be locked against concurrent writers.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// Snapshot is a read-only view of installed packages, taken once before a
// resolution so the walk never does I/O against the target.
type Snapshot struct {
	pkgs []*repository.Package
	byID map[string][]*repository.Package
}

func NewSnapshot(pkgs ...*repository.Package) *Snapshot {
	s := &Snapshot{
		pkgs: nil,
		byID: make(map[string][]*repository.Package),
	}
	seen := make(map[string]bool)
	for _, p := range pkgs {
		if seen[p.Identity().Key()] {
			continue
		}
		seen[p.Identity().Key()] = true
		s.pkgs = append(s.pkgs, p)
		id := repository.NormalizeID(p.ID)
		s.byID[id] = append(s.byID[id], p)
	}
	for _, vs := range s.byID {
		slices.SortFunc(vs, func(a, b *repository.Package) int { return a.Version.Compare(b.Version) })
	}
	return s
}

// TakeSnapshot reads the installed packages of t.
func TakeSnapshot(ctx context.Context, t Target) (*Snapshot, error) {
	pkgs, err := t.InstalledPackages(ctx)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to list installed packages of %s", t)
	}
	return NewSnapshot(pkgs...), nil
}

// Packages returns every installed package in installation-record order.
func (s *Snapshot) Packages() []*repository.Package {
	return slices.Clone(s.pkgs)
}

// Versions returns the installed versions of id, ascending.
func (s *Snapshot) Versions(id string) []*repository.Package {
	return slices.Clone(s.byID[repository.NormalizeID(id)])
}

// IsInstalled reports the highest installed version of id.
func (s *Snapshot) IsInstalled(id string) (manifest.SemanticVersion, bool) {
	vs := s.byID[repository.NormalizeID(id)]
	if len(vs) == 0 {
		return manifest.SemanticVersion{}, false
	}
	return vs[len(vs)-1].Version, true
}

// Find returns the installed package with exactly this identity, or nil.
func (s *Snapshot) Find(ident repository.Identity) *repository.Package {
	for _, p := range s.byID[repository.NormalizeID(ident.ID)] {
		if p.Version.Equal(ident.Version) {
			return p
		}
	}
	return nil
}

func (s *Snapshot) Exists(ident repository.Identity) bool {
	return s.Find(ident) != nil
}

// Without returns a copy of s with the given identities removed.
func (s *Snapshot) Without(idents ...repository.Identity) *Snapshot {
	drop := make(map[string]bool, len(idents))
	for _, i := range idents {
		drop[i.Key()] = true
	}
	var keep []*repository.Package
	for _, p := range s.pkgs {
		if !drop[p.Identity().Key()] {
			keep = append(keep, p)
		}
	}
	return NewSnapshot(keep...)
}

// DependenciesOf resolves the dependencies of p against installed packages:
// for each dependency, the installed versions that satisfy its range.
func (s *Snapshot) DependenciesOf(p *repository.Package, framework string) []*repository.Package {
	var res []*repository.Package
	for _, d := range p.DependenciesFor(framework) {
		for _, candidate := range s.byID[repository.NormalizeID(d.ID)] {
			if d.VersionSpec.Satisfies(candidate.Version) {
				res = append(res, candidate)
			}
		}
	}
	return res
}

// Dependents returns the installed packages with a dependency that p satisfies.
func (s *Snapshot) Dependents(p *repository.Package, framework string) []*repository.Package {
	var res []*repository.Package
	for _, candidate := range s.pkgs {
		if candidate.Identity().Equals(p.Identity()) {
			continue
		}
		for _, d := range candidate.DependenciesFor(framework) {
			if repository.NormalizeID(d.ID) == repository.NormalizeID(p.ID) && d.VersionSpec.Satisfies(p.Version) {
				res = append(res, candidate)
				break
			}
		}
	}
	return res
}

// MemoryTarget keeps installed packages in memory. It is safe for concurrent use.
type MemoryTarget struct {
	name string

	mu   sync.RWMutex
	pkgs []*repository.Package
}

var (
	_ Target = (*MemoryTarget)(nil)
	_ Target = (*FolderTarget)(nil)
	_ Locker = (*FolderTarget)(nil)
)

func NewMemoryTarget(name string, installed ...*repository.Package) *MemoryTarget {
	return &MemoryTarget{name: name, mu: sync.RWMutex{}, pkgs: slices.Clone(installed)}
}

func (t *MemoryTarget) String() string {
	return fmt.Sprintf("MemoryTarget(%s)", t.name)
}

func (t *MemoryTarget) IsInstalled(_ context.Context, id string) (manifest.SemanticVersion, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := NewSnapshot(t.pkgs...).IsInstalled(id)
	return v, ok, nil
}

func (t *MemoryTarget) InstalledPackages(_ context.Context) ([]*repository.Package, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.pkgs), nil
}

func (t *MemoryTarget) AddPackage(_ context.Context, pkg *repository.Package) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.pkgs {
		if p.Identity().Equals(pkg.Identity()) {
			return errors.Errorf("%s is already installed in %s", pkg, t)
		}
	}
	t.pkgs = append(t.pkgs, pkg)
	return nil
}

func (t *MemoryTarget) RemovePackage(_ context.Context, pkg *repository.Package) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.pkgs {
		if p.Identity().Equals(pkg.Identity()) {
			t.pkgs = slices.Delete(t.pkgs, i, i+1)
			return nil
		}
	}
	return errors.Errorf("%s is not installed in %s", pkg, t)
}
