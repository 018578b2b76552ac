package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
	"github.com/clintharrison/go-pkg-planner/pkg/utilio"
	"github.com/pingcap/errors"
	"github.com/ulikunitz/xz"
)

// MaxIndexSize bounds the decoded size of one repository index file.
const MaxIndexSize = 256 << 20

// Repository is a source of package metadata.
type Repository interface {
	fmt.Stringer
	ID() string
	// FetchPackages returns every package version the repository knows about.
	FetchPackages(ctx context.Context) ([]*Package, error)
	// FindVersions returns all versions of id, sorted ascending by version.
	// An unknown id is not an error; it has no versions.
	FindVersions(ctx context.Context, id string) ([]*Package, error)
}

// Find returns the package with exactly the given identity, or nil.
func Find(ctx context.Context, repo Repository, id string, version manifest.SemanticVersion) (*Package, error) {
	versions, err := repo.FindVersions(ctx, id)
	if err != nil {
		return nil, errors.AddStack(err)
	}
	for _, p := range versions {
		if p.Version.Equal(version) {
			return p, nil
		}
	}
	return nil, nil //nolint:nilnil
}

func Exists(ctx context.Context, repo Repository, id string, version manifest.SemanticVersion) (bool, error) {
	p, err := Find(ctx, repo, id, version)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// RangeFilter adapts a version range into a package predicate for search callers.
func RangeFilter(r *manifest.VersionRange) func(*Package) bool {
	satisfies := r.ToDelegate()
	return func(p *Package) bool {
		return satisfies(p.Version)
	}
}

func sortPackages(pkgs []*Package) {
	slices.SortStableFunc(pkgs, func(a, b *Package) int {
		if c := strings.Compare(NormalizeID(a.ID), NormalizeID(b.ID)); c != 0 {
			return c
		}
		return a.Version.Compare(b.Version)
	})
}

// index groups packages by normalized ID with each group sorted ascending.
// Duplicate identities keep the first occurrence, so earlier sources win.
func index(pkgs []*Package) map[string][]*Package {
	byID := make(map[string][]*Package)
	seen := make(map[string]bool)
	for _, p := range pkgs {
		key := p.Identity().Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		id := NormalizeID(p.ID)
		byID[id] = append(byID[id], p)
	}
	for _, vs := range byID {
		sortPackages(vs)
	}
	return byID
}

// MemoryRepository serves a fixed set of packages.
type MemoryRepository struct {
	id   string
	pkgs []*Package
	byID map[string][]*Package
}

func NewMemoryRepository(id string, pkgs ...*Package) *MemoryRepository {
	return &MemoryRepository{
		id:   id,
		pkgs: pkgs,
		byID: index(pkgs),
	}
}

func (r *MemoryRepository) String() string {
	return fmt.Sprintf("MemoryRepository(%s, %d packages)", r.id, len(r.pkgs))
}

func (r *MemoryRepository) ID() string {
	return r.id
}

func (r *MemoryRepository) FetchPackages(_ context.Context) ([]*Package, error) {
	return slices.Clone(r.pkgs), nil
}

func (r *MemoryRepository) FindVersions(_ context.Context, id string) ([]*Package, error) {
	return slices.Clone(r.byID[NormalizeID(id)]), nil
}

// FileRepository reads a RepositoryConfig index from a local file. Files ending
// in ".xz" are decompressed. The index is loaded once and then served from
// memory; a load interrupted by its context is retried by the next caller.
type FileRepository struct {
	path string

	mu         sync.Mutex
	loaded     bool
	loadErr    error
	repoConfig *manifest.RepositoryConfig
	pkgs       []*Package
	byID       map[string][]*Package
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path} //nolint:exhaustruct
}

func (r *FileRepository) String() string {
	return fmt.Sprintf("FileRepository(%s)", r.path)
}

func (r *FileRepository) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.repoConfig == nil {
		return r.path
	}
	return r.repoConfig.ID
}

func (r *FileRepository) load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.loadErr
	}

	var repoConfig manifest.RepositoryConfig
	err := readJSONFromFile(ctx, r.path, &repoConfig)
	if err != nil {
		err = errors.Annotatef(err, "failed to read repository from %q", r.path)
		if ctx.Err() == nil {
			r.loaded, r.loadErr = true, err
		}
		return err
	}
	r.repoConfig = &repoConfig

	ids := make([]string, 0, len(repoConfig.Packages))
	for id := range repoConfig.Packages {
		ids = append(ids, id)
	}
	// map order is random; keep FetchPackages deterministic
	slices.Sort(ids)
	for _, id := range ids {
		pkg := repoConfig.Packages[id]
		for i := range pkg.Artifacts {
			r.pkgs = append(r.pkgs, NewPackage(id, repoConfig.ID, &pkg, &pkg.Artifacts[i]))
		}
	}
	r.byID = index(r.pkgs)
	r.loaded = true
	slog.Debug("loaded repository index", "path", r.path, "repo_id", repoConfig.ID, "packages", len(r.pkgs))
	return nil
}

func (r *FileRepository) FetchPackages(ctx context.Context) ([]*Package, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(r.pkgs), nil
}

func (r *FileRepository) FindVersions(ctx context.Context, id string) ([]*Package, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(r.byID[NormalizeID(id)]), nil
}

func readJSONFromFile(ctx context.Context, path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "os.Open(%q)", path)
	}
	defer f.Close()

	var rd io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		rd, err = xz.NewReader(rd)
		if err != nil {
			return errors.Wrapf(err, "xz.NewReader(%q)", path)
		}
	}
	rd = utilio.NewReader(ctx, rd, MaxIndexSize)

	err = json.NewDecoder(rd).Decode(out)
	if err != nil {
		return errors.Wrapf(err, "failed to decode JSON from %s", path)
	}
	return nil
}

// MultiRepository defers to several repositories in priority order.
type MultiRepository struct {
	repos []Repository
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*FileRepository)(nil)
	_ Repository = (*MultiRepository)(nil)
)

// NewMultiRepository creates a Repository which defers to multiple repositories in the order given.
func NewMultiRepository(repos ...Repository) *MultiRepository {
	return &MultiRepository{repos: repos}
}

func (r *MultiRepository) AddRepository(repo Repository) {
	r.repos = append(r.repos, repo)
}

func (r *MultiRepository) String() string {
	return fmt.Sprintf("MultiRepository(%v)", r.repos)
}

func (r *MultiRepository) ID() string {
	return "<MultiRepository>"
}

// FetchPackages fetches each repository in turn and concatenates the results.
func (r *MultiRepository) FetchPackages(ctx context.Context) ([]*Package, error) {
	slog.Debug("fetching packages", "repos", r.repos)
	var pkgs []*Package
	for _, repo := range r.repos {
		ps, err := repo.FetchPackages(ctx)
		if err != nil {
			return nil, errors.AddStack(err)
		}
		pkgs = append(pkgs, ps...)
	}
	return pkgs, nil
}

// FindVersions merges versions from every repository. When two repositories
// carry the same identity, the earlier repository's metadata wins.
func (r *MultiRepository) FindVersions(ctx context.Context, id string) ([]*Package, error) {
	var pkgs []*Package
	for _, repo := range r.repos {
		ps, err := repo.FindVersions(ctx, id)
		if err != nil {
			return nil, errors.Annotatef(err, "%s: FindVersions(%q)", repo, id)
		}
		pkgs = append(pkgs, ps...)
	}
	return index(pkgs)[NormalizeID(id)], nil
}

// NewFromURLs builds a MultiRepository from local index locations: plain
// paths or file:// URLs.
func NewFromURLs(rawurls ...string) (*MultiRepository, error) {
	repo := NewMultiRepository()
	for _, raw := range rawurls {
		path := raw
		if strings.Contains(raw, "://") {
			parsed, err := url.Parse(raw)
			if err != nil {
				return nil, errors.Annotatef(err, "invalid URL %q", raw)
			}
			if parsed.Scheme != "file" {
				return nil, errors.Errorf("unsupported URL scheme %q in repo %q", parsed.Scheme, raw)
			}
			path = parsed.Path
		}
		repo.AddRepository(NewFileRepository(path))
	}
	return repo, nil
}
