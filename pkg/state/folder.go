package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/repository/manifest"
	"github.com/gofrs/flock"
	"github.com/pingcap/errors"
	"github.com/spf13/afero"
)

const (
	manifestFileName = "manifest.json"
	lockRetryDelay   = 100 * time.Millisecond
)

// FolderTarget records installed packages as <dir>/<id>.<version>/manifest.json.
// Package content is someone else's job; only the manifest is written here.
type FolderTarget struct {
	fs   afero.Fs
	dir  string
	lock *flock.Flock
}

type FolderTargetOption func(*FolderTarget)

// WithLockFile makes Lock take an OS file lock at path.
func WithLockFile(path string) FolderTargetOption {
	return func(t *FolderTarget) {
		t.lock = flock.New(path)
	}
}

func NewFolderTarget(fs afero.Fs, dir string, opts ...FolderTargetOption) *FolderTarget {
	t := &FolderTarget{fs: fs, dir: dir, lock: nil}
	for _, o := range opts {
		o(t)
	}
	return t
}

// NewOSFolderTarget is a FolderTarget on the real filesystem, locked by
// a ".lock" file in dir.
func NewOSFolderTarget(dir string) *FolderTarget {
	return NewFolderTarget(afero.NewOsFs(), dir, WithLockFile(filepath.Join(dir, ".lock")))
}

func (t *FolderTarget) String() string {
	return fmt.Sprintf("FolderTarget(%s)", t.dir)
}

func (t *FolderTarget) packageDir(pkg *repository.Package) string {
	return filepath.Join(t.dir, pkg.ID+"."+pkg.Version.String())
}

func (t *FolderTarget) InstalledPackages(ctx context.Context) ([]*repository.Package, error) {
	var pkgs []*repository.Package
	exists, err := afero.DirExists(t.fs, t.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "afero.DirExists(%q)", t.dir)
	}
	if !exists {
		return nil, nil
	}
	err = afero.Walk(t.fs, t.dir, func(path string, _ os.FileInfo, err error) error {
		if err != nil {
			return errors.AddStack(err)
		}
		if ctx.Err() != nil {
			return errors.AddStack(ctx.Err())
		}
		if !strings.HasSuffix(path, string(filepath.Separator)+manifestFileName) {
			return nil
		}
		slog.Debug("found installed package manifest", "path", path)
		data, err := afero.ReadFile(t.fs, path)
		if err != nil {
			return errors.AddStack(err)
		}
		var m manifest.Manifest
		err = json.Unmarshal(data, &m)
		if err != nil {
			return errors.Wrapf(err, "json.Unmarshal(%q)", path)
		}
		pkgs = append(pkgs, repository.NewPackageFromManifest(&m))
		return nil
	})
	if err != nil {
		return nil, errors.AddStack(err)
	}
	return pkgs, nil
}

func (t *FolderTarget) IsInstalled(ctx context.Context, id string) (manifest.SemanticVersion, bool, error) {
	snap, err := TakeSnapshot(ctx, t)
	if err != nil {
		return manifest.SemanticVersion{}, false, err
	}
	v, ok := snap.IsInstalled(id)
	return v, ok, nil
}

func (t *FolderTarget) AddPackage(_ context.Context, pkg *repository.Package) error {
	dir := t.packageDir(pkg)
	path := filepath.Join(dir, manifestFileName)
	if ok, _ := afero.Exists(t.fs, path); ok {
		return errors.Errorf("%s is already installed in %s", pkg, t)
	}
	err := t.fs.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "MkdirAll(%q)", dir)
	}
	data, err := json.MarshalIndent(pkg.Manifest(), "", "  ")
	if err != nil {
		return errors.AddStack(err)
	}
	err = afero.WriteFile(t.fs, path, data, 0o644)
	if err != nil {
		return errors.Wrapf(err, "writing manifest to %q", path)
	}
	return nil
}

func (t *FolderTarget) RemovePackage(_ context.Context, pkg *repository.Package) error {
	dir := t.packageDir(pkg)
	if ok, _ := afero.DirExists(t.fs, dir); !ok {
		return errors.Errorf("%s is not installed in %s", pkg, t)
	}
	err := t.fs.RemoveAll(dir)
	if err != nil {
		return errors.Wrapf(err, "RemoveAll(%q)", dir)
	}
	return nil
}

// Lock blocks until the target's lock file is held or ctx is done. Targets
// without a lock file return a no-op unlock.
func (t *FolderTarget) Lock(ctx context.Context) (func() error, error) {
	if t.lock == nil {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(t.lock.Path()), 0o755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll(%q)", filepath.Dir(t.lock.Path()))
	}
	locked, err := t.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, errors.Wrapf(err, "locking %q", t.lock.Path())
	}
	if !locked {
		return nil, errors.Errorf("could not lock %q", t.lock.Path())
	}
	return t.lock.Unlock, nil
}
