package clicommon

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/clintharrison/go-pkg-planner/pkg/planner"
	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
	"github.com/clintharrison/go-pkg-planner/pkg/version"
	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "PKGPLAN"

// AddGlobalFlags registers the flags every subcommand understands.
func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringArrayP("repo", "r", []string{},
		"Repository index(es) to use, as a path or file:// URL (can be specified multiple times)")
	flags.String("target-dir", filepath.Join(version.BaseDir(), "pkgs"), "Directory of the installation target")
	flags.String("config", "", "YAML configuration file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Int("cache-size", repository.DefaultCacheSize, "Number of package IDs whose versions are cached")
}

// AddResolveFlags registers the flags that shape a resolution.
func AddResolveFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("prerelease", false, "Allow prerelease versions of dependencies")
	flags.Bool("ignore-dependencies", false, "Only act on the named packages")
	flags.String("dependency-version", "lowest",
		"Dependency version policy (lowest, highest-patch, highest-minor, highest)")
	flags.String("framework", "", "Target framework used to select dependency sets")
	flags.Bool("side-by-side", false, "Allow several versions of a package to be installed")
}

// AddUninstallFlags registers the flags that only make sense for uninstalls.
func AddUninstallFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("force", false, "Uninstall even when installed packages depend on it")
	flags.Bool("keep-dependencies", false, "Do not uninstall dependencies")
	flags.Bool("skip-with-dependents", false, "Do nothing, instead of failing, when installed packages depend on it")
}

// AddExecuteFlags registers the flags of commands that change the target.
func AddExecuteFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("dry-run", false, "Print the plan without applying it")
	flags.Bool("accept-licenses", false, "Accept the licenses of every package installed")
	flags.String("metrics-textfile", "", "Write prometheus metrics to this file after running")
}

// Settings is the merged configuration of flags, the config file and
// PKGPLAN_* environment variables, in decreasing priority.
type Settings struct {
	Repos           []string
	TargetDir       string
	CacheSize       int
	Planner         planner.Config
	DryRun          bool
	AcceptLicenses  bool
	MetricsTextfile string
}

func LoadSettings(cmd *cobra.Command) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "failed to bind flags")
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return nil, errors.Wrap(err, "failed to bind inherited flags")
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %q", path)
		}
		slog.Debug("loaded config file", "path", path)
	}

	behavior, err := planner.ParseDependencyBehavior(v.GetString("dependency-version"))
	if err != nil {
		return nil, err
	}
	if v.GetBool("ignore-dependencies") {
		behavior = planner.DependencyIgnore
	}

	s := &Settings{
		Repos:     v.GetStringSlice("repo"),
		TargetDir: v.GetString("target-dir"),
		CacheSize: v.GetInt("cache-size"),
		Planner: planner.Config{
			AllowPrereleaseVersions:    v.GetBool("prerelease"),
			DependencyBehavior:         behavior,
			TargetFramework:            v.GetString("framework"),
			AllowSideBySide:            v.GetBool("side-by-side"),
			ForceRemove:                v.GetBool("force"),
			KeepDependencies:           v.GetBool("keep-dependencies"),
			SkipPackagesWithDependents: v.GetBool("skip-with-dependents"),
		},
		DryRun:          v.GetBool("dry-run"),
		AcceptLicenses:  v.GetBool("accept-licenses"),
		MetricsTextfile: v.GetString("metrics-textfile"),
	}
	slog.Debug("loaded settings", "settings", s)
	return s, nil
}

func (s *Settings) Repository(cmd *cobra.Command) (repository.Repository, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Using packages from repositories:\n") //nolint:errcheck
	for _, u := range s.Repos {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", u) //nolint:errcheck
	}

	multi, err := repository.NewFromURLs(s.Repos...)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), //nolint:errcheck
			"ERROR: Unable to create repositories:\n%v\n",
			err)
		return nil, errors.Wrap(err, "failed to create repository from URLs")
	}
	repo, err := repository.NewCachingRepository(multi, s.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create repository cache")
	}
	return repo, nil
}

func (s *Settings) Target() *state.FolderTarget {
	return state.NewOSFolderTarget(s.TargetDir)
}

// Metrics registers the planner metrics on a fresh registry when a
// textfile was requested; otherwise both results are nil.
func (s *Settings) Metrics() (*prometheus.Registry, *planner.Metrics, error) {
	if s.MetricsTextfile == "" {
		return nil, nil, nil
	}
	reg := prometheus.NewRegistry()
	m, err := planner.NewMetrics(reg)
	if err != nil {
		return nil, nil, err
	}
	return reg, m, nil
}

// WriteMetrics writes reg to the configured textfile, if any.
func (s *Settings) WriteMetrics(reg *prometheus.Registry) error {
	if reg == nil || s.MetricsTextfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(s.MetricsTextfile, reg); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %q", s.MetricsTextfile)
	}
	return nil
}
