package list

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/clintharrison/go-pkg-planner/pkg/cli/clicommon"
	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [flags] [package-constraint...]",
		Short: "List available packages",
		Long:  "List available (or installed) packages, optionally only those matching the given constraints, e.g. \"Lib@[1.0,2.0)\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := clicommon.LoadSettings(cmd)
			if err != nil {
				return err
			}
			constraints, err := clicommon.ConstraintsFromArgs(args)
			if err != nil {
				return err
			}
			installedOnly, err := cmd.Flags().GetBool("installed")
			if err != nil {
				return errors.Wrap(err, "failed to get installed flag")
			}
			out := cmd.OutOrStdout()

			if installedOnly {
				packages, err := settings.Target().InstalledPackages(cmd.Context())
				if err != nil {
					return errors.Wrap(err, "failed to get installed packages")
				}
				fmt.Fprintf(out, "Installed in %s:\n", settings.TargetDir) //nolint:errcheck
				printPackages(out, filterPackages(packages, constraints))
				return nil
			}

			repo, err := settings.Repository(cmd)
			if err != nil {
				return errors.Wrap(err, "failed to initialize package repository")
			}
			repos, err := getAvailablePackages(cmd.Context(), repo, constraints)
			if err != nil {
				return errors.Wrap(err, "failed to get available packages")
			}
			repoIDs := make([]string, 0, len(repos))
			for id := range repos {
				repoIDs = append(repoIDs, id)
			}
			slices.Sort(repoIDs)
			for _, repoID := range repoIDs {
				fmt.Fprintf(out, "\u001b[1mRepository: %s\u001b[0m\n", repoID) //nolint:errcheck
				printPackages(out, repos[repoID])
			}
			return nil
		},
	}
	cmd.Flags().BoolP("installed", "i", false, "List installed packages only")
	return cmd
}

// printPackages prints one block per ID, versions ascending, with flags for
// prereleases and license requirements.
func printPackages(w io.Writer, pkgs []*repository.Package) {
	byID := map[string][]*repository.Package{}
	var ids []string
	for _, p := range pkgs {
		// you probably shouldn't have an empty package ID, but anyway...
		id := p.ID
		if id == "" {
			id = "<no package ID>"
		}
		if byID[id] == nil {
			ids = append(ids, id)
		}
		byID[id] = append(byID[id], p)
	}
	slices.SortFunc(ids, func(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) })
	for _, id := range ids {
		fmt.Fprintf(w, "%s:\n", id) //nolint:errcheck
		vs := byID[id]
		slices.SortFunc(vs, func(a, b *repository.Package) int { return a.Version.Compare(b.Version) })
		for _, p := range vs {
			var notes []string
			if p.Version.IsPrerelease() {
				notes = append(notes, "prerelease")
			}
			if p.RequireLicenseAcceptance {
				notes = append(notes, "license")
			}
			if len(notes) > 0 {
				fmt.Fprintf(w, "  %s (%s)\n", p.Version, strings.Join(notes, ", ")) //nolint:errcheck
			} else {
				fmt.Fprintf(w, "  %s\n", p.Version) //nolint:errcheck
			}
		}
	}
}

// filterPackages keeps the packages matching any of cs; no constraints keeps everything.
func filterPackages(pkgs []*repository.Package, cs []*clicommon.Constraint) []*repository.Package {
	if len(cs) == 0 {
		return pkgs
	}
	var res []*repository.Package
	for _, p := range pkgs {
		for _, c := range cs {
			if strings.EqualFold(p.ID, c.ID) && repository.RangeFilter(c.Range)(p) {
				res = append(res, p)
				break
			}
		}
	}
	return res
}

func getAvailablePackages(
	ctx context.Context, repo repository.Repository, cs []*clicommon.Constraint,
) (map[string][]*repository.Package, error) {
	packages, err := repo.FetchPackages(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list packages")
	}
	packages = filterPackages(packages, cs)

	// now we group by repo for nicer printing
	repos := map[string][]*repository.Package{}
	for _, p := range packages {
		repos[p.RepositoryID] = append(repos[p.RepositoryID], p)
	}
	return repos, nil
}
