package clicommon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/clintharrison/go-pkg-planner/pkg/planner"
	"github.com/clintharrison/go-pkg-planner/pkg/repository"
	"github.com/clintharrison/go-pkg-planner/pkg/state"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

// RunAction resolves actionType for the packages named in args against the
// configured target, prints the plan and, when execute is set, applies it.
func RunAction(cmd *cobra.Command, actionType planner.ActionType, args []string, execute bool) error {
	settings, err := LoadSettings(cmd)
	if err != nil {
		return err
	}
	constraints, err := ConstraintsFromArgs(args)
	if err != nil {
		return errors.Wrap(err, "failed to parse package constraints from args")
	}
	repo, err := settings.Repository(cmd)
	if err != nil {
		return err
	}
	reg, metrics, err := settings.Metrics()
	if err != nil {
		return err
	}
	target := settings.Target()

	ctx := cmd.Context()
	snap, err := state.TakeSnapshot(ctx, target)
	if err != nil {
		return errors.Wrap(err, "failed to read installed packages")
	}

	var idents []repository.Identity
	if actionType == planner.UninstallAction {
		idents, err = InstalledIdentities(snap, constraints)
	} else {
		idents, err = AvailableIdentities(ctx, repo, settings.Planner.AllowPrereleaseVersions, constraints)
	}
	if err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "ERROR: Unable to find packages:\n%v\n", err) //nolint:errcheck
		return errors.Wrap(err, "failed to find requested packages")
	}

	actions, err := planner.NewActionResolver(repo, metrics).ResolveActions(ctx, actionType, snap, settings.Planner, idents...)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "ERROR: Unable to resolve packages:\n%v\n", err) //nolint:errcheck
		return errors.Wrap(err, "failed to resolve packages")
	}
	PrintPlan(cmd.OutOrStdout(), actions)

	if execute {
		opts := []planner.ExecutorOption{
			planner.WithNoOp(settings.DryRun),
			planner.WithMetrics(metrics),
			planner.WithLicenseAcceptor(promptAcceptor(cmd)),
		}
		if settings.AcceptLicenses {
			opts = append(opts, planner.WithLicenseAcceptor(planner.AcceptAllLicenses))
		}
		applied, err := planner.NewExecutor(target, opts...).Execute(ctx, actions)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "ERROR: Unable to apply plan:\n%v\n", err) //nolint:errcheck
			return errors.Wrap(err, "failed to apply plan")
		}
		if settings.DryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d action(s) not applied\n", len(applied)) //nolint:errcheck
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d action(s) to %s\n", len(applied), target) //nolint:errcheck
		}
	}

	return settings.WriteMetrics(reg)
}

func PrintPlan(w io.Writer, actions []*planner.Action) {
	if len(actions) == 0 {
		fmt.Fprint(w, "Nothing to do.\n") //nolint:errcheck
		return
	}
	fmt.Fprint(w, "Planned actions:\n") //nolint:errcheck
	for _, a := range actions {
		fmt.Fprintf(w, "  - %s\n", a) //nolint:errcheck
	}
}

// promptAcceptor asks on the command's stdin; anything but y/yes declines.
func promptAcceptor(cmd *cobra.Command) planner.LicenseAcceptor {
	in := bufio.NewReader(cmd.InOrStdin())
	return planner.LicenseAcceptorFunc(func(_ context.Context, pkg *repository.Package) (bool, error) {
		fmt.Fprintf(cmd.OutOrStdout(), "Accept the license of %s? [y/N] ", pkg) //nolint:errcheck
		line, err := in.ReadString('\n')
		if err != nil && err != io.EOF { //nolint:errorlint
			return false, errors.AddStack(err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}
