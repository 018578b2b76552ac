package main

import (
	"github.com/clintharrison/go-pkg-planner/pkg/cli/clicommon"
	"github.com/clintharrison/go-pkg-planner/pkg/cli/install"
	"github.com/clintharrison/go-pkg-planner/pkg/cli/list"
	"github.com/clintharrison/go-pkg-planner/pkg/cli/plan"
	"github.com/clintharrison/go-pkg-planner/pkg/cli/uninstall"
	"github.com/clintharrison/go-pkg-planner/pkg/cli/update"
	"github.com/clintharrison/go-pkg-planner/pkg/version"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     version.CLIName,
		Short:   "Plan and apply package installs, uninstalls and updates",
		Version: version.Version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return clicommon.InitLogger(cmd)
		},
	}

	clicommon.AddGlobalFlags(cmd)

	cmd.AddCommand(plan.NewCommand())
	cmd.AddCommand(install.NewCommand())
	cmd.AddCommand(uninstall.NewCommand())
	cmd.AddCommand(update.NewCommand())
	cmd.AddCommand(list.NewCommand())

	return cmd
}
