package uninstall

import (
	"github.com/clintharrison/go-pkg-planner/pkg/cli/clicommon"
	"github.com/clintharrison/go-pkg-planner/pkg/planner"
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall [flags] App",
		Short: "Uninstall packages and the dependencies nothing else needs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clicommon.RunAction(cmd, planner.UninstallAction, args, true)
		},
	}
	clicommon.AddResolveFlags(cmd)
	clicommon.AddUninstallFlags(cmd)
	clicommon.AddExecuteFlags(cmd)
	return cmd
}
