package install

import (
	"github.com/clintharrison/go-pkg-planner/pkg/cli/clicommon"
	"github.com/clintharrison/go-pkg-planner/pkg/planner"
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [flags] App Lib>=1.0,<2.0 Logging@1.0.0",
		Short: "Install packages and their dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clicommon.RunAction(cmd, planner.InstallAction, args, true)
		},
	}
	clicommon.AddResolveFlags(cmd)
	clicommon.AddExecuteFlags(cmd)
	return cmd
}
