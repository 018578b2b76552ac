package update

import (
	"github.com/clintharrison/go-pkg-planner/pkg/cli/clicommon"
	"github.com/clintharrison/go-pkg-planner/pkg/planner"
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [flags] App App@2.0.0",
		Short: "Replace installed packages with another version (the latest by default)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clicommon.RunAction(cmd, planner.UpdateAction, args, true)
		},
	}
	clicommon.AddResolveFlags(cmd)
	clicommon.AddExecuteFlags(cmd)
	return cmd
}
