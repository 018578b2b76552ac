package plan

import (
	"github.com/clintharrison/go-pkg-planner/pkg/cli/clicommon"
	"github.com/clintharrison/go-pkg-planner/pkg/planner"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

var actionTypes = map[string]planner.ActionType{
	"install":   planner.InstallAction,
	"uninstall": planner.UninstallAction,
	"update":    planner.UpdateAction,
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "plan [flags] install|uninstall|update App>=1.0 Lib@1.5.0",
		Short:     "Print the actions a request would take, without applying them",
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: []string{"install", "uninstall", "update"},
		RunE: func(cmd *cobra.Command, args []string) error {
			actionType, ok := actionTypes[args[0]]
			if !ok {
				return errors.Errorf("unknown action %q: want install, uninstall or update", args[0])
			}
			return clicommon.RunAction(cmd, actionType, args[1:], false)
		},
	}
	clicommon.AddResolveFlags(cmd)
	clicommon.AddUninstallFlags(cmd)
	return cmd
}
