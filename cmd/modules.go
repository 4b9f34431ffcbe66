package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/enginecore/enginecore/internal/engine"
	"github.com/enginecore/enginecore/internal/module"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var modulesCheck bool

var ModulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the core modules in initialization order",
	Long:  `Run every module setup without initializing anything and print the modules in the order the engine would initialize them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var e *engine.Engine
		app := engineApp(fx.Populate(&e))
		if err := app.Err(); err != nil {
			return err
		}
		return runFxWith(cmd.Context(), app, func(context.Context) error {
			order, err := e.InitOrder()
			if err != nil {
				return err
			}
			snapshot := e.ModuleSnapshot()
			var checkErr error
			if modulesCheck {
				snapshot, checkErr = e.CheckModules()
			}
			infos := make(map[module.ID]module.Info)
			for _, in := range snapshot {
				infos[in.ID] = in
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			header := "#\tMODULE\tNAME\tDEPENDS ON\tOPTIONAL"
			if modulesCheck {
				header += "\tSTATUS"
			}
			fmt.Fprintln(w, header)
			for i, id := range order {
				in := infos[id]
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s", i+1, id, in.Name, joinIDs(in.Dependencies), joinIDs(in.Optional))
				if modulesCheck {
					fmt.Fprintf(w, "\t%s", in.Status)
				}
				fmt.Fprintln(w)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return checkErr
		})
	},
}

func joinIDs(ids []module.ID) string {
	if len(ids) == 0 {
		return "-"
	}
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}

func init() {
	ModulesCmd.Flags().BoolVar(&modulesCheck, "check", false, "Initialize every module on its own and report its status")
	RootCmd.AddCommand(ModulesCmd)
}
