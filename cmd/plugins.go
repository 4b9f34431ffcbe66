package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/enginecore/enginecore/cmd/flags"
	"github.com/enginecore/enginecore/internal/conf"
	"github.com/enginecore/enginecore/internal/dynlib"
	"github.com/spf13/cobra"
)

var PluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the backend libraries in the plugin directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := conf.Load(flags.ConfigFile)
		if err != nil {
			return err
		}
		libs, err := dynlib.Resolver{
			Dir:         cfg.Plugin.Dir,
			Debug:       cfg.Plugin.Debug,
			DebugSuffix: cfg.Plugin.DebugSuffix,
		}.Scan()
		if err != nil {
			return err
		}
		if len(libs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No libraries in", cfg.Plugin.Dir)
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFILE\tBUILD\tSIZE")
		for _, l := range libs {
			build := "release"
			if l.Debug {
				build = "debug"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", l.Name, l.FileName, build, l.Size)
		}
		return w.Flush()
	},
}

func init() {
	RootCmd.AddCommand(PluginsCmd)
}
