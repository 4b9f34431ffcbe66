package cmd

import (
	"fmt"

	"github.com/enginecore/enginecore/cmd/flags"
	"github.com/enginecore/enginecore/internal/conf"
	"github.com/spf13/cobra"
)

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:     "init [path]",
	Short:   "Write the default configuration",
	Example: `engine config init ./engine.yaml`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flags.ConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		if err := conf.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote default configuration to", path)
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(configInitCmd)
	RootCmd.AddCommand(ConfigCmd)
}
