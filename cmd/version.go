package cmd

import (
	"fmt"

	"github.com/enginecore/enginecore/internal/version"
	"github.com/spf13/cobra"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "engine %s (hash: %s)\n", version.CurrentVersion, version.VersionHash)
	},
}

func init() {
	RootCmd.AddCommand(VersionCmd)
}
