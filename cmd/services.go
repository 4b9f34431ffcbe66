package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/enginecore/enginecore/cmd/flags"
	"github.com/enginecore/enginecore/internal/binder"
	"github.com/enginecore/enginecore/internal/conf"
	"github.com/enginecore/enginecore/internal/services"
	"github.com/spf13/cobra"
)

var ServicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the services, their slots and configured backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := conf.Load(flags.ConfigFile)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, s := range services.Schemas() {
			b := cfg.Backend(string(s.Service))
			backend := b.Mode
			if b.Name != "" {
				backend += " " + b.Name
			}
			if b.Required {
				backend += " (required)"
			}
			fmt.Fprintf(w, "%s\t%s\n", s.Service, backend)
			for i, slot := range s.Slots {
				fmt.Fprintf(w, "  %d\t%s\t%s\n", i, slot.Name, slot.Type)
			}
		}
		fmt.Fprintf(w, "\nembedded backends:\t%v\n", binder.EmbeddedNames())
		return w.Flush()
	},
}

func init() {
	RootCmd.AddCommand(ServicesCmd)
}
