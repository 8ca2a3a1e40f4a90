package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inference-sim/desim/sim/scenario"
)

// listCmd prints the registered scenarios
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listScenarios(cmd.OutOrStdout())
	},
}

func listScenarios(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range scenario.Names() {
		sc, _ := scenario.Lookup(name)
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", name, sc.Description); err != nil {
			return err
		}
	}
	return tw.Flush()
}
