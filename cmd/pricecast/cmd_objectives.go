package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sawpanic/pricecast/internal/decision"
)

func newObjectivesCmd(_ *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objectives",
		Short: "List the ranking objectives",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				type entry struct {
					Name        decision.Objective `json:"name"`
					Description string             `json:"description"`
				}
				var out []entry
				for _, o := range decision.Objectives() {
					out = append(out, entry{Name: o, Description: decision.ObjectiveDescription(o)})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, o := range decision.Objectives() {
				fmt.Fprintf(tw, "%s\t%s\n", o, decision.ObjectiveDescription(o))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "Print as JSON")
	return cmd
}
