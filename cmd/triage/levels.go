package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"triage-assist/pkg"
)

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "Print the urgency levels with their labels and actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "URGENCY\tLABEL\tACTION")
			for _, u := range pkg.UrgencyLevels {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u, u.Label(), u.Action())
			}
			return tw.Flush()
		},
	}
}
