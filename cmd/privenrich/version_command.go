package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the privenrich version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "privenrich %s\n", version.Current)
			return nil
		},
	}
}
