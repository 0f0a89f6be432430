package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "privenrich",
		Short:         "Enrich Microsoft Graph privilege tables with model-suggested scores",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (YAML)")

	rootCmd.AddCommand(newEnrichCommand(&configFlag))
	rootCmd.AddCommand(newHealthcheckCommand(&configFlag))
	rootCmd.AddCommand(newFixCSVCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
