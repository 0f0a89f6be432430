package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/pipeline"
)

func newFixCSVCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fixcsv <input> <output>",
		Short: "Rewrite an enriched CSV as strict, fully quoted CSV with flattened descriptions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, outPath := args[0], args[1]
			if inPath == outPath {
				return fmt.Errorf("input and output must differ, both are %s", inPath)
			}

			in, err := os.Open(inPath)
			if err != nil {
				return err
			}
			defer in.Close()

			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := pipeline.NormalizeCSV(in, out); err != nil {
				_ = out.Close()
				return fmt.Errorf("normalize %s: %w", inPath, err)
			}
			if err := out.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "normalized %s -> %s\n", inPath, outPath)
			return nil
		},
	}
}
