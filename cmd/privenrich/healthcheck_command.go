package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/config"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich/ollama"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/util"
)

func newHealthcheckCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the configured model endpoint with a trivial prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			if cfg.Backend != config.BackendOllama {
				return fmt.Errorf("healthcheck supports the ollama backend only, configured backend is %q", cfg.Backend)
			}

			client := ollama.NewClient(ollama.Config{
				URL:         cfg.Ollama.URL,
				Model:       cfg.Ollama.Model,
				Temperature: cfg.Ollama.Temperature,
				APIKey:      cfg.Ollama.APIKey,
			})

			start := time.Now()
			reply, err := client.HealthCheck(cmd.Context())
			if err != nil {
				return fmt.Errorf("model is not responding at %s: %s", cfg.Ollama.URL, util.RedactSecrets(err.Error()))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "model %s responded in %s\n", cfg.Ollama.Model, time.Since(start).Round(time.Millisecond))
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(reply))
			return nil
		},
	}
}
