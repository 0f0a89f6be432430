package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/app"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/config"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich/gemini"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich/ollama"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/pipeline"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/util"
)

func newEnrichCommand(configFlag *string) *cobra.Command {
	var (
		inputPath       string
		outputPath      string
		backend         string
		workers         int
		maxRetries      int
		requestTimeout  time.Duration
		rateLimitRPS    float64
		failFast        bool
		twoPass         bool
		resume          bool
		noProgress      bool
		skipHealthcheck bool
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich a privilege CSV with suggested scores and extended descriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if flags.Changed("workers") {
				cfg.Pipeline.Workers = workers
			}
			if flags.Changed("max-retries") {
				cfg.Pipeline.MaxRetries = maxRetries
			}
			if flags.Changed("request-timeout") {
				cfg.Pipeline.RequestTimeout = config.Duration(requestTimeout)
			}
			if flags.Changed("rate-limit-rps") {
				cfg.Pipeline.RateLimitRPS = rateLimitRPS
			}
			if flags.Changed("fail-fast") {
				cfg.Pipeline.FailFast = failFast
			}
			if cfg.Pipeline.Workers <= 0 {
				return fmt.Errorf("workers must be positive, got %d", cfg.Pipeline.Workers)
			}

			enricher, probe, err := buildEnricher(cmd, cfg, twoPass)
			if err != nil {
				return err
			}
			if skipHealthcheck {
				probe = nil
			}

			pipeOpts := pipeline.Options{
				Workers:        cfg.Pipeline.Workers,
				MaxRetries:     cfg.Pipeline.MaxRetries,
				RequestTimeout: cfg.Pipeline.RequestTimeout.Std(),
				RateLimitRPS:   cfg.Pipeline.RateLimitRPS,
				FailFast:       cfg.Pipeline.FailFast,
			}

			var bar *progressbar.ProgressBar
			if !noProgress && isTerminal(cmd.ErrOrStderr()) {
				bar = progressbar.NewOptions(-1,
					progressbar.OptionSetDescription("enriching"),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionShowCount(),
					progressbar.OptionSpinnerType(14),
					progressbar.OptionThrottle(65*time.Millisecond),
					progressbar.OptionClearOnFinish(),
				)
				pipeOpts.OnRowDone = func(pipeline.Row) {
					_ = bar.Add(1)
				}
			}

			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
			stats, err := app.RunEnrich(cmd.Context(), logger, enricher, probe, app.RunOptions{
				InputPath:  inputPath,
				OutputPath: outputPath,
				Resume:     resume,
				Pipeline:   pipeOpts,
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return errors.New(util.RedactSecrets(err.Error()))
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(stats))
			if stats.Failed > 0 && !cfg.Pipeline.FailFast {
				fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) failed after retries; re-run with --resume to retry only those\n", stats.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input CSV file path")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output CSV file path")
	cmd.Flags().StringVar(&backend, "backend", "", "Model backend: ollama or gemini (env: ENRICH_BACKEND)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent enrichment workers (env: WORKERS)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Max retries per privilege for transient failures (env: MAX_RETRIES)")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 0, "Per-privilege request timeout (env: REQUEST_TIMEOUT)")
	cmd.Flags().Float64Var(&rateLimitRPS, "rate-limit-rps", 0, "Global request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop the batch on the first enrichment failure (env: FAIL_FAST)")
	cmd.Flags().BoolVar(&twoPass, "two-pass", false, "Query description and score separately instead of one combined reply")
	cmd.Flags().BoolVar(&resume, "resume", false, "Reuse clean rows from an existing output file and re-query the rest")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress spinner")
	cmd.Flags().BoolVar(&skipHealthcheck, "skip-healthcheck", false, "Skip the model probe before the batch")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// buildEnricher wires the configured backend. The ollama backend also acts as
// its own health probe; gemini has no generate-style probe endpoint.
func buildEnricher(cmd *cobra.Command, cfg config.Config, twoPass bool) (enrich.Enricher, app.Probe, error) {
	switch cfg.Backend {
	case config.BackendOllama:
		client := ollama.NewClient(ollama.Config{
			URL:         cfg.Ollama.URL,
			Model:       cfg.Ollama.Model,
			Temperature: cfg.Ollama.Temperature,
			APIKey:      cfg.Ollama.APIKey,
		})
		return ollama.NewEnricher(client, twoPass), client.HealthCheck, nil
	case config.BackendGemini:
		enricher, err := gemini.New(cmd.Context(), gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gemini config error: %s", util.RedactSecrets(err.Error()))
		}
		return enricher, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
