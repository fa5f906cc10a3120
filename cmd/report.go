package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/naka-gawa/pepy-stats/internal/config"
	"github.com/naka-gawa/pepy-stats/internal/domain"
	"github.com/naka-gawa/pepy-stats/internal/gateway"
	"github.com/naka-gawa/pepy-stats/internal/observability"
	"github.com/naka-gawa/pepy-stats/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetches download statistics and publishes them to a gist",
	Long: `Fetches download statistics for every configured package, computes pair ratios,
prints the report as JSON and overwrites the configured gist file with it.
Fetch and publish failures are logged; only a missing secret fails the command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd.Context(), cmd)
	},
}

func runReport(ctx context.Context, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logFormat, _ := cmd.Flags().GetString("log-format")
	logger, err := observability.NewLogger(cmd.ErrOrStderr(), observability.LogFormat(logFormat), verbose)
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("mode") {
		modeStr, _ := cmd.Flags().GetString("mode")
		mode, err := domain.ParseMode(modeStr)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	var secrets config.Secrets
	if dryRun {
		secrets.PepyAPIKey = os.Getenv(config.EnvPepyAPIKey)
	} else {
		// Secrets are checked before any network call.
		secrets, err = config.LoadSecrets(os.LookupEnv)
		if err != nil {
			return err
		}
	}

	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	var metrics *observability.Metrics
	if metricsFile != "" {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	pepyOpts := []gateway.PepyOption{gateway.WithHTTPClient(&http.Client{Timeout: cfg.Stats.Timeout})}
	if secrets.PepyAPIKey != "" {
		pepyOpts = append(pepyOpts, gateway.WithAPIKey(secrets.PepyAPIKey))
	}
	fetcher := gateway.NewPepyGateway(cfg.Stats.BaseURL, logger, pepyOpts...)

	var publisher gateway.Publisher
	if !dryRun {
		gist, err := gateway.NewGistGateway(gateway.GistOptions{
			Token:            secrets.GistToken,
			GistID:           secrets.GistID,
			Filename:         cfg.Gist.Filename,
			UserAgent:        cfg.Gist.UserAgent,
			BaseURL:          cfg.Gist.APIBaseURL,
			MaxRateLimitWait: cfg.Gist.MaxRateLimitWait,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create gist gateway: %w", err)
		}
		publisher = gist
	}

	aggregator := usecase.NewAggregator(fetcher, cfg.Mode, cfg.Concurrency, logger, metrics)
	runner := usecase.NewRunner(aggregator, publisher, cfg.Packages, cfg.Pairs, cmd.OutOrStdout(), logger, metrics)
	if _, err := runner.Run(ctx); err != nil {
		return err
	}

	if err := metrics.WriteTextfile(metricsFile); err != nil {
		logger.WithError(err).Warn("Failed to write metrics file")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("mode", "m", string(domain.ModeDaily), "Metric to report: daily (latest day) or total (all time)")
	reportCmd.Flags().Int("concurrency", 1, "Number of packages fetched at once; 1 fetches strictly in order")
	reportCmd.Flags().Bool("dry-run", false, "Print the report without updating the gist")
	reportCmd.Flags().String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
}
