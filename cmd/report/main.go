// Command report prints dashboard views of the pandemic series in the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pandemic-dashboard/internal/config"
	"pandemic-dashboard/internal/repository"
	"pandemic-dashboard/internal/services"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

const version = "1.0.0"

// options are the persistent flags shared by every subcommand
type options struct {
	configPath string
	source     string
	date       string
	index      int
}

// app is a loaded dataset with the services built on it
type app struct {
	cfg     *config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	service *services.DashboardService
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "report",
		Short: "Pandemic dashboard reports in the terminal",
		Long: `report loads the confirmed, deaths and recovered series and prints
the dashboard views: global totals, top countries, continent breakdown,
per-country history and an animated playback over the dates.

Configuration is read from config.yaml (or --config) and DASHBOARD_* variables.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default: ./config.yaml or ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.source, "source", "", "Override data.source: http, file or postgres")
	rootCmd.PersistentFlags().StringVar(&opts.date, "date", "", "Date to report as M/D/YY (default: latest)")
	rootCmd.PersistentFlags().IntVar(&opts.index, "index", -1, "Date index to report, 0 is the first date (default: latest)")

	rootCmd.AddCommand(newSummaryCmd(opts))
	rootCmd.AddCommand(newTopCmd(opts))
	rootCmd.AddCommand(newContinentsCmd(opts))
	rootCmd.AddCommand(newCountryCmd(opts))
	rootCmd.AddCommand(newAnimateCmd(opts))

	return rootCmd
}

// selector turns the --date and --index flags into a DateSelector
func (o *options) selector(cmd *cobra.Command) services.DateSelector {
	sel := services.DateSelector{Date: o.date}
	if cmd.Flags().Changed("index") {
		sel.Index = &o.index
	}
	return sel
}

// load reads the configuration and the series. The returned function closes
// the source.
func (o *options) load(ctx context.Context) (*app, func(), error) {
	cfg, err := config.LoadConfigFile(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.source != "" {
		cfg.Data.Source = o.source
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	// Logs go to stderr so reports can be piped
	logger := logging.NewStructuredLoggerWithOutput(os.Stderr, "pandemic-report", version, logging.ParseLevel(cfg.Logging.Level))
	collector := metrics.NewCollectorWithRegistry("pandemic_report", prometheus.NewRegistry())

	repo, closeRepo, err := repository.OpenSource(ctx, cfg, logger, collector)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open data source: %w", err)
	}

	cutoff, _ := cfg.Data.Cutoff()
	loader := services.NewLoaderService(repo, logger, collector, services.LoaderOptions{
		Cutoff:        cutoff,
		RetryAttempts: cfg.Data.RetryAttempts,
		RetryInterval: cfg.Data.RetryInterval,
	})

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Data.FetchTimeout*time.Duration(cfg.Data.RetryAttempts+1))
	defer cancel()

	dataset, err := loader.Load(loadCtx)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	cleanup := func() {
		closeRepo()
		logger.Sync()
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		service: services.NewDashboardService(dataset, cfg.ContinentMap(), logger, collector),
	}, cleanup, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
