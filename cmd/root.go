// Package cmd implements the command-line interface of the scraper.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gmaps-scraper/config"
	"gmaps-scraper/models"
	"gmaps-scraper/scraper/gmaps"
	"gmaps-scraper/services"
	"gmaps-scraper/storage"
	"gmaps-scraper/utils"
)

// ViewFactory opens the browser view for a run.
type ViewFactory func(cfg *config.Config, logger *utils.Logger) (gmaps.View, error)

// App carries the dependencies of a run. Zero fields are filled from the
// environment by NewRootCommand.
type App struct {
	Config *config.Config
	Logger *utils.Logger
	// WorkDir is where input.txt is looked up. Defaults to the process cwd.
	WorkDir string
	NewView ViewFactory
	// Waits overrides the settle bounds; nil means DefaultWaits.
	Waits *gmaps.Waits
}

type runFlags struct {
	search  string
	total   int
	regions []string
}

// NewRootCommand builds the scraper command.
func NewRootCommand(app *App) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "gmaps-scraper",
		Short: "Scrape business listings from Google Maps",
		Long: `Searches Google Maps for every search term in every region, opens each
listing and saves name, address, website, phone, reviews and coordinates.

Each (term, region) pair is written to
  output/google_maps_data_<term>_<region>.xlsx and .csv

Examples:
  # Search terms from input.txt in the default regions
  gmaps-scraper

  # One search, two regions, at most 50 businesses each
  gmaps-scraper -s "coffee shop" -r USA,"New Zealand" -t 50`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.search, "search", "s", "", "search term (default: one search per line of input.txt)")
	cmd.Flags().IntVarP(&flags.total, "total", "t", config.DefaultTotal, "maximum businesses per search")
	cmd.Flags().StringSliceVarP(&flags.regions, "regions", "r", config.DefaultRegions(), "regions to search in")

	return cmd
}

// Execute loads configuration from the environment and runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand(&App{}).ExecuteContext(ctx)
}

func (a *App) defaults() error {
	if a.Config == nil {
		a.Config = config.Load()
	}
	if a.Logger == nil {
		a.Logger = utils.NewLoggerWithLevel(a.Config.LogLevel)
	}
	if a.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		a.WorkDir = wd
	}
	if a.NewView == nil {
		a.NewView = newBrowserView
	}
	if a.Waits == nil {
		w := gmaps.DefaultWaits()
		a.Waits = &w
	}
	return nil
}

func newBrowserView(cfg *config.Config, logger *utils.Logger) (gmaps.View, error) {
	return gmaps.NewBrowser(gmaps.BrowserOptions{
		Headless:  cfg.Headless,
		ChromeBin: cfg.ChromeBin,
		Timeout:   cfg.NavigationTimeout,
		Logger:    logger,
	})
}

func (a *App) run(ctx context.Context, flags *runFlags) error {
	if err := a.defaults(); err != nil {
		return err
	}
	cfg, logger := a.Config, a.Logger
	defer logger.Sync()

	terms, err := config.LoadSearchTerms(flags.search, a.WorkDir)
	if err != nil {
		return err
	}

	total := flags.total
	if total <= 0 {
		total = config.DefaultTotal
	}
	regions := flags.regions
	if len(regions) == 0 {
		regions = config.DefaultRegions()
	}

	logger.Info("=== Google Maps scraper starting ===")
	logger.Info("Searches: %d | regions: %v | max per search: %d", len(terms), regions, total)

	var extra []storage.BatchWriter
	var pgWriter *storage.PostgresWriter
	if cfg.PostgresEnabled {
		retry := &utils.RetryConfig{MaxAttempts: cfg.PostgresRetries, BaseDelay: 2 * time.Second, Logger: logger}
		pgWriter, err = storage.NewPostgresWriter(ctx, cfg.DSN(), retry)
		if err != nil {
			logger.Error("Make sure PostgreSQL is running: docker compose up -d")
			return err
		}
		extra = append(extra, pgWriter)
	}

	sink := storage.NewTabularSink(cfg.OutputDir, logger, extra...)
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("[storage] Close failed: %v", err)
		}
	}()

	view, err := a.NewView(cfg, logger)
	if err != nil {
		return err
	}
	defer view.Close()

	scraper := gmaps.New(
		view,
		sink,
		gmaps.NewSettler(cfg.SettleMin, cfg.SettlePoll),
		gmaps.NewLogObserver(logger),
		gmaps.Options{StartURL: cfg.StartURL, MaxScrolls: cfg.MaxScrolls, Waits: *a.Waits},
	)

	batches, err := scraper.Run(ctx, terms, regions, total)
	if err != nil {
		return err
	}

	a.report(ctx, pgWriter, batches)
	return nil
}

// report prints insights over the stored rows when PostgreSQL is enabled,
// otherwise over this run's batches.
func (a *App) report(ctx context.Context, pgWriter *storage.PostgresWriter, batches []models.Batch) {
	businesses := services.FromBatches(batches)
	if pgWriter != nil {
		stored, err := pgWriter.FetchAll(ctx)
		if err != nil {
			a.Logger.Error("Failed to fetch businesses from DB for insights: %v", err)
		} else {
			businesses = stored
		}
	}

	insightSvc := services.NewInsightService(a.Logger)
	insightSvc.Print(insightSvc.Generate(businesses, batches))
}
