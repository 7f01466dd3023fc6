// Command ingest is the Bingeguide catalog ingestion CLI.
//
// Usage:
//
//	catalog-ingest import --file dump.csv
//	catalog-ingest import --file dump.tsv --max 500 --dry-run
//	catalog-ingest enrich --limit 50 --credits 100
//	catalog-ingest enrich --metadata-only --published-only
//	catalog-ingest runs --limit 20
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bingeguide/catalog-data/internal/catalog"
	"github.com/bingeguide/catalog-data/internal/config"
	"github.com/bingeguide/catalog-data/internal/db"
	"github.com/bingeguide/catalog-data/internal/enrich"
	"github.com/bingeguide/catalog-data/internal/ingest"
	"github.com/bingeguide/catalog-data/internal/provider/omdb"
	"github.com/bingeguide/catalog-data/internal/provider/watchmode"
	"github.com/bingeguide/catalog-data/internal/runlog"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "catalog-ingest",
		Short: "Bingeguide catalog ingestion CLI",
	}

	root.AddCommand(importCmd())
	root.AddCommand(enrichCmd())
	root.AddCommand(runsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// import command
// --------------------------------------------------------------------------

func importCmd() *cobra.Command {
	var (
		file           string
		maxRows        int
		dryRun         bool
		updateExisting bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a raw catalog dump (CSV or TSV)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			return runPipeline(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				gw := catalog.New(pool.Pool, logger)
				opts := ingest.Options{
					FilePath:       file,
					MaxRows:        maxRows,
					DryRun:         dryRun,
					UpdateExisting: updateExisting,
				}

				start := time.Now()
				result, err := ingest.Run(ctx, gw, opts, logger)
				if err != nil {
					return err
				}
				logger.Info("Import finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("import error", "error", e)
				}

				// A preview run promises zero writes, run history included.
				if dryRun {
					return nil
				}
				entry := runlog.NewEntry(runlog.KindImport, start, result.Duration,
					map[string]any{
						"file":            file,
						"max":             maxRows,
						"update_existing": updateExisting,
					},
					result.Stats())
				if err := runlog.Append(ctx, pool.Pool, entry); err != nil {
					logger.Warn("Failed to append run history", "error", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to the dump file")
	cmd.Flags().IntVar(&maxRows, "max", 0, "Cap on rows inserted this run (0 = unlimited)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be inserted without writing")
	cmd.Flags().BoolVar(&updateExisting, "update-existing", false, "Refresh rows whose upstream timestamp is newer")
	return cmd
}

// --------------------------------------------------------------------------
// enrich command
// --------------------------------------------------------------------------

func enrichCmd() *cobra.Command {
	var (
		limit         int
		credits       int
		metadataCalls int
		metadataOnly  bool
		publishedOnly bool
	)
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich catalog titles from OMDb and Watchmode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if cfg.OMDbAPIKey == "" {
					return fmt.Errorf("OMDB_API_KEY is required")
				}
				metadata, err := omdb.New(omdb.Config{
					APIKey: cfg.OMDbAPIKey,
					Delay:  cfg.OMDbDelay,
				}, logger)
				if err != nil {
					return err
				}

				var availability enrich.AvailabilityClient
				if !metadataOnly {
					if cfg.WatchmodeAPIKey == "" {
						return fmt.Errorf("WATCHMODE_API_KEY is required (or pass --metadata-only)")
					}
					client, err := watchmode.New(watchmode.Config{
						APIKey: cfg.WatchmodeAPIKey,
						Delay:  cfg.WatchmodeDelay,
						Region: cfg.WatchmodeRegion,
					}, logger)
					if err != nil {
						return err
					}
					availability = client
				}

				gw := catalog.New(pool.Pool, logger)
				opts := enrich.Options{
					Limit:         limit,
					CreditLimit:   credits,
					MetadataLimit: metadataCalls,
					MetadataOnly:  metadataOnly,
					PublishedOnly: publishedOnly,
				}

				start := time.Now()
				result, err := enrich.Run(ctx, gw, metadata, availability, opts, logger)
				if err != nil {
					return err
				}
				logger.Info("Enrichment finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("enrich error", "error", e)
				}

				entry := runlog.NewEntry(runlog.KindEnrich, start, result.Duration,
					map[string]any{
						"limit":          limit,
						"credits":        credits,
						"metadata_calls": metadataCalls,
						"metadata_only":  metadataOnly,
						"published_only": publishedOnly,
						"region":         cfg.WatchmodeRegion,
					},
					result.Stats())
				if err := runlog.Append(ctx, pool.Pool, entry); err != nil {
					logger.Warn("Failed to append run history", "error", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Max candidates this run")
	cmd.Flags().IntVar(&credits, "credits", 0, "Availability credit ceiling (0 = uncapped)")
	cmd.Flags().IntVar(&metadataCalls, "metadata-calls", 0, "Metadata call ceiling (0 = uncapped)")
	cmd.Flags().BoolVar(&metadataOnly, "metadata-only", false, "Skip the availability provider entirely")
	cmd.Flags().BoolVar(&publishedOnly, "published-only", false, "Restrict to titles on published binge lists")
	return cmd
}

// --------------------------------------------------------------------------
// runs command
// --------------------------------------------------------------------------

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent pipeline run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				entries, err := runlog.List(ctx, pool.Pool, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Println("No runs recorded yet.")
					return nil
				}
				fmt.Println(renderRunsTable(entries))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runPipeline handles config loading, DB connection, and context cancellation.
func runPipeline(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
