package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shipenrich/internal/config"
	"shipenrich/internal/console"
	"shipenrich/internal/drive"
	"shipenrich/internal/pipeline"
	"shipenrich/internal/shipstation"
)

var (
	runDate string
	dryRun  bool
)

// runCmd executes one enrichment run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enrichment pipeline for one ship date",
	Long: `Runs the full pipeline:
  1. Pull shipped orders from ShipStation for the date
  2. Extract serial numbers from internal notes
  3. Resolve IMEI/ICCID per serial via the admin console
  4. Upload the CSV payload to Google Drive
  5. Push the CSV back into the console (Update Retailer)

With --dry-run the payload is written locally and nothing external is
touched beyond the read-only lookups.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "ship date to process (YYYY-MM-DD, default today)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip Drive and console uploads, save local CSV")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	// Fail before any I/O when credentials are incomplete.
	if err := cfg.Validate(); err != nil {
		return err
	}

	date := time.Now()
	if runDate != "" {
		date, err = time.Parse("2006-01-02", runDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q, want YYYY-MM-DD: %w", runDate, err)
		}
	}

	ctx := context.Background()

	orderSource := shipstation.NewClient(cfg.ShipStation, cfg.Run, logger)

	docStore, err := drive.NewClient(ctx, cfg.Drive, logger)
	if err != nil {
		return err
	}

	openSession := func(ctx context.Context) (pipeline.LookupSession, error) {
		return console.Open(ctx, cfg.Console, logger)
	}

	orch := pipeline.New(orderSource, openSession, docStore, cfg, logger)
	if err := orch.Run(ctx, date, dryRun); err != nil {
		logger.Error("run failed", zap.Error(err))
		return err
	}
	return nil
}
