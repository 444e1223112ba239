package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"siteledger/internal/cache"
	"siteledger/internal/config"
	"siteledger/internal/logger"
	"siteledger/internal/reconciliation"
	"siteledger/internal/report"
	"siteledger/internal/sheets"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile invoices and payments per milestone",
	Long: `Reconcile every invoice of one or more milestones against its payment history:
tax-inclusive total, amount paid, pending balance and status per invoice, plus
milestone totals.

Invoices are fetched from the backend and the result is kept as a local
snapshot; --offline reconciles the last snapshot instead, without network
access. Several milestones are read in parallel (SITELEDGER_WORKERS).
With --offline and no --milestone, every cached milestone is reconciled.

Optional environment variables for --sheet:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file
  GOOGLE_SHEET_URL               - Google Sheets URL to append rows to
  GOOGLE_SHEET_WORKSHEET         - Worksheet name (default: Milestone_Payments)`,
	Example: `  # Reconcile one milestone
  siteledger reconcile --milestone 42

  # Several milestones as JSON
  siteledger reconcile --milestone 42 --milestone 43 --format json

  # Last cached snapshot, exported to Excel
  siteledger reconcile --milestone 42 --offline --xlsx milestone-42.xlsx

  # Every cached milestone
  siteledger reconcile --offline

  # Append the rows to the configured Google Sheet
  siteledger reconcile --milestone 42 --sheet`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().Int64Slice("milestone", nil, "Milestone ID (repeatable; required unless --offline)")
	reconcileCmd.Flags().Bool("offline", false, "Use the cached snapshot instead of the backend")
	reconcileCmd.Flags().StringP("format", "f", "table", "Output format: table, json or yaml")
	reconcileCmd.Flags().String("xlsx", "", "Also write an XLSX workbook (one milestone: this path; several: one file per milestone in this directory)")
	reconcileCmd.Flags().Bool("sheet", false, "Append the rows to GOOGLE_SHEET_URL")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")

	milestones, _ := cmd.Flags().GetInt64Slice("milestone")
	offline, _ := cmd.Flags().GetBool("offline")
	formatName, _ := cmd.Flags().GetString("format")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	toSheet, _ := cmd.Flags().GetBool("sheet")

	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if len(milestones) == 0 && !offline {
		return errors.New("at least one --milestone is required")
	}
	for _, id := range milestones {
		if id <= 0 {
			return fmt.Errorf("invalid milestone id %d", id)
		}
	}

	cfg, reader, cleanup, err := createReader(cmd, offline, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext(commandTimeout, log)
	defer cancel()

	if len(milestones) == 0 {
		milestones, err = reader.CachedMilestones(ctx)
		if err != nil {
			return handleReconcileError(err, log)
		}
		if len(milestones) == 0 {
			return fmt.Errorf("no cached snapshot yet, run once without --offline")
		}
	}

	log.Info().
		Int("milestones", len(milestones)).
		Bool("offline", offline).
		Str("format", string(format)).
		Msg("Starting milestone reconciliation")

	results := reader.ReadMilestones(ctx, milestones, cfg.Workers)

	var summaries []*reconciliation.Summary
	var failed []string
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, strconv.FormatInt(res.MilestoneID, 10))
			fmt.Fprintf(os.Stderr, "Milestone %d: %v\n", res.MilestoneID, handleReconcileError(res.Err, log))
			continue
		}
		summaries = append(summaries, res.Summary)
	}

	for i, s := range summaries {
		if i > 0 && format == report.FormatTable {
			fmt.Println()
		}
		if err := report.Write(os.Stdout, s, format); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if xlsxPath != "" {
		if err := writeWorkbooks(xlsxPath, summaries, len(milestones) > 1, log); err != nil {
			return err
		}
	}

	if toSheet && len(summaries) > 0 {
		if err := exportToSheet(ctx, cfg, summaries, log); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("could not reconcile milestone(s) %s", strings.Join(failed, ", "))
	}

	log.Info().Int("milestones", len(summaries)).Msg("Reconciliation completed successfully")
	return nil
}

// createReader builds an online or offline reader. Offline mode needs only
// the snapshot cache, not the API configuration.
func createReader(cmd *cobra.Command, offline bool, log zerolog.Logger) (*config.Config, *reconciliation.Reader, func(), error) {
	if offline {
		if configErr != nil {
			return nil, nil, nil, configErr
		}
		if appConfig == nil {
			return nil, nil, nil, errors.New("configuration not loaded")
		}
		store, err := openCache(appConfig.CachePath, log)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("offline mode needs the snapshot cache at %s: %w", appConfig.CachePath, err)
		}
		return appConfig, reconciliation.NewOfflineReader(store), func() { _ = store.Close() }, nil
	}

	client, cfg, err := newAPIClient(cmd, log)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := openCache(cfg.CachePath, log)
	if err != nil {
		// reconcile live data without updating the snapshot
		return cfg, reconciliation.NewReader(client, nil), func() {}, nil
	}
	return cfg, reconciliation.NewReader(client, store), func() { _ = store.Close() }, nil
}

func writeWorkbooks(path string, summaries []*reconciliation.Summary, perMilestone bool, log zerolog.Logger) error {
	for _, s := range summaries {
		target := path
		if perMilestone {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			target = filepath.Join(path, fmt.Sprintf("milestone-%d.xlsx", s.MilestoneID))
		}
		if err := report.WriteXLSX(target, s); err != nil {
			log.Error().Err(err).Str("output_file", target).Msg("Failed to write workbook")
			return err
		}
		log.Info().Str("output_file", target).Int64("milestone_id", s.MilestoneID).Msg("Workbook written")
		fmt.Fprintf(os.Stderr, "Wrote %s\n", target)
	}
	return nil
}

func exportToSheet(ctx context.Context, cfg *config.Config, summaries []*reconciliation.Summary, log zerolog.Logger) error {
	if cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required for --sheet")
	}

	sheetsService, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, cfg.GoogleCredentials)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets service: %w", err)
	}
	log.Info().Msg("Google Sheets service initialized successfully")

	for _, s := range summaries {
		if err := sheetsService.WriteSummary(ctx, s, cfg.GoogleSheetWorksheet); err != nil {
			return fmt.Errorf("failed to export milestone %d: %w", s.MilestoneID, err)
		}
	}
	return nil
}

// handleReconcileError provides user-friendly messages for read failures
func handleReconcileError(err error, log zerolog.Logger) error {
	switch {
	case errors.Is(err, cache.ErrNoSnapshot):
		log.Warn().Err(err).Msg("No snapshot")
		return fmt.Errorf("no cached snapshot yet, run once without --offline")
	default:
		return handleAPIError(err, log)
	}
}
