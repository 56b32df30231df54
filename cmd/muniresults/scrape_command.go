package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"muniresults/internal/catalog"
	"muniresults/internal/config"
	"muniresults/internal/fetcher"
	"muniresults/internal/formatter"
	"muniresults/internal/models"
	"muniresults/internal/pipeline"
	"muniresults/internal/resource"
	"muniresults/internal/storage"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape every municipality of the catalog into one result file",
		Long: `Scrape walks the municipality catalog in order, skipping the Federal
District and Fernando de Noronha, and writes
result_{candidacy}_round1_{year}.{csv|json} into the output directory.

By default the first failed download or malformed document aborts the run
and no file is written. With --lenient the municipality is reported and
skipped instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, ctx)
		},
	}

	flags := cmd.Flags()
	flags.String("candidacy", "", "Contest to scrape: mayor or councilor (required)")
	flags.String("format", "", "Output format: csv or json (required)")
	flags.String("catalog", catalog.DefaultPath, "Municipality catalog file")
	flags.StringP("output-dir", "o", ".", "Directory the result file is written to")
	addElectionFlags(cmd)
	flags.Bool("lenient", false, "Record failed municipalities and keep going")
	flags.Int("limit", 0, "Stop after this many processed municipalities (0 = all)")
	flags.Duration("http-timeout", 0, "Timeout of each download (0 = none)")
	flags.String("user-agent", fetcher.DefaultUserAgent, "User-Agent sent with every request")
	flags.String("archive-dir", "", "Also store the finished run in this PocketBase data directory")
	return cmd
}

func addElectionFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int("year", resource.DefaultYear, "Election year")
	flags.Int("election-id", resource.DefaultElectionID, "Election identifier of the first round")
	flags.String("host", resource.DefaultHost, "Results host, optionally with a scheme")
}

func runScrape(cmd *cobra.Command, ctx *commandContext) error {
	cfg := ctx.cfg
	logger := ctx.logger

	// Every setting is checked before the first request goes out.
	if err := cfg.ValidateScrape(); err != nil {
		return err
	}
	candidacy, _ := cfg.CandidacyType()
	format, _ := cfg.ExportFormat()

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", zap.String("path", cfg.Catalog), zap.Int("municipalities", cat.Len()))

	client := fetcher.New(fetcher.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})
	runner, err := pipeline.New(client, cfg.Template(), pipeline.Options{
		Candidacy:  candidacy,
		Strict:     cfg.Strict,
		Exclusions: pipeline.DefaultExclusions(),
		Limit:      cfg.Limit,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	outcome, err := runner.Run(cmd.Context(), cat.Municipalities)
	if err != nil {
		return err
	}

	path, err := formatter.Export(cfg.OutputDir, cfg.Year, outcome.Table, format)
	if err != nil {
		return err
	}
	logger.Info("results written", zap.String("path", path), zap.Int("records", len(outcome.Table.Records)))

	printReport(cmd.ErrOrStderr(), outcome.Report, len(outcome.Table.Records))

	if cfg.ArchiveDir != "" {
		if err := archiveRun(cfg, logger, path, outcome); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func archiveRun(cfg *config.Config, logger *zap.Logger, path string, outcome *pipeline.Outcome) error {
	archive, err := storage.OpenArchive(cfg.ArchiveDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	if err := archive.SaveRun(cfg.Year, path, outcome.Table, outcome.Report); err != nil {
		return fmt.Errorf("failed to archive run %s: %w", outcome.Report.RunID, err)
	}
	return nil
}

func printReport(w io.Writer, report *models.Report, records int) {
	summary := [][]string{
		{"Run", report.RunID},
		{"Candidacy", string(report.Candidacy)},
		{"Processed", strconv.Itoa(report.Processed)},
		{"Excluded", strconv.Itoa(len(report.Excluded))},
		{"Records", strconv.Itoa(records)},
		{"Mismatches", strconv.Itoa(len(report.Mismatches))},
		{"Failures", strconv.Itoa(len(report.Failures))},
	}
	fmt.Fprintln(w, reportTable{
		Title:   "Summary",
		Columns: []column{{Header: "Field"}, {Header: "Value", Align: alignRight}},
		Rows:    summary,
	}.render())

	if report.Clean() {
		fmt.Fprintln(w, "Every municipality summed to 100% and none was skipped.")
		return
	}

	if len(report.Mismatches) > 0 {
		rows := make([][]string, len(report.Mismatches))
		for i, m := range report.Mismatches {
			rows[i] = []string{m.StateCode, m.MunicipalityName, m.ComputedTotal.String()}
		}
		fmt.Fprintln(w, reportTable{
			Title: "Vote percentages not summing to 100",
			Columns: []column{
				{Header: "State"},
				{Header: "Municipality"},
				{Header: "Total", Align: alignRight},
			},
			Rows:   rows,
			Footer: []string{"", "Municipalities", strconv.Itoa(len(rows))},
		}.render())
	}

	if len(report.Failures) > 0 {
		rows := make([][]string, len(report.Failures))
		for i, f := range report.Failures {
			rows[i] = []string{f.StateCode, f.MunicipalityName, string(f.Stage), oneLine(f.Error)}
		}
		fmt.Fprintln(w, reportTable{
			Title: "Skipped municipalities",
			Columns: []column{
				{Header: "State"},
				{Header: "Municipality"},
				{Header: "Stage"},
				{Header: "Error", MaxWidth: 80},
			},
			Rows: rows,
		}.render())
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
