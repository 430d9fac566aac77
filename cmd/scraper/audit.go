package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-perfumes/catalog"
	"github.com/aluiziolira/go-scrape-perfumes/pipeline"
)

var (
	auditDetails bool
	exportCSV    string
)

func init() {
	auditCmd.Flags().BoolVar(&auditDetails, "details", false, "List every record failing a check")
	rootCmd.AddCommand(auditCmd)

	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "CSV destination (default: the dataset path with a .csv extension)")
	rootCmd.AddCommand(exportCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit [--details]",
	Short: "Reports how complete the stored dataset is.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if _, err := setup(cfg); err != nil {
			return err
		}

		dataset, err := pipeline.LoadDataset(cfg.OutputFile)
		if err != nil {
			return err
		}
		report := catalog.Audit(dataset.Records(), ".", cfg.BaseURL)
		printAudit(os.Stdout, report, auditDetails)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [--csv <path>]",
	Short: "Writes the stored dataset as CSV.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := setup(cfg)
		if err != nil {
			return err
		}

		dataset, err := pipeline.LoadDataset(cfg.OutputFile)
		if err != nil {
			return err
		}
		path := exportCSV
		if path == "" {
			path = pipeline.CSVPath(cfg.OutputFile)
		}

		writer, err := pipeline.NewCSVWriter(path)
		if err != nil {
			return err
		}
		if err := writer.Write(dataset.Records()); err != nil {
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
		logger.Info("dataset exported", slog.String("path", path), slog.Int("records", dataset.Len()))
		return nil
	},
}

func printAudit(w io.Writer, report *catalog.AuditReport, details bool) {
	fmt.Fprintf(w, "Dataset audit: %d records, %d distinct notes\n", report.Total, report.TotalNotes)
	t := newTable(w)
	t.AppendHeader(table.Row{"Check", "Passing", "Score"})
	for _, h := range report.Health() {
		t.AppendRow(table.Row{h.Name, fmt.Sprintf("%d/%d", h.Passing, report.Total), percent(h.Passing, report.Total)})
	}
	t.AppendFooter(table.Row{"Short descriptions", len(report.ShortDescription), ""})
	t.Render()

	fmt.Fprintln(w, "\nMissing vote data by field")
	ft := newTable(w)
	ft.AppendHeader(table.Row{"Field", "Missing"})
	for _, field := range catalog.AuditFields {
		ft.AppendRow(table.Row{field, report.MissingByField[field]})
	}
	ft.Render()

	if !details {
		return
	}
	sections := []struct {
		title string
		items []string
	}{
		{"Missing image file", report.MissingImageFile},
		{"Missing image URL", report.MissingImageURL},
		{"Missing notes", report.MissingNotes},
		{"Missing URL", report.MissingURL},
		{"Unexpected URL", report.BadURL},
		{"No description", report.NoDescription},
		{"Short description", report.ShortDescription},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d):\n", s.title, len(s.items))
		for _, item := range s.items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}
	if len(report.MissingAnyVote) > 0 {
		fmt.Fprintf(w, "\nMissing vote data (%d):\n", len(report.MissingAnyVote))
		for _, gap := range report.MissingAnyVote {
			fmt.Fprintf(w, "  - %s: %s\n", gap.Label, strings.Join(gap.Missing, ", "))
		}
	}
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}
