package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// maxFailureRows caps the per-item failure listing in the summary.
const maxFailureRows = 20

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func printSummary(w io.Writer, result *models.ScraperResult, outputFile string, metrics map[string]interface{}) {
	if result == nil {
		return
	}

	duration := result.EndTime.Sub(result.StartTime).Round(time.Second)
	attempted := len(result.Succeeded) + len(result.Failed)
	successRate := 0.0
	if attempted > 0 {
		successRate = float64(len(result.Succeeded)) / float64(attempted) * 100
	}
	itemsPerMin := 0.0
	if minutes := result.EndTime.Sub(result.StartTime).Minutes(); minutes > 0 {
		itemsPerMin = float64(len(result.Succeeded)) / minutes
	}

	title := "Scrape complete"
	if result.Aborted {
		title = "Scrape aborted"
	}

	t := newTable(w)
	t.SetTitle(title)
	t.AppendRows([]table.Row{
		{"Succeeded", len(result.Succeeded)},
		{"Failed", len(result.Failed)},
		{"Skipped", result.Skipped},
		{"Success rate", fmt.Sprintf("%.2f%%", successRate)},
		{"Brands with items", len(result.GroupsSucceeded)},
		{"Empty brands", len(result.GroupsEmpty)},
		{"Retries", result.RetryCount},
		{"Browser restarts", result.RestartCount},
		{"Checkpoints", result.Checkpoints},
		{"Dataset size", result.DatasetSize},
		{"Duration", duration},
		{"Items/min", fmt.Sprintf("%.2f", itemsPerMin)},
		{"Output file", outputFile},
	})
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		t.AppendRow(table.Row{"Rejected records", fmt.Sprint(valErrors)})
	}
	t.Render()

	if len(result.ErrorsByType) > 0 {
		kinds := make([]string, 0, len(result.ErrorsByType))
		for kind := range result.ErrorsByType {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)

		et := newTable(w)
		et.SetTitle("Errors by type")
		et.AppendHeader(table.Row{"Type", "Count"})
		for _, kind := range kinds {
			et.AppendRow(table.Row{kind, result.ErrorsByType[kind]})
		}
		et.Render()
	}

	if len(result.Failed) > 0 {
		ft := newTable(w)
		ft.SetTitle("Failed items")
		ft.AppendHeader(table.Row{"Brand", "Kind", "URL"})
		for i, f := range result.Failed {
			if i == maxFailureRows {
				ft.AppendFooter(table.Row{"", "", fmt.Sprintf("%d more", len(result.Failed)-maxFailureRows)})
				break
			}
			ft.AppendRow(table.Row{f.Brand, f.Kind, f.URL})
		}
		ft.Render()
	}

	if len(result.GroupsEmpty) > 0 {
		fmt.Fprintf(w, "Brands without items: %v\n", result.GroupsEmpty)
	}
}
