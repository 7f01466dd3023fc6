package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/bingeguide/catalog-data/internal/runlog"
)

// renderRunsTable renders run-history entries for the runs subcommand,
// newest first as returned by runlog.List.
func renderRunsTable(entries []runlog.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"STARTED", "KIND", "DURATION", "STATS"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	for _, e := range entries {
		tw.AppendRow(table.Row{
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.Kind,
			e.Duration.Round(time.Millisecond).String(),
			statsSummary(e.Stats),
		})
	}
	return tw.Render()
}

// statsSummary flattens a run's stats block into a compact "k=v" line,
// skipping fields the table already shows.
func statsSummary(stats map[string]any) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		if k == "duration_ms" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := stats[k]
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			v = int64(f)
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}
