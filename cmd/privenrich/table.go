package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/pipeline"
)

func renderSummary(stats pipeline.Stats) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Total", "OK", "Degraded", "Failed", "Elapsed", "Avg/Row"})
	tw.AppendRow(table.Row{
		strconv.Itoa(stats.Total),
		strconv.Itoa(stats.OK),
		strconv.Itoa(stats.Degraded),
		strconv.Itoa(stats.Failed),
		stats.Elapsed.Round(time.Millisecond).String(),
		stats.PerItem().Round(time.Millisecond).String(),
	})

	configs := make([]table.ColumnConfig, 0, 6)
	for i := 1; i <= 6; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
