package run

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary formats the per-partition run report as a terminal table.
func RenderSummary(runs []*PartitionRun) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(table.Row{
		"Partition", "State", "Items", "New", "Kept", "Dropped", "Excluded", "Dupes", "Merged", "Error",
	})

	var totals PartitionRun
	for _, pr := range runs {
		errText := ""
		if pr.Err != nil {
			errText = pr.Err.Error()
		}
		tw.AppendRow(table.Row{
			pr.Name, string(pr.State),
			pr.Items, pr.NewItems, pr.Kept, pr.Dropped, pr.Excluded, pr.Duplicates, pr.Merged,
			errText,
		})

		totals.Items += pr.Items
		totals.NewItems += pr.NewItems
		totals.Kept += pr.Kept
		totals.Dropped += pr.Dropped
		totals.Excluded += pr.Excluded
		totals.Duplicates += pr.Duplicates
		totals.Merged += pr.Merged
	}

	tw.AppendFooter(table.Row{
		"Total", "",
		totals.Items, totals.NewItems, totals.Kept, totals.Dropped, totals.Excluded,
		totals.Duplicates, totals.Merged, "",
	})

	configs := make([]table.ColumnConfig, 0, 8)
	for col := 3; col <= 9; col++ {
		configs = append(configs, table.ColumnConfig{
			Number:      col,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
