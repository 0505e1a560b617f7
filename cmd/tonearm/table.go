package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tonearm/internal/decision"
)

// renderPlanTable renders plan entries for terminal output. Mutating
// actions are colored so a destructive run is easy to scan before it
// applies.
func renderPlanTable(plan decision.Plan) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Action", "Path", "Score", "Reason"})

	for _, entry := range plan.Entries {
		tw.AppendRow(table.Row{
			string(entry.Action),
			entry.Identity.Path,
			strconv.FormatFloat(entry.Score, 'f', 1, 64),
			entry.Reason,
		})
	}

	tw.SetRowPainter(func(row table.Row) text.Colors {
		action, _ := row[0].(string)
		switch decision.Action(action) {
		case decision.ActionRemove, decision.ActionReplace:
			return text.Colors{text.FgRed}
		case decision.ActionLink:
			return text.Colors{text.FgCyan}
		case decision.ActionKeep:
			return text.Colors{text.FgGreen}
		default:
			return text.Colors{text.Faint}
		}
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

// renderSettingsTable renders setting/value pairs for config show.
func renderSettingsTable(rows [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Setting", "Value"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	return tw.Render()
}
