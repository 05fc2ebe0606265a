package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/dqlens/internal/models"
)

var viewColumns = [viewCount][]table.Column{
	viewMetrics: {
		{Title: "Status", Width: 8},
		{Title: "Table", Width: 32},
		{Title: "Column", Width: 14},
		{Title: "Metric", Width: 16},
		{Title: "Category", Width: 11},
		{Title: "Value", Width: 10},
	},
	viewTables: {
		{Title: "Tier", Width: 9},
		{Title: "Table", Width: 40},
		{Title: "Score", Width: 7},
		{Title: "Issues", Width: 6},
		{Title: "Trend", Width: 10},
	},
	viewRules: {
		{Title: "On", Width: 3},
		{Title: "Name", Width: 28},
		{Title: "Severity", Width: 9},
		{Title: "Threshold", Width: 9},
		{Title: "Schedule", Width: 16},
	},
}

func observationRows(obs []models.MetricObservation) []table.Row {
	cols := viewColumns[viewMetrics]
	rows := make([]table.Row, 0, len(obs))
	for _, o := range obs {
		column := o.Column
		if column == "" {
			column = "-"
		}
		rows = append(rows, table.Row{
			strings.ToUpper(string(o.Status)),
			truncate(o.TableKey.String(), cols[1].Width),
			truncate(column, cols[2].Width),
			truncate(o.Metric, cols[3].Width),
			string(o.Category),
			truncate(o.Value.String(), cols[5].Width),
		})
	}
	return rows
}

func tableRows(tables []models.TableQuality) []table.Row {
	cols := viewColumns[viewTables]
	rows := make([]table.Row, 0, len(tables))
	for _, t := range tables {
		trend := "-"
		if t.Trend != nil {
			trend = string(*t.Trend)
		}
		rows = append(rows, table.Row{
			strings.ToUpper(string(t.Status)),
			truncate(t.TableKey.String(), cols[1].Width),
			fmt.Sprintf("%.1f%%", t.ScorePercent()),
			fmt.Sprintf("%d", t.IssueCount),
			trend,
		})
	}
	return rows
}

func ruleRows(list []models.CustomRule) []table.Row {
	cols := viewColumns[viewRules]
	rows := make([]table.Row, 0, len(list))
	for _, r := range list {
		on := " "
		if r.Enabled {
			on = "●"
		}
		schedule := r.Schedule
		if schedule == "" {
			schedule = "on demand"
		}
		rows = append(rows, table.Row{
			on,
			truncate(r.Name, cols[1].Width),
			strings.ToUpper(string(r.Severity)),
			fmt.Sprintf("%g", r.Threshold),
			truncate(schedule, cols[4].Width),
		})
	}
	return rows
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return s[:maxLen]
	}
	return s[:maxLen-len(ellipsis)] + ellipsis
}

// newTable creates a bubbles table with the columns of v and standard styling.
func newTable(v view, rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(viewColumns[v]),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorAccent).
		Bold(false)
	t.SetStyles(s)

	return t
}
