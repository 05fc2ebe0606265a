package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/dqlens/internal/catalog"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/rules"
)

// detailHeight is the fixed number of lines for the detail panel.
const detailHeight = 5

func renderObservationDetail(o *models.MetricObservation, width int) string {
	if o == nil {
		return styleDetailPanel.Width(width).Render("No observation selected")
	}

	var b strings.Builder

	status := statusStyle(o.Status).Render(strings.ToUpper(string(o.Status)))
	b.WriteString(fmt.Sprintf("%s  %s / %s\n", status, o.Metric, o.Category))

	location := o.TableKey.String()
	if o.Column != "" {
		location += "." + o.Column
	}
	b.WriteString(fmt.Sprintf("Target: %s\n", location))

	parts := []string{fmt.Sprintf("Value: %s", o.Value)}
	if o.Threshold != nil {
		parts = append(parts, fmt.Sprintf("Threshold: %g", *o.Threshold))
	}
	if trend := o.TrendOrEmpty(); trend != "" {
		parts = append(parts, fmt.Sprintf("Trend: %s", trend))
	}
	if !o.LastUpdated.IsZero() {
		parts = append(parts, fmt.Sprintf("Updated: %s", o.LastUpdated.Format("2006-01-02 15:04")))
	}
	b.WriteString(strings.Join(parts, "  "))

	if dmf, ok := catalog.Lookup(o.Metric); ok {
		b.WriteString("\n" + dmf.Description)
	}

	return styleDetailPanel.Width(width).Render(b.String())
}

func renderTableDetail(t *models.TableQuality, width int) string {
	if t == nil {
		return styleDetailPanel.Width(width).Render("No table selected")
	}

	var b strings.Builder

	tier := tierStyle(t.Status).Render(strings.ToUpper(string(t.Status)))
	b.WriteString(fmt.Sprintf("%s  %s\n", tier, t.TableKey))

	score := fmt.Sprintf("Score: %.1f%%", t.ScorePercent())
	if t.ScoreSupplied {
		score += " (seeded)"
	}
	b.WriteString(fmt.Sprintf("%s  Issues: %d (%s)  Metrics: %d\n",
		score, t.IssueCount, models.IssueBand(t.IssueCount), len(t.Metrics)))

	parts := make([]string, 0, 3)
	if t.RowCount != nil {
		parts = append(parts, fmt.Sprintf("Rows: %d", *t.RowCount))
	}
	if !t.LastChecked.IsZero() {
		parts = append(parts, fmt.Sprintf("Checked: %s", t.LastChecked.Format("2006-01-02 15:04")))
	}
	if t.Trend != nil {
		parts = append(parts, fmt.Sprintf("Trend: %s", *t.Trend))
	}
	b.WriteString(strings.Join(parts, "  "))

	return styleDetailPanel.Width(width).Render(b.String())
}

func renderRuleDetail(r *models.CustomRule, now time.Time, width int) string {
	if r == nil {
		return styleDetailPanel.Width(width).Render("No rule selected")
	}

	var b strings.Builder

	state := "disabled"
	if r.Enabled {
		state = "enabled"
	}
	sev := severityStyle(r.Severity).Render(strings.ToUpper(string(r.Severity)))
	b.WriteString(fmt.Sprintf("%s  %s (%s)\n", sev, r.Name, state))
	if r.Description != "" {
		b.WriteString(r.Description + "\n")
	}
	b.WriteString(fmt.Sprintf("SQL: %s\n", strings.Join(strings.Fields(r.SQLQuery), " ")))
	b.WriteString(fmt.Sprintf("Threshold: %g  Schedule: %s", r.Threshold, rules.DescribeSchedule(r.Schedule, now)))

	return styleDetailPanel.Width(width).Render(b.String())
}
