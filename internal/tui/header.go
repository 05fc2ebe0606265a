package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/dqlens/internal/aggregator"
	"github.com/ppiankov/dqlens/internal/models"
)

// headerHeight is the number of terminal lines the header occupies.
const headerHeight = 6

// renderHeader produces the header string from the report stats.
func renderHeader(report *models.QualityReport, activeRules, totalRules int, sparkline []int, width int) string {
	var b strings.Builder
	stats := report.Stats

	// Line 1: average score and trend
	tier := models.MustClassify(stats.AverageScore)
	scoreText := tierStyle(tier).Render(
		fmt.Sprintf("%.1f%% %s", stats.AverageScore*100, strings.ToUpper(string(tier))),
	)
	b.WriteString(fmt.Sprintf("dqlens  Average: %s", scoreText))
	if report.Trend != nil {
		b.WriteString(fmt.Sprintf("  %s %+.1f pts",
			aggregator.GetTrendIndicator(report.Trend.Direction), report.Trend.ScoreChange*100))
	}
	b.WriteString("\n")

	// Line 2: tiers, issues and rules
	b.WriteString(fmt.Sprintf("Tables: %d  %s  %s  %s  Issues: %d  Rules: %d/%d active",
		stats.TotalTables,
		tierStyle(models.TierHealthy).Render(fmt.Sprintf("H:%d", stats.HealthyTables)),
		tierStyle(models.TierWarning).Render(fmt.Sprintf("W:%d", stats.TablesWithWarnings)),
		tierStyle(models.TierCritical).Render(fmt.Sprintf("C:%d", stats.CriticalTables)),
		stats.TotalIssues, activeRules, totalRules))
	b.WriteString("\n")

	// Line 3: issue distribution by category
	parts := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		if n := stats.IssuesByCategory[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", c, n))
		}
	}
	if len(parts) > 0 {
		b.WriteString(strings.Join(parts, "  "))
	}
	b.WriteString("\n")

	// Line 4: sparkline
	if len(sparkline) > 0 {
		b.WriteString("Score: ")
		b.WriteString(renderSparkline(sparkline))
	}

	return styleHeader.Width(width).Render(b.String())
}

// renderTabs highlights the active view.
func renderTabs(active view) string {
	tabs := make([]string, 0, viewCount)
	for v := view(0); v < viewCount; v++ {
		if v == active {
			tabs = append(tabs, styleActiveTab.Render(v.String()))
		} else {
			tabs = append(tabs, styleTab.Render(v.String()))
		}
	}
	return " " + strings.Join(tabs, "  ")
}

// renderSparkline converts an int slice to a unicode sparkline string.
func renderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		if hi == lo {
			b.WriteRune(bars[len(bars)/2])
		} else {
			normalized := float64(v-lo) / float64(hi-lo)
			idx := int(normalized * float64(len(bars)-1))
			b.WriteRune(bars[idx])
		}
	}

	b.WriteString(fmt.Sprintf(" [%d→%d]", values[0], values[len(values)-1]))
	return b.String()
}
