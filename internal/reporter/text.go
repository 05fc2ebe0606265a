package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/dqlens/internal/aggregator"
	"github.com/ppiankov/dqlens/internal/catalog"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/rules"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title renders an enum value as a label, e.g. "critical" -> "Critical".
// A Caser is stateful, so one is created per call.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
}

// NewTextReporter creates a new text reporter
func NewTextReporter(writer io.Writer) *TextReporter {
	return &TextReporter{
		writer: writer,
	}
}

// Generate creates the overview report
func (r *TextReporter) Generate(report *models.QualityReport) error {
	r.printHeader()
	r.printf("Timestamp: %s\n\n", formatTimestamp(report.Timestamp))

	r.printSummary(report)
	r.printCategoryDistribution(report.Stats)
	r.printTableList(report.Tables)

	if len(report.Recommendations) > 0 {
		r.printRecommendations(report.Recommendations)
	}

	if report.Trend != nil {
		r.printf("\n")
		r.printTrendInfo(report.Trend)
	}

	return nil
}

func (r *TextReporter) printHeader() {
	r.printf("╔════════════════════════════════════════════╗\n")
	r.printf("║         dqlens Data Quality Report         ║\n")
	r.printf("╚════════════════════════════════════════════╝\n\n")
}

func (r *TextReporter) printSummary(report *models.QualityReport) {
	stats := report.Stats

	r.printf("Overall Summary:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Tables Monitored: %d\n", stats.TotalTables)
	r.printf("  Healthy: %d (%.0f%%)  Warning: %d  Critical: %d\n",
		stats.HealthyTables, stats.HealthyPercent(), stats.TablesWithWarnings, stats.CriticalTables)
	r.printf("  Active Rules: %d of %d\n", stats.ActiveRules, stats.TotalRules)
	r.printf("  Total Issues: %d\n", stats.TotalIssues)
	r.printf("  Average Score: %.1f%% (%s)", stats.AverageScore*100, strings.ToUpper(string(models.MustClassify(stats.AverageScore))))

	if report.Trend != nil {
		indicator := aggregator.GetTrendIndicator(report.Trend.Direction)
		r.printf(" %s %+.1f pts from previous snapshot", indicator, report.Trend.ScoreChange*100)
	}

	r.printf("\n\n")
}

func (r *TextReporter) printCategoryDistribution(stats models.DashboardStats) {
	if stats.TotalIssues == 0 {
		return
	}
	r.printf("Issues by Category:\n")
	for _, cat := range models.Categories {
		if n := stats.IssuesByCategory[cat]; n > 0 {
			r.printf("  %-12s %d\n", string(cat)+":", n)
		}
	}
	r.printf("\n")
}

func (r *TextReporter) printTableList(tables []models.TableQuality) {
	r.printf("Tables:\n")
	r.printf("--------------------------------------------------\n")
	if len(tables) == 0 {
		r.printf("  (none)\n")
		return
	}
	for _, t := range tables {
		r.printf("  %-45s %5.1f%%  %-8s %s\n", t.TableKey, t.ScorePercent(), Title(string(t.Status)), describeTable(t))
	}
}

func describeTable(t models.TableQuality) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d issues (%s)", t.IssueCount, models.IssueBand(t.IssueCount)))
	if t.RowCount != nil {
		parts = append(parts, formatCount(*t.RowCount)+" rows")
	}
	if t.Trend != nil {
		parts = append(parts, aggregator.GetTrendIndicator(*t.Trend))
	}
	if t.ScoreSupplied {
		parts = append(parts, "score supplied")
	}
	return strings.Join(parts, ", ")
}

func (r *TextReporter) printRecommendations(recommendations []models.Recommendation) {
	r.printf("\n")
	r.printf("Recommended Actions:\n")
	r.printf("--------------------------------------------------\n")

	gen := aggregator.NewRecommendationGenerator()
	grouped := gen.GroupBySeverity(recommendations)

	i := 0
	for _, severity := range models.Severities {
		for _, rec := range grouped[severity] {
			i++
			r.printf("  %d. [%s] %s\n", i, strings.ToUpper(string(rec.Severity)), rec.Action)
			r.printf("     Impact: %s\n", rec.Impact)
		}
	}
}

func (r *TextReporter) printTrendInfo(trend *models.ReportTrend) {
	r.printf("Trend Analysis:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Direction: %s %s\n", trend.Direction, aggregator.GetTrendIndicator(trend.Direction))
	r.printf("  Average Score Change: %+.1f pts\n", trend.ScoreChange*100)
	r.printf("  Issues: %d → %d\n", trend.PreviousIssues, trend.CurrentIssues)

	if trend.NewIssues > 0 {
		r.printf("  New Issues: %d\n", trend.NewIssues)
	}
	if trend.ResolvedIssues > 0 {
		r.printf("  Resolved: %d\n", trend.ResolvedIssues)
	}

	r.printf("  Compared With: %s\n", formatTimestamp(trend.ComparedWith))
}

// WriteTables prints a table listing
func (r *TextReporter) WriteTables(tables []models.TableQuality) {
	r.printf("%-45s %7s  %-8s %6s  %-12s %s\n", "TABLE", "SCORE", "STATUS", "ISSUES", "ROWS", "LAST CHECKED")
	for _, t := range tables {
		rows := "-"
		if t.RowCount != nil {
			rows = formatCount(*t.RowCount)
		}
		r.printf("%-45s %6.1f%%  %-8s %6d  %-12s %s\n",
			t.TableKey, t.ScorePercent(), Title(string(t.Status)), t.IssueCount, rows, formatOptionalTime(t.LastChecked))
	}
	r.printf("\n%d table(s)\n", len(tables))
}

// WriteObservations prints a metrics listing
func (r *TextReporter) WriteObservations(observations []models.MetricObservation) {
	r.printf("%-38s %-16s %-16s %-11s %10s %10s  %-8s %s\n",
		"TABLE", "COLUMN", "METRIC", "CATEGORY", "VALUE", "THRESHOLD", "STATUS", "TREND")
	for _, o := range observations {
		threshold := "-"
		if o.Threshold != nil {
			threshold = fmt.Sprintf("%g", *o.Threshold)
		}
		column := o.Column
		if column == "" {
			column = "-"
		}
		trend := ""
		if o.Trend != nil {
			trend = aggregator.GetTrendIndicator(*o.Trend)
		}
		r.printf("%-38s %-16s %-16s %-11s %10s %10s  %-8s %s\n",
			o.TableKey, column, o.Metric, o.Category, o.Value, threshold, Title(string(o.Status)), trend)
	}
	r.printf("\n%d metric(s)\n", len(observations))
}

// WriteRules prints a rule listing with the next scheduled time after now
func (r *TextReporter) WriteRules(list []models.CustomRule, now time.Time) {
	for _, rule := range list {
		state := "enabled"
		if !rule.Enabled {
			state = "disabled"
		}
		r.printf("[%s] %s (%s, %s)\n", strings.ToUpper(string(rule.Severity)), rule.Name, rule.ID, state)
		if rule.Description != "" {
			r.printf("  %s\n", rule.Description)
		}
		r.printf("  Threshold: %g  Schedule: %s\n", rule.Threshold, rules.DescribeSchedule(rule.Schedule, now))
		r.printf("  Created by %s on %s", rule.CreatedBy, rule.CreatedAt.Format("2006-01-02"))
		if rule.LastRun != nil {
			r.printf(", last run %s", formatTimestamp(*rule.LastRun))
		}
		r.printf("\n\n")
	}
	r.printf("%d rule(s)\n", len(list))
}

// WriteRule prints a single rule including its SQL
func (r *TextReporter) WriteRule(rule models.CustomRule, now time.Time) {
	r.WriteRules([]models.CustomRule{rule}, now)
	r.printf("\nSQL:\n%s\n", rule.SQLQuery)
}

// WriteDMFs prints the system DMF catalog grouped by category
func (r *TextReporter) WriteDMFs(dmfs []catalog.SystemDMF) {
	current := models.Category("")
	for _, d := range dmfs {
		if d.Category != current {
			if current != "" {
				r.printf("\n")
			}
			current = d.Category
			r.printf("%s:\n", current)
		}
		r.printf("  %-26s %-9s %s\n", d.Name, "("+d.Direction.String()+")", d.Description)
	}
	r.printf("\n%d DMF(s)\n", len(dmfs))
}

// printf is a helper to write formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}

// formatTimestamp formats a timestamp for display
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return formatTimestamp(t)
}

// formatCount renders 1250000 as 1,250,000
func formatCount(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
