package aggregator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/dqlens/internal/models"
)

// StableBand is the score delta (0-1 scale) below which a table is stable
const StableBand = 0.005

// TrendAnalyzer analyzes trends across multiple snapshots
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// Direction classifies a score delta
func Direction(change float64) models.Trend {
	switch {
	case change >= StableBand:
		return models.TrendImproving
	case change <= -StableBand:
		return models.TrendDegrading
	default:
		return models.TrendStable
	}
}

// CalculateTrend compares current report with previous one
func (t *TrendAnalyzer) CalculateTrend(current, previous *models.QualityReport) *models.ReportTrend {
	if previous == nil {
		return nil
	}

	change := round4(current.Stats.AverageScore - previous.Stats.AverageScore)
	trend := &models.ReportTrend{
		Direction:      Direction(change),
		ScoreChange:    change,
		PreviousIssues: previous.Stats.TotalIssues,
		CurrentIssues:  current.Stats.TotalIssues,
		ComparedWith:   previous.Timestamp,
	}

	prevKeys := issueKeys(previous)
	currKeys := issueKeys(current)
	for k := range currKeys {
		if !prevKeys[k] {
			trend.NewIssues++
		}
	}
	for k := range prevKeys {
		if !currKeys[k] {
			trend.ResolvedIssues++
		}
	}

	return trend
}

// AddTrend sets the report trend and tags every table that also exists in
// the previous report with its own trend
func (t *TrendAnalyzer) AddTrend(current, previous *models.QualityReport) {
	if previous == nil {
		return
	}

	current.Trend = t.CalculateTrend(current, previous)

	for i := range current.Tables {
		table := &current.Tables[i]
		prev, ok := previous.FindTable(table.TableKey)
		if !ok {
			continue
		}
		dir := Direction(round4(table.OverallScore - prev.OverallScore))
		table.Trend = &dir
	}
}

// AnalyzeLastNRuns analyzes trends across reports ordered oldest first
func (t *TrendAnalyzer) AnalyzeLastNRuns(runs []*models.QualityReport) *models.TrendSummary {
	if len(runs) == 0 {
		return nil
	}

	summary := &models.TrendSummary{
		RunsAnalyzed: len(runs),
		ByTable:      make(map[string]*models.TableTrend),
	}

	if len(runs) > 1 {
		earliest := runs[0].Timestamp
		latest := runs[len(runs)-1].Timestamp
		days := int(latest.Sub(earliest).Hours() / 24)
		summary.TimeRange = fmt.Sprintf("Last %d days", days)
	} else {
		summary.TimeRange = "Single run"
	}

	summary.ScoreSparkline = make([]int, len(runs))
	summary.IssueSparkline = make([]int, len(runs))
	for i, run := range runs {
		summary.ScoreSparkline[i] = int(math.Round(run.Stats.AverageScore * 100))
		summary.IssueSparkline[i] = run.Stats.TotalIssues
	}

	if len(runs) >= 2 {
		t.calculateTableTrends(runs[0], runs[len(runs)-1], summary)
	}

	return summary
}

// calculateTableTrends compares the earliest and latest run per table.
// Tables missing from either run are skipped.
func (t *TrendAnalyzer) calculateTableTrends(earliest, latest *models.QualityReport, summary *models.TrendSummary) {
	for _, curr := range latest.Tables {
		prev, ok := earliest.FindTable(curr.TableKey)
		if !ok {
			continue
		}
		change := round4(curr.OverallScore - prev.OverallScore)
		summary.ByTable[curr.TableKey.String()] = &models.TableTrend{
			Table:         curr.TableKey.String(),
			CurrentScore:  curr.OverallScore,
			PreviousScore: prev.OverallScore,
			Change:        change,
			Direction:     Direction(change),
			CurrentTier:   curr.Status,
			PreviousTier:  prev.Status,
		}
	}
}

// GenerateComparisonReport creates a detailed comparison between two runs
func (t *TrendAnalyzer) GenerateComparisonReport(current, previous *models.QualityReport) string {
	if previous == nil {
		return "No previous snapshot to compare with"
	}

	trend := t.CalculateTrend(current, previous)

	var b strings.Builder
	fmt.Fprintf(&b, "Comparison: %s vs %s\n\n", formatDate(current.Timestamp), formatDate(previous.Timestamp))
	fmt.Fprintf(&b, "Average score: %.1f%% → %.1f%% (%s)\n",
		previous.Stats.AverageScore*100, current.Stats.AverageScore*100, trend.Direction)
	fmt.Fprintf(&b, "Issues: %d → %d\n\n", trend.PreviousIssues, trend.CurrentIssues)

	keys := make([]models.TableKey, 0, len(current.Tables))
	for _, table := range current.Tables {
		keys = append(keys, table.TableKey)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	for _, key := range keys {
		curr, _ := current.FindTable(key)
		prev, ok := previous.FindTable(key)
		if !ok {
			fmt.Fprintf(&b, "%s: new (%.0f%%, %s)\n", key, curr.ScorePercent(), curr.Status)
			continue
		}
		if prev.OverallScore == curr.OverallScore && prev.Status == curr.Status {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", key)
		fmt.Fprintf(&b, "  %.0f%% → %.0f%% (%+.1f)", prev.ScorePercent(), curr.ScorePercent(),
			(curr.OverallScore-prev.OverallScore)*100)
		if prev.Status != curr.Status {
			fmt.Fprintf(&b, "  %s → %s", prev.Status, curr.Status)
		}
		b.WriteString("\n")
	}

	if trend.NewIssues > 0 {
		fmt.Fprintf(&b, "\nNew Issues: %d\n", trend.NewIssues)
	}
	if trend.ResolvedIssues > 0 {
		fmt.Fprintf(&b, "\nResolved Issues: %d\n", trend.ResolvedIssues)
	}

	return b.String()
}

// IssueKey identifies an observation across snapshots
func IssueKey(o models.MetricObservation) string {
	return o.TableKey.String() + "|" + o.Metric + "|" + o.Column
}

func issueKeys(report *models.QualityReport) map[string]bool {
	keys := make(map[string]bool)
	for _, table := range report.Tables {
		for _, m := range table.Metrics {
			if m.IsIssue() {
				keys[IssueKey(m)] = true
			}
		}
	}
	return keys
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// formatDate formats a timestamp for display
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// GetTrendIndicator returns a visual indicator for trend direction
func GetTrendIndicator(direction models.Trend) string {
	switch direction {
	case models.TrendImproving:
		return "↑"
	case models.TrendDegrading:
		return "↓"
	case models.TrendStable:
		return "→"
	default:
		return "?"
	}
}
