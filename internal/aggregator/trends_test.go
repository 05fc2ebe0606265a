package aggregator

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/dqlens/internal/models"
)

func reportAt(ts time.Time, avg float64, tables ...models.TableQuality) *models.QualityReport {
	issues := 0
	for _, t := range tables {
		issues += t.IssueCount
	}
	return &models.QualityReport{
		Timestamp: ts,
		Tables:    tables,
		Stats:     models.DashboardStats{AverageScore: avg, TotalIssues: issues},
	}
}

func tableWith(key models.TableKey, score float64, metrics ...models.MetricObservation) models.TableQuality {
	issues := 0
	for _, m := range metrics {
		if m.IsIssue() {
			issues++
		}
	}
	return models.TableQuality{
		TableKey:     key,
		OverallScore: score,
		Metrics:      metrics,
		IssueCount:   issues,
		Status:       models.MustClassify(score),
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		change float64
		want   models.Trend
	}{
		{0.02, models.TrendImproving},
		{0.005, models.TrendImproving},
		{0.0049, models.TrendStable},
		{0, models.TrendStable},
		{-0.0049, models.TrendStable},
		{-0.005, models.TrendDegrading},
		{-0.3, models.TrendDegrading},
	}
	for _, tt := range tests {
		if got := Direction(tt.change); got != tt.want {
			t.Errorf("Direction(%v) = %s, want %s", tt.change, got, tt.want)
		}
	}
}

func TestCalculateTrend(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	t0 := time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)

	nullFailed := obs("1", customerKey, "NULL_COUNT", models.CategoryAccuracy, models.StatusFailed)
	nullPassed := obs("1", customerKey, "NULL_COUNT", models.CategoryAccuracy, models.StatusPassed)
	dupFailed := obs("2", customerKey, "DUPLICATE_COUNT", models.CategoryUniqueness, models.StatusFailed)

	previous := reportAt(t0, 0.5, tableWith(customerKey, 0.5, nullFailed, obs("2", customerKey, "DUPLICATE_COUNT", models.CategoryUniqueness, models.StatusPassed)))
	current := reportAt(t1, 0.5, tableWith(customerKey, 0.5, nullPassed, dupFailed))

	if analyzer.CalculateTrend(current, nil) != nil {
		t.Error("expected nil trend without previous report")
	}

	trend := analyzer.CalculateTrend(current, previous)
	if trend.Direction != models.TrendStable {
		t.Errorf("Direction = %s, want stable", trend.Direction)
	}
	if trend.NewIssues != 1 || trend.ResolvedIssues != 1 {
		t.Errorf("new/resolved = %d/%d, want 1/1", trend.NewIssues, trend.ResolvedIssues)
	}
	if trend.PreviousIssues != 1 || trend.CurrentIssues != 1 {
		t.Errorf("issues = %d -> %d", trend.PreviousIssues, trend.CurrentIssues)
	}
	if !trend.ComparedWith.Equal(t0) {
		t.Errorf("ComparedWith = %v", trend.ComparedWith)
	}

	better := reportAt(t1, 0.9, tableWith(customerKey, 0.9))
	if got := analyzer.CalculateTrend(better, previous); got.Direction != models.TrendImproving || got.ScoreChange != 0.4 {
		t.Errorf("improving trend = %+v", got)
	}
}

func TestAddTrend(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	previous := reportAt(time.Time{}, 0.9, tableWith(customerKey, 0.96), tableWith(ordersKey, 0.88))
	current := reportAt(time.Time{}, 0.9, tableWith(customerKey, 0.90), tableWith(ordersKey, 0.882), tableWith(productKey, 1))

	analyzer.AddTrend(current, previous)

	if current.Trend == nil {
		t.Fatal("report trend not set")
	}
	if got := current.Tables[0].Trend; got == nil || *got != models.TrendDegrading {
		t.Errorf("customer trend = %v", got)
	}
	if got := current.Tables[1].Trend; got == nil || *got != models.TrendStable {
		t.Errorf("orders trend = %v", got)
	}
	if current.Tables[2].Trend != nil {
		t.Error("new table should have no trend")
	}

	untouched := reportAt(time.Time{}, 0.9, tableWith(customerKey, 0.9))
	analyzer.AddTrend(untouched, nil)
	if untouched.Trend != nil || untouched.Tables[0].Trend != nil {
		t.Error("AddTrend without previous should be a no-op")
	}
}

func TestAddTrendRoundsTableDelta(t *testing.T) {
	// 0.5003 - 0.4953 is 0.004999999999999949 in float64
	previous := reportAt(time.Date(2024, 1, 19, 10, 0, 0, 0, time.UTC), 0.4953, tableWith(customerKey, 0.4953))
	current := reportAt(time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC), 0.5003, tableWith(customerKey, 0.5003))

	NewTrendAnalyzer().AddTrend(current, previous)

	if current.Trend.Direction != models.TrendImproving {
		t.Errorf("report direction = %s, want improving", current.Trend.Direction)
	}
	if tr := current.Tables[0].Trend; tr == nil || *tr != current.Trend.Direction {
		t.Errorf("table direction = %v, want %s", tr, current.Trend.Direction)
	}
}

func TestAnalyzeLastNRuns(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	if analyzer.AnalyzeLastNRuns(nil) != nil {
		t.Error("expected nil summary for no runs")
	}

	t0 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	runs := []*models.QualityReport{
		reportAt(t0, 0.8, tableWith(customerKey, 0.8, obs("1", customerKey, "NULL_COUNT", models.CategoryAccuracy, models.StatusFailed))),
		reportAt(t0.Add(5*24*time.Hour), 0.85),
		reportAt(t0.Add(10*24*time.Hour), 0.97, tableWith(customerKey, 0.97), tableWith(ordersKey, 0.9)),
	}

	summary := analyzer.AnalyzeLastNRuns(runs)
	if summary.RunsAnalyzed != 3 || summary.TimeRange != "Last 10 days" {
		t.Errorf("summary header = %d %q", summary.RunsAnalyzed, summary.TimeRange)
	}
	wantScores := []int{80, 85, 97}
	for i, v := range wantScores {
		if summary.ScoreSparkline[i] != v {
			t.Errorf("ScoreSparkline[%d] = %d, want %d", i, summary.ScoreSparkline[i], v)
		}
	}
	if summary.IssueSparkline[0] != 1 || summary.IssueSparkline[2] != 0 {
		t.Errorf("IssueSparkline = %v", summary.IssueSparkline)
	}

	if len(summary.ByTable) != 1 {
		t.Fatalf("ByTable = %v, want only tables present in both runs", summary.ByTable)
	}
	tt := summary.ByTable[customerKey.String()]
	if tt.Direction != models.TrendImproving || tt.Change != 0.17 || tt.PreviousTier != models.TierCritical || tt.CurrentTier != models.TierHealthy {
		t.Errorf("customer trend = %+v", tt)
	}

	single := analyzer.AnalyzeLastNRuns(runs[:1])
	if single.TimeRange != "Single run" || len(single.ByTable) != 0 {
		t.Errorf("single run summary = %+v", single)
	}
}

func TestGenerateComparisonReport(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	if got := analyzer.GenerateComparisonReport(&models.QualityReport{}, nil); !strings.Contains(got, "No previous") {
		t.Errorf("nil previous = %q", got)
	}

	t0 := time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC)
	previous := reportAt(t0, 0.9, tableWith(customerKey, 0.96), tableWith(ordersKey, 0.88))
	current := reportAt(t0.Add(24*time.Hour), 0.85,
		tableWith(customerKey, 0.82, obs("1", customerKey, "NULL_COUNT", models.CategoryAccuracy, models.StatusFailed)),
		tableWith(ordersKey, 0.88),
		tableWith(productKey, 0.96),
	)

	out := analyzer.GenerateComparisonReport(current, previous)
	for _, want := range []string{
		"Comparison: 2024-01-20 vs 2024-01-19",
		"PROD_DB.SALES.CUSTOMER_DATA:",
		"healthy → critical",
		"PROD_DB.INVENTORY.PRODUCT_CATALOG: new",
		"New Issues: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("comparison missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ORDER_HISTORY") {
		t.Errorf("unchanged table should be omitted:\n%s", out)
	}
}

func TestGetTrendIndicator(t *testing.T) {
	tests := map[models.Trend]string{
		models.TrendImproving: "↑",
		models.TrendDegrading: "↓",
		models.TrendStable:    "→",
		"":                    "?",
	}
	for dir, want := range tests {
		if got := GetTrendIndicator(dir); got != want {
			t.Errorf("GetTrendIndicator(%q) = %s, want %s", dir, got, want)
		}
	}
}
