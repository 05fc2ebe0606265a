package aggregator

import (
	"strings"
	"testing"

	"github.com/ppiankov/dqlens/internal/models"
)

func TestGenerateRecommendations(t *testing.T) {
	gen := NewRecommendationGenerator()

	report := &models.QualityReport{
		Tables: []models.TableQuality{
			tableWith(customerKey, 0.67,
				obs("1", customerKey, "NULL_COUNT", models.CategoryAccuracy, models.StatusFailed),
				obs("2", customerKey, "BLANK_COUNT", models.CategoryAccuracy, models.StatusWarning),
				obs("3", customerKey, "DUPLICATE_COUNT", models.CategoryUniqueness, models.StatusPassed),
			),
			tableWith(ordersKey, 0.9,
				obs("4", ordersKey, "FRESHNESS", models.CategoryFreshness, models.StatusFailed),
				obs("5", ordersKey, "ROW_COUNT", models.CategoryVolume, models.StatusWarning),
				obs("6", ordersKey, "AVG", models.CategoryStatistics, models.StatusPending),
			),
		},
	}

	recs := gen.GenerateRecommendations(report)
	if len(recs) != 4 {
		t.Fatalf("recommendations = %d, want 4", len(recs))
	}

	want := []struct {
		severity models.Severity
		category models.Category
		count    int
	}{
		{models.SeverityCritical, models.CategoryAccuracy, 2},
		{models.SeverityHigh, models.CategoryFreshness, 1},
		{models.SeverityMedium, models.CategoryVolume, 1},
		{models.SeverityLow, models.CategoryStatistics, 1},
	}
	for i, w := range want {
		got := recs[i]
		if got.Severity != w.severity || got.Category != w.category || got.Count != w.count {
			t.Errorf("recs[%d] = %s/%s/%d, want %s/%s/%d", i, got.Severity, got.Category, got.Count, w.severity, w.category, w.count)
		}
		if got.Action == "" || got.Impact == "" {
			t.Errorf("recs[%d] missing text: %+v", i, got)
		}
	}

	if !strings.Contains(recs[0].Action, "2 check(s) on PROD_DB.SALES.CUSTOMER_DATA") {
		t.Errorf("action = %q", recs[0].Action)
	}
	if !strings.HasPrefix(recs[3].Action, "Wait for 1 pending") {
		t.Errorf("pending action = %q", recs[3].Action)
	}
}

func TestGenerateRecommendationsHealthy(t *testing.T) {
	report := &models.QualityReport{
		Tables: []models.TableQuality{
			tableWith(productKey, 1, obs("1", productKey, "ROW_COUNT", models.CategoryVolume, models.StatusPassed)),
		},
	}
	recs := NewRecommendationGenerator().GenerateRecommendations(report)
	if recs == nil || len(recs) != 0 {
		t.Errorf("recs = %v, want empty non-nil", recs)
	}
}

func TestRecommendationOrderingByTable(t *testing.T) {
	report := &models.QualityReport{
		Tables: []models.TableQuality{
			tableWith(ordersKey, 0.9, obs("1", ordersKey, "NULL_COUNT", models.CategoryAccuracy, models.StatusFailed)),
			tableWith(customerKey, 0.9, obs("2", customerKey, "NULL_COUNT", models.CategoryAccuracy, models.StatusFailed)),
		},
	}
	recs := NewRecommendationGenerator().GenerateRecommendations(report)
	if recs[0].Table != customerKey.String() || recs[1].Table != ordersKey.String() {
		t.Errorf("order = %s, %s", recs[0].Table, recs[1].Table)
	}
}

func TestGroupBySeverity(t *testing.T) {
	gen := NewRecommendationGenerator()
	recs := []models.Recommendation{
		{Severity: models.SeverityHigh},
		{Severity: models.SeverityHigh},
		{Severity: models.SeverityLow},
	}
	grouped := gen.GroupBySeverity(recs)
	if len(grouped[models.SeverityHigh]) != 2 || len(grouped[models.SeverityLow]) != 1 || len(grouped[models.SeverityCritical]) != 0 {
		t.Errorf("grouped = %v", grouped)
	}
}

func TestGetTopRecommendations(t *testing.T) {
	gen := NewRecommendationGenerator()
	recs := make([]models.Recommendation, 5)

	tests := []struct {
		n    int
		want int
	}{
		{3, 3},
		{5, 5},
		{10, 5},
		{0, 5},
	}
	for _, tt := range tests {
		if got := gen.GetTopRecommendations(recs, tt.n); len(got) != tt.want {
			t.Errorf("GetTopRecommendations(%d) = %d, want %d", tt.n, len(got), tt.want)
		}
	}
}
