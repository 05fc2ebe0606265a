package models

import "time"

// TableQuality is the aggregated health of one table
type TableQuality struct {
	TableKey     `yaml:",inline"`
	OverallScore float64             `json:"overall_score" yaml:"overall_score"` // 0-1
	Metrics      []MetricObservation `json:"metrics" yaml:"metrics"`
	LastChecked  time.Time           `json:"last_checked" yaml:"last_checked"`
	RowCount     *int64              `json:"row_count,omitempty" yaml:"row_count,omitempty"`
	IssueCount   int                 `json:"issue_count" yaml:"issue_count"` // observations with status != passed
	Status       Tier                `json:"status" yaml:"status"`
	Trend        *Trend              `json:"trend,omitempty" yaml:"trend,omitempty"`
	// ScoreSupplied is true when the score came from the snapshot instead
	// of being computed from observations
	ScoreSupplied bool `json:"score_supplied,omitempty" yaml:"score_supplied,omitempty"`
}

// ScorePercent returns the overall score on a 0-100 scale
func (t TableQuality) ScorePercent() float64 {
	return t.OverallScore * 100
}

// DashboardStats summarizes all tables and rules in a report
type DashboardStats struct {
	TotalTables        int              `json:"total_tables"`
	HealthyTables      int              `json:"healthy_tables"`
	TablesWithWarnings int              `json:"tables_with_warnings"`
	CriticalTables     int              `json:"critical_tables"`
	TotalRules         int              `json:"total_rules"`
	ActiveRules        int              `json:"active_rules"`
	TotalIssues        int              `json:"total_issues"`
	AverageScore       float64          `json:"average_score"` // 0-1
	IssuesByCategory   map[Category]int `json:"issues_by_category"`
	LastRefresh        time.Time        `json:"last_refresh"`
}

// HealthyPercent returns the share of healthy tables on a 0-100 scale
func (s DashboardStats) HealthyPercent() float64 {
	if s.TotalTables == 0 {
		return 0
	}
	return float64(s.HealthyTables) / float64(s.TotalTables) * 100
}

// Recommendation is an actionable item derived from non-passed observations
type Recommendation struct {
	Severity Severity `json:"severity"`
	Table    string   `json:"table"`
	Category Category `json:"category"`
	Action   string   `json:"action"`
	Impact   string   `json:"impact"`
	Count    int      `json:"count"`
}

// ReportTrend compares a report with the previous snapshot
type ReportTrend struct {
	Direction      Trend     `json:"direction"`
	ScoreChange    float64   `json:"score_change"` // average score delta, 0-1 scale
	PreviousIssues int       `json:"previous_issues"`
	CurrentIssues  int       `json:"current_issues"`
	ComparedWith   time.Time `json:"compared_with"`
	NewIssues      int       `json:"new_issues"`
	ResolvedIssues int       `json:"resolved_issues"`
}

// QualityReport is the aggregated view of a snapshot
type QualityReport struct {
	Timestamp       time.Time        `json:"timestamp"`
	Tables          []TableQuality   `json:"tables"`
	Rules           []CustomRule     `json:"rules"`
	Stats           DashboardStats   `json:"stats"`
	Trend           *ReportTrend     `json:"trend,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Observations returns every observation of every table, in table order
func (r *QualityReport) Observations() []MetricObservation {
	var out []MetricObservation
	for _, t := range r.Tables {
		out = append(out, t.Metrics...)
	}
	return out
}

// FindTable returns the table with the given key
func (r *QualityReport) FindTable(key TableKey) (*TableQuality, bool) {
	for i := range r.Tables {
		if r.Tables[i].TableKey == key {
			return &r.Tables[i], true
		}
	}
	return nil, false
}

// TableTrend is the score movement of one table across snapshots
type TableTrend struct {
	Table         string  `json:"table"`
	CurrentScore  float64 `json:"current_score"`
	PreviousScore float64 `json:"previous_score"`
	Change        float64 `json:"change"` // positive = better
	Direction     Trend   `json:"direction"`
	CurrentTier   Tier    `json:"current_tier"`
	PreviousTier  Tier    `json:"previous_tier"`
}

// TrendSummary provides historical trend analysis across snapshots
type TrendSummary struct {
	TimeRange      string                 `json:"time_range"`
	RunsAnalyzed   int                    `json:"runs_analyzed"`
	ScoreSparkline []int                  `json:"score_sparkline"` // average score percent per run
	IssueSparkline []int                  `json:"issue_sparkline"`
	ByTable        map[string]*TableTrend `json:"by_table"`
}
