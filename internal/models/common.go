package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Category is a DMF category tag
type Category string

const (
	CategoryAccuracy   Category = "Accuracy"
	CategoryFreshness  Category = "Freshness"
	CategoryStatistics Category = "Statistics"
	CategoryUniqueness Category = "Uniqueness"
	CategoryVolume     Category = "Volume"
)

// Categories lists every DMF category in display order
var Categories = []Category{
	CategoryAccuracy,
	CategoryFreshness,
	CategoryStatistics,
	CategoryUniqueness,
	CategoryVolume,
}

// ParseCategory resolves a category name case-insensitively
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// ObservationStatus is the outcome of a single DMF measurement
type ObservationStatus string

const (
	StatusPassed  ObservationStatus = "passed"
	StatusFailed  ObservationStatus = "failed"
	StatusWarning ObservationStatus = "warning"
	StatusPending ObservationStatus = "pending"
)

// IsValid reports whether s is a known observation status
func (s ObservationStatus) IsValid() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusWarning, StatusPending:
		return true
	}
	return false
}

// Tier is the health classification of a table
type Tier string

const (
	TierHealthy  Tier = "healthy"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Tiers lists tiers from best to worst
var Tiers = []Tier{TierHealthy, TierWarning, TierCritical}

// IsValid reports whether t is a known tier
func (t Tier) IsValid() bool {
	return t == TierHealthy || t == TierWarning || t == TierCritical
}

// Trend is the direction a metric or table is moving in
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// IsValid reports whether t is a known trend
func (t Trend) IsValid() bool {
	return t == TrendImproving || t == TrendDegrading || t == TrendStable
}

// Severity levels for custom rules and recommendations
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists severities from most to least urgent
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// IsValid reports whether s is a known severity
func (s Severity) IsValid() bool {
	_, ok := severityPriority[s]
	return ok
}

var severityPriority = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// SeverityRank returns 0 for critical up to 3 for low; unknown sorts last
func SeverityRank(s Severity) int {
	if p, ok := severityPriority[s]; ok {
		return p
	}
	return len(severityPriority)
}

// Quality score breakpoints. A score below WarningThreshold is critical.
const (
	HealthyThreshold = 0.95
	WarningThreshold = 0.85
)

// ErrInvalidScore is returned for scores outside [0,1]
var ErrInvalidScore = errors.New("invalid score")

// ClassifyScore maps a quality score in [0,1] to a tier:
// >= 0.95 healthy, >= 0.85 warning, otherwise critical.
func ClassifyScore(score float64) (Tier, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return "", fmt.Errorf("%w: %v (must be within [0,1])", ErrInvalidScore, score)
	}

	switch {
	case score >= HealthyThreshold:
		return TierHealthy, nil
	case score >= WarningThreshold:
		return TierWarning, nil
	default:
		return TierCritical, nil
	}
}

// MustClassify is ClassifyScore for scores already known to be in range.
// Out-of-range input is reported as critical.
func MustClassify(score float64) Tier {
	tier, err := ClassifyScore(score)
	if err != nil {
		return TierCritical
	}
	return tier
}

// IssueBand buckets an issue count the way the overview badges do
func IssueBand(issueCount int) string {
	switch {
	case issueCount <= 0:
		return "none"
	case issueCount <= 3:
		return "few"
	default:
		return "many"
	}
}
