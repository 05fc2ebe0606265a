package aggregator

import (
	"fmt"
	"sort"

	"github.com/ppiankov/dqlens/internal/models"
)

// issueGroup counts non-passed observations of one category on one table
type issueGroup struct {
	table    string
	tier     models.Tier
	category models.Category
	failed   int
	warning  int
	pending  int
}

func (g *issueGroup) count() int {
	return g.failed + g.warning + g.pending
}

// RecommendationGenerator creates actionable recommendations from tables
type RecommendationGenerator struct{}

// NewRecommendationGenerator creates a new recommendation generator
func NewRecommendationGenerator() *RecommendationGenerator {
	return &RecommendationGenerator{}
}

// GenerateRecommendations groups non-passed observations by (table,
// category) and returns them ordered by severity, table, then category
func (r *RecommendationGenerator) GenerateRecommendations(report *models.QualityReport) []models.Recommendation {
	var groups []*issueGroup

	for _, table := range report.Tables {
		byCategory := make(map[models.Category]*issueGroup)
		for _, m := range table.Metrics {
			if !m.IsIssue() {
				continue
			}
			g, ok := byCategory[m.Category]
			if !ok {
				g = &issueGroup{table: table.TableKey.String(), tier: table.Status, category: m.Category}
				byCategory[m.Category] = g
				groups = append(groups, g)
			}
			switch m.Status {
			case models.StatusFailed:
				g.failed++
			case models.StatusWarning:
				g.warning++
			default:
				g.pending++
			}
		}
	}

	recommendations := make([]models.Recommendation, 0, len(groups))
	for _, g := range groups {
		recommendations = append(recommendations, models.Recommendation{
			Severity: r.severity(g),
			Table:    g.table,
			Category: g.category,
			Action:   r.generateAction(g),
			Impact:   r.generateImpact(g),
			Count:    g.count(),
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		a, b := recommendations[i], recommendations[j]
		if ra, rb := models.SeverityRank(a.Severity), models.SeverityRank(b.Severity); ra != rb {
			return ra < rb
		}
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		return a.Category < b.Category
	})

	return recommendations
}

func (r *RecommendationGenerator) severity(g *issueGroup) models.Severity {
	switch {
	case g.failed > 0 && g.tier == models.TierCritical:
		return models.SeverityCritical
	case g.failed > 0:
		return models.SeverityHigh
	case g.warning > 0:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// generateAction creates actionable text based on category and counts
func (r *RecommendationGenerator) generateAction(g *issueGroup) string {
	if g.failed == 0 && g.warning == 0 {
		return fmt.Sprintf("Wait for %d pending %s check(s) on %s", g.pending, g.category, g.table)
	}

	n := g.failed + g.warning
	switch g.category {
	case models.CategoryAccuracy:
		return fmt.Sprintf("Clean up blank/NULL values flagged by %d check(s) on %s", n, g.table)
	case models.CategoryFreshness:
		return fmt.Sprintf("Investigate load delays behind %d freshness check(s) on %s", n, g.table)
	case models.CategoryUniqueness:
		return fmt.Sprintf("Deduplicate values flagged by %d uniqueness check(s) on %s", n, g.table)
	case models.CategoryVolume:
		return fmt.Sprintf("Verify load completeness for %d volume check(s) on %s", n, g.table)
	case models.CategoryStatistics:
		return fmt.Sprintf("Review distribution drift in %d statistics check(s) on %s", n, g.table)
	default:
		return fmt.Sprintf("Address %d check(s) on %s", n, g.table)
	}
}

// generateImpact describes the potential impact of the category
func (r *RecommendationGenerator) generateImpact(g *issueGroup) string {
	switch g.category {
	case models.CategoryAccuracy:
		return "Incomplete values skew joins, aggregates and downstream reports"
	case models.CategoryFreshness:
		return "Consumers read stale data without noticing"
	case models.CategoryUniqueness:
		return "Duplicate keys inflate counts and break merges"
	case models.CategoryVolume:
		return "Missing or partial loads hide records from consumers"
	case models.CategoryStatistics:
		return "Value distributions outside expected bounds indicate upstream changes"
	default:
		return "Data quality below expectations"
	}
}

// GroupBySeverity groups recommendations by severity level
func (r *RecommendationGenerator) GroupBySeverity(recs []models.Recommendation) map[models.Severity][]models.Recommendation {
	grouped := make(map[models.Severity][]models.Recommendation)
	for _, rec := range recs {
		grouped[rec.Severity] = append(grouped[rec.Severity], rec)
	}
	return grouped
}

// GetTopRecommendations returns the first n recommendations
func (r *RecommendationGenerator) GetTopRecommendations(recs []models.Recommendation, n int) []models.Recommendation {
	if n <= 0 || len(recs) <= n {
		return recs
	}
	return recs[:n]
}
