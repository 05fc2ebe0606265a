package tui

import (
	"sort"
	"strings"

	"github.com/ppiankov/dqlens/internal/filter"
	"github.com/ppiankov/dqlens/internal/models"
)

// view is one of the dashboard pages.
type view int

const (
	viewMetrics view = iota
	viewTables
	viewRules
)

// viewCount is the number of pages tab cycles through.
const viewCount = 3

func (v view) String() string {
	switch v {
	case viewMetrics:
		return "Metrics"
	case viewTables:
		return "Tables"
	case viewRules:
		return "Rules"
	default:
		return "unknown"
	}
}

// sortOptions lists the sort fields of each view; the first is the default.
var sortOptions = [viewCount][]string{
	viewMetrics: {"status", "table", "category", "metric"},
	viewTables:  {"score", "name", "issues"},
	viewRules:   {"name", "severity"},
}

var statusPriority = map[models.ObservationStatus]int{
	models.StatusFailed:  0,
	models.StatusWarning: 1,
	models.StatusPending: 2,
	models.StatusPassed:  3,
}

// categoryChoices is the cycle of the category filter, starting with All.
func categoryChoices() []string {
	out := []string{filter.All}
	for _, c := range models.Categories {
		out = append(out, string(c))
	}
	return out
}

// severityChoices is the cycle of the rule severity filter, starting with All.
func severityChoices() []string {
	out := []string{filter.All}
	for _, s := range models.Severities {
		out = append(out, string(s))
	}
	return out
}

func sortObservations(obs []models.MetricObservation, field string) {
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		switch field {
		case "status":
			return statusPriority[a.Status] < statusPriority[b.Status]
		case "table":
			return a.TableKey.Less(b.TableKey)
		case "category":
			return a.Category < b.Category
		case "metric":
			return a.Metric < b.Metric
		default:
			return false
		}
	})
}

func sortTables(tables []models.TableQuality, field string) {
	sort.SliceStable(tables, func(i, j int) bool {
		a, b := tables[i], tables[j]
		switch field {
		case "score":
			return a.OverallScore < b.OverallScore
		case "name":
			return a.TableKey.Less(b.TableKey)
		case "issues":
			return a.IssueCount > b.IssueCount
		default:
			return false
		}
	})
}

func sortRules(list []models.CustomRule, field string) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch field {
		case "name":
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case "severity":
			return models.SeverityRank(a.Severity) < models.SeverityRank(b.Severity)
		default:
			return false
		}
	})
}
