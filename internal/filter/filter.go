// Package filter narrows observations, tables and rules by search text and
// attribute predicates. Filtering never fails and keeps input order.
package filter

import (
	"strings"

	"github.com/ppiankov/dqlens/internal/models"
)

// All disables an attribute predicate
const All = "All"

// Criteria holds the active filters. Empty or All disables a predicate.
type Criteria struct {
	Search   string
	Category string
	Status   string
	Severity string
}

// IsZero reports whether no predicate is active
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Search) == "" && !active(c.Category) && !active(c.Status) && !active(c.Severity)
}

// Predicate reports whether an item should be kept
type Predicate[T any] func(T) bool

// Apply returns the items satisfying every predicate, in input order. The
// result is never nil.
func Apply[T any](items []T, preds ...Predicate[T]) []T {
	result := make([]T, 0, len(items))
outer:
	for _, item := range items {
		for _, p := range preds {
			if !p(item) {
				continue outer
			}
		}
		result = append(result, item)
	}
	return result
}

// Observations filters observations by table/schema/database search,
// category and status
func Observations(items []models.MetricObservation, c Criteria) []models.MetricObservation {
	var preds []Predicate[models.MetricObservation]

	if search := needle(c.Search); search != "" {
		preds = append(preds, func(o models.MetricObservation) bool {
			return matchesKey(o.TableKey, search)
		})
	}
	if active(c.Category) {
		preds = append(preds, func(o models.MetricObservation) bool {
			return strings.EqualFold(string(o.Category), c.Category)
		})
	}
	if active(c.Status) {
		preds = append(preds, func(o models.MetricObservation) bool {
			return strings.EqualFold(string(o.Status), c.Status)
		})
	}

	return Apply(items, preds...)
}

// Tables filters tables by table/schema/database search, tier, and
// whether the table has an observation in the category
func Tables(items []models.TableQuality, c Criteria) []models.TableQuality {
	var preds []Predicate[models.TableQuality]

	if search := needle(c.Search); search != "" {
		preds = append(preds, func(t models.TableQuality) bool {
			return matchesKey(t.TableKey, search)
		})
	}
	if active(c.Status) {
		preds = append(preds, func(t models.TableQuality) bool {
			return strings.EqualFold(string(t.Status), c.Status)
		})
	}
	if active(c.Category) {
		preds = append(preds, func(t models.TableQuality) bool {
			for _, m := range t.Metrics {
				if strings.EqualFold(string(m.Category), c.Category) {
					return true
				}
			}
			return false
		})
	}

	return Apply(items, preds...)
}

// Rules filters rules by name/description search and severity
func Rules(items []models.CustomRule, c Criteria) []models.CustomRule {
	var preds []Predicate[models.CustomRule]

	if search := needle(c.Search); search != "" {
		preds = append(preds, func(r models.CustomRule) bool {
			return strings.Contains(strings.ToLower(r.Name), search) ||
				strings.Contains(strings.ToLower(r.Description), search)
		})
	}
	if active(c.Severity) {
		preds = append(preds, func(r models.CustomRule) bool {
			return strings.EqualFold(string(r.Severity), c.Severity)
		})
	}

	return Apply(items, preds...)
}

func matchesKey(k models.TableKey, search string) bool {
	return strings.Contains(strings.ToLower(k.Table), search) ||
		strings.Contains(strings.ToLower(k.Schema), search) ||
		strings.Contains(strings.ToLower(k.Database), search)
}

func needle(search string) string {
	return strings.ToLower(strings.TrimSpace(search))
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}
