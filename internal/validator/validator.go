package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/dqlens/internal/catalog"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/rules"
	"github.com/ppiankov/dqlens/internal/storage"
)

// ValidationError represents a validation failure
type ValidationError struct {
	Source string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid snapshot %s:\n  - %s", e.Source, strings.Join(e.Errors, "\n  - "))
}

// Validator validates snapshot documents
type Validator struct{}

// New creates a new validator
func New() *Validator {
	return &Validator{}
}

// ValidateData decodes and validates a snapshot document. Decode failures
// are reported as a ValidationError too.
func (v *Validator) ValidateData(data []byte, format storage.Format, source string) (*models.Snapshot, error) {
	snap, err := storage.Parse(data, format)
	if err != nil {
		return nil, &ValidationError{Source: source, Errors: []string{err.Error()}}
	}
	if err := v.ValidateSnapshot(snap, source); err != nil {
		return snap, err
	}
	return snap, nil
}

// ValidateSnapshot checks a decoded snapshot and collects every problem
func (v *Validator) ValidateSnapshot(snap *models.Snapshot, source string) error {
	var errors []string

	if snap.Version == "" {
		errors = append(errors, "Missing required field: 'version'")
	} else if snap.Version != models.SnapshotVersion {
		errors = append(errors, fmt.Sprintf("Unsupported version '%s' (want '%s')", snap.Version, models.SnapshotVersion))
	}
	if snap.Timestamp.IsZero() {
		errors = append(errors, "Missing or invalid field: 'timestamp'")
	}

	errors = append(errors, v.checkObservations(snap.Observations)...)
	errors = append(errors, v.checkTables(snap.Tables)...)
	errors = append(errors, v.checkRules(snap.Rules)...)

	if len(errors) > 0 {
		return &ValidationError{Source: source, Errors: errors}
	}
	return nil
}

func (v *Validator) checkObservations(observations []models.MetricObservation) []string {
	var errors []string
	seen := make(map[string]bool)

	for i, o := range observations {
		ref := fmt.Sprintf("Observation #%d", i+1)
		if o.ID != "" {
			ref = fmt.Sprintf("Observation '%s'", o.ID)
		}

		if o.ID == "" {
			errors = append(errors, fmt.Sprintf("%s is missing 'id'", ref))
		} else if seen[o.ID] {
			errors = append(errors, fmt.Sprintf("%s is duplicated", ref))
		}
		seen[o.ID] = true

		errors = append(errors, checkKey(ref, o.TableKey)...)

		_, known := catalog.Lookup(o.Metric)
		switch {
		case o.Metric == "":
			errors = append(errors, fmt.Sprintf("%s is missing 'metric'", ref))
		case !known && o.Category == "":
			errors = append(errors, fmt.Sprintf("%s has metric '%s' which is not a system DMF and no category", ref, o.Metric))
		}

		if o.Category != "" {
			if _, ok := models.ParseCategory(string(o.Category)); !ok {
				errors = append(errors, fmt.Sprintf("%s has invalid category: '%s'", ref, o.Category))
			}
		}
		if o.Status != "" && !o.Status.IsValid() {
			errors = append(errors, fmt.Sprintf("%s has invalid status: '%s'", ref, o.Status))
		}
		if o.Trend != nil && !o.Trend.IsValid() {
			errors = append(errors, fmt.Sprintf("%s has invalid trend: '%s'", ref, *o.Trend))
		}
	}
	return errors
}

func (v *Validator) checkTables(seeds []models.TableSeed) []string {
	var errors []string
	seen := make(map[models.TableKey]bool)

	for i, s := range seeds {
		ref := fmt.Sprintf("Table #%d", i+1)
		if !s.TableKey.IsZero() {
			ref = fmt.Sprintf("Table '%s'", s.TableKey)
		}

		errors = append(errors, checkKey(ref, s.TableKey)...)
		if seen[s.TableKey] {
			errors = append(errors, fmt.Sprintf("%s is duplicated", ref))
		}
		seen[s.TableKey] = true

		if s.Score != nil {
			if _, err := models.ClassifyScore(*s.Score); err != nil {
				errors = append(errors, fmt.Sprintf("%s has %v", ref, err))
			}
		}
		if s.RowCount != nil && *s.RowCount < 0 {
			errors = append(errors, fmt.Sprintf("%s field 'row_count' must be non-negative", ref))
		}
	}
	return errors
}

func (v *Validator) checkRules(list []models.CustomRule) []string {
	var errors []string
	seen := make(map[string]bool)

	for i, r := range list {
		ref := fmt.Sprintf("Rule #%d", i+1)
		if r.ID != "" {
			ref = fmt.Sprintf("Rule '%s'", r.ID)
		}

		if r.ID == "" {
			errors = append(errors, fmt.Sprintf("%s is missing 'id'", ref))
		} else if seen[r.ID] {
			errors = append(errors, fmt.Sprintf("%s is duplicated", ref))
		}
		seen[r.ID] = true

		if err := rules.ValidateDraft(r.Draft()); err != nil {
			if ve, ok := err.(*rules.ValidationError); ok {
				for _, msg := range ve.Errors {
					errors = append(errors, fmt.Sprintf("%s: %s", ref, msg))
				}
			}
		}
	}
	return errors
}

func checkKey(ref string, k models.TableKey) []string {
	var errors []string
	if k.Database == "" {
		errors = append(errors, fmt.Sprintf("%s is missing 'database'", ref))
	}
	if k.Schema == "" {
		errors = append(errors, fmt.Sprintf("%s is missing 'schema'", ref))
	}
	if k.Table == "" {
		errors = append(errors, fmt.Sprintf("%s is missing 'table'", ref))
	}
	return errors
}

// ValidateTimestamp checks if a timestamp is reasonable (not in future, not
// older than a year)
func ValidateTimestamp(t, now time.Time) error {
	if t.After(now.Add(1 * time.Hour)) {
		return fmt.Errorf("timestamp is in the future: %v", t)
	}

	oneYearAgo := now.AddDate(-1, 0, 0)
	if t.Before(oneYearAgo) {
		return fmt.Errorf("timestamp is too old (> 1 year): %v", t)
	}

	return nil
}
