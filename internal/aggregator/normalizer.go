package aggregator

import (
	"fmt"

	"github.com/ppiankov/dqlens/internal/catalog"
	"github.com/ppiankov/dqlens/internal/models"
)

// Normalizer canonicalizes observations before aggregation: it resolves
// categories from the DMF catalog and derives status from value and
// threshold where both are available.
type Normalizer struct{}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize returns a normalized copy of obs
func (n *Normalizer) Normalize(obs models.MetricObservation) (models.MetricObservation, error) {
	dmf, known := catalog.Lookup(obs.Metric)
	if known {
		obs.Metric = dmf.Name
	}

	// Category: explicit value wins, catalog fills the gap
	if obs.Category == "" {
		if !known {
			return obs, fmt.Errorf("observation %s: metric %q has no category and is not a system DMF", obs.ID, obs.Metric)
		}
		obs.Category = dmf.Category
	} else {
		cat, ok := models.ParseCategory(string(obs.Category))
		if !ok {
			return obs, fmt.Errorf("observation %s: unknown category %q", obs.ID, obs.Category)
		}
		obs.Category = cat
	}

	if obs.Status != "" && !obs.Status.IsValid() {
		return obs, fmt.Errorf("observation %s: unknown status %q", obs.ID, obs.Status)
	}

	direction := catalog.AtMost
	if known {
		direction = dmf.Direction
	}

	if status, ok := deriveStatus(obs, direction); ok {
		obs.Status = status
	} else if obs.Status == "" {
		obs.Status = models.StatusPending
	}

	return obs, nil
}

// NormalizeAll normalizes every observation, stopping at the first error
func (n *Normalizer) NormalizeAll(observations []models.MetricObservation) ([]models.MetricObservation, error) {
	out := make([]models.MetricObservation, 0, len(observations))
	for _, obs := range observations {
		normalized, err := n.Normalize(obs)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return out, nil
}

// deriveStatus compares a numeric value with the threshold. It reports
// false when there is nothing to compare.
func deriveStatus(obs models.MetricObservation, direction catalog.Direction) (models.ObservationStatus, bool) {
	if !obs.HasThreshold() {
		return "", false
	}
	value, ok := obs.Value.Float()
	if !ok {
		return "", false
	}

	threshold := *obs.Threshold
	var within bool
	switch direction {
	case catalog.AtLeast:
		within = value >= threshold
	default:
		within = value <= threshold
	}

	if within {
		return models.StatusPassed, true
	}
	return models.StatusFailed, true
}
