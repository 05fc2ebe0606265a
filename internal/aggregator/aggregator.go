package aggregator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ppiankov/dqlens/internal/models"
	"github.com/shopspring/decimal"
)

// ErrEmptyObservationSet is returned by ScoreStrict when no observation
// carries a scoreable status
var ErrEmptyObservationSet = errors.New("empty observation set")

// scorePlaces is the precision scores are rounded to
const scorePlaces = 4

var (
	creditPassed  = decimal.NewFromInt(1)
	creditWarning = decimal.NewFromFloat(0.5)
	creditFailed  = decimal.Zero
)

// Aggregator turns metric observations into per-table quality records
type Aggregator struct {
	normalizer *Normalizer
	weights    map[models.Category]float64
	recs       *RecommendationGenerator
	now        func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithCategoryWeights sets per-category score weights. Categories not in
// the map weigh 1. Negative and non-finite weights are ignored.
func WithCategoryWeights(weights map[models.Category]float64) Option {
	return func(a *Aggregator) {
		for k, v := range weights {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			a.weights[k] = v
		}
	}
}

// WithClock overrides the clock used when a snapshot has no timestamp
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New creates a new aggregator
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		normalizer: NewNormalizer(),
		weights:    make(map[models.Category]float64),
		recs:       NewRecommendationGenerator(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Weight returns the score weight of a category
func (a *Aggregator) Weight(category models.Category) float64 {
	if w, ok := a.weights[category]; ok {
		return w
	}
	return 1
}

// Aggregate groups a snapshot's observations by table and builds the report
func (a *Aggregator) Aggregate(snap *models.Snapshot) (*models.QualityReport, error) {
	report := &models.QualityReport{
		Timestamp:       snap.Timestamp,
		Tables:          []models.TableQuality{},
		Rules:           append([]models.CustomRule{}, snap.Rules...),
		Recommendations: []models.Recommendation{},
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = a.now()
	}

	groups := GroupByTable(snap.Observations)

	seeds := make(map[models.TableKey]models.TableSeed, len(snap.Tables))
	for _, seed := range snap.Tables {
		seeds[seed.TableKey] = seed
		if _, ok := groups[seed.TableKey]; !ok {
			groups[seed.TableKey] = nil
		}
	}

	for key, observations := range groups {
		seed, hasSeed := seeds[key]

		var table models.TableQuality
		if len(observations) == 0 && hasSeed && seed.Score != nil {
			tier, err := models.ClassifyScore(*seed.Score)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", key, err)
			}
			table = models.TableQuality{
				TableKey:      key,
				OverallScore:  *seed.Score,
				Metrics:       []models.MetricObservation{},
				Status:        tier,
				ScoreSupplied: true,
			}
		} else {
			var err error
			table, err = a.AggregateTable(key, observations)
			if err != nil {
				return nil, err
			}
		}

		if hasSeed {
			table.RowCount = seed.RowCount
			if seed.LastChecked.After(table.LastChecked) {
				table.LastChecked = seed.LastChecked
			}
		}

		report.Tables = append(report.Tables, table)
	}

	sort.Slice(report.Tables, func(i, j int) bool {
		return report.Tables[i].TableKey.Less(report.Tables[j].TableKey)
	})

	report.Stats = a.calculateStats(report)
	report.Recommendations = a.recs.GenerateRecommendations(report)

	return report, nil
}

// AggregateTable builds the quality record of a single table. An empty
// observation set yields score 0 and the critical tier.
func (a *Aggregator) AggregateTable(key models.TableKey, observations []models.MetricObservation) (models.TableQuality, error) {
	metrics, err := a.normalizer.NormalizeAll(observations)
	if err != nil {
		return models.TableQuality{}, fmt.Errorf("table %s: %w", key, err)
	}
	sortObservations(metrics)

	table := models.TableQuality{
		TableKey: key,
		Metrics:  metrics,
	}

	for _, m := range metrics {
		if m.IsIssue() {
			table.IssueCount++
		}
		if m.LastUpdated.After(table.LastChecked) {
			table.LastChecked = m.LastUpdated
		}
	}

	score, err := a.ScoreStrict(metrics)
	if err != nil && !errors.Is(err, ErrEmptyObservationSet) {
		return models.TableQuality{}, fmt.Errorf("table %s: %w", key, err)
	}
	table.OverallScore = score

	tier, err := models.ClassifyScore(score)
	if err != nil {
		return models.TableQuality{}, fmt.Errorf("table %s: %w", key, err)
	}
	table.Status = tier

	return table, nil
}

// Score returns the weighted pass rate of normalized observations, or 0
// when none are scoreable
func (a *Aggregator) Score(observations []models.MetricObservation) float64 {
	score, _ := a.ScoreStrict(observations)
	return score
}

// ScoreStrict returns the weighted pass rate of normalized observations:
// sum(credit * weight) / sum(weight), with passed=1, warning=0.5, failed=0.
// Pending observations are excluded.
func (a *Aggregator) ScoreStrict(observations []models.MetricObservation) (float64, error) {
	num := decimal.Zero
	den := decimal.Zero

	for _, o := range observations {
		credit, ok := statusCredit(o.Status)
		if !ok {
			continue
		}
		w := decimal.NewFromFloat(a.Weight(o.Category))
		num = num.Add(credit.Mul(w))
		den = den.Add(w)
	}

	if den.IsZero() {
		return 0, ErrEmptyObservationSet
	}

	score, _ := num.Div(den).Round(scorePlaces).Float64()
	return score, nil
}

// StatusCredit returns the score credit of a status. Pending has none.
func StatusCredit(status models.ObservationStatus) (float64, bool) {
	credit, ok := statusCredit(status)
	f, _ := credit.Float64()
	return f, ok
}

func statusCredit(status models.ObservationStatus) (decimal.Decimal, bool) {
	switch status {
	case models.StatusPassed:
		return creditPassed, true
	case models.StatusWarning:
		return creditWarning, true
	case models.StatusFailed:
		return creditFailed, true
	default:
		return decimal.Zero, false
	}
}

// GroupByTable buckets observations by table key. Relative order within
// each bucket follows the input.
func GroupByTable(observations []models.MetricObservation) map[models.TableKey][]models.MetricObservation {
	groups := make(map[models.TableKey][]models.MetricObservation)
	for _, obs := range observations {
		groups[obs.TableKey] = append(groups[obs.TableKey], obs)
	}
	return groups
}

// calculateStats computes dashboard statistics from aggregated tables
func (a *Aggregator) calculateStats(report *models.QualityReport) models.DashboardStats {
	stats := models.DashboardStats{
		TotalTables:      len(report.Tables),
		TotalRules:       len(report.Rules),
		IssuesByCategory: make(map[models.Category]int),
		LastRefresh:      report.Timestamp,
	}

	sum := decimal.Zero
	for _, t := range report.Tables {
		switch t.Status {
		case models.TierHealthy:
			stats.HealthyTables++
		case models.TierWarning:
			stats.TablesWithWarnings++
		case models.TierCritical:
			stats.CriticalTables++
		}
		stats.TotalIssues += t.IssueCount
		sum = sum.Add(decimal.NewFromFloat(t.OverallScore))

		for _, m := range t.Metrics {
			if m.IsIssue() {
				stats.IssuesByCategory[m.Category]++
			}
		}
	}

	if len(report.Tables) > 0 {
		stats.AverageScore, _ = sum.Div(decimal.NewFromInt(int64(len(report.Tables)))).Round(scorePlaces).Float64()
	}

	for _, r := range report.Rules {
		if r.Enabled {
			stats.ActiveRules++
		}
	}

	return stats
}

// sortObservations orders observations by category, metric, column, then id
func sortObservations(obs []models.MetricObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.ID < b.ID
	})
}
