package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/dqlens/internal/aggregator"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/spf13/cobra"
)

var explainFormat string

var explainScoreCmd = &cobra.Command{
	Use:   "explain-score <table>",
	Short: "Show the table score formula step by step",
	Long: `Explain-score shows exactly how a table's overall score was calculated:

  1. Each observation with its status credit and category weight
  2. The formula: score = sum(credit * weight) / sum(weight)
  3. The tier thresholds

Credits: passed = 1, warning = 0.5, failed = 0. Pending observations are
excluded. The table is given as DATABASE.SCHEMA.TABLE or as a table name
that is unique in the snapshot.

Example:
  dqlens explain-score CUSTOMER_DATA
  dqlens explain-score PROD_DB.SALES.ORDER_HISTORY --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runExplainScore,
}

func init() {
	explainScoreCmd.Flags().StringVar(&explainFormat, "format", "text",
		"output format: text or json")
}

// explainResult holds the structured explanation.
type explainResult struct {
	Table         string             `json:"table"`
	Observations  []scoreTerm        `json:"observations"`
	WeightedSum   float64            `json:"weighted_sum"`
	TotalWeight   float64            `json:"total_weight"`
	Score         float64            `json:"score"`
	Tier          models.Tier        `json:"tier"`
	IssueCount    int                `json:"issue_count"`
	ScoreSupplied bool               `json:"score_supplied"`
	Formula       string             `json:"formula"`
	Thresholds    []tierThreshold    `json:"thresholds"`
	CategoryCount map[string]int     `json:"issues_by_category"`
	Weights       map[string]float64 `json:"weights"`
}

type scoreTerm struct {
	Metric   string                   `json:"metric"`
	Column   string                   `json:"column,omitempty"`
	Category models.Category          `json:"category"`
	Status   models.ObservationStatus `json:"status"`
	Credit   *float64                 `json:"credit"` // nil when excluded
	Weight   float64                  `json:"weight"`
}

type tierThreshold struct {
	Min   float64     `json:"min"`
	Label models.Tier `json:"label"`
}

func runExplainScore(cmd *cobra.Command, args []string) error {
	report, _, err := loadReport()
	if err != nil {
		return err
	}

	table, err := findTable(report, args[0])
	if err != nil {
		return err
	}

	agg, err := newAggregator()
	if err != nil {
		return err
	}

	result := buildExplanation(*table, agg)

	switch explainFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		return writeExplainText(result)
	default:
		return unsupportedFormat(explainFormat, "text or json")
	}
}

// findTable matches a full key, or a table name unique in the report
func findTable(report *models.QualityReport, ref string) (*models.TableQuality, error) {
	var matches []*models.TableQuality
	for i := range report.Tables {
		t := &report.Tables[i]
		if t.TableKey.String() == ref {
			return t, nil
		}
		if strings.EqualFold(t.Table, ref) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &ValidationError{Message: fmt.Sprintf("table %q not found", ref)}
	case 1:
		return matches[0], nil
	default:
		keys := make([]string, len(matches))
		for i, m := range matches {
			keys[i] = m.TableKey.String()
		}
		return nil, &ValidationError{Message: fmt.Sprintf("table %q is ambiguous: %s", ref, strings.Join(keys, ", "))}
	}
}

func buildExplanation(table models.TableQuality, agg *aggregator.Aggregator) explainResult {
	result := explainResult{
		Table:         table.TableKey.String(),
		Observations:  []scoreTerm{},
		Score:         table.OverallScore,
		Tier:          table.Status,
		IssueCount:    table.IssueCount,
		ScoreSupplied: table.ScoreSupplied,
		Thresholds: []tierThreshold{
			{Min: models.HealthyThreshold, Label: models.TierHealthy},
			{Min: models.WarningThreshold, Label: models.TierWarning},
			{Min: 0, Label: models.TierCritical},
		},
		CategoryCount: make(map[string]int),
		Weights:       make(map[string]float64),
	}

	for _, m := range table.Metrics {
		term := scoreTerm{
			Metric:   m.Metric,
			Column:   m.Column,
			Category: m.Category,
			Status:   m.Status,
			Weight:   agg.Weight(m.Category),
		}
		if credit, ok := aggregator.StatusCredit(m.Status); ok {
			term.Credit = &credit
			result.WeightedSum += credit * term.Weight
			result.TotalWeight += term.Weight
		}
		if m.IsIssue() {
			result.CategoryCount[string(m.Category)]++
		}
		result.Weights[string(m.Category)] = term.Weight
		result.Observations = append(result.Observations, term)
	}

	switch {
	case table.ScoreSupplied:
		result.Formula = fmt.Sprintf("score supplied by snapshot = %.4f", table.OverallScore)
	case result.TotalWeight == 0:
		result.Formula = "no scoreable observations, score = 0"
	default:
		result.Formula = fmt.Sprintf("%g / %g = %.4f", result.WeightedSum, result.TotalWeight, table.OverallScore)
	}

	return result
}

func writeExplainText(result explainResult) error {
	fmt.Printf("Score Breakdown: %s\n", result.Table)
	fmt.Println(strings.Repeat("=", 17+len(result.Table)))
	fmt.Println()

	// Step 1: Observations
	fmt.Println("1. Observations:")
	if len(result.Observations) == 0 {
		fmt.Println("   (none)")
	}
	for _, o := range result.Observations {
		name := o.Metric
		if o.Column != "" {
			name = o.Column + "." + o.Metric
		}
		credit := "excluded"
		if o.Credit != nil {
			credit = fmt.Sprintf("credit %g x weight %g", *o.Credit, o.Weight)
		}
		fmt.Printf("   %-32s %-11s %-8s %s\n", name, o.Category, o.Status, credit)
	}
	fmt.Println()

	// Step 2: Formula
	fmt.Println("2. Formula:")
	fmt.Println("   score = sum(credit * weight) / sum(weight)")
	fmt.Printf("   score = %s\n", result.Formula)
	fmt.Println()

	// Step 3: Thresholds
	fmt.Println("3. Thresholds:")
	for _, t := range result.Thresholds {
		marker := "  "
		if result.Tier == t.Label {
			marker = "→ "
		}
		fmt.Printf("   %s≥ %.0f%%  %s\n", marker, t.Min*100, t.Label)
	}
	fmt.Println()

	// Step 4: Issues by category
	if len(result.CategoryCount) > 0 {
		fmt.Println("4. Issues by category:")
		for _, c := range models.Categories {
			if count, ok := result.CategoryCount[string(c)]; ok {
				fmt.Printf("   %-11s %d\n", c, count)
			}
		}
		fmt.Println()
	}

	fmt.Printf("Result: %s (%.1f%%, %d issues)\n", strings.ToUpper(string(result.Tier)), result.Score*100, result.IssueCount)
	return nil
}
