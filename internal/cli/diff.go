package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ppiankov/dqlens/internal/aggregator"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/spf13/cobra"
)

var (
	diffFormat   string
	diffOutput   string
	diffBaseline string
	diffFailNew  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what changed between two snapshots",
	Long: `Compare two snapshots to show quality drift.

Shows per-table score and tier changes, new issues and resolved issues.
Useful in CI/CD to catch regressions.

By default compares the two most recent history snapshots in
<snapshot_dir>/snapshots. With --baseline the loaded snapshot (--snapshot,
or the demo dataset) is compared against the baseline file.

Exit codes:
  0  No new issues (or --fail-new not set)
  1  New issues detected (with --fail-new)

Example:
  dqlens diff
  dqlens diff --fail-new
  dqlens diff --snapshot today.yaml --baseline yesterday.yaml --format json`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text",
		"output format: text or json")
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "",
		"write output to file instead of stdout")
	diffCmd.Flags().StringVar(&diffBaseline, "baseline", "",
		"baseline snapshot file (default: previous history snapshot)")
	diffCmd.Flags().BoolVar(&diffFailNew, "fail-new", false,
		"exit 1 if new issues are found (for CI gating)")
}

// DiffResult is the structured output of a diff operation.
type DiffResult struct {
	Baseline       string        `json:"baseline"`
	Current        string        `json:"current"`
	TableChanges   []TableChange `json:"table_changes"`
	NewIssues      []DiffIssue   `json:"new_issues"`
	ResolvedIssues []DiffIssue   `json:"resolved_issues"`
	Summary        DiffSummary   `json:"summary"`
}

// TableChange is the score movement of one table. Added and removed
// tables have a zero score on the missing side.
type TableChange struct {
	Table         string       `json:"table"`
	BaselineScore float64      `json:"baseline_score"`
	CurrentScore  float64      `json:"current_score"`
	BaselineTier  models.Tier  `json:"baseline_tier,omitempty"`
	CurrentTier   models.Tier  `json:"current_tier,omitempty"`
	Direction     models.Trend `json:"direction"`
	Added         bool         `json:"added,omitempty"`
	Removed       bool         `json:"removed,omitempty"`
}

// DiffIssue is a non-passed observation
type DiffIssue struct {
	Table    string                   `json:"table"`
	Column   string                   `json:"column,omitempty"`
	Metric   string                   `json:"metric"`
	Category models.Category          `json:"category"`
	Status   models.ObservationStatus `json:"status"`
	Value    string                   `json:"value"`
}

// DiffSummary holds aggregate counts for a diff.
type DiffSummary struct {
	BaselineTotal   int            `json:"baseline_total"`
	CurrentTotal    int            `json:"current_total"`
	NewCount        int            `json:"new_count"`
	ResolvedCount   int            `json:"resolved_count"`
	Delta           int            `json:"delta"` // positive = more issues
	ScoreChange     float64        `json:"score_change"`
	TierChanges     int            `json:"tier_changes"`
	NewByCategory   map[string]int `json:"new_by_category"`
	NewByStatus     map[string]int `json:"new_by_status"`
	BaselineAverage float64        `json:"baseline_average"`
	CurrentAverage  float64        `json:"current_average"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	baseline, current, err := loadDiffPair()
	if err != nil {
		return err
	}
	if baseline == nil {
		fmt.Println("Need at least 2 history snapshots for diff.")
		fmt.Println("Add snapshots to <snapshot_dir>/snapshots or use --baseline.")
		return nil
	}

	logVerbose("Comparing %s (current) vs %s (baseline)",
		current.Timestamp.Format("2006-01-02 15:04"),
		baseline.Timestamp.Format("2006-01-02 15:04"))

	result := computeDiff(baseline, current)

	writer, closeFn, err := openOutput(diffOutput)
	if err != nil {
		return err
	}
	defer closeFn()

	switch diffFormat {
	case "json":
		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	case "text":
		printDiffText(writer, result)
	default:
		return unsupportedFormat(diffFormat, "text or json")
	}

	// CI gate.
	if diffFailNew && result.Summary.NewCount > 0 {
		return &ThresholdExceededError{
			IssueCount: result.Summary.NewCount,
			Threshold:  0,
		}
	}

	return nil
}

// loadDiffPair returns baseline and current reports. A nil baseline means
// there is not enough history.
func loadDiffPair() (*models.QualityReport, *models.QualityReport, error) {
	if diffBaseline != "" {
		snap, _, err := loadSnapshot(diffBaseline)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load baseline: %w", err)
		}
		baseline, err := aggregateHistory(snap)
		if err != nil {
			return nil, nil, err
		}
		current, _, err := loadReport()
		if err != nil {
			return nil, nil, err
		}
		return baseline, current, nil
	}

	reports, err := loadHistoryReports(2)
	if err != nil {
		return nil, nil, err
	}
	if len(reports) < 2 {
		return nil, nil, nil
	}
	return reports[0], reports[1], nil
}

// computeDiff calculates table movements and new/resolved issues.
func computeDiff(baseline, current *models.QualityReport) *DiffResult {
	baseSet := issueSet(baseline)
	currSet := issueSet(current)

	result := &DiffResult{
		Baseline:       baseline.Timestamp.Format("2006-01-02 15:04:05"),
		Current:        current.Timestamp.Format("2006-01-02 15:04:05"),
		TableChanges:   []TableChange{},
		NewIssues:      []DiffIssue{},
		ResolvedIssues: []DiffIssue{},
	}

	for key, issue := range currSet {
		if _, found := baseSet[key]; !found {
			result.NewIssues = append(result.NewIssues, issue)
		}
	}
	for key, issue := range baseSet {
		if _, found := currSet[key]; !found {
			result.ResolvedIssues = append(result.ResolvedIssues, issue)
		}
	}
	sortIssues(result.NewIssues)
	sortIssues(result.ResolvedIssues)

	result.TableChanges = tableChanges(baseline, current)

	newByCategory := map[string]int{}
	newByStatus := map[string]int{}
	for _, issue := range result.NewIssues {
		newByCategory[string(issue.Category)]++
		newByStatus[string(issue.Status)]++
	}

	tierChanges := 0
	for _, c := range result.TableChanges {
		if !c.Added && !c.Removed && c.BaselineTier != c.CurrentTier {
			tierChanges++
		}
	}

	result.Summary = DiffSummary{
		BaselineTotal:   baseline.Stats.TotalIssues,
		CurrentTotal:    current.Stats.TotalIssues,
		NewCount:        len(result.NewIssues),
		ResolvedCount:   len(result.ResolvedIssues),
		Delta:           current.Stats.TotalIssues - baseline.Stats.TotalIssues,
		ScoreChange:     current.Stats.AverageScore - baseline.Stats.AverageScore,
		TierChanges:     tierChanges,
		NewByCategory:   newByCategory,
		NewByStatus:     newByStatus,
		BaselineAverage: baseline.Stats.AverageScore,
		CurrentAverage:  current.Stats.AverageScore,
	}

	return result
}

func issueSet(report *models.QualityReport) map[string]DiffIssue {
	set := make(map[string]DiffIssue)
	for _, o := range report.Observations() {
		if !o.IsIssue() {
			continue
		}
		set[aggregator.IssueKey(o)] = DiffIssue{
			Table:    o.TableKey.String(),
			Column:   o.Column,
			Metric:   o.Metric,
			Category: o.Category,
			Status:   o.Status,
			Value:    o.Value.String(),
		}
	}
	return set
}

func sortIssues(issues []DiffIssue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Table != issues[j].Table {
			return issues[i].Table < issues[j].Table
		}
		if issues[i].Metric != issues[j].Metric {
			return issues[i].Metric < issues[j].Metric
		}
		return issues[i].Column < issues[j].Column
	})
}

// tableChanges lists tables whose score or tier moved, plus added and
// removed tables, in key order
func tableChanges(baseline, current *models.QualityReport) []TableChange {
	changes := []TableChange{}

	for _, curr := range current.Tables {
		prev, ok := baseline.FindTable(curr.TableKey)
		if !ok {
			changes = append(changes, TableChange{
				Table:        curr.TableKey.String(),
				CurrentScore: curr.OverallScore,
				CurrentTier:  curr.Status,
				Direction:    models.TrendStable,
				Added:        true,
			})
			continue
		}
		if prev.OverallScore == curr.OverallScore && prev.Status == curr.Status {
			continue
		}
		changes = append(changes, TableChange{
			Table:         curr.TableKey.String(),
			BaselineScore: prev.OverallScore,
			CurrentScore:  curr.OverallScore,
			BaselineTier:  prev.Status,
			CurrentTier:   curr.Status,
			Direction:     aggregator.Direction(curr.OverallScore - prev.OverallScore),
		})
	}

	for _, prev := range baseline.Tables {
		if _, ok := current.FindTable(prev.TableKey); !ok {
			changes = append(changes, TableChange{
				Table:         prev.TableKey.String(),
				BaselineScore: prev.OverallScore,
				BaselineTier:  prev.Status,
				Direction:     models.TrendStable,
				Removed:       true,
			})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Table < changes[j].Table })
	return changes
}

func printDiffText(w io.Writer, r *DiffResult) {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("╔════════════════════════════════════════════╗\n")
	p("║          dqlens Quality Drift             ║\n")
	p("╚════════════════════════════════════════════╝\n\n")

	p("Baseline: %s\n", r.Baseline)
	p("Current:  %s\n\n", r.Current)

	deltaSign := "+"
	if r.Summary.Delta < 0 {
		deltaSign = ""
	}
	p("Average Score: %.1f%% → %.1f%% (%+.1f pts)\n",
		r.Summary.BaselineAverage*100, r.Summary.CurrentAverage*100, r.Summary.ScoreChange*100)
	p("Issues: %d → %d (%s%d)\n", r.Summary.BaselineTotal, r.Summary.CurrentTotal, deltaSign, r.Summary.Delta)
	p("New: %d   Resolved: %d   Tier changes: %d\n\n", r.Summary.NewCount, r.Summary.ResolvedCount, r.Summary.TierChanges)

	if len(r.TableChanges) > 0 {
		p("Table Changes:\n")
		p("--------------------------------------------------\n")
		for _, c := range r.TableChanges {
			switch {
			case c.Added:
				p("  + %s: %.1f%% (%s)\n", c.Table, c.CurrentScore*100, c.CurrentTier)
			case c.Removed:
				p("  - %s: was %.1f%% (%s)\n", c.Table, c.BaselineScore*100, c.BaselineTier)
			default:
				p("  %s %s: %.1f%% → %.1f%%", aggregator.GetTrendIndicator(c.Direction), c.Table, c.BaselineScore*100, c.CurrentScore*100)
				if c.BaselineTier != c.CurrentTier {
					p("  %s → %s", c.BaselineTier, c.CurrentTier)
				}
				p("\n")
			}
		}
		p("\n")
	}

	if len(r.NewIssues) > 0 {
		p("New Issues:\n")
		p("--------------------------------------------------\n")
		for _, issue := range r.NewIssues {
			p("  [%s] %s %s: %s\n", strings.ToUpper(string(issue.Status)), issue.Category, issue.Table, describeIssue(issue))
		}
		p("\n")
	}

	if len(r.ResolvedIssues) > 0 {
		p("Resolved Issues:\n")
		p("--------------------------------------------------\n")
		for _, issue := range r.ResolvedIssues {
			p("  ✓ %s %s: %s\n", issue.Category, issue.Table, describeIssue(issue))
		}
		p("\n")
	}

	if len(r.Summary.NewByCategory) > 0 {
		p("New by Category:\n")
		for _, c := range models.Categories {
			if count, ok := r.Summary.NewByCategory[string(c)]; ok {
				p("  %s: %d\n", c, count)
			}
		}
		p("\n")
	}

	if r.Summary.NewCount == 0 && r.Summary.ResolvedCount == 0 && len(r.TableChanges) == 0 {
		p("No drift detected.\n")
	} else if r.Summary.NewCount == 0 {
		p("No new issues.\n")
	}
}

func describeIssue(issue DiffIssue) string {
	name := issue.Metric
	if issue.Column != "" {
		name = issue.Column + " " + issue.Metric
	}
	if issue.Value != "" {
		name += " = " + issue.Value
	}
	return name
}
