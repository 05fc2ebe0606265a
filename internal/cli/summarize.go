package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/dqlens/internal/aggregator"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/reporter"
	"github.com/spf13/cobra"
)

var (
	summarizeLastN   int
	summarizeCompare bool
	summarizeFormat  string
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Show trends across history snapshots",
	Long: `Analyze the snapshot history in <snapshot_dir>/snapshots and show trends
over time.

This command displays:
- Latest snapshot summary
- Average score and issue sparklines across the last N snapshots
- Per-table score movement between the first and last snapshot
- Top recommendations of the latest snapshot

Example:
  dqlens summarize
  dqlens summarize --last 14
  dqlens summarize --compare
  dqlens summarize --format json`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().IntVarP(&summarizeLastN, "last", "n", 0,
		"number of snapshots to analyze (default from config)")
	summarizeCmd.Flags().BoolVarP(&summarizeCompare, "compare", "c", false,
		"compare latest snapshot with previous")
	summarizeCmd.Flags().StringVarP(&summarizeFormat, "format", "f", "text",
		"output format: text or json")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	lastN := summarizeLastN
	if lastN <= 0 {
		lastN = cfg.LastRuns
	}
	if summarizeCompare {
		lastN = 2
	}

	reports, err := loadHistoryReports(lastN)
	if err != nil {
		logError("Failed to load history: %v", err)
		return err
	}

	if len(reports) == 0 {
		fmt.Println("No history snapshots found.")
		fmt.Println("Add timestamped snapshots to <snapshot_dir>/snapshots to track trends.")
		return nil
	}

	logVerbose("Analyzing trends across %d snapshots", len(reports))

	if summarizeCompare {
		if len(reports) < 2 {
			fmt.Println("Need at least 2 history snapshots for comparison.")
			return nil
		}
		fmt.Print(aggregator.NewTrendAnalyzer().GenerateComparisonReport(reports[1], reports[0]))
		return nil
	}

	summary := aggregator.NewTrendAnalyzer().AnalyzeLastNRuns(reports)
	if summary == nil {
		fmt.Println("Unable to generate trend summary.")
		return nil
	}

	switch summarizeFormat {
	case "text":
		printTrendSummaryText(summary, reports)
		return nil
	case "json":
		return reporter.NewJSONReporter(os.Stdout, true).Write(summary)
	default:
		return unsupportedFormat(summarizeFormat, "text or json")
	}
}

// printTrendSummaryText prints trend summary in human-readable format
func printTrendSummaryText(summary *models.TrendSummary, reports []*models.QualityReport) {
	fmt.Println("╔════════════════════════════════════════════╗")
	fmt.Println("║          dqlens Trend Summary             ║")
	fmt.Println("╚════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Printf("Time Range: %s\n", summary.TimeRange)
	fmt.Printf("Snapshots Analyzed: %d\n", summary.RunsAnalyzed)
	fmt.Println()

	latest := reports[len(reports)-1]
	fmt.Printf("Latest Snapshot: %s\n", latest.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Total Issues: %d\n", latest.Stats.TotalIssues)
	fmt.Printf("Average Score: %.1f%%", latest.Stats.AverageScore*100)

	if len(reports) >= 2 {
		previous := reports[len(reports)-2]
		change := latest.Stats.AverageScore - previous.Stats.AverageScore
		direction := aggregator.Direction(change)
		fmt.Printf(" (%s %s %+.1f pts)\n", aggregator.GetTrendIndicator(direction), direction, change*100)
	} else {
		fmt.Println()
	}
	fmt.Println()

	if len(summary.ScoreSparkline) > 0 {
		fmt.Println("Average Score % (over time):")
		fmt.Print("  ")
		fmt.Println(sparkline(summary.ScoreSparkline))
	}
	if len(summary.IssueSparkline) > 0 {
		fmt.Println("Issues (over time):")
		fmt.Print("  ")
		fmt.Println(sparkline(summary.IssueSparkline))
	}

	if len(summary.ByTable) > 0 {
		fmt.Println()
		fmt.Println("By Table:")
		fmt.Println("--------------------------------------------------")

		names := make([]string, 0, len(summary.ByTable))
		for name := range summary.ByTable {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			tt := summary.ByTable[name]
			line := fmt.Sprintf("  %s %s: %.1f%% → %.1f%% (%+.1f pts)",
				aggregator.GetTrendIndicator(tt.Direction), name,
				tt.PreviousScore*100, tt.CurrentScore*100, tt.Change*100)
			if tt.PreviousTier != tt.CurrentTier {
				line += fmt.Sprintf("  %s → %s", tt.PreviousTier, tt.CurrentTier)
			}
			fmt.Println(line)
		}
	}

	if len(latest.Recommendations) > 0 {
		fmt.Println()
		fmt.Println("Top Recommendations:")
		fmt.Println("--------------------------------------------------")

		recGen := aggregator.NewRecommendationGenerator()
		for i, rec := range recGen.GetTopRecommendations(latest.Recommendations, 5) {
			fmt.Printf("  %d. [%s] %s\n", i+1, strings.ToUpper(string(rec.Severity)), rec.Action)
		}
	}
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// sparkline renders values as a block sparkline with the first and last value
func sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		if hi == lo {
			b.WriteRune(sparkChars[len(sparkChars)/2])
			continue
		}
		normalized := float64(v-lo) / float64(hi-lo)
		b.WriteRune(sparkChars[int(normalized*float64(len(sparkChars)-1))])
	}

	fmt.Fprintf(&b, " [%d → %d]", values[0], values[len(values)-1])
	return b.String()
}
