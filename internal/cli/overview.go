package cli

import (
	"github.com/spf13/cobra"
)

var (
	overviewFormat    string
	overviewOutput    string
	overviewSummary   bool
	overviewPolicy    string
	overviewThreshold int
	overviewNoTrend   bool
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show the data quality report for the loaded snapshot",
	Long: `Overview aggregates the snapshot into per-table health records and prints
the dashboard statistics, issue distribution by category, table list and
recommended actions.

When snapshot_dir holds history, the report is compared with the newest
history snapshot older than the loaded one.

Quality gates:
  --fail-threshold N   exit 1 when total issues exceed N
  --policy FILE        exit 1 when the policy fails (default: nearest .dqlens-policy.yaml)

Example:
  dqlens overview
  dqlens overview --snapshot ./snapshots/latest.yaml --format json
  dqlens overview --fail-threshold 10`,
	RunE: runOverview,
}

func init() {
	overviewCmd.Flags().StringVarP(&overviewFormat, "format", "f", "",
		"output format: text, json, or both (default from config)")
	overviewCmd.Flags().StringVarP(&overviewOutput, "output", "o", "",
		"write output to file instead of stdout")
	overviewCmd.Flags().BoolVar(&overviewSummary, "summary", false,
		"JSON output without per-metric observations")
	overviewCmd.Flags().StringVar(&overviewPolicy, "policy", "",
		"policy file to enforce")
	overviewCmd.Flags().IntVar(&overviewThreshold, "fail-threshold", -1,
		"exit 1 if total issues exceed this number (default from config, 0 disables)")
	overviewCmd.Flags().BoolVar(&overviewNoTrend, "no-trend", false,
		"skip the comparison with snapshot history")
}

func runOverview(cmd *cobra.Command, args []string) error {
	format := overviewFormat
	if format == "" {
		format = cfg.Format
	}

	threshold := overviewThreshold
	if threshold < 0 {
		threshold = cfg.FailThreshold
	}

	return RunPipeline(PipelineConfig{
		Format:      format,
		Output:      overviewOutput,
		SummaryOnly: overviewSummary,
		PolicyPath:  overviewPolicy,
		Threshold:   threshold,
		Trend:       !overviewNoTrend,
	})
}
