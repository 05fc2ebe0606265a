package cli

import (
	"os"

	"github.com/ppiankov/dqlens/internal/aggregator"
	"github.com/ppiankov/dqlens/internal/catalog"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/rules"
	"github.com/ppiankov/dqlens/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	dashboardWatch   bool
	dashboardRefresh string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive data quality dashboard",
	Long: `Dashboard opens an interactive terminal UI over the loaded snapshot with
metrics, tables and rules views.

Keys:
  tab / shift+tab  switch view
  /                search tables, schemas, databases and rule names
  c                cycle the category filter (severity on the rules view)
  s                cycle sort
  space            enable or disable the selected rule
  x                delete the selected rule
  r                reload the snapshot
  esc              clear filters
  q                quit

Rule edits last for the session only. With --watch the snapshot is reloaded
on the refresh preset interval (realtime, frequent, standard, slow).

When stdout is not a terminal the text report is printed instead.

Example:
  dqlens dashboard
  dqlens dashboard --snapshot snapshot.yaml --watch --refresh frequent`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardWatch, "watch", false,
		"reload the snapshot periodically")
	dashboardCmd.Flags().StringVar(&dashboardRefresh, "refresh", "",
		"refresh preset for --watch (default from config)")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	report, source, err := loadReport()
	if err != nil {
		return err
	}
	addHistoryTrend(report)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		logVerbose("stdout is not a terminal, printing the text report")
		return generateOutput(report, "text", "", false)
	}

	opts := tui.Options{
		Load: func() (*models.QualityReport, error) {
			fresh, _, err := loadReport()
			if err != nil {
				return nil, err
			}
			addHistoryTrend(fresh)
			return fresh, nil
		},
		Book: rules.NewBook(report.Rules, rules.WithClock(now), rules.WithAuthor(cfg.Author)),
	}

	if dashboardWatch {
		preset := dashboardRefresh
		if preset == "" {
			preset = cfg.Refresh
		}
		interval, err := catalog.RefreshInterval(preset)
		if err != nil {
			return &ValidationError{Message: err.Error()}
		}
		opts.Watch = interval
		logVerbose("Reloading %s every %s", source, interval)
	}

	history, err := loadHistoryReports(cfg.LastRuns)
	if err != nil {
		logDebug("No history sparkline: %v", err)
	}
	if summary := aggregator.NewTrendAnalyzer().AnalyzeLastNRuns(history); summary != nil {
		opts.Sparkline = summary.ScoreSparkline
	}

	return tui.Run(report, opts)
}
