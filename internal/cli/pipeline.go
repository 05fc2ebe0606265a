package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/dqlens/internal/aggregator"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/policy"
	"github.com/ppiankov/dqlens/internal/reporter"
	"github.com/ppiankov/dqlens/internal/storage"
	"github.com/ppiankov/dqlens/internal/validator"
)

// bothJSONFile receives the JSON half of --format both when writing to stdout
const bothJSONFile = "dqlens-report.json"

// PipelineConfig holds options for the shared report pipeline.
type PipelineConfig struct {
	Format      string
	Output      string
	SummaryOnly bool
	PolicyPath  string
	Threshold   int
	Trend       bool
}

// RunPipeline loads the configured snapshot and runs
// aggregate → trend → output → policy → threshold check.
func RunPipeline(pcfg PipelineConfig) error {
	report, source, err := loadReport()
	if err != nil {
		return err
	}

	logVerbose("Aggregated %d tables with %d issues from %s",
		report.Stats.TotalTables, report.Stats.TotalIssues, source)

	if pcfg.Trend {
		addHistoryTrend(report)
	}

	logVerbose("Generated %d recommendations", len(report.Recommendations))

	if err := generateOutput(report, pcfg.Format, pcfg.Output, pcfg.SummaryOnly); err != nil {
		logError("Failed to generate output: %v", err)
		return err
	}

	if err := enforcePolicy(report, pcfg.PolicyPath); err != nil {
		return err
	}

	if pcfg.Threshold > 0 && report.Stats.TotalIssues > pcfg.Threshold {
		return &ThresholdExceededError{
			IssueCount: report.Stats.TotalIssues,
			Threshold:  pcfg.Threshold,
		}
	}

	return nil
}

// loadSnapshot loads and validates a snapshot file, or returns the demo
// dataset when path is empty. The second value names the source.
func loadSnapshot(path string) (*models.Snapshot, string, error) {
	if path == "" {
		snap, source, err := storage.Load(path)
		if err != nil {
			return nil, source, fmt.Errorf("failed to load demo dataset: %w", err)
		}
		return snap, source, nil
	}

	format, err := storage.FormatForPath(path)
	if err != nil {
		return nil, path, &ValidationError{Message: err.Error()}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err := validator.New().ValidateData(data, format, path)
	if err != nil {
		return nil, path, err
	}

	logDebug("Loaded %d observations, %d table seeds, %d rules from %s",
		len(snap.Observations), len(snap.Tables), len(snap.Rules), path)
	return snap, path, nil
}

// newAggregator builds an aggregator with the configured category weights
func newAggregator() (*aggregator.Aggregator, error) {
	weights, err := cfg.Weights()
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return aggregator.New(aggregator.WithCategoryWeights(weights)), nil
}

// loadReport loads the configured snapshot and aggregates it
func loadReport() (*models.QualityReport, string, error) {
	snap, source, err := loadSnapshot(cfg.Snapshot)
	if err != nil {
		return nil, source, err
	}

	agg, err := newAggregator()
	if err != nil {
		return nil, source, err
	}

	report, err := agg.Aggregate(snap)
	if err != nil {
		return nil, source, fmt.Errorf("failed to aggregate %s: %w", source, err)
	}
	return report, source, nil
}

// historyStore opens the snapshot history under snapshot_dir
func historyStore() (*storage.LocalStore, error) {
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		return nil, err
	}
	return storage.NewLocal(storagePath), nil
}

// addHistoryTrend compares report with the newest history snapshot taken
// before it. Missing history is not an error.
func addHistoryTrend(report *models.QualityReport) {
	store, err := historyStore()
	if err != nil {
		logDebug("No history: %v", err)
		return
	}

	previous, err := previousReport(store, report.Timestamp)
	if err != nil {
		logDebug("No history: %v", err)
		return
	}
	if previous == nil {
		logDebug("No history snapshot older than %s in %s", report.Timestamp, store.SnapshotsDir())
		return
	}

	logVerbose("Comparing with snapshot from %s", previous.Timestamp)
	aggregator.NewTrendAnalyzer().AddTrend(report, previous)
}

// previousReport aggregates the newest readable snapshot strictly older
// than before. It returns nil when there is none.
func previousReport(store storage.Store, before time.Time) (*models.QualityReport, error) {
	timestamps, err := store.ListSnapshots()
	if err != nil {
		return nil, err
	}

	for i := len(timestamps) - 1; i >= 0; i-- {
		if !timestamps[i].Before(before) {
			continue
		}
		snap, err := store.LoadSnapshot(timestamps[i])
		if err != nil {
			logDebug("Skipping history snapshot %s: %v", timestamps[i], err)
			continue
		}
		previous, err := aggregateHistory(snap)
		if err != nil {
			logDebug("Skipping history snapshot %s: %v", timestamps[i], err)
			continue
		}
		return previous, nil
	}
	return nil, nil
}

// loadHistoryReports aggregates the last n history snapshots, oldest first
func loadHistoryReports(n int) ([]*models.QualityReport, error) {
	store, err := historyStore()
	if err != nil {
		return nil, err
	}

	logVerbose("Loading history from: %s", store.SnapshotsDir())
	return lastReports(store, n)
}

func lastReports(store storage.Store, n int) ([]*models.QualityReport, error) {
	snaps, err := store.GetLastN(n)
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshots) {
			return nil, nil
		}
		return nil, err
	}

	reports := make([]*models.QualityReport, 0, len(snaps))
	for _, snap := range snaps {
		report, err := aggregateHistory(snap)
		if err != nil {
			logError("Skipping history snapshot %s: %v", snap.Timestamp, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func aggregateHistory(snap *models.Snapshot) (*models.QualityReport, error) {
	agg, err := newAggregator()
	if err != nil {
		return nil, err
	}
	return agg.Aggregate(snap)
}

// enforcePolicy evaluates the policy at path, or the nearest
// .dqlens-policy.yaml when path is empty
func enforcePolicy(report *models.QualityReport, path string) error {
	if path == "" {
		path = policy.FindPolicyFile()
		if path == "" {
			return nil
		}
	} else if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("policy file: %w", err)
	}

	logVerbose("Found policy file: %s", path)

	pol, err := policy.LoadFromFile(path)
	if err != nil {
		logError("Failed to load policy: %v", err)
		return &ValidationError{Message: err.Error()}
	}
	if pol == nil {
		return nil
	}

	result := pol.Evaluate(report)
	if !result.Pass {
		for _, v := range result.Violations {
			logError("Policy violation [%s]: %s", v.Rule, v.Message)
		}
		return &PolicyViolationError{Violations: result.Violations}
	}

	logVerbose("Policy check passed")
	return nil
}

// openOutput returns stdout, or a created file when path is set
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// generateOutput generates the output in the specified format(s).
func generateOutput(report *models.QualityReport, format, outputPath string, summaryOnly bool) error {
	writer, closeFn, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	writeJSON := func(w io.Writer) error {
		r := reporter.NewJSONReporter(w, true)
		if summaryOnly {
			return r.GenerateSummaryOnly(report)
		}
		return r.Generate(report)
	}

	switch format {
	case "text":
		return reporter.NewTextReporter(writer).Generate(report)

	case "json":
		return writeJSON(writer)

	case "both":
		if err := reporter.NewTextReporter(writer).Generate(report); err != nil {
			return err
		}

		if outputPath == "" {
			jsonFile, err := os.Create(bothJSONFile)
			if err != nil {
				return fmt.Errorf("failed to create JSON file: %w", err)
			}
			defer func() { _ = jsonFile.Close() }()
			logVerbose("Wrote JSON report to %s", bothJSONFile)
			return writeJSON(jsonFile)
		}

		if _, err := fmt.Fprintf(writer, "\n=== JSON Output ===\n\n"); err != nil {
			return err
		}
		return writeJSON(writer)

	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or both)", format)}
	}
}
