package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/dqlens/internal/filter"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/spf13/cobra"
)

var (
	exportFormat   string
	exportOutput   string
	exportSearch   string
	exportCategory string
	exportStatus   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export observations for spreadsheets and other tools",
	Long: `Export writes the (optionally filtered) DMF observations of the loaded
snapshot together with the tier and score of their table.

Supported formats:
  csv    Tabular format for spreadsheets
  json   Structured JSON for programmatic consumption

Example:
  dqlens export --format csv -o quality.csv
  dqlens export --status failed --format json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv",
		"output format: csv or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write output to file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportSearch, "search", "s", "",
		"case-insensitive table/schema/database search")
	exportCmd.Flags().StringVarP(&exportCategory, "category", "c", filter.All,
		"DMF category")
	exportCmd.Flags().StringVar(&exportStatus, "status", filter.All,
		"observation status: passed, warning, failed, pending")
}

// ExportRecord is a single row in the export.
type ExportRecord struct {
	SnapshotTimestamp string `json:"snapshot_timestamp"`
	Table             string `json:"table"`
	Column            string `json:"column"`
	Metric            string `json:"metric"`
	Category          string `json:"category"`
	Value             string `json:"value"`
	Threshold         string `json:"threshold"`
	Status            string `json:"status"`
	Trend             string `json:"trend"`
	LastUpdated       string `json:"last_updated"`
	TableScore        string `json:"table_score"`
	TableTier         string `json:"table_tier"`
}

// Export is the full export payload.
type Export struct {
	ExportedAt  string         `json:"exported_at"`
	Snapshot    string         `json:"snapshot"`
	RecordCount int            `json:"record_count"`
	Records     []ExportRecord `json:"records"`
}

func runExport(cmd *cobra.Command, args []string) error {
	criteria := filter.Criteria{Search: exportSearch, Category: exportCategory, Status: exportStatus}
	if !isAll(criteria.Category) {
		if _, ok := models.ParseCategory(criteria.Category); !ok {
			return &ValidationError{Message: fmt.Sprintf("unknown category %q", criteria.Category)}
		}
	}
	if !isAll(criteria.Status) && !models.ObservationStatus(strings.ToLower(criteria.Status)).IsValid() {
		return &ValidationError{Message: fmt.Sprintf("unknown status %q", criteria.Status)}
	}
	if exportFormat != "csv" && exportFormat != "json" {
		return unsupportedFormat(exportFormat, "csv or json")
	}

	report, source, err := loadReport()
	if err != nil {
		return err
	}

	export := buildExport(report, criteria, now())
	export.Snapshot = source

	logVerbose("Exporting %d records", export.RecordCount)

	writer, closeFn, err := openOutput(exportOutput)
	if err != nil {
		return err
	}
	defer closeFn()

	if exportFormat == "json" {
		return writeExportJSON(writer, export)
	}
	return writeCSV(writer, export)
}

func buildExport(report *models.QualityReport, criteria filter.Criteria, exportedAt time.Time) *Export {
	records := []ExportRecord{}
	ts := report.Timestamp.UTC().Format(time.RFC3339)

	for _, table := range report.Tables {
		score := fmt.Sprintf("%.4f", table.OverallScore)
		for _, o := range filter.Observations(table.Metrics, criteria) {
			threshold := ""
			if o.Threshold != nil {
				threshold = fmt.Sprintf("%g", *o.Threshold)
			}
			lastUpdated := ""
			if !o.LastUpdated.IsZero() {
				lastUpdated = o.LastUpdated.UTC().Format(time.RFC3339)
			}
			records = append(records, ExportRecord{
				SnapshotTimestamp: ts,
				Table:             o.TableKey.String(),
				Column:            o.Column,
				Metric:            o.Metric,
				Category:          string(o.Category),
				Value:             o.Value.String(),
				Threshold:         threshold,
				Status:            string(o.Status),
				Trend:             string(o.TrendOrEmpty()),
				LastUpdated:       lastUpdated,
				TableScore:        score,
				TableTier:         string(table.Status),
			})
		}
	}

	return &Export{
		ExportedAt:  exportedAt.UTC().Format(time.RFC3339),
		RecordCount: len(records),
		Records:     records,
	}
}

func writeCSV(w io.Writer, export *Export) error {
	writer := csv.NewWriter(w)

	header := []string{
		"snapshot_timestamp", "table", "column", "metric", "category", "value",
		"threshold", "status", "trend", "last_updated", "table_score", "table_tier",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range export.Records {
		row := []string{
			r.SnapshotTimestamp, r.Table, r.Column, r.Metric, r.Category, r.Value,
			r.Threshold, r.Status, r.Trend, r.LastUpdated, r.TableScore, r.TableTier,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeExportJSON(w io.Writer, export *Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}
