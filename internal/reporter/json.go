package reporter

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/dqlens/internal/models"
)

// JSONReporter generates machine-readable JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

// Generate writes the full report
func (r *JSONReporter) Generate(report *models.QualityReport) error {
	return r.Write(report)
}

// GenerateSummaryOnly writes stats, trend and recommendations without the
// per-table observations
func (r *JSONReporter) GenerateSummaryOnly(report *models.QualityReport) error {
	type tableSummary struct {
		Table        string      `json:"table"`
		OverallScore float64     `json:"overall_score"`
		Status       models.Tier `json:"status"`
		IssueCount   int         `json:"issue_count"`
	}

	tables := make([]tableSummary, 0, len(report.Tables))
	for _, t := range report.Tables {
		tables = append(tables, tableSummary{
			Table:        t.TableKey.String(),
			OverallScore: t.OverallScore,
			Status:       t.Status,
			IssueCount:   t.IssueCount,
		})
	}

	summary := struct {
		Timestamp       string                  `json:"timestamp"`
		Stats           models.DashboardStats   `json:"stats"`
		Tables          []tableSummary          `json:"tables"`
		Trend           *models.ReportTrend     `json:"trend,omitempty"`
		Recommendations []models.Recommendation `json:"recommendations"`
	}{
		Timestamp:       report.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Stats:           report.Stats,
		Tables:          tables,
		Trend:           report.Trend,
		Recommendations: report.Recommendations,
	}

	return r.Write(summary)
}

// Write encodes any value followed by a newline
func (r *JSONReporter) Write(v interface{}) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	if _, err := r.writer.Write(data); err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}
