package cli

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/dqlens/internal/filter"
)

func TestBuildExport(t *testing.T) {
	testConfig(t)
	report, _, err := loadReport()
	if err != nil {
		t.Fatal(err)
	}
	exportedAt := time.Date(2024, 1, 21, 9, 0, 0, 0, time.FixedZone("CET", 3600))

	all := buildExport(report, filter.Criteria{Category: filter.All, Status: filter.All}, exportedAt)
	if all.RecordCount != 9 || len(all.Records) != 9 {
		t.Errorf("RecordCount = %d, want 9", all.RecordCount)
	}
	if all.ExportedAt != "2024-01-21T08:00:00Z" {
		t.Errorf("ExportedAt = %q, want UTC", all.ExportedAt)
	}

	failed := buildExport(report, filter.Criteria{Status: "failed"}, exportedAt)
	if failed.RecordCount != 2 {
		t.Fatalf("failed RecordCount = %d, want 2", failed.RecordCount)
	}
	r := failed.Records[0]
	if r.Table != "PROD_DB.INVENTORY.PRODUCT_CATALOG" || r.Metric != "BLANK_PERCENT" {
		t.Errorf("first record = %+v", r)
	}
	if r.Value != "15.5" || r.Threshold != "5" {
		t.Errorf("value/threshold = %q/%q, want 15.5/5", r.Value, r.Threshold)
	}
	if r.TableScore != "0.5000" || r.TableTier != "critical" {
		t.Errorf("table score/tier = %q/%q", r.TableScore, r.TableTier)
	}
	if r.SnapshotTimestamp != "2024-01-20T10:00:00Z" {
		t.Errorf("SnapshotTimestamp = %q", r.SnapshotTimestamp)
	}
	if failed.Records[1].Value != "150" || failed.Records[1].Column != "EMAIL" {
		t.Errorf("second record = %+v", failed.Records[1])
	}

	none := buildExport(report, filter.Criteria{Search: "nothing"}, exportedAt)
	if none.Records == nil || none.RecordCount != 0 {
		t.Errorf("empty export should have a non-nil empty slice, got %+v", none)
	}
}

func TestRunExportCSV(t *testing.T) {
	testConfig(t)
	fixedClock(t)
	path := filepath.Join(t.TempDir(), "quality.csv")
	setVar(t, &exportOutput, path)
	setVar(t, &exportSearch, "sales")

	if err := runExport(exportCmd, nil); err != nil {
		t.Fatalf("runExport: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("got %d rows, want header + 6", len(rows))
	}
	if strings.Join(rows[0], ",") != "snapshot_timestamp,table,column,metric,category,value,threshold,status,trend,last_updated,table_score,table_tier" {
		t.Errorf("header = %v", rows[0])
	}
	for _, row := range rows[1:] {
		if !strings.HasPrefix(row[1], "PROD_DB.SALES.") {
			t.Errorf("unexpected table %s", row[1])
		}
	}
}

func TestRunExportJSON(t *testing.T) {
	testConfig(t)
	fixedClock(t)
	setVar(t, &exportFormat, "json")
	setVar(t, &exportCategory, "statistics")

	var err error
	out := captureStdout(t, func() { err = runExport(exportCmd, nil) })
	if err != nil {
		t.Fatalf("runExport: %v", err)
	}

	var export Export
	if err := json.Unmarshal([]byte(out), &export); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if export.RecordCount != 1 || export.Records[0].Status != "pending" || export.Records[0].Metric != "AVG" {
		t.Errorf("export = %+v", export)
	}
	if export.ExportedAt != "2024-01-20T12:00:00Z" {
		t.Errorf("ExportedAt = %q", export.ExportedAt)
	}
	if export.Snapshot == "" {
		t.Error("expected the snapshot source")
	}
}

func TestRunExportInvalidFlags(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		category string
		status   string
	}{
		{name: "format", format: "xlsx"},
		{name: "category", category: "Speed"},
		{name: "status", status: "critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testConfig(t)
			setVar(t, &exportFormat, orDefault(tt.format, "csv"))
			setVar(t, &exportCategory, orAll(tt.category))
			setVar(t, &exportStatus, orAll(tt.status))

			if err := runExport(exportCmd, nil); HandleError(err) != ExitInvalidInput {
				t.Errorf("expected exit %d, got %v", ExitInvalidInput, err)
			}
		})
	}
}
