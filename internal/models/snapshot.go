package models

import "time"

// SnapshotVersion is the current snapshot document version
const SnapshotVersion = "dqlens/v1"

// Snapshot is a point-in-time export of DMF results, table metadata and
// custom rules, produced by an ingestion job
type Snapshot struct {
	Version      string              `json:"version" yaml:"version"`
	Timestamp    time.Time           `json:"timestamp" yaml:"timestamp"`
	Observations []MetricObservation `json:"observations" yaml:"observations"`
	Tables       []TableSeed         `json:"tables,omitempty" yaml:"tables,omitempty"`
	Rules        []CustomRule        `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// TableSeed carries table metadata that observations do not. Score is
// used only for tables without observations.
type TableSeed struct {
	TableKey    `yaml:",inline"`
	Score       *float64  `json:"score,omitempty" yaml:"score,omitempty"`
	RowCount    *int64    `json:"row_count,omitempty" yaml:"row_count,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty" yaml:"last_checked,omitempty"`
}
