package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// TableKey identifies a table. All parts are case-sensitive.
type TableKey struct {
	Database string `json:"database" yaml:"database"`
	Schema   string `json:"schema" yaml:"schema"`
	Table    string `json:"table" yaml:"table"`
}

// String returns DATABASE.SCHEMA.TABLE
func (k TableKey) String() string {
	return k.Database + "." + k.Schema + "." + k.Table
}

// IsZero reports whether any part of the key is missing
func (k TableKey) IsZero() bool {
	return k.Database == "" || k.Schema == "" || k.Table == ""
}

// Less orders keys by database, schema, then table
func (k TableKey) Less(other TableKey) bool {
	if k.Database != other.Database {
		return k.Database < other.Database
	}
	if k.Schema != other.Schema {
		return k.Schema < other.Schema
	}
	return k.Table < other.Table
}

// MetricValue holds either a numeric or a textual DMF result
type MetricValue struct {
	number *float64
	text   string
}

// NumberValue creates a numeric metric value
func NumberValue(v float64) MetricValue {
	return MetricValue{number: &v}
}

// TextValue creates a textual metric value
func TextValue(s string) MetricValue {
	return MetricValue{text: s}
}

// IsNumeric reports whether the value was supplied as a number
func (v MetricValue) IsNumeric() bool {
	return v.number != nil
}

// IsEmpty reports whether no value was supplied
func (v MetricValue) IsEmpty() bool {
	return v.number == nil && v.text == ""
}

// Float returns a numeric view of the value. Text that parses as a
// number (e.g. "15.5") is coerced.
func (v MetricValue) Float() (float64, bool) {
	if v.number != nil {
		return *v.number, true
	}
	if v.text == "" {
		return 0, false
	}
	f, err := cast.ToFloat64E(v.text)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String renders the value for display
func (v MetricValue) String() string {
	if v.number != nil {
		return strconv.FormatFloat(*v.number, 'f', -1, 64)
	}
	return v.text
}

// MarshalJSON writes a JSON number or string
func (v MetricValue) MarshalJSON() ([]byte, error) {
	if v.number != nil {
		return json.Marshal(*v.number)
	}
	if v.text == "" {
		return []byte("null"), nil
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts a JSON number, string, or null
func (v *MetricValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = MetricValue{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &v.text)
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("metric value must be a number or string: %w", err)
	}
	v.number = &f
	return nil
}

// MarshalYAML writes a YAML number or string
func (v MetricValue) MarshalYAML() (interface{}, error) {
	if v.number != nil {
		return *v.number, nil
	}
	if v.text == "" {
		return nil, nil
	}
	return v.text, nil
}

// UnmarshalYAML accepts a YAML scalar. Plain scalars that parse as
// numbers become numeric; quoted scalars stay textual.
func (v *MetricValue) UnmarshalYAML(node *yaml.Node) error {
	*v = MetricValue{}

	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: metric value must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		return nil
	}
	if node.Tag == "!!int" || node.Tag == "!!float" {
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		v.number = &f
		return nil
	}
	v.text = node.Value
	return nil
}

// MetricObservation is one DMF result for one table or column
type MetricObservation struct {
	TableKey `yaml:",inline"`

	ID          string            `json:"id" yaml:"id"`
	Column      string            `json:"column,omitempty" yaml:"column,omitempty"`
	Metric      string            `json:"metric" yaml:"metric"`
	Category    Category          `json:"category" yaml:"category"`
	Value       MetricValue       `json:"value" yaml:"value"`
	Threshold   *float64          `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Status      ObservationStatus `json:"status" yaml:"status"`
	LastUpdated time.Time         `json:"last_updated" yaml:"last_updated"`
	Trend       *Trend            `json:"trend,omitempty" yaml:"trend,omitempty"`
}

// HasThreshold reports whether a threshold was supplied
func (o MetricObservation) HasThreshold() bool {
	return o.Threshold != nil
}

// IsIssue reports whether the observation counts towards a table's issues
func (o MetricObservation) IsIssue() bool {
	return o.Status != StatusPassed
}

// TrendOrEmpty returns the trend tag or "" when absent
func (o MetricObservation) TrendOrEmpty() Trend {
	if o.Trend == nil {
		return ""
	}
	return *o.Trend
}
