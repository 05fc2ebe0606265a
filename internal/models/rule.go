package models

import "time"

// CustomRule is a user-defined SQL quality check. SQLQuery is opaque text
// and Schedule is descriptive cron text; neither is executed.
type CustomRule struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	SQLQuery    string     `json:"sql_query" yaml:"sql_query"`
	Threshold   float64    `json:"threshold" yaml:"threshold"`
	Severity    Severity   `json:"severity" yaml:"severity"`
	Enabled     bool       `json:"enabled" yaml:"enabled"`
	Schedule    string     `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	CreatedBy   string     `json:"created_by" yaml:"created_by"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	LastRun     *time.Time `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

// RuleDraft carries the editable fields of a rule
type RuleDraft struct {
	Name        string
	Description string
	SQLQuery    string
	Threshold   float64
	Severity    Severity
	Enabled     bool
	Schedule    string
}

// Draft extracts the editable fields of r
func (r CustomRule) Draft() RuleDraft {
	return RuleDraft{
		Name:        r.Name,
		Description: r.Description,
		SQLQuery:    r.SQLQuery,
		Threshold:   r.Threshold,
		Severity:    r.Severity,
		Enabled:     r.Enabled,
		Schedule:    r.Schedule,
	}
}
