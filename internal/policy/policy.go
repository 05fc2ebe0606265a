package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/dqlens/internal/models"
	"gopkg.in/yaml.v3"
)

// FileNames are the policy file names FindPolicyFile looks for
var FileNames = []string{".dqlens-policy.yaml", ".dqlens-policy.yml"}

// Policy defines quality gates for a report.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable policy rules. Scores are on the 0-1 scale.
type Rules struct {
	MaxIssues              *int     `yaml:"max_issues,omitempty"`
	MaxCriticalTables      *int     `yaml:"max_critical_tables,omitempty"`
	MaxWarningTables       *int     `yaml:"max_warning_tables,omitempty"`
	MinScore               *float64 `yaml:"min_score,omitempty"`
	MinAverageScore        *float64 `yaml:"min_average_score,omitempty"`
	ForbidFailedCategories []string `yaml:"forbid_failed_categories,omitempty"`
	RequireTables          []string `yaml:"require_tables,omitempty"`
	RequireActiveRules     *int     `yaml:"require_active_rules,omitempty"`
}

// Violation is a single policy failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a policy check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// LoadFromFile reads a policy file. A missing file yields a nil policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}

	return &p, nil
}

// Validate checks rule values
func (p *Policy) Validate() error {
	var problems []string

	for name, v := range map[string]*float64{"min_score": p.Rules.MinScore, "min_average_score": p.Rules.MinAverageScore} {
		if v != nil && (*v < 0 || *v > 1) {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1], got %v", name, *v))
		}
	}
	for name, v := range map[string]*int{
		"max_issues":           p.Rules.MaxIssues,
		"max_critical_tables":  p.Rules.MaxCriticalTables,
		"max_warning_tables":   p.Rules.MaxWarningTables,
		"require_active_rules": p.Rules.RequireActiveRules,
	} {
		if v != nil && *v < 0 {
			problems = append(problems, fmt.Sprintf("%s must be >= 0, got %d", name, *v))
		}
	}
	for _, c := range p.Rules.ForbidFailedCategories {
		if _, ok := models.ParseCategory(c); !ok {
			problems = append(problems, fmt.Sprintf("unknown category %q in forbid_failed_categories", c))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// FindPolicyFile searches for a policy file in the current directory
// and parent directories up to the filesystem root.
func FindPolicyFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findFrom(dir)
}

func findFrom(dir string) string {
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Evaluate checks a quality report against the policy rules.
func (p *Policy) Evaluate(report *models.QualityReport) *Result {
	if p == nil {
		return &Result{Pass: true}
	}

	var violations []Violation
	stats := report.Stats

	// max_issues
	if p.Rules.MaxIssues != nil && stats.TotalIssues > *p.Rules.MaxIssues {
		violations = append(violations, Violation{
			Rule:    "max_issues",
			Message: fmt.Sprintf("total issues %d exceeds limit %d", stats.TotalIssues, *p.Rules.MaxIssues),
		})
	}

	// max_critical_tables
	if p.Rules.MaxCriticalTables != nil && stats.CriticalTables > *p.Rules.MaxCriticalTables {
		violations = append(violations, Violation{
			Rule:    "max_critical_tables",
			Message: fmt.Sprintf("critical tables %d exceeds limit %d", stats.CriticalTables, *p.Rules.MaxCriticalTables),
		})
	}

	// max_warning_tables
	if p.Rules.MaxWarningTables != nil && stats.TablesWithWarnings > *p.Rules.MaxWarningTables {
		violations = append(violations, Violation{
			Rule:    "max_warning_tables",
			Message: fmt.Sprintf("warning tables %d exceeds limit %d", stats.TablesWithWarnings, *p.Rules.MaxWarningTables),
		})
	}

	// min_score, one violation per table
	if p.Rules.MinScore != nil {
		for _, t := range report.Tables {
			if t.OverallScore < *p.Rules.MinScore {
				violations = append(violations, Violation{
					Rule:    "min_score",
					Message: fmt.Sprintf("table %s score %.1f%% below minimum %.1f%%", t.TableKey, t.ScorePercent(), *p.Rules.MinScore*100),
				})
			}
		}
	}

	// min_average_score
	if p.Rules.MinAverageScore != nil && stats.AverageScore < *p.Rules.MinAverageScore {
		violations = append(violations, Violation{
			Rule:    "min_average_score",
			Message: fmt.Sprintf("average score %.1f%% below minimum %.1f%%", stats.AverageScore*100, *p.Rules.MinAverageScore*100),
		})
	}

	// forbid_failed_categories
	if len(p.Rules.ForbidFailedCategories) > 0 {
		failed := make(map[models.Category]int)
		for _, o := range report.Observations() {
			if o.Status == models.StatusFailed {
				failed[o.Category]++
			}
		}
		for _, name := range p.Rules.ForbidFailedCategories {
			cat, ok := models.ParseCategory(name)
			if !ok {
				continue
			}
			if n := failed[cat]; n > 0 {
				violations = append(violations, Violation{
					Rule:    "forbid_failed_categories",
					Message: fmt.Sprintf("category %q has %d failed check(s)", cat, n),
				})
			}
		}
	}

	// require_tables
	for _, name := range p.Rules.RequireTables {
		if !hasTable(report, name) {
			violations = append(violations, Violation{
				Rule:    "require_tables",
				Message: fmt.Sprintf("required table %q not found in report", name),
			})
		}
	}

	// require_active_rules
	if p.Rules.RequireActiveRules != nil && stats.ActiveRules < *p.Rules.RequireActiveRules {
		violations = append(violations, Violation{
			Rule:    "require_active_rules",
			Message: fmt.Sprintf("active rules %d below required %d", stats.ActiveRules, *p.Rules.RequireActiveRules),
		})
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}

// hasTable matches DATABASE.SCHEMA.TABLE exactly
func hasTable(report *models.QualityReport, name string) bool {
	for _, t := range report.Tables {
		if t.TableKey.String() == name {
			return true
		}
	}
	return false
}
