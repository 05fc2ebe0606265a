package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/rules"
	"github.com/ppiankov/dqlens/internal/storage"
)

// withRuleOutput points --output at a temp rule set file
func withRuleOutput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	setVar(t, &rulesOutput, path)
	return path
}

func loadRules(t *testing.T, path string) []models.CustomRule {
	t.Helper()
	list, err := storage.LoadRuleSet(path)
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	return list
}

func TestRunRulesList(t *testing.T) {
	testConfig(t)
	fixedClock(t)

	out := captureStdout(t, func() {
		if err := runRulesList(rulesListCmd, nil); err != nil {
			t.Errorf("runRulesList: %v", err)
		}
	})
	for _, want := range []string{
		"[HIGH] Email Format Validation (1, enabled)",
		"[CRITICAL] Revenue Data Consistency (2, enabled)",
		"[MEDIUM] Product Code Uniqueness (3, disabled)",
		"0 8 * * * (next 2024-01-21 08:00)",
		"3 rule(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunRulesListFilters(t *testing.T) {
	tests := []struct {
		name     string
		search   string
		severity string
		want     []string
	}{
		{name: "severity", severity: "critical", want: []string{"2"}},
		{name: "severity case", severity: "HIGH", want: []string{"1"}},
		{name: "search", search: "product", want: []string{"3"}},
		{name: "no match", search: "nothing", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testConfig(t)
			fixedClock(t)
			setVar(t, &rulesFormat, "json")
			setVar(t, &ruleSearch, tt.search)
			setVar(t, &ruleSeverity, orAll(tt.severity))

			var err error
			out := captureStdout(t, func() { err = runRulesList(rulesListCmd, nil) })
			if err != nil {
				t.Fatalf("runRulesList: %v", err)
			}
			var list []models.CustomRule
			if err := json.Unmarshal([]byte(out), &list); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			ids := make([]string, len(list))
			for i, r := range list {
				ids[i] = r.ID
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestRunRulesListBadSeverity(t *testing.T) {
	testConfig(t)
	setVar(t, &ruleSeverity, "urgent")

	err := runRulesList(rulesListCmd, nil)
	if HandleError(err) != ExitInvalidInput {
		t.Errorf("expected exit %d, got %v", ExitInvalidInput, err)
	}
}

func TestRunRulesShow(t *testing.T) {
	testConfig(t)
	fixedClock(t)

	out := captureStdout(t, func() {
		if err := runRulesShow(rulesShowCmd, []string{"revenue data consistency"}); err != nil {
			t.Errorf("runRulesShow: %v", err)
		}
	})
	if !strings.Contains(out, "Revenue Data Consistency (2, enabled)") || !strings.Contains(out, "\nSQL:\n") {
		t.Errorf("unexpected output:\n%s", out)
	}

	err := runRulesShow(rulesShowCmd, []string{"missing"})
	var ve *ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "rule not found") {
		t.Errorf("expected not found ValidationError, got %v", err)
	}
}

func TestRunRulesAdd(t *testing.T) {
	testConfig(t)
	ts := fixedClock(t)
	cfg.Author = "data-team"
	path := withRuleOutput(t, "rules.yaml")

	setVar(t, &ruleName, "  No negative totals ")
	setVar(t, &ruleSQL, "SELECT COUNT(*) FROM ORDERS WHERE TOTAL < 0")
	setVar(t, &ruleThreshold, 0)
	setVar(t, &ruleSev, "HIGH")
	setVar(t, &ruleSchedule, "@hourly")

	out := captureStdout(t, func() {
		if err := runRulesAdd(rulesAddCmd, nil); err != nil {
			t.Errorf("runRulesAdd: %v", err)
		}
	})
	if !strings.Contains(out, "[HIGH] No negative totals") {
		t.Errorf("unexpected output:\n%s", out)
	}

	list := loadRules(t, path)
	if len(list) != 4 {
		t.Fatalf("got %d rules, want 4", len(list))
	}
	added := list[3]
	if added.Name != "No negative totals" || added.Severity != models.SeverityHigh || !added.Enabled {
		t.Errorf("added rule = %+v", added)
	}
	if added.ID == "" || added.CreatedBy != "data-team" {
		t.Errorf("ID/CreatedBy = %q/%q", added.ID, added.CreatedBy)
	}
	if !added.CreatedAt.Equal(ts) || added.LastRun == nil || !added.LastRun.Equal(ts) {
		t.Errorf("timestamps = %v/%v, want %v", added.CreatedAt, added.LastRun, ts)
	}
}

func TestRunRulesAddInvalid(t *testing.T) {
	testConfig(t)
	fixedClock(t)
	path := withRuleOutput(t, "rules.yaml")

	setVar(t, &ruleName, "")
	setVar(t, &ruleSev, "urgent")
	setVar(t, &ruleSchedule, "every day")

	err := runRulesAdd(rulesAddCmd, nil)
	var ve *rules.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected rules.ValidationError, got %v", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("got %d problems, want 3: %v", len(ve.Errors), ve.Errors)
	}
	if HandleError(err) != ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", HandleError(err), ExitInvalidInput)
	}
	if _, err := storage.LoadRuleSet(path); err == nil {
		t.Error("rule set should not be written when the draft is invalid")
	}
}

func TestRunRulesUpdate(t *testing.T) {
	testConfig(t)
	ts := fixedClock(t)
	path := withRuleOutput(t, "rules.json")

	setFlags(t, rulesUpdateCmd, map[string]string{
		"threshold": "5",
		"severity":  "critical",
		"disabled":  "true",
	})

	captureStdout(t, func() {
		if err := runRulesUpdate(rulesUpdateCmd, []string{"1"}); err != nil {
			t.Errorf("runRulesUpdate: %v", err)
		}
	})

	list := loadRules(t, path)
	r := list[0]
	if r.Name != "Email Format Validation" {
		t.Errorf("untouched name changed to %q", r.Name)
	}
	if r.Threshold != 5 || r.Severity != models.SeverityCritical || r.Enabled {
		t.Errorf("updated rule = %+v", r)
	}
	if r.Schedule != "0 8 * * *" {
		t.Errorf("schedule = %q, want unchanged", r.Schedule)
	}
	if r.LastRun == nil || !r.LastRun.Equal(ts) {
		t.Errorf("LastRun = %v, want %v", r.LastRun, ts)
	}
}

func TestRunRulesUpdateInvalid(t *testing.T) {
	testConfig(t)
	fixedClock(t)
	setFlags(t, rulesUpdateCmd, map[string]string{"name": " "})

	err := runRulesUpdate(rulesUpdateCmd, []string{"2"})
	if HandleError(err) != ExitInvalidInput {
		t.Errorf("blank name: exit %d, want %d (%v)", HandleError(err), ExitInvalidInput, err)
	}

	err = runRulesUpdate(rulesUpdateCmd, []string{"42"})
	if HandleError(err) != ExitInvalidInput {
		t.Errorf("unknown rule: exit %d, want %d (%v)", HandleError(err), ExitInvalidInput, err)
	}
}

func TestRunRulesDelete(t *testing.T) {
	testConfig(t)
	fixedClock(t)
	path := withRuleOutput(t, "rules.yaml")

	out := captureStdout(t, func() {
		if err := runRulesDelete(rulesDeleteCmd, []string{"Product Code Uniqueness"}); err != nil {
			t.Errorf("runRulesDelete: %v", err)
		}
	})
	if !strings.Contains(out, "Deleted rule Product Code Uniqueness (3), 2 rule(s) left") {
		t.Errorf("unexpected output: %q", out)
	}
	if list := loadRules(t, path); len(list) != 2 {
		t.Errorf("got %d rules, want 2", len(list))
	}
}

func TestRunRulesToggleRoundTrip(t *testing.T) {
	testConfig(t)
	fixedClock(t)
	path := withRuleOutput(t, "rules.yaml")

	out := captureStdout(t, func() {
		if err := runRulesToggle(rulesToggleCmd, []string{"3"}); err != nil {
			t.Errorf("runRulesToggle: %v", err)
		}
	})
	if !strings.Contains(out, "Rule Product Code Uniqueness (3) is now enabled") {
		t.Errorf("unexpected output: %q", out)
	}

	before := demoSnapshot(t).Rules[2]
	after := loadRules(t, path)[2]
	if !after.Enabled {
		t.Error("rule 3 should be enabled")
	}
	if after.Schedule != before.Schedule || !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("toggle changed other fields: %+v", after)
	}
	if (after.LastRun == nil) != (before.LastRun == nil) {
		t.Errorf("toggle changed LastRun: %v → %v", before.LastRun, after.LastRun)
	}

	// Read the written set back and toggle again.
	setVar(t, &rulesFile, path)
	out = captureStdout(t, func() {
		if err := runRulesToggle(rulesToggleCmd, []string{"3"}); err != nil {
			t.Errorf("runRulesToggle: %v", err)
		}
	})
	if !strings.Contains(out, "is now disabled") {
		t.Errorf("unexpected output: %q", out)
	}
	if loadRules(t, path)[2].Enabled {
		t.Error("rule 3 should be disabled again")
	}
}

func TestRunRulesLint(t *testing.T) {
	testConfig(t)
	fixedClock(t)

	out := captureStdout(t, func() {
		if err := runRulesLint(rulesLintCmd, nil); err != nil {
			t.Errorf("runRulesLint: %v", err)
		}
	})
	if !strings.Contains(out, "OK: 3 rule(s) valid") {
		t.Errorf("unexpected output: %q", out)
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	writeFile(t, path, `rules:
  - id: a
    name: First
    severity: low
    schedule: "0 9 * * *"
  - id: a
    name: Second
    severity: extreme
    schedule: "61 * * * *"
  - name: ""
    severity: high
`)
	setVar(t, &rulesFile, path)

	var err error
	out = captureStdout(t, func() { err = runRulesLint(rulesLintCmd, nil) })
	var ve *rules.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected rules.ValidationError, got %v", err)
	}
	for _, want := range []string{
		`rules[1] "Second": duplicate id a`,
		`rules[1] "Second": unknown severity "extreme"`,
		"rules[2]: missing id",
		"rules[2]: name is required",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("lint output missing %q:\n%s", want, out)
		}
	}
}

func TestLoadRuleBookMissingFile(t *testing.T) {
	testConfig(t)
	setVar(t, &rulesFile, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := loadRuleBook(); HandleError(err) != ExitRuntimeError {
		t.Errorf("expected runtime error, got %v", err)
	}
}
