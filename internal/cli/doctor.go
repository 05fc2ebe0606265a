package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/dqlens/internal/catalog"
	"github.com/ppiankov/dqlens/internal/config"
	"github.com/ppiankov/dqlens/internal/policy"
	"github.com/ppiankov/dqlens/internal/storage"
	"github.com/ppiankov/dqlens/internal/validator"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	doctorFormat       string
	doctorSampleConfig bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment readiness and diagnose common problems",
	Long: `Doctor validates your dqlens setup end-to-end:

  1. Config file: found and valid?
  2. Snapshot: readable and valid against dqlens/v1?
  3. History: snapshot_dir/snapshots present, how many snapshots?
  4. Policy: .dqlens-policy.yaml found and valid?
  5. Dashboard: refresh preset and terminal

Use --sample-config to print a commented sample configuration file.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text",
		"output format: text or json")
	doctorCmd.Flags().BoolVar(&doctorSampleConfig, "sample-config", false,
		"print a sample configuration file and exit")
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

type doctorResult struct {
	Checks  []doctorCheck `json:"checks"`
	Summary string        `json:"summary"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if doctorSampleConfig {
		fmt.Print(config.GenerateSampleConfig())
		return nil
	}

	checks := []doctorCheck{
		checkConfig(),
		checkSnapshot(),
		checkHistory(),
		checkPolicy(),
		checkDashboard(),
	}

	result := doctorResult{Checks: checks, Summary: summarizeChecks(checks)}

	switch doctorFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		return writeDoctorText(result)
	default:
		return unsupportedFormat(doctorFormat, "text or json")
	}
}

func summarizeChecks(checks []doctorCheck) string {
	fails, warns := 0, 0
	for _, c := range checks {
		switch c.Status {
		case "fail":
			fails++
		case "warn":
			warns++
		}
	}

	switch {
	case fails > 0:
		return fmt.Sprintf("%d issue(s) found", fails)
	case warns > 0:
		return fmt.Sprintf("ok with %d warning(s)", warns)
	default:
		return "all checks passed"
	}
}

func writeDoctorText(result doctorResult) error {
	icons := map[string]string{
		"ok":   "✓",
		"warn": "△",
		"fail": "✗",
	}

	for _, c := range result.Checks {
		icon := icons[c.Status]
		if c.Detail != "" {
			fmt.Printf("  %s %-12s %s\n", icon, c.Name, c.Detail)
		} else {
			fmt.Printf("  %s %s\n", icon, c.Name)
		}
	}

	fmt.Printf("\n%s\n", result.Summary)
	return nil
}

func checkConfig() doctorCheck {
	if cfg.ConfigFile == "" {
		return doctorCheck{
			Name:   "config",
			Status: "warn",
			Detail: "no config file found (using defaults). Run: dqlens doctor --sample-config > dqlens.yaml",
		}
	}

	return doctorCheck{
		Name:   "config",
		Status: "ok",
		Detail: cfg.ConfigFile,
	}
}

func checkSnapshot() doctorCheck {
	snap, source, err := loadSnapshot(cfg.Snapshot)
	if err != nil {
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			return doctorCheck{
				Name:   "snapshot",
				Status: "fail",
				Detail: fmt.Sprintf("%s: %d problem(s), run: dqlens validate %s", source, len(ve.Errors), source),
			}
		}
		return doctorCheck{Name: "snapshot", Status: "fail", Detail: err.Error()}
	}

	if source == storage.DemoSource {
		return doctorCheck{
			Name:   "snapshot",
			Status: "warn",
			Detail: "no snapshot configured, using the embedded demo dataset",
		}
	}

	detail := fmt.Sprintf("%s (%d observations, %d rules)", source, len(snap.Observations), len(snap.Rules))
	if err := validator.ValidateTimestamp(snap.Timestamp, now()); err != nil {
		return doctorCheck{Name: "snapshot", Status: "warn", Detail: detail + ": " + err.Error()}
	}
	return doctorCheck{Name: "snapshot", Status: "ok", Detail: detail}
}

func checkHistory() doctorCheck {
	store, err := historyStore()
	if err != nil {
		return doctorCheck{Name: "history", Status: "fail", Detail: err.Error()}
	}

	dir := store.SnapshotsDir()
	info, err := os.Stat(dir)
	if err != nil {
		return doctorCheck{
			Name:   "history",
			Status: "warn",
			Detail: fmt.Sprintf("%s not found (trends, diff and summarize need history)", dir),
		}
	}
	if !info.IsDir() {
		return doctorCheck{
			Name:   "history",
			Status: "fail",
			Detail: fmt.Sprintf("%s exists but is not a directory", dir),
		}
	}

	timestamps, err := store.ListSnapshots()
	if err != nil {
		return doctorCheck{Name: "history", Status: "fail", Detail: err.Error()}
	}
	if len(timestamps) == 0 {
		return doctorCheck{
			Name:   "history",
			Status: "warn",
			Detail: fmt.Sprintf("%s holds no snapshots named %s.yaml", dir, storage.TimestampLayout),
		}
	}

	latest := timestamps[len(timestamps)-1].Format("2006-01-02 15:04")
	if _, err := store.GetLatest(); err != nil {
		return doctorCheck{
			Name:   "history",
			Status: "warn",
			Detail: fmt.Sprintf("latest snapshot %s is unreadable: %v", latest, err),
		}
	}

	return doctorCheck{
		Name:   "history",
		Status: "ok",
		Detail: fmt.Sprintf("%d snapshot(s), latest %s", len(timestamps), latest),
	}
}

func checkPolicy() doctorCheck {
	path := policy.FindPolicyFile()
	if path == "" {
		return doctorCheck{
			Name:   "policy",
			Status: "ok",
			Detail: "none (no quality gate beyond fail_threshold)",
		}
	}

	pol, err := policy.LoadFromFile(path)
	if err != nil {
		return doctorCheck{Name: "policy", Status: "fail", Detail: err.Error()}
	}
	if pol == nil {
		return doctorCheck{Name: "policy", Status: "ok", Detail: "none"}
	}

	n := 0
	for _, on := range []bool{
		pol.Rules.MaxIssues != nil,
		pol.Rules.MaxCriticalTables != nil,
		pol.Rules.MaxWarningTables != nil,
		pol.Rules.MinScore != nil,
		pol.Rules.MinAverageScore != nil,
		len(pol.Rules.ForbidFailedCategories) > 0,
		len(pol.Rules.RequireTables) > 0,
		pol.Rules.RequireActiveRules != nil,
	} {
		if on {
			n++
		}
	}

	return doctorCheck{
		Name:   "policy",
		Status: "ok",
		Detail: fmt.Sprintf("%s (%d rule(s))", path, n),
	}
}

func checkDashboard() doctorCheck {
	interval, err := catalog.RefreshInterval(cfg.Refresh)
	if err != nil {
		return doctorCheck{Name: "dashboard", Status: "fail", Detail: err.Error()}
	}

	detail := fmt.Sprintf("refresh %s every %s", strings.ToLower(cfg.Refresh), interval)
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return doctorCheck{
			Name:   "dashboard",
			Status: "warn",
			Detail: detail + ", stdout is not a terminal (dashboard falls back to text)",
		}
	}
	return doctorCheck{Name: "dashboard", Status: "ok", Detail: detail}
}
