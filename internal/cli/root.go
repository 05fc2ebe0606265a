package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/dqlens/internal/config"
	"github.com/ppiankov/dqlens/internal/policy"
	"github.com/ppiankov/dqlens/internal/rules"
	"github.com/ppiankov/dqlens/internal/validator"
	"github.com/spf13/cobra"
)

const (
	ExitOK           = 0 // Success
	ExitPolicyFail   = 1 // Issues exceed threshold or policy violated
	ExitInvalidInput = 2 // Snapshot, rule or flag validation error
	ExitRuntimeError = 3 // I/O, permissions, or runtime error
)

var (
	// Global config instance
	cfg *config.Config

	// Global flags
	configFile   string
	snapshotFlag string
	verbose      bool
	debug        bool

	buildVersion = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dqlens",
	Short: "dqlens - Snowflake data quality dashboard",
	Long: `dqlens aggregates Snowflake Data Metric Function (DMF) results from
quality snapshots into per-table health scores.

It provides:
- Table health tiers (healthy >= 95%, warning >= 85%, critical below)
- Filtering of metrics, tables and custom SQL rules
- Custom rule management on exported rule sets
- Trend analysis against snapshot history
- CI/CD quality gates with exit codes

Without --snapshot the embedded demo dataset is used.

Quick start:
  dqlens overview
  dqlens tables --status critical
  dqlens metrics --search customer --category Accuracy
  dqlens dashboard

Other commands:
  dqlens rules list
  dqlens explain-score CUSTOMER_DATA
  dqlens diff --fail-new
  dqlens validate snapshot.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return &ValidationError{Message: fmt.Sprintf("failed to load config: %v", err)}
		}

		// Override config with flags if provided
		if snapshotFlag != "" {
			cfg.Snapshot = snapshotFlag
		}
		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
		}

		if cfg.ConfigFile != "" {
			logDebug("Using config file: %s", cfg.ConfigFile)
		}
		return nil
	},
}

// Execute runs the root command and exits with the mapped code
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var violation *PolicyViolationError
		if !errors.As(err, &violation) {
			logError("%v", err)
		}
		os.Exit(HandleError(err))
	}
}

// SetVersion sets the version reported by the version command
func SetVersion(v string) {
	buildVersion = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./dqlens.yaml, ~/.dqlens.yaml or $XDG_CONFIG_HOME/dqlens/dqlens.yaml)")
	rootCmd.PersistentFlags().StringVar(&snapshotFlag, "snapshot", "",
		"snapshot file to load (default: embedded demo dataset)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose)")

	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(dmfsCmd)
	rootCmd.AddCommand(explainScoreCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dqlens %s\n", buildVersion)
		fmt.Println("Snowflake data quality dashboard")
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cliValidation      *ValidationError
		snapshotValidation *validator.ValidationError
		ruleValidation     *rules.ValidationError
		threshold          *ThresholdExceededError
		violation          *PolicyViolationError
	)

	switch {
	case errors.As(err, &cliValidation),
		errors.As(err, &snapshotValidation),
		errors.As(err, &ruleValidation):
		return ExitInvalidInput
	case errors.As(err, &threshold), errors.As(err, &violation):
		return ExitPolicyFail
	default:
		return ExitRuntimeError
	}
}

// ValidationError represents invalid user input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ThresholdExceededError represents a threshold policy failure
type ThresholdExceededError struct {
	IssueCount int
	Threshold  int
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("issue count (%d) exceeds threshold (%d)", e.IssueCount, e.Threshold)
}

// PolicyViolationError carries the violations of a failed quality gate
type PolicyViolationError struct {
	Violations []policy.Violation
}

func (e *PolicyViolationError) Error() string {
	rulesHit := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		rulesHit = append(rulesHit, v.Rule)
	}
	return fmt.Sprintf("policy failed with %d violation(s): %s", len(e.Violations), strings.Join(rulesHit, ", "))
}

// logVerbose prints a message if verbose mode is enabled
func logVerbose(format string, args ...interface{}) {
	if cfg != nil && cfg.Verbose {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

// logDebug prints a message if debug mode is enabled
func logDebug(format string, args ...interface{}) {
	if cfg != nil && cfg.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// logError prints an error message
func logError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
}
