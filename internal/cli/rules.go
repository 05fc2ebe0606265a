package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/dqlens/internal/filter"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/reporter"
	"github.com/ppiankov/dqlens/internal/rules"
	"github.com/ppiankov/dqlens/internal/storage"
	"github.com/spf13/cobra"
)

// now is the clock used for rule timestamps and schedule descriptions
var now = time.Now

var (
	rulesFile   string
	rulesOutput string
	rulesFormat string

	ruleSearch   string
	ruleSeverity string

	ruleName        string
	ruleDescription string
	ruleSQL         string
	ruleThreshold   float64
	ruleSev         string
	ruleSchedule    string
	ruleDisabled    bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List and edit custom SQL quality rules",
	Long: `Rules manages the custom SQL rules of a rule set. The rule set is read
from --rules, or from the loaded snapshot when --rules is not given.

Edits are applied in memory and printed. Use --output to write the updated
rule set to a YAML or JSON file. Rules are never executed.

Example:
  dqlens rules list --severity high
  dqlens rules add --name "No negative totals" --sql "SELECT ..." --output rules.yaml
  dqlens rules toggle "Email Format Validation" --rules rules.yaml --output rules.yaml`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules",
	RunE:  runRulesList,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show a rule including its SQL",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesShow,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a rule",
	RunE:  runRulesAdd,
}

var rulesUpdateCmd = &cobra.Command{
	Use:   "update <id|name>",
	Short: "Update the fields given as flags",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesUpdate,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesDelete,
}

var rulesToggleCmd = &cobra.Command{
	Use:   "toggle <id|name>",
	Short: "Enable a disabled rule or disable an enabled one",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesToggle,
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate every rule (exit 2 when any is invalid)",
	RunE:  runRulesLint,
}

func init() {
	rulesCmd.PersistentFlags().StringVar(&rulesFile, "rules", "",
		"rule set file (default: rules of the loaded snapshot)")
	rulesCmd.PersistentFlags().StringVarP(&rulesOutput, "output", "o", "",
		"write the resulting rule set to this .yaml or .json file")
	rulesCmd.PersistentFlags().StringVarP(&rulesFormat, "format", "f", "text",
		"output format: text or json")

	rulesListCmd.Flags().StringVarP(&ruleSearch, "search", "s", "",
		"case-insensitive name/description search")
	rulesListCmd.Flags().StringVar(&ruleSeverity, "severity", filter.All,
		"severity: critical, high, medium, low")

	defaults := rules.DefaultDraft()
	for _, c := range []*cobra.Command{rulesAddCmd, rulesUpdateCmd} {
		c.Flags().StringVar(&ruleName, "name", "", "rule name")
		c.Flags().StringVar(&ruleDescription, "description", "", "rule description")
		c.Flags().StringVar(&ruleSQL, "sql", "", "SQL query text")
		c.Flags().Float64Var(&ruleThreshold, "threshold", 0, "threshold value")
		c.Flags().StringVar(&ruleSev, "severity", string(defaults.Severity), "severity: critical, high, medium, low")
		c.Flags().StringVar(&ruleSchedule, "schedule", defaults.Schedule, "cron schedule or @daily style descriptor")
		c.Flags().BoolVar(&ruleDisabled, "disabled", false, "create or set the rule disabled")
	}

	rulesCmd.AddCommand(rulesListCmd, rulesShowCmd, rulesAddCmd, rulesUpdateCmd,
		rulesDeleteCmd, rulesToggleCmd, rulesLintCmd)
}

// loadRuleBook reads the rule set from --rules or the snapshot
func loadRuleBook() (*rules.Book, error) {
	var list []models.CustomRule

	if rulesFile != "" {
		var err error
		list, err = storage.LoadRuleSet(rulesFile)
		if err != nil {
			return nil, err
		}
		logVerbose("Loaded %d rules from %s", len(list), rulesFile)
	} else {
		snap, source, err := loadSnapshot(cfg.Snapshot)
		if err != nil {
			return nil, err
		}
		list = snap.Rules
		logVerbose("Loaded %d rules from %s", len(list), source)
	}

	return rules.NewBook(list, rules.WithClock(now), rules.WithAuthor(cfg.Author)), nil
}

// saveRuleBook writes the rule set when --output is set
func saveRuleBook(book *rules.Book) error {
	if rulesOutput == "" {
		logDebug("No --output given, rule set not written")
		return nil
	}
	if err := storage.WriteRuleSet(rulesOutput, book.List()); err != nil {
		return err
	}
	logVerbose("Wrote %d rules to %s", book.Len(), rulesOutput)
	return nil
}

func printRule(rule models.CustomRule) error {
	switch rulesFormat {
	case "json":
		return reporter.NewJSONReporter(os.Stdout, true).Write(rule)
	case "text":
		reporter.NewTextReporter(os.Stdout).WriteRule(rule, now())
		return nil
	default:
		return unsupportedFormat(rulesFormat, "text or json")
	}
}

func runRulesList(cmd *cobra.Command, args []string) error {
	if !isAll(ruleSeverity) && !models.Severity(strings.ToLower(ruleSeverity)).IsValid() {
		return &ValidationError{Message: fmt.Sprintf("unknown severity %q", ruleSeverity)}
	}

	book, err := loadRuleBook()
	if err != nil {
		return err
	}

	list := filter.Rules(book.List(), filter.Criteria{Search: ruleSearch, Severity: ruleSeverity})

	switch rulesFormat {
	case "json":
		return reporter.NewJSONReporter(os.Stdout, true).Write(list)
	case "text":
		reporter.NewTextReporter(os.Stdout).WriteRules(list, now())
		return nil
	default:
		return unsupportedFormat(rulesFormat, "text or json")
	}
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	book, err := loadRuleBook()
	if err != nil {
		return err
	}
	rule, err := book.Resolve(args[0])
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return printRule(rule)
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	book, err := loadRuleBook()
	if err != nil {
		return err
	}

	draft := models.RuleDraft{
		Name:        ruleName,
		Description: ruleDescription,
		SQLQuery:    ruleSQL,
		Threshold:   ruleThreshold,
		Severity:    models.Severity(strings.ToLower(ruleSev)),
		Enabled:     !ruleDisabled,
		Schedule:    ruleSchedule,
	}

	rule, err := book.Create(draft)
	if err != nil {
		return err
	}
	logVerbose("Created rule %s", rule.ID)

	if err := saveRuleBook(book); err != nil {
		return err
	}
	return printRule(rule)
}

func runRulesUpdate(cmd *cobra.Command, args []string) error {
	book, err := loadRuleBook()
	if err != nil {
		return err
	}

	existing, err := book.Resolve(args[0])
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	draft := existing.Draft()
	flags := cmd.Flags()
	if flags.Changed("name") {
		draft.Name = ruleName
	}
	if flags.Changed("description") {
		draft.Description = ruleDescription
	}
	if flags.Changed("sql") {
		draft.SQLQuery = ruleSQL
	}
	if flags.Changed("threshold") {
		draft.Threshold = ruleThreshold
	}
	if flags.Changed("severity") {
		draft.Severity = models.Severity(strings.ToLower(ruleSev))
	}
	if flags.Changed("schedule") {
		draft.Schedule = ruleSchedule
	}
	if flags.Changed("disabled") {
		draft.Enabled = !ruleDisabled
	}

	rule, err := book.Update(existing.ID, draft)
	if err != nil {
		return err
	}

	if err := saveRuleBook(book); err != nil {
		return err
	}
	return printRule(rule)
}

func runRulesDelete(cmd *cobra.Command, args []string) error {
	book, err := loadRuleBook()
	if err != nil {
		return err
	}

	rule, err := book.Resolve(args[0])
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if err := book.Delete(rule.ID); err != nil {
		return err
	}

	if err := saveRuleBook(book); err != nil {
		return err
	}
	fmt.Printf("Deleted rule %s (%s), %d rule(s) left\n", rule.Name, rule.ID, book.Len())
	return nil
}

func runRulesToggle(cmd *cobra.Command, args []string) error {
	book, err := loadRuleBook()
	if err != nil {
		return err
	}

	existing, err := book.Resolve(args[0])
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	rule, err := book.Toggle(existing.ID)
	if err != nil {
		return err
	}

	if err := saveRuleBook(book); err != nil {
		return err
	}

	state := "enabled"
	if !rule.Enabled {
		state = "disabled"
	}
	fmt.Printf("Rule %s (%s) is now %s\n", rule.Name, rule.ID, state)
	return nil
}

func runRulesLint(cmd *cobra.Command, args []string) error {
	book, err := loadRuleBook()
	if err != nil {
		return err
	}

	problems := lintRules(book.List())
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("  ✗ %s\n", p)
		}
		return &rules.ValidationError{Rule: "rule set", Errors: problems}
	}

	fmt.Printf("OK: %d rule(s) valid\n", book.Len())
	return nil
}

// lintRules checks every rule and ID uniqueness
func lintRules(list []models.CustomRule) []string {
	var problems []string
	seen := make(map[string]bool, len(list))

	for i, r := range list {
		ref := fmt.Sprintf("rules[%d]", i)
		if r.Name != "" {
			ref = fmt.Sprintf("%s %q", ref, r.Name)
		}
		if r.ID == "" {
			problems = append(problems, ref+": missing id")
		} else if seen[r.ID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate id %s", ref, r.ID))
		}
		seen[r.ID] = true

		if err := rules.ValidateDraft(r.Draft()); err != nil {
			if ve, ok := err.(*rules.ValidationError); ok {
				for _, e := range ve.Errors {
					problems = append(problems, ref+": "+e)
				}
				continue
			}
			problems = append(problems, ref+": "+err.Error())
		}
	}
	return problems
}
