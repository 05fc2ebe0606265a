package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/dqlens/internal/catalog"
	"github.com/ppiankov/dqlens/internal/filter"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/reporter"
	"github.com/spf13/cobra"
)

var (
	browseSearch   string
	browseCategory string
	browseStatus   string
	browseFormat   string
	browseSort     string
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List table health records",
	Long: `Tables lists every table with its overall score, tier, issue count,
row count and last check time.

Example:
  dqlens tables
  dqlens tables --status critical --sort score
  dqlens tables --search sales --category Freshness --format json`,
	RunE: runTables,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List DMF observations",
	Long: `Metrics lists the individual DMF observations behind the table scores.

--search matches table, schema and database names case-insensitively.

Example:
  dqlens metrics --search customer
  dqlens metrics --category Accuracy --status failed`,
	RunE: runMetrics,
}

var dmfsCmd = &cobra.Command{
	Use:   "dmfs",
	Short: "List the Snowflake system DMF catalog",
	RunE:  runDMFs,
}

func init() {
	for _, c := range []*cobra.Command{tablesCmd, metricsCmd} {
		c.Flags().StringVarP(&browseSearch, "search", "s", "",
			"case-insensitive table/schema/database search")
		c.Flags().StringVarP(&browseCategory, "category", "c", filter.All,
			"DMF category: Accuracy, Freshness, Statistics, Uniqueness, Volume")
		c.Flags().StringVarP(&browseFormat, "format", "f", "text",
			"output format: text or json")
	}
	tablesCmd.Flags().StringVar(&browseStatus, "status", filter.All,
		"tier: healthy, warning, critical")
	tablesCmd.Flags().StringVar(&browseSort, "sort", "name",
		"sort order: name, score, issues")
	metricsCmd.Flags().StringVar(&browseStatus, "status", filter.All,
		"status: passed, warning, failed, pending")

	dmfsCmd.Flags().StringVarP(&browseCategory, "category", "c", filter.All,
		"only DMFs in this category")
	dmfsCmd.Flags().StringVarP(&browseFormat, "format", "f", "text",
		"output format: text or json")
}

func runTables(cmd *cobra.Command, args []string) error {
	criteria, err := browseCriteria(func(s string) bool { return models.Tier(strings.ToLower(s)).IsValid() })
	if err != nil {
		return err
	}

	report, _, err := loadReport()
	if err != nil {
		return err
	}

	tables := filter.Tables(report.Tables, criteria)
	if err := sortTables(tables, browseSort); err != nil {
		return err
	}

	logVerbose("%d of %d tables match", len(tables), len(report.Tables))

	switch browseFormat {
	case "json":
		return reporter.NewJSONReporter(os.Stdout, true).Write(tables)
	case "text":
		reporter.NewTextReporter(os.Stdout).WriteTables(tables)
		return nil
	default:
		return unsupportedFormat(browseFormat, "text or json")
	}
}

func runMetrics(cmd *cobra.Command, args []string) error {
	criteria, err := browseCriteria(func(s string) bool { return models.ObservationStatus(strings.ToLower(s)).IsValid() })
	if err != nil {
		return err
	}

	report, _, err := loadReport()
	if err != nil {
		return err
	}

	all := report.Observations()
	observations := filter.Observations(all, criteria)

	logVerbose("%d of %d observations match", len(observations), len(all))

	switch browseFormat {
	case "json":
		return reporter.NewJSONReporter(os.Stdout, true).Write(observations)
	case "text":
		reporter.NewTextReporter(os.Stdout).WriteObservations(observations)
		return nil
	default:
		return unsupportedFormat(browseFormat, "text or json")
	}
}

func runDMFs(cmd *cobra.Command, args []string) error {
	dmfs := catalog.SystemDMFs()
	if browseCategory != "" && !strings.EqualFold(browseCategory, filter.All) {
		cat, ok := models.ParseCategory(browseCategory)
		if !ok {
			return &ValidationError{Message: fmt.Sprintf("unknown category %q", browseCategory)}
		}
		dmfs = catalog.ByCategory(cat)
	}

	switch browseFormat {
	case "json":
		return reporter.NewJSONReporter(os.Stdout, true).Write(dmfs)
	case "text":
		reporter.NewTextReporter(os.Stdout).WriteDMFs(dmfs)
		return nil
	default:
		return unsupportedFormat(browseFormat, "text or json")
	}
}

// browseCriteria validates the shared filter flags
func browseCriteria(validStatus func(string) bool) (filter.Criteria, error) {
	c := filter.Criteria{
		Search:   browseSearch,
		Category: browseCategory,
		Status:   browseStatus,
	}
	if !isAll(c.Category) {
		if _, ok := models.ParseCategory(c.Category); !ok {
			return c, &ValidationError{Message: fmt.Sprintf("unknown category %q", c.Category)}
		}
	}
	if !isAll(c.Status) && !validStatus(c.Status) {
		return c, &ValidationError{Message: fmt.Sprintf("unknown status %q", c.Status)}
	}
	return c, nil
}

// sortTables orders tables in place; ties keep key order
func sortTables(tables []models.TableQuality, by string) error {
	switch by {
	case "", "name":
		return nil
	case "score":
		sort.SliceStable(tables, func(i, j int) bool {
			return tables[i].OverallScore < tables[j].OverallScore
		})
	case "issues":
		sort.SliceStable(tables, func(i, j int) bool {
			return tables[i].IssueCount > tables[j].IssueCount
		})
	default:
		return &ValidationError{Message: fmt.Sprintf("unknown sort %q (use name, score or issues)", by)}
	}
	return nil
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, filter.All)
}

func unsupportedFormat(format, allowed string) error {
	return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use %s)", format, allowed)}
}
