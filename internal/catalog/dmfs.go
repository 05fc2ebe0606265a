// Package catalog holds the Snowflake system DMF reference data and the
// dashboard refresh presets.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/dqlens/internal/models"
)

// Direction says how a metric value compares to its threshold
type Direction int

const (
	// AtMost: the threshold is an upper bound (counts, percentages, lag)
	AtMost Direction = iota
	// AtLeast: the threshold is a lower bound (volumes, distinct counts)
	AtLeast
)

func (d Direction) String() string {
	if d == AtLeast {
		return "at least"
	}
	return "at most"
}

// SystemDMF describes a built-in Snowflake data metric function
type SystemDMF struct {
	Name        string          `json:"name"`
	Category    models.Category `json:"category"`
	Description string          `json:"description"`
	Function    string          `json:"function"`
	Direction   Direction       `json:"-"`
}

// https://docs.snowflake.com/en/user-guide/data-quality-system-dmfs#system-dmfs
var systemDMFs = []SystemDMF{
	{Name: "BLANK_COUNT", Category: models.CategoryAccuracy, Description: "Determine how many blank values are in a column.", Function: "SNOWFLAKE.CORE.BLANK_COUNT"},
	{Name: "BLANK_PERCENT", Category: models.CategoryAccuracy, Description: "Determine what percentage of a column's values are blank.", Function: "SNOWFLAKE.CORE.BLANK_PERCENT"},
	{Name: "NULL_COUNT", Category: models.CategoryAccuracy, Description: "Determine how many NULL values are in a column.", Function: "SNOWFLAKE.CORE.NULL_COUNT"},
	{Name: "NULL_PERCENT", Category: models.CategoryAccuracy, Description: "Determine what percentage of a column's values are NULL.", Function: "SNOWFLAKE.CORE.NULL_PERCENT"},

	{Name: "FRESHNESS", Category: models.CategoryFreshness, Description: "Determine the freshness of a table's data based on a timestamp column.", Function: "SNOWFLAKE.CORE.FRESHNESS"},
	{Name: "DATA_METRIC_SCHEDULE_TIME", Category: models.CategoryFreshness, Description: "Define custom freshness metrics.", Function: "SNOWFLAKE.CORE.DATA_METRIC_SCHEDULE_TIME"},

	{Name: "AVG", Category: models.CategoryStatistics, Description: "Determine the average value of a column.", Function: "SNOWFLAKE.CORE.AVG"},
	{Name: "MAX", Category: models.CategoryStatistics, Description: "Determine the maximum value of a column.", Function: "SNOWFLAKE.CORE.MAX"},
	{Name: "MIN", Category: models.CategoryStatistics, Description: "Determine the minimum value of a column.", Function: "SNOWFLAKE.CORE.MIN"},
	{Name: "STDDEV", Category: models.CategoryStatistics, Description: "Determine the standard deviation value for a column.", Function: "SNOWFLAKE.CORE.STDDEV"},

	{Name: "ACCEPTED_VALUES", Category: models.CategoryUniqueness, Description: "Determine whether values in a column match a Boolean expression.", Function: "SNOWFLAKE.CORE.ACCEPTED_VALUES"},
	{Name: "DUPLICATE_COUNT", Category: models.CategoryUniqueness, Description: "Determine the number of duplicate values in a column, including NULL values.", Function: "SNOWFLAKE.CORE.DUPLICATE_COUNT"},
	{Name: "UNIQUE_COUNT", Category: models.CategoryUniqueness, Description: "Determine the number of unique, non-NULL values in a column.", Function: "SNOWFLAKE.CORE.UNIQUE_COUNT", Direction: AtLeast},

	{Name: "ROW_COUNT", Category: models.CategoryVolume, Description: "Determine how many records are in the table or view.", Function: "SNOWFLAKE.CORE.ROW_COUNT", Direction: AtLeast},
}

// SystemDMFs returns a copy of the catalog in documentation order
func SystemDMFs() []SystemDMF {
	out := make([]SystemDMF, len(systemDMFs))
	copy(out, systemDMFs)
	return out
}

// Lookup finds a DMF by name (case-insensitive). A fully-qualified
// function name such as SNOWFLAKE.CORE.NULL_COUNT is accepted too.
func Lookup(name string) (SystemDMF, bool) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	for _, d := range systemDMFs {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return SystemDMF{}, false
}

// ByCategory returns the DMFs in a category, in catalog order
func ByCategory(category models.Category) []SystemDMF {
	var out []SystemDMF
	for _, d := range systemDMFs {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// CountByCategory returns how many DMFs each category holds
func CountByCategory() map[models.Category]int {
	counts := make(map[models.Category]int, len(models.Categories))
	for _, d := range systemDMFs {
		counts[d.Category]++
	}
	return counts
}

// Refresh interval presets for the interactive dashboard
const (
	RefreshRealTime = 30 * time.Second
	RefreshFrequent = 5 * time.Minute
	RefreshStandard = 15 * time.Minute
	RefreshSlow     = time.Hour
)

var refreshPresets = map[string]time.Duration{
	"realtime": RefreshRealTime,
	"frequent": RefreshFrequent,
	"standard": RefreshStandard,
	"slow":     RefreshSlow,
}

// RefreshInterval resolves a preset name to its interval
func RefreshInterval(name string) (time.Duration, error) {
	d, ok := refreshPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown refresh preset %q (must be one of %s)",
			name, strings.Join(RefreshPresetNames(), ", "))
	}
	return d, nil
}

// RefreshPresetNames returns preset names ordered by interval
func RefreshPresetNames() []string {
	names := make([]string, 0, len(refreshPresets))
	for n := range refreshPresets {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return refreshPresets[names[i]] < refreshPresets[names[j]]
	})
	return names
}
