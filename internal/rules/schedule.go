package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule is the schedule new rules get when none is given
const DefaultSchedule = "0 9 * * *"

// Five-field cron with optional seconds and @daily style descriptors
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses a rule schedule. An empty schedule is valid and
// means the rule is run on demand only.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	sched, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

// NextRun returns the first scheduled time after from. It reports false for
// empty or unparsable schedules. Rules are never executed; this is only
// used to describe the schedule.
func NextRun(spec string, from time.Time) (time.Time, bool) {
	sched, err := ParseSchedule(spec)
	if err != nil || sched == nil {
		return time.Time{}, false
	}
	return sched.Next(from), true
}

// DescribeSchedule renders a schedule with its next run for listings
func DescribeSchedule(spec string, from time.Time) string {
	if strings.TrimSpace(spec) == "" {
		return "on demand"
	}
	next, ok := NextRun(spec, from)
	if !ok {
		return spec + " (invalid)"
	}
	return fmt.Sprintf("%s (next %s)", spec, next.Format("2006-01-02 15:04"))
}
