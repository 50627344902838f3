package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// cronPattern matches cron expressions (5 or 6 fields)
var cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

// Schedule is a refresh cadence resolved to a cron expression.
type Schedule struct {
	Interval    string
	Cron        string
	WithSeconds bool
	// Every is zero for free-form cron expressions.
	Every time.Duration
}

// IsCronExpression reports whether s has the shape of a 5 or 6 field cron expression.
func IsCronExpression(s string) bool {
	return cronPattern.MatchString(s)
}

// ParseSchedule resolves a duration ("5m") or a cron expression ("*/5 * * * *").
// Durations must divide the enclosing minute, hour or day so that runs stay
// aligned to the wall clock.
func ParseSchedule(interval string) (Schedule, error) {
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return Schedule{}, errors.New("empty interval")
	}

	if IsCronExpression(interval) {
		fields := strings.Fields(interval)
		return Schedule{
			Interval:    interval,
			Cron:        interval,
			WithSeconds: len(fields) == 6,
		}, nil
	}
	if len(strings.Fields(interval)) > 1 {
		return Schedule{}, errors.New("cron expression must have 5 or 6 fields")
	}

	every, err := time.ParseDuration(interval)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid duration format: %w", err)
	}
	expr, err := alignedCron(every)
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{
		Interval:    interval,
		Cron:        expr,
		WithSeconds: strings.Count(expr, " ") == 5,
		Every:       every,
	}, nil
}

// alignedCron converts a duration into a clock-aligned cron expression:
// 30s -> "*/30 * * * * *", 5m -> "*/5 * * * *", 2h -> "0 */2 * * *".
func alignedCron(d time.Duration) (string, error) {
	switch {
	case d <= 0:
		return "", fmt.Errorf("interval must be positive (got %s)", d)
	case d < time.Minute:
		if d%time.Second != 0 {
			return "", fmt.Errorf("sub-minute intervals must be whole seconds (got %s)", d)
		}
		n := int(d / time.Second)
		if 60%n != 0 {
			return "", fmt.Errorf("second intervals must divide evenly into 60 (got %ds)", n)
		}
		return fmt.Sprintf("*/%d * * * * *", n), nil
	case d < time.Hour:
		if d%time.Minute != 0 {
			return "", fmt.Errorf("sub-hour intervals must be whole minutes (got %s)", d)
		}
		n := int(d / time.Minute)
		if 60%n != 0 {
			return "", fmt.Errorf("minute intervals must divide evenly into 60 (got %dm)", n)
		}
		return fmt.Sprintf("*/%d * * * *", n), nil
	case d%time.Hour == 0:
		n := int(d / time.Hour)
		if 24%n != 0 {
			return "", fmt.Errorf("hour intervals must divide evenly into 24 (got %dh)", n)
		}
		return fmt.Sprintf("0 */%d * * *", n), nil
	default:
		return "", fmt.Errorf("duration must be whole seconds, minutes, or hours (got %s)", d)
	}
}

// ValidateScheduleInterval accepts an empty interval (no periodic refresh).
func ValidateScheduleInterval(interval string) error {
	if interval == "" {
		return nil
	}
	_, err := ParseSchedule(interval)
	return err
}

// Describe renders the schedule for logs and the status command.
func (s Schedule) Describe(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	if s.Every == 0 {
		return fmt.Sprintf("cron: %s (%s)", s.Cron, loc)
	}
	return fmt.Sprintf("every %s (aligned to clock, cron: %s, %s)", s.Every, s.Cron, loc)
}
