// Package schedule provides cron trigger parsing and quiet-hour policy for
// the digest scheduler. The concrete cron engine is hidden behind the
// Trigger interface so it can be swapped without touching pipeline logic.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

// Trigger decides when a job fires. Triggers have minute granularity.
type Trigger interface {
	// NextFireTime returns the first firing time strictly after now.
	NextFireTime(now time.Time) time.Time

	// Matches reports whether the trigger fires during now's minute.
	Matches(now time.Time) bool
}

// CronTrigger is a Trigger backed by a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
type CronTrigger struct {
	expr     string
	schedule cron.Schedule
}

// ParseCron validates a 5-field cron expression and returns its trigger.
func ParseCron(expr string) (*CronTrigger, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}

	return &CronTrigger{expr: expr, schedule: sched}, nil
}

// Expression returns the original cron expression.
func (t *CronTrigger) Expression() string {
	return t.expr
}

// NextFireTime returns the first firing time strictly after now.
func (t *CronTrigger) NextFireTime(now time.Time) time.Time {
	return t.schedule.Next(now)
}

// Matches reports whether the trigger fires during now's minute.
func (t *CronTrigger) Matches(now time.Time) bool {
	minute := now.Truncate(time.Minute)

	return t.schedule.Next(minute.Add(-time.Second)).Equal(minute)
}

// BuildCron generates the 5-field cron expression for a user-level schedule:
// minute for hourly, minute+hour for daily, plus weekday or day-of-month for
// weekly and monthly periods.
func BuildCron(period domain.Period, minute, hour int, weekday time.Weekday, dayOfMonth int) string {
	switch period {
	case domain.PeriodHourly:
		return fmt.Sprintf("%d * * * *", minute)
	case domain.PeriodDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour)
	case domain.PeriodWeekly:
		return fmt.Sprintf("%d %d * * %d", minute, hour, int(weekday))
	case domain.PeriodMonthly:
		return fmt.Sprintf("%d %d %d * *", minute, hour, dayOfMonth)
	default:
		return ""
	}
}
