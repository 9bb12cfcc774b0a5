package scheduler

import (
	"time"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

// Window lengths per period. The hourly window is configurable and defaults
// to 65 minutes, intentionally wider than the firing cadence so messages
// posted around the minute boundary are never lost between windows.
const (
	DefaultHourlyWindow = 65 * time.Minute
	dailyWindow         = 24 * time.Hour
	weeklyWindow        = 7 * 24 * time.Hour
	monthlyWindow       = 30 * 24 * time.Hour
)

// Window computes the [from, to) message window for a firing at to.
// hourlyWindow only applies to the hourly period; non-positive values fall
// back to DefaultHourlyWindow.
func Window(period domain.Period, to time.Time, hourlyWindow time.Duration) (time.Time, time.Time) {
	switch period {
	case domain.PeriodHourly:
		if hourlyWindow <= 0 {
			hourlyWindow = DefaultHourlyWindow
		}

		return to.Add(-hourlyWindow), to
	case domain.PeriodDaily:
		return to.Add(-dailyWindow), to
	case domain.PeriodWeekly:
		return to.Add(-weeklyWindow), to
	case domain.PeriodMonthly:
		return to.Add(-monthlyWindow), to
	default:
		return to, to
	}
}
