package scheduler

import (
	"testing"
	"time"

	"github.com/dkotenko/channel-digest/internal/core/domain"
)

func TestWindow(t *testing.T) {
	to := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		period domain.Period
		hourly time.Duration
		want   time.Duration
	}{
		{name: "hourly default", period: domain.PeriodHourly, hourly: 0, want: 65 * time.Minute},
		{name: "hourly configured", period: domain.PeriodHourly, hourly: 90 * time.Minute, want: 90 * time.Minute},
		{name: "daily", period: domain.PeriodDaily, want: 24 * time.Hour},
		{name: "weekly", period: domain.PeriodWeekly, want: 7 * 24 * time.Hour},
		{name: "monthly", period: domain.PeriodMonthly, want: 30 * 24 * time.Hour},
		{name: "unknown period collapses to empty window", period: domain.Period("quarterly"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, end := Window(tt.period, to, tt.hourly)

			if !end.Equal(to) {
				t.Errorf("window end = %v, want %v", end, to)
			}

			if got := end.Sub(from); got != tt.want {
				t.Errorf("window length = %v, want %v", got, tt.want)
			}
		})
	}
}
