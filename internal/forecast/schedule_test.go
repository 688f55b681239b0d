package forecast_test

import (
	"testing"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/forecast"

	"github.com/stretchr/testify/assert"
)

func dates(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Format(domain.DateLayout))
	}
	return out
}

func TestOccurrences(t *testing.T) {
	from, to := day(2025, 1, 1), day(2025, 3, 1)

	tests := []struct {
		name     string
		schedule domain.Schedule
		from, to time.Time
		want     []string
	}{
		{
			name:     "defaults to monthly every month",
			schedule: domain.Schedule{},
			want:     []string{"2025-01-01", "2025-02-01"},
		},
		{
			name:     "daily every 20 days",
			schedule: domain.Schedule{Unit: domain.ScheduleDaily, Interval: 20},
			want:     []string{"2025-01-01", "2025-01-21", "2025-02-10"},
		},
		{
			name:     "weekly every 3 weeks anchored before window",
			schedule: domain.Schedule{Unit: domain.ScheduleWeekly, Interval: 3, NextScheduledDate: ptr(day(2024, 12, 20))},
			want:     []string{"2025-01-10", "2025-01-31", "2025-02-21"},
		},
		{
			name:     "yearly outside window",
			schedule: domain.Schedule{Unit: domain.ScheduleYearly, NextScheduledDate: ptr(day(2025, 6, 1))},
			want:     []string{},
		},
		{
			name:     "end date stops the series",
			schedule: domain.Schedule{Unit: domain.ScheduleWeekly, Interval: 1, EndDate: ptr(day(2025, 1, 15))},
			want:     []string{"2025-01-01", "2025-01-08", "2025-01-15"},
		},
		{
			name:     "monthly anchored at month end",
			schedule: domain.Schedule{Unit: domain.ScheduleMonthly, Interval: 1, NextScheduledDate: ptr(day(2024, 11, 30))},
			want:     []string{"2025-01-30", "2025-02-28"},
		},
		{
			name:     "monthly on the 31st clamps to shorter months",
			schedule: domain.Schedule{Unit: domain.ScheduleMonthly, Interval: 1, NextScheduledDate: ptr(day(2025, 1, 31))},
			from:     day(2025, 1, 1),
			to:       day(2025, 4, 1),
			want:     []string{"2025-01-31", "2025-02-28", "2025-03-31"},
		},
		{
			name:     "quarterly on the 31st",
			schedule: domain.Schedule{Unit: domain.ScheduleMonthly, Interval: 3, NextScheduledDate: ptr(day(2024, 8, 31))},
			from:     day(2025, 1, 1),
			to:       day(2025, 12, 1),
			want:     []string{"2025-02-28", "2025-05-31", "2025-08-31", "2025-11-30"},
		},
		{
			name:     "yearly on Feb 29",
			schedule: domain.Schedule{Unit: domain.ScheduleYearly, Interval: 1, NextScheduledDate: ptr(day(2024, 2, 29))},
			from:     day(2024, 1, 1),
			to:       day(2029, 1, 1),
			want:     []string{"2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := from, to
			if !tt.from.IsZero() {
				lo, hi = tt.from, tt.to
			}
			assert.Equal(t, tt.want, dates(forecast.Occurrences(tt.schedule, lo, hi)))
		})
	}
}

func TestOccurrences_EmptyWindow(t *testing.T) {
	assert.Empty(t, forecast.Occurrences(domain.Schedule{}, day(2025, 1, 1), day(2025, 1, 1)))
}
