package forecast

import (
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Occurrences expands a schedule into the dates that fall in [from, to).
// The series is anchored at NextScheduledDate when the provider supplies
// one, otherwise at from. Each date is computed from the anchor rather
// than the previous date so month-end anchors do not drift. Monthly and
// yearly steps that land past the end of a shorter month fall on its last
// day: an anchor on Jan 31 yields Feb 28 and then Mar 31.
func Occurrences(s domain.Schedule, from, to time.Time) []time.Time {
	from, to = truncateDay(from), truncateDay(to)
	if !from.Before(to) {
		return nil
	}

	anchor := from
	if s.NextScheduledDate != nil {
		anchor = truncateDay(*s.NextScheduledDate)
	}
	interval := s.Interval
	if interval < 1 {
		interval = 1
	}

	var end time.Time
	if s.EndDate != nil {
		end = truncateDay(*s.EndDate)
	}

	var dates []time.Time
	for k := 0; ; k++ {
		d := step(anchor, s.Unit, k*interval)
		if !d.Before(to) {
			break
		}
		if !end.IsZero() && d.After(end) {
			break
		}
		if d.Before(from) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

func step(anchor time.Time, unit domain.ScheduleUnit, n int) time.Time {
	switch unit {
	case domain.ScheduleDaily:
		return anchor.AddDate(0, 0, n)
	case domain.ScheduleWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case domain.ScheduleYearly:
		return addMonths(anchor, 12*n)
	default:
		return addMonths(anchor, n)
	}
}

// addMonths moves t by n calendar months, clamping the day to the length
// of the target month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	d := t.Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
