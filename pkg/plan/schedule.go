package plan

import (
	"errors"
	"fmt"
	"time"
)

// Schedule errors.
var (
	// ErrRaceDateNotFuture indicates the race date is not strictly after the
	// reference date, so no training week can be produced.
	ErrRaceDateNotFuture = errors.New("race date must be after the reference date")

	// ErrWeekBeyondRace indicates the requested week starts on or after race day.
	ErrWeekBeyondRace = errors.New("week starts on or after the race date")
)

// daysInWeek is the chunk width used to split the runway into training weeks.
const daysInWeek = 7

// NormalizeDate truncates a timestamp to its calendar date, dropping
// time-of-day. All schedule arithmetic is day-granular.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from ref to race.
func DaysBetween(ref, race time.Time) int {
	from := NormalizeDate(ref)
	to := NormalizeDate(race)
	return int(to.Sub(from) / (24 * time.Hour))
}

// TotalWeeks computes how many weekly chunks cover the span from ref to race:
// ceil(days/7). Fails if the race date is not strictly in the future.
func TotalWeeks(ref, race time.Time) (int, error) {
	days := DaysBetween(ref, race)
	if days <= 0 {
		return 0, ErrRaceDateNotFuture
	}
	return (days + daysInWeek - 1) / daysInWeek, nil
}

// WeekChunk returns the inclusive date range covered by the given 1-based
// week. The final chunk is clipped to the race date.
func WeekChunk(ref, race time.Time, week int) (start, end time.Time, err error) {
	if week < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("week index %d out of range", week)
	}

	from := NormalizeDate(ref)
	to := NormalizeDate(race)

	start = from.AddDate(0, 0, (week-1)*daysInWeek)
	if !start.Before(to) {
		return time.Time{}, time.Time{}, ErrWeekBeyondRace
	}

	end = start.AddDate(0, 0, daysInWeek-1)
	if end.After(to) {
		end = to
	}
	return start, end, nil
}
