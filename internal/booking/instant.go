package booking

import (
	"time"

	"barberbook/internal/model"
)

// InstantLayout renders instants the way the backend stores them: UTC with
// millisecond precision.
const InstantLayout = "2006-01-02T15:04:05.000Z"

// WallClockInstant fixes the wall clock date+"T"+clock+":00" in loc and
// returns the matching instant.
func WallClockInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	h, m, err := model.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), nil
}

// LegacyManualInstant reproduces the historical admin construction: the date is
// read as UTC midnight, moved into loc, and only then given the hour and minute.
// West of UTC this lands on the previous calendar day.
func LegacyManualInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	h, m, err := model.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc), nil
}

// FormatInstant renders t as InstantLayout in UTC.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}
