package recurrence

import (
	"fmt"
	"time"
)

// DateLayout is the only accepted textual form of a calendar date.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// ParseDate parses a YYYY-MM-DD string into midnight UTC of that date.
// Values that the calendar would roll over (2024-02-30) are rejected.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	if t.Format(DateLayout) != s {
		return time.Time{}, fmt.Errorf("date %q does not round-trip", s)
	}
	return t, nil
}

// FormatDate renders the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Midnight strips the time of day from t. The calendar date is read in t's own
// location and the result is anchored at midnight UTC, so two values produced
// by Midnight always differ by a whole number of days.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from 'from' to 'to'.
func DaysBetween(from, to time.Time) int {
	diff := Midnight(to).Sub(Midnight(from))
	return int(diff.Round(day) / day)
}

// NextMidnight returns the first instant of the calendar day after t, in t's location.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in month m of year.
func DaysIn(year int, m time.Month) int {
	// Day 0 of the following month normalizes to the last day of m.
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate builds year/month/day, moving day back to the last valid day of
// the month instead of letting time.Date overflow into the next month.
func clampedDate(year int, m time.Month, d int) time.Time {
	if last := DaysIn(year, m); d > last {
		d = last
	}
	return time.Date(year, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonths shifts anchor by n months keeping the anchor's day-of-month when
// the target month has it.
func addMonths(anchor time.Time, n int) time.Time {
	y, m, d := anchor.Date()
	total := int(m) - 1 + n
	year := y + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	return clampedDate(year, month, d)
}

// addYears shifts anchor by n years; Feb 29 lands on Feb 28 in common years.
func addYears(anchor time.Time, n int) time.Time {
	y, m, d := anchor.Date()
	return clampedDate(y+n, m, d)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
