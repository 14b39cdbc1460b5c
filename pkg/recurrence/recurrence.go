// Package recurrence computes the next occurrence of a dated moment and the
// human readable countdown attached to it.
//
// Everything here is pure: the caller supplies "today" and receives the same
// answer for the same inputs. Dates are calendar dates represented as
// midnight UTC; see Midnight.
package recurrence

import (
	"fmt"
	"time"
)

// Status classifies an occurrence relative to today.
type Status string

const (
	StatusPast   Status = "past"
	StatusToday  Status = "today"
	StatusFuture Status = "future"
)

// Result is the outcome of a recurrence calculation.
type Result struct {
	Occurrence     time.Time
	DaysDifference int
	DisplayText    string
	Status         Status
}

// Next returns the first occurrence of anchor under f that falls on or after
// today. For None the anchor is returned unchanged, even when it is past.
//
// Daily and weekly offsets are found by integer division; monthly and yearly
// offsets are computed from the calendar distance and corrected at most once,
// so the cost does not grow with the age of the anchor.
func Next(anchor time.Time, f Frequency, today time.Time) time.Time {
	anchor = Midnight(anchor)
	today = Midnight(today)

	if !anchor.Before(today) {
		return anchor
	}

	switch f {
	case None:
		return anchor
	case Daily:
		return advanceFixed(anchor, today, 1)
	case Weekly:
		return advanceFixed(anchor, today, 7)
	case Monthly:
		ay, am, _ := anchor.Date()
		ty, tm, _ := today.Date()
		n := (ty-ay)*12 + int(tm-am)
		occ := addMonths(anchor, n)
		if occ.Before(today) {
			occ = addMonths(anchor, n+1)
		}
		return occ
	case Yearly:
		n := today.Year() - anchor.Year()
		occ := addYears(anchor, n)
		if occ.Before(today) {
			occ = addYears(anchor, n+1)
		}
		return occ
	default:
		panic(fmt.Sprintf("recurrence: unhandled frequency %q", string(f)))
	}
}

func advanceFixed(anchor, today time.Time, period int) time.Time {
	elapsed := DaysBetween(anchor, today)
	steps := (elapsed + period - 1) / period
	return anchor.AddDate(0, 0, steps*period)
}

// Calculate resolves the next occurrence of anchor and describes it relative
// to today. Repeating moments always report StatusFuture.
func Calculate(anchor time.Time, f Frequency, today time.Time) Result {
	today = Midnight(today)
	occ := Next(anchor, f, today)
	diff := DaysBetween(today, occ)

	status := statusOf(diff)
	if f.Repeating() {
		status = StatusFuture
	}

	return Result{
		Occurrence:     occ,
		DaysDifference: diff,
		DisplayText:    DisplayText(diff),
		Status:         status,
	}
}

// CalculateNow is Calculate with today taken from the local clock.
func CalculateNow(anchor time.Time, f Frequency) Result {
	return Calculate(anchor, f, time.Now())
}

// CalculateDate parses an ISO date and runs Calculate on it.
func CalculateDate(date string, f Frequency, today time.Time) (Result, error) {
	anchor, err := ParseDate(date)
	if err != nil {
		return Result{}, err
	}
	if !f.Valid() {
		return Result{}, fmt.Errorf("unknown repeat frequency %q", string(f))
	}
	return Calculate(anchor, f, today), nil
}

// DisplayText renders a signed day difference.
func DisplayText(diff int) string {
	switch {
	case diff == 0:
		return "Today"
	case diff > 0:
		return pluralDays(diff) + " until"
	default:
		return pluralDays(-diff) + " ago"
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func statusOf(diff int) Status {
	switch {
	case diff == 0:
		return StatusToday
	case diff > 0:
		return StatusFuture
	default:
		return StatusPast
	}
}
