package core

import (
	"cmp"
	"slices"
	"time"

	"github.com/aretw0/moments/pkg/recurrence"
)

// Project computes the display fields of r relative to now. It never mutates r
// and returns the same Entity for the same (r, now) pair.
//
// A record whose date cannot be parsed projects as a past moment with no
// countdown; ValidateRecord keeps such records out of every adapter.
func Project(r Record, now time.Time) Entity {
	e := Entity{
		Record:      r,
		IsRepeating: r.RepeatFrequency.Repeating(),
	}

	anchor, err := recurrence.ParseDate(r.Date)
	if err != nil || !r.RepeatFrequency.Valid() {
		e.Status = recurrence.StatusPast
		return e
	}

	res := recurrence.Calculate(anchor, r.RepeatFrequency, now)
	e.DaysDifference = res.DaysDifference
	e.DisplayText = res.DisplayText
	e.Status = res.Status
	if e.IsRepeating {
		e.NextOccurrence = recurrence.FormatDate(res.Occurrence)
	}
	return e
}

// ProjectAll projects every record against the same instant.
func ProjectAll(records []Record, now time.Time) []Entity {
	out := make([]Entity, len(records))
	for i, r := range records {
		out[i] = Project(r, now)
	}
	return out
}

// SortEntities orders entities for display: today and upcoming moments first,
// nearest first, then past moments with the most recent first.
func SortEntities(entities []Entity) {
	slices.SortStableFunc(entities, CompareEntities)
}

// CompareEntities is the display order used by SortEntities.
func CompareEntities(a, b Entity) int {
	aPast, bPast := a.DaysDifference < 0, b.DaysDifference < 0
	switch {
	case aPast != bPast:
		if aPast {
			return 1
		}
		return -1
	case aPast:
		if c := cmp.Compare(b.DaysDifference, a.DaysDifference); c != 0 {
			return c
		}
	default:
		if c := cmp.Compare(a.DaysDifference, b.DaysDifference); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
