package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/moments/pkg/core"
	"github.com/aretw0/moments/pkg/recurrence"
)

var projectionNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func TestProject(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		freq    core.RepeatFrequency
		diff    int
		text    string
		status  recurrence.Status
		next    string
		repeats bool
	}{
		{"today", "2024-06-15", core.RepeatNone, 0, "Today", recurrence.StatusToday, "", false},
		{"tomorrow", "2024-06-16", core.RepeatNone, 1, "1 day until", recurrence.StatusFuture, "", false},
		{"last week", "2024-06-08", core.RepeatNone, -7, "7 days ago", recurrence.StatusPast, "", false},
		{"yearly birthday", "1990-06-20", core.RepeatYearly, 5, "5 days until", recurrence.StatusFuture, "2024-06-20", true},
		{"weekly today", "2024-06-01", core.RepeatWeekly, 0, "Today", recurrence.StatusFuture, "2024-06-15", true},
		{"monthly clamp", "2024-01-31", core.RepeatMonthly, 15, "15 days until", recurrence.StatusFuture, "2024-06-30", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := core.Record{ID: "id", Title: "t", Date: tt.date, RepeatFrequency: tt.freq}
			e := core.Project(rec, projectionNow)

			assert.Equal(t, rec, e.Record)
			assert.Equal(t, tt.diff, e.DaysDifference)
			assert.Equal(t, tt.text, e.DisplayText)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.next, e.NextOccurrence)
			assert.Equal(t, tt.repeats, e.IsRepeating)
		})
	}
}

func TestProject_Deterministic(t *testing.T) {
	rec := core.Record{ID: "id", Title: "t", Date: "2000-02-29", RepeatFrequency: core.RepeatYearly}
	assert.Equal(t, core.Project(rec, projectionNow), core.Project(rec, projectionNow))
}

func TestSortEntities(t *testing.T) {
	dates := map[string]int{
		"2024-06-25": 10,
		"2024-06-10": -5,
		"2024-06-15": 0,
		"2024-06-05": -10,
		"2024-06-20": 5,
	}
	var records []core.Record
	for date := range dates {
		records = append(records, core.Record{ID: date, Title: "m", Date: date, RepeatFrequency: core.RepeatNone})
	}

	entities := core.ProjectAll(records, projectionNow)
	core.SortEntities(entities)

	got := make([]int, len(entities))
	for i, e := range entities {
		got[i] = e.DaysDifference
		assert.Equal(t, dates[e.Date], e.DaysDifference)
	}
	assert.Equal(t, []int{0, 5, 10, -5, -10}, got)
}

func TestSortEntities_TiesByTitle(t *testing.T) {
	entities := core.ProjectAll([]core.Record{
		{ID: "2", Title: "b", Date: "2024-06-20", RepeatFrequency: core.RepeatNone},
		{ID: "1", Title: "a", Date: "2024-06-20", RepeatFrequency: core.RepeatNone},
	}, projectionNow)
	core.SortEntities(entities)
	assert.Equal(t, "a", entities[0].Title)
}
