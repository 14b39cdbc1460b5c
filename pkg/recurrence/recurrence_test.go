package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		freq   Frequency
		today  string
		want   string
	}{
		{"none keeps past anchor", "2020-05-01", None, "2024-01-01", "2020-05-01"},
		{"none keeps future anchor", "2030-05-01", None, "2024-01-01", "2030-05-01"},
		{"future anchor is not advanced", "2030-05-01", Monthly, "2024-01-01", "2030-05-01"},
		{"anchor equal to today", "2024-06-15", Yearly, "2024-06-15", "2024-06-15"},
		{"daily lands on today", "2024-01-01", Daily, "2024-01-10", "2024-01-10"},
		{"weekly rounds up to next period", "2024-01-01", Weekly, "2024-01-10", "2024-01-15"},
		{"weekly exact multiple", "2024-01-01", Weekly, "2024-01-15", "2024-01-15"},
		{"monthly clamps into leap february", "2024-01-31", Monthly, "2024-02-01", "2024-02-29"},
		{"monthly clamps into common february", "2023-01-31", Monthly, "2023-02-01", "2023-02-28"},
		{"monthly restores day after short month", "2024-01-31", Monthly, "2024-03-01", "2024-03-31"},
		{"monthly clamps into thirty day month", "2024-01-31", Monthly, "2024-04-02", "2024-04-30"},
		{"monthly same month later day", "2024-01-10", Monthly, "2024-05-05", "2024-05-10"},
		{"monthly same month earlier day", "2024-01-10", Monthly, "2024-05-11", "2024-06-10"},
		{"monthly crosses year end", "2023-11-20", Monthly, "2023-12-21", "2024-01-20"},
		{"yearly leap anchor into common year", "2024-02-29", Yearly, "2025-01-01", "2025-02-28"},
		{"yearly leap anchor into leap year", "2024-02-29", Yearly, "2028-01-01", "2028-02-29"},
		{"yearly after this year's date", "2000-03-10", Yearly, "2024-03-11", "2025-03-10"},
		{"yearly before this year's date", "2000-03-10", Yearly, "2024-03-09", "2024-03-10"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Next(mustDate(t, tc.anchor), tc.freq, mustDate(t, tc.today))
			assert.Equal(t, tc.want, FormatDate(got))
		})
	}
}

func TestNext_FarPastAnchors(t *testing.T) {
	today := mustDate(t, "2024-07-04")
	anchor := mustDate(t, "1900-01-01")

	assert.Equal(t, "2024-07-04", FormatDate(Next(anchor, Daily, today)))
	assert.Equal(t, "2024-07-08", FormatDate(Next(anchor, Weekly, today)))
	assert.Equal(t, "2024-08-01", FormatDate(Next(anchor, Monthly, today)))
	assert.Equal(t, "2025-01-01", FormatDate(Next(anchor, Yearly, today)))
}

func TestNext_MatchesIterativeStepping(t *testing.T) {
	// Reference implementation: step one period at a time from the anchor.
	step := func(anchor time.Time, f Frequency, today time.Time) time.Time {
		occ := anchor
		for n := 1; occ.Before(today); n++ {
			switch f {
			case Daily:
				occ = anchor.AddDate(0, 0, n)
			case Weekly:
				occ = anchor.AddDate(0, 0, 7*n)
			case Monthly:
				occ = addMonths(anchor, n)
			case Yearly:
				occ = addYears(anchor, n)
			}
		}
		return occ
	}

	anchors := []string{"2020-01-31", "2020-02-29", "2021-08-30", "2019-12-31", "2022-03-01"}
	todays := []string{"2020-02-01", "2021-02-28", "2023-03-01", "2024-02-29", "2024-12-31"}
	for _, a := range anchors {
		for _, d := range todays {
			for _, f := range []Frequency{Daily, Weekly, Monthly, Yearly} {
				anchor, today := mustDate(t, a), mustDate(t, d)
				assert.Equal(t, FormatDate(step(anchor, f, today)), FormatDate(Next(anchor, f, today)),
					"anchor=%s today=%s freq=%s", a, d, f)
			}
		}
	}
}

func TestCalculate(t *testing.T) {
	today := mustDate(t, "2024-03-10")

	t.Run("today", func(t *testing.T) {
		r := Calculate(today, None, today)
		assert.Equal(t, 0, r.DaysDifference)
		assert.Equal(t, "Today", r.DisplayText)
		assert.Equal(t, StatusToday, r.Status)
	})

	t.Run("future singular", func(t *testing.T) {
		r := Calculate(mustDate(t, "2024-03-11"), None, today)
		assert.Equal(t, 1, r.DaysDifference)
		assert.Equal(t, "1 day until", r.DisplayText)
		assert.Equal(t, StatusFuture, r.Status)
	})

	t.Run("future plural", func(t *testing.T) {
		r := Calculate(mustDate(t, "2024-03-20"), None, today)
		assert.Equal(t, 10, r.DaysDifference)
		assert.Equal(t, "10 days until", r.DisplayText)
	})

	t.Run("past singular", func(t *testing.T) {
		r := Calculate(mustDate(t, "2024-03-09"), None, today)
		assert.Equal(t, -1, r.DaysDifference)
		assert.Equal(t, "1 day ago", r.DisplayText)
		assert.Equal(t, StatusPast, r.Status)
	})

	t.Run("past plural", func(t *testing.T) {
		r := Calculate(mustDate(t, "2024-02-29"), None, today)
		assert.Equal(t, -10, r.DaysDifference)
		assert.Equal(t, "10 days ago", r.DisplayText)
	})

	t.Run("repeating on its day is forced to future", func(t *testing.T) {
		r := Calculate(mustDate(t, "2020-03-10"), Yearly, today)
		assert.Equal(t, 0, r.DaysDifference)
		assert.Equal(t, "Today", r.DisplayText)
		assert.Equal(t, StatusFuture, r.Status)
	})
}

func TestCalculate_RepeatingNeverPast(t *testing.T) {
	today := mustDate(t, "2025-01-15")
	for offset := -800; offset <= 40; offset += 3 {
		anchor := today.AddDate(0, 0, offset)
		for _, f := range []Frequency{Daily, Weekly, Monthly, Yearly} {
			r := Calculate(anchor, f, today)
			require.False(t, r.Occurrence.Before(today), "anchor=%s freq=%s", FormatDate(anchor), f)
			require.GreaterOrEqual(t, r.DaysDifference, 0)
			require.Equal(t, StatusFuture, r.Status)
		}
	}
}

func TestCalculate_IgnoresTimeOfDay(t *testing.T) {
	anchor := mustDate(t, "2024-03-11")
	late := time.Date(2024, 3, 10, 23, 59, 0, 0, time.FixedZone("UTC-11", -11*3600))
	early := time.Date(2024, 3, 10, 0, 1, 0, 0, time.FixedZone("UTC+14", 14*3600))

	assert.Equal(t, 1, Calculate(anchor, None, late).DaysDifference)
	assert.Equal(t, 1, Calculate(anchor, None, early).DaysDifference)
}

func TestCalculateDate(t *testing.T) {
	today := mustDate(t, "2024-02-01")

	r, err := CalculateDate("2024-01-31", Monthly, today)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", FormatDate(r.Occurrence))
	assert.Equal(t, 28, r.DaysDifference)

	_, err = CalculateDate("2024-02-30", None, today)
	assert.Error(t, err)

	_, err = CalculateDate("2024-02-01", Frequency("hourly"), today)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2024-02-29")
	assert.NoError(t, err)

	for _, bad := range []string{"2023-02-29", "2024-02-30", "2024-13-01", "2024-2-5", "", "2024-04-31"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got := NextMidnight(time.Date(2024, 12, 31, 22, 15, 0, 0, loc))
	assert.True(t, got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, loc)), got.String())
}

func TestFrequency(t *testing.T) {
	for _, f := range Frequencies {
		assert.True(t, f.Valid())
	}
	assert.False(t, Frequency("").Valid())
	assert.False(t, None.Repeating())
	assert.True(t, Monthly.Repeating())

	var f Frequency
	require.NoError(t, f.UnmarshalText([]byte("weekly")))
	assert.Equal(t, Weekly, f)
	assert.Error(t, f.UnmarshalText([]byte("fortnightly")))
	require.NoError(t, f.UnmarshalText(nil))
	assert.Equal(t, None, f)
}

func BenchmarkCalculate(b *testing.B) {
	anchor := time.Date(1950, 1, 31, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	for b.Loop() {
		Calculate(anchor, Daily, today)
		Calculate(anchor, Monthly, today)
	}
}
