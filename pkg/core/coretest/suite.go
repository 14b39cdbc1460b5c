// Package coretest is a conformance suite every core.Repository adapter runs
// from its own tests.
package coretest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/moments/pkg/core"
)

// Factory returns a fresh, initialized repository. The suite closes it.
type Factory func(t *testing.T) core.Repository

// Record builds a valid record for tests.
func Record(id, title, date string, freq core.RepeatFrequency) core.Record {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return core.Record{
		ID:              id,
		Title:           title,
		Date:            date,
		RepeatFrequency: freq,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

// Run executes the full suite against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo core.Repository)
	}{
		{"RoundTrip", testRoundTrip},
		{"InsertDuplicate", testInsertDuplicate},
		{"InsertInvalid", testInsertInvalid},
		{"FindMissing", testFindMissing},
		{"FindAllFilterAndSort", testFindAllFilterAndSort},
		{"Update", testUpdate},
		{"UpdateMissing", testUpdateMissing},
		{"UpdateInvalid", testUpdateInvalid},
		{"Remove", testRemove},
		{"RemoveAll", testRemoveAll},
		{"ConcurrentUpdateRemove", testConcurrentUpdateRemove},
		{"ConcurrentInserts", testConcurrentInserts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			t.Cleanup(func() { _ = repo.Close() })
			tt.fn(t, repo)
		})
	}
}

func testRoundTrip(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	want := Record("a", "Launch ünïcode 🚀", "2024-02-29", core.RepeatYearly)
	want.Description = "with a description"
	want.UpdatedAt = want.CreatedAt.Add(90 * time.Second)

	require.NoError(t, repo.Insert(ctx, want))

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Date, got.Date)
	assert.Equal(t, want.RepeatFrequency, got.RepeatFrequency)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", got.CreatedAt, want.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %v != %v", got.UpdatedAt, want.UpdatedAt)
}

func testInsertDuplicate(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, Record("a", "first", "2024-01-01", core.RepeatNone)))

	err := repo.Insert(ctx, Record("a", "second", "2024-01-02", core.RepeatNone))
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
}

func testInsertInvalid(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	bad := Record("a", "bad", "2023-02-29", core.RepeatNone)

	err := repo.Insert(ctx, bad)
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, core.KindInvalidDate, ve.Kind)

	_, err = repo.FindByID(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testFindMissing(t *testing.T, repo core.Repository) {
	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testFindAllFilterAndSort(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	seed := []core.Record{
		Record("1", "Dentist", "2024-03-10", core.RepeatNone),
		Record("2", "Birthday", "1990-06-01", core.RepeatYearly),
		Record("3", "Standup", "2024-01-01", core.RepeatDaily),
		Record("4", "Rent", "2024-01-05", core.RepeatMonthly),
	}
	for _, r := range seed {
		require.NoError(t, repo.Insert(ctx, r))
	}

	all, err := repo.FindAll(ctx, core.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "4", "1"}, ids(all))

	byTitle, err := repo.FindAll(ctx, core.Query{Sort: core.Sort{Field: core.SortByTitle, Descending: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4", "1", "2"}, ids(byTitle))

	repeating, err := repo.FindAll(ctx, core.Query{Filter: core.Filter{
		Frequencies: []core.RepeatFrequency{core.RepeatDaily, core.RepeatMonthly},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, ids(repeating))

	window, err := repo.FindAll(ctx, core.Query{Filter: core.Filter{DateFrom: "2024-01-02", DateTo: "2024-12-31"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "1"}, ids(window))

	search, err := repo.FindAll(ctx, core.Query{Filter: core.Filter{Search: "birth"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(search))

	picked, err := repo.FindAll(ctx, core.Query{Filter: core.Filter{IDs: []string{"1", "3", "missing"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, ids(picked))
}

func testUpdate(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	orig := Record("a", "old", "2024-01-01", core.RepeatNone)
	require.NoError(t, repo.Insert(ctx, orig))

	title := "new"
	later := orig.CreatedAt.Add(time.Hour)
	got, err := repo.Update(ctx, "a", core.Patch{Title: &title, UpdatedAt: later})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "2024-01-01", got.Date)
	assert.True(t, got.CreatedAt.Equal(orig.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(later))

	stored, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "new", stored.Title)
	assert.True(t, stored.UpdatedAt.Equal(later))

	// A clock that went backwards must not move updatedAt before createdAt.
	earlier := orig.CreatedAt.Add(-time.Hour)
	title = "newer"
	got, err = repo.Update(ctx, "a", core.Patch{Title: &title, UpdatedAt: earlier})
	require.NoError(t, err)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func testUpdateMissing(t *testing.T, repo core.Repository) {
	title := "x"
	_, err := repo.Update(context.Background(), "nope", core.Patch{Title: &title})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testUpdateInvalid(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, Record("a", "ok", "2024-01-01", core.RepeatNone)))

	empty := ""
	_, err := repo.Update(ctx, "a", core.Patch{Title: &empty})
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, core.KindEmptyTitle, ve.Kind)

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Title)
}

func testRemove(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, Record("a", "gone soon", "2024-01-01", core.RepeatNone)))

	require.NoError(t, repo.Remove(ctx, "a"))
	_, err := repo.FindByID(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.Remove(ctx, "a"), core.ErrNotFound)
}

func testRemoveAll(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	for i, f := range []core.RepeatFrequency{core.RepeatNone, core.RepeatNone, core.RepeatWeekly} {
		require.NoError(t, repo.Insert(ctx, Record(fmt.Sprint(i), "m", "2024-01-01", f)))
	}

	n, err := repo.RemoveAll(ctx, core.Filter{Frequencies: []core.RepeatFrequency{core.RepeatNone}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rest, err := repo.FindAll(ctx, core.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(rest))

	n, err = repo.RemoveAll(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// An update racing a delete on the same record must never resurrect it:
// either the update lands first and the delete removes the result, or the
// delete lands first and the update reports not found.
func testConcurrentUpdateRemove(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	for i := range 20 {
		id := fmt.Sprintf("race-%d", i)
		require.NoError(t, repo.Insert(ctx, Record(id, "before", "2024-01-01", core.RepeatNone)))

		var wg sync.WaitGroup
		var updateErr, removeErr error
		title := "after"
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, updateErr = repo.Update(ctx, id, core.Patch{Title: &title})
		}()
		go func() {
			defer wg.Done()
			removeErr = repo.Remove(ctx, id)
		}()
		wg.Wait()

		require.NoError(t, removeErr)
		if updateErr != nil {
			assert.ErrorIs(t, updateErr, core.ErrNotFound)
		}
		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, core.ErrNotFound, "record %s was resurrected", id)
	}
}

func testConcurrentInserts(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	const n = 25

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Insert(ctx, Record(fmt.Sprintf("c-%02d", i), "concurrent", "2024-01-01", core.RepeatNone))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := repo.FindAll(ctx, core.Query{})
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func ids(records []core.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
