package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/moments/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/moments/pkg/core"
	"github.com/aretw0/moments/pkg/core/coretest"
)

func openTempRepo(t *testing.T) *Repository {
	t.Helper()
	repo := NewRepository(Config{Path: filepath.Join(t.TempDir(), "moments.db")})
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestConformance(t *testing.T) {
	coretest.Run(t, func(t *testing.T) core.Repository {
		return openTempRepo(t)
	})
}

func TestInitializeRequiresPath(t *testing.T) {
	err := NewRepository(Config{}).Initialize(context.Background())
	assert.Error(t, err)
}

func TestInitializeIsIdempotent(t *testing.T) {
	repo := openTempRepo(t)
	defer repo.Close()
	require.NoError(t, repo.Initialize(context.Background()))
}

func TestPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "moments.db")

	first := NewRepository(Config{Path: path})
	require.NoError(t, first.Initialize(ctx))
	require.NoError(t, first.Insert(ctx, coretest.Record("a", "kept", "2024-05-01", core.RepeatWeekly)))
	require.NoError(t, first.Close())

	second := NewRepository(Config{Path: path})
	require.NoError(t, second.Initialize(ctx))
	defer second.Close()

	got, err := second.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Title)
	assert.Equal(t, core.RepeatWeekly, got.RepeatFrequency)
}

func TestSearchFoldsUnicodeCase(t *testing.T) {
	ctx := context.Background()
	repo := openTempRepo(t)
	defer repo.Close()

	require.NoError(t, repo.Insert(ctx, coretest.Record("a", "ÉTÉ à Paris", "2024-07-01", core.RepeatNone)))
	require.NoError(t, repo.Insert(ctx, coretest.Record("b", "Winter", "2024-12-01", core.RepeatNone)))

	got, err := repo.FindAll(ctx, core.Query{Filter: core.Filter{Search: "été"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	n, err := repo.RemoveAll(ctx, core.Filter{Search: "été"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.RemoveAll(ctx, core.Filter{Search: "nothing matches"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCorruptFrequency(t *testing.T) {
	ctx := context.Background()
	repo := openTempRepo(t)
	defer repo.Close()

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO moments (id, title, description, date, repeat_frequency, created_at, updated_at)
		 VALUES ('x', 't', '', '2024-01-01', 'fortnightly', 0, 0)`)
	require.NoError(t, err)

	_, err = repo.FindByID(ctx, "x")
	assert.ErrorIs(t, err, core.ErrCorrupt)
}

func TestNotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moments.db")
	require.NoError(t, os.WriteFile(path, []byte("this is definitely not a sqlite database file, just text"), 0644))

	err := NewRepository(Config{Path: path}).Initialize(context.Background())
	assert.ErrorIs(t, err, core.ErrCorrupt)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	repo := openTempRepo(t)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	assert.ErrorIs(t, repo.Insert(ctx, coretest.Record("a", "x", "2024-01-01", core.RepeatNone)), core.ErrClosed)
	_, err := repo.FindAll(ctx, core.Query{})
	assert.ErrorIs(t, err, core.ErrClosed)
	assert.ErrorIs(t, repo.Initialize(ctx), core.ErrClosed)
}

func TestState(t *testing.T) {
	repo := openTempRepo(t)
	state, ok := repo.State().(RepositoryState)
	require.True(t, ok)
	assert.True(t, state.Open)
	assert.Equal(t, "sqlite-repository", repo.ComponentType())

	require.NoError(t, repo.Close())
	state = repo.State().(RepositoryState)
	assert.False(t, state.Open)
	assert.True(t, state.Closed)
}

func TestMigrationsApplyOnce(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, applyMigrations(ctx, db, migrations.FS))
	require.NoError(t, applyMigrations(ctx, db, migrations.FS))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+migrationTable).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrationsSkipEmptyUp(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"0001_noop.sql":  {Data: []byte("-- +migrate Up\n\n-- +migrate Down\nDROP TABLE x;")},
		"0002_table.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE t (id INTEGER);")},
		"README.md":      {Data: []byte("ignored")},
	}
	require.NoError(t, applyMigrations(ctx, db, fsys))

	_, err = db.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)")
	assert.NoError(t, err)
}

func TestExtractUpMigration(t *testing.T) {
	assert.Equal(t, "\nA\n", extractUpMigration("-- +migrate Up\nA\n-- +migrate Down\nB"))
	assert.Equal(t, "\nA", extractUpMigration("-- +migrate Up\nA"))
	assert.Equal(t, "RAW", extractUpMigration("RAW"))
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, " ORDER BY date ASC, id ASC", orderClause(core.Sort{}))
	assert.Equal(t, " ORDER BY updated_at DESC, id ASC", orderClause(core.Sort{Field: core.SortByUpdatedAt, Descending: true}))
}

func TestWhereClause(t *testing.T) {
	where, args := whereClause(core.Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = whereClause(core.Filter{
		IDs:         []string{"a", "b"},
		Frequencies: []core.RepeatFrequency{core.RepeatDaily},
		DateFrom:    "2024-01-01",
	})
	assert.Equal(t, " WHERE id IN (?, ?) AND repeat_frequency IN (?) AND date >= ?", where)
	assert.Equal(t, []any{"a", "b", "daily", "2024-01-01"}, args)
}

func TestClassify(t *testing.T) {
	full := errors.New("database or disk is full (13)")
	err := classify(full)
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.ErrorIs(t, err, full, "driver error stays reachable")

	notDB := errors.New("file is not a database (26)")
	err = classify(notDB)
	assert.ErrorIs(t, err, core.ErrCorrupt)
	assert.ErrorIs(t, err, notDB, "driver error stays reachable")

	plain := errors.New("no such table: moments")
	assert.Equal(t, plain, classify(plain))
}
