package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/moments/internal/platform"
	"github.com/aretw0/moments/pkg/adapters/fs"
	"github.com/aretw0/moments/pkg/adapters/memory"
	"github.com/aretw0/moments/pkg/adapters/sqlite"
	"github.com/aretw0/moments/pkg/core"
)

func birthday() core.Input {
	return core.Input{Title: "Birthday", Date: "1990-06-01", RepeatFrequency: core.RepeatYearly}
}

func TestNew_Adapters(t *testing.T) {
	tests := []struct {
		adapter string
		file    func(dir, id string) string
	}{
		{"fs", func(dir, id string) string { return filepath.Join(dir, id+".json") }},
		{"sqlite", func(dir, _ string) string { return filepath.Join(dir, platform.DatabaseFile) }},
		{"memory", nil},
	}

	for _, tt := range tests {
		t.Run(tt.adapter, func(t *testing.T) {
			dir := t.TempDir()
			svc, err := platform.New(dir, platform.WithAdapter(tt.adapter))
			require.NoError(t, err)
			defer svc.Close()

			e, err := svc.Create(context.Background(), birthday())
			require.NoError(t, err)
			assert.True(t, e.IsRepeating)

			if tt.file != nil {
				_, err := os.Stat(tt.file(dir, e.ID))
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_YAMLFormat(t *testing.T) {
	dir := t.TempDir()
	svc, err := platform.New(dir, platform.WithFormat("yaml"))
	require.NoError(t, err)
	defer svc.Close()

	e, err := svc.Create(context.Background(), birthday())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, e.ID+".yaml"))
	assert.NoError(t, err)
}

func TestNew_UnknownAdapter(t *testing.T) {
	_, err := platform.New(t.TempDir(), platform.WithAdapter("s3"))
	assert.ErrorContains(t, err, "unknown adapter")
}

func TestNew_InjectedRepository(t *testing.T) {
	repo := memory.NewRepository()
	svc, err := platform.New("ignored", platform.WithRepository(repo))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Create(context.Background(), birthday())
	require.NoError(t, err)

	all, err := repo.FindAll(context.Background(), core.Query{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNew_ReadOnly(t *testing.T) {
	svc, err := platform.New(t.TempDir(), platform.WithReadOnly(true))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Create(context.Background(), birthday())
	assert.ErrorIs(t, err, core.ErrReadOnly)
}

func TestNew_MustExist(t *testing.T) {
	_, err := platform.New(filepath.Join(t.TempDir(), "missing"), platform.WithMustExist(true))
	assert.Error(t, err)
}

func TestNew_WatchRequiresWatchable(t *testing.T) {
	_, err := platform.New("", platform.WithAdapter("memory"), platform.WithWatch("*"))
	assert.Error(t, err)
}

func TestOpen_SelectsAdapter(t *testing.T) {
	dir := t.TempDir()

	repo, err := platform.Open(dir, platform.WithAdapter("sqlite"))
	require.NoError(t, err)
	lite, ok := repo.(*sqlite.Repository)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, platform.DatabaseFile), lite.Path)

	repo, err = platform.Open(filepath.Join(dir, "custom.sqlite"), platform.WithAdapter("sqlite"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.sqlite"), repo.(*sqlite.Repository).Path)

	repo, err = platform.Open(dir)
	require.NoError(t, err)
	assert.IsType(t, &fs.Repository{}, repo)
}

func TestOpen_ForceTemp(t *testing.T) {
	repo, err := platform.Open("sandboxed", platform.WithForceTemp(true))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.TempDir(), "moments-dev", "sandboxed"), repo.(*fs.Repository).Path)
}
