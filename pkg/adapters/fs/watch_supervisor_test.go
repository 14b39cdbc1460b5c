package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/moments/pkg/core"
	"github.com/aretw0/moments/pkg/core/coretest"
)

// A watcher killed under the supervisor comes back and keeps reporting
// moments edited by hand.
func TestWatch_SupervisorRestartsWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	repo := NewRepository(Config{Path: dir, Debounce: 10 * time.Millisecond})
	require.NoError(t, repo.Initialize(ctx))
	defer repo.Close()

	events := make(chan core.Event)
	created := make(chan *watchWorker, 2)
	backoff := supervisor.Backoff{
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		Multiplier:      1,
		ResetDuration:   50 * time.Millisecond,
		MaxRestarts:     2,
		MaxDuration:     time.Second,
	}
	spec := repo.watchSpec("*.json", events, backoff, func(w *watchWorker) { created <- w })

	sup := supervisor.New("moments-watch-test", supervisor.StrategyOneForOne, spec)
	require.NoError(t, sup.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		assert.NoError(t, sup.Stop(stopCtx))
	}()

	first := receiveWorker(t, created)
	require.NoError(t, awaitWatcher(t, first).Close())

	second := receiveWorker(t, created)
	require.NotSame(t, first, second, "supervisor must build a fresh worker")
	awaitWatcher(t, second)
	waitForWatcher(t, repo, true)

	data, err := repo.serializers[".json"].Encode(coretest.Record("dentist", "Dentist", "2025-03-01", core.RepeatNone))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dentist.json"), data, 0644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case e := <-events:
			if e.ID == "dentist" {
				assert.Contains(t, []core.EventType{core.EventCreate, core.EventModify}, e.Type)
				return
			}
		case <-deadline:
			t.Fatal("restarted watcher reported nothing for dentist.json")
		}
	}
}

func receiveWorker(t *testing.T, ch <-chan *watchWorker) *watchWorker {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor built no watch worker")
		return nil
	}
}

// awaitWatcher returns the worker's fsnotify handle once Start has set it.
func awaitWatcher(t *testing.T, w *watchWorker) *fsnotify.Watcher {
	t.Helper()
	require.Eventually(t, func() bool {
		return w.fsWatcher() != nil
	}, 2*time.Second, 10*time.Millisecond, "watcher never initialized")
	return w.fsWatcher()
}

func waitForWatcher(t *testing.T, repo *Repository, active bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		state, ok := repo.State().(RepositoryState)
		return ok && state.WatcherActive == active
	}, 2*time.Second, 10*time.Millisecond, "watcher active state never became %v", active)
}
