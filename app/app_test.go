package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/meghashyamc/buzee/config"
	"github.com/meghashyamc/buzee/db/kvdb"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/services/search"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, root string) *App {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("APP_DIR", t.TempDir())
	t.Setenv("SYNC_ROOTS", root)

	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, logger.New())
	require.NoError(t, err)
	return a
}

func TestSyncThenSearch(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	root := t.TempDir()
	assert.NoError(os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world"), 0o644))

	a := newTestApp(t, root)
	defer a.Close()
	assert.Nil(a.Scheduler)

	started, err := a.Sync.Start(ctx)
	assert.NoError(err)
	assert.True(started.Started)
	a.Sync.Wait()

	status, err := a.Sync.Status(ctx)
	assert.NoError(err)
	assert.False(status.Running)
	assert.Equal(kvdb.RunStatusCompleted, status.LastRun.Status)
	assert.Equal(1, status.LastRun.FilesAdded)

	results, err := a.Search.Search(ctx, search.Request{Query: "hello", Limit: 10})
	assert.NoError(err)
	assert.Len(results, 1)
	assert.Equal("a.txt", results[0].Name)
	assert.Equal("txt", results[0].FileType)
}

func TestReopenKeepsDataAndClearsScanFlag(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	t.Setenv("ENV", "test")
	t.Setenv("APP_DIR", t.TempDir())
	t.Setenv("SYNC_ROOTS", t.TempDir())

	cfg, err := config.Load("")
	assert.NoError(err)

	first, err := New(ctx, cfg, logger.New())
	assert.NoError(err)
	assert.True(first.Index.Created())
	assert.NoError(first.Store.SetScanRunning(ctx, true, 1))
	// Simulate a crash: stores closed without the sync being stopped.
	for i := len(first.closers) - 1; i >= 0; i-- {
		assert.NoError(first.closers[i].Close())
	}

	second, err := New(ctx, cfg, logger.New())
	assert.NoError(err)
	defer second.Close()
	assert.False(second.Index.Created())

	running, err := second.Store.IsScanRunning(ctx)
	assert.NoError(err)
	assert.False(running)

	appData, err := second.Store.GetAppData(ctx)
	assert.NoError(err)
	assert.Equal(Version, appData.AppVersion)
}
