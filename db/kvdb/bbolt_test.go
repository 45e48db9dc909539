package kvdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/meghashyamc/buzee/logger"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *BoltDB {
	t.Helper()
	store, err := New(logger.New(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltDBKeyValue(t *testing.T) {
	assert := require.New(t)
	store := newTestDB(t)

	assert.NoError(store.Set(MetaBucket, "a", "1"))
	value, err := store.Get(MetaBucket, "a")
	assert.NoError(err)
	assert.Equal("1", value)

	_, err = store.Get(MetaBucket, "missing")
	assert.ErrorIs(err, ErrNotFound)

	assert.ErrorIs(store.Set(MetaBucket, "", "x"), ErrInvalidKey)
	assert.ErrorIs(store.Set("nope", "a", "x"), ErrBucketNotFound)

	all, err := store.GetAll(MetaBucket)
	assert.NoError(err)
	assert.Equal(map[string]string{"a": "1"}, all)

	assert.NoError(store.Delete(MetaBucket, "a"))
	_, err = store.Get(MetaBucket, "a")
	assert.ErrorIs(err, ErrNotFound)
}

func TestRunHistoryListsNewestFirst(t *testing.T) {
	assert := require.New(t)
	history := NewRunHistory(newTestDB(t))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		assert.NoError(history.Save(SyncRun{
			ID:        id,
			Status:    RunStatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := history.List(2)
	assert.NoError(err)
	assert.Len(runs, 2)
	assert.Equal("third", runs[0].ID)
	assert.Equal("second", runs[1].ID)

	assert.NoError(history.Prune(1))
	runs, err = history.List(0)
	assert.NoError(err)
	assert.Len(runs, 1)
	assert.Equal("third", runs[0].ID)

	run, err := history.Get("third")
	assert.NoError(err)
	assert.Equal(RunStatusCompleted, run.Status)

	_, err = history.Get("first")
	assert.ErrorIs(err, ErrNotFound)
}

func TestRunHistoryLastCompleted(t *testing.T) {
	assert := require.New(t)
	store := newTestDB(t)
	history := NewRunHistory(store)

	at, err := history.LastCompleted()
	assert.NoError(err)
	assert.Zero(at)

	finished := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.NoError(history.SetLastCompleted(finished))

	at, err = history.LastCompleted()
	assert.NoError(err)
	assert.Equal(finished.Unix(), at)

	value, err := store.Get(MetaBucket, lastCompletedKey)
	assert.NoError(err)
	assert.Equal("1740830400", value)

	assert.NoError(store.Set(MetaBucket, lastCompletedKey, "soon"))
	_, err = history.LastCompleted()
	assert.Error(err)
}
