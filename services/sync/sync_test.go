package sync

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/kvdb"
	"github.com/meghashyamc/buzee/events"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/services/index"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	appData db.AppData
	prefs   db.UserPreferences
}

func (s *fakeStore) GetAppData(ctx context.Context) (db.AppData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appData, nil
}

func (s *fakeStore) GetUserPreferences(ctx context.Context) (db.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs, nil
}

func (s *fakeStore) SetScanRunning(ctx context.Context, running bool, startedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appData.ScanRunning = running
	if startedAt > 0 {
		s.appData.LastScanTime = startedAt
	}
	return nil
}

func (s *fakeStore) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appData.ScanRunning
}

// gatedPipeline blocks until released, then behaves like the real pipeline at a batch
// boundary: a cleared flag means cancelled.
type gatedPipeline struct {
	store   *fakeStore
	started chan struct{}
	release chan struct{}
	opts    index.RunOptions
}

func newGatedPipeline(store *fakeStore) *gatedPipeline {
	return &gatedPipeline{store: store, started: make(chan struct{}), release: make(chan struct{})}
}

func (p *gatedPipeline) Run(ctx context.Context, opts index.RunOptions) (index.Result, error) {
	p.opts = opts
	close(p.started)
	<-p.release
	if !p.store.running() {
		return index.Result{FilesAdded: 500}, index.ErrCancelled
	}
	return index.Result{FilesAdded: 600}, nil
}

type resultPipeline struct {
	result index.Result
	err    error
}

func (p resultPipeline) Run(ctx context.Context, opts index.RunOptions) (index.Result, error) {
	return p.result, p.err
}

type fakePolicy struct {
	disallowed string
}

func (p *fakePolicy) SetUserForbidden(disallowed string) {
	p.disallowed = disallowed
}

func newRuns(t *testing.T) *kvdb.RunHistory {
	t.Helper()
	boltDB, err := kvdb.New(logger.New(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { boltDB.Close() })
	return kvdb.NewRunHistory(boltDB)
}

func syncStatusEvents(recorder *events.Recorder) []any {
	var out []any
	for _, e := range recorder.Events() {
		if e.Name == events.SyncStatus {
			out = append(out, e.Payload)
		}
	}
	return out
}

func TestStartTwiceStopsTheSync(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	store := &fakeStore{prefs: db.UserPreferences{DetailedScan: true}}
	pipeline := newGatedPipeline(store)
	recorder := &events.Recorder{}
	c := New(ctx, logger.New(), store, pipeline, newRuns(t), nil, recorder, Options{Roots: []string{"/data"}})

	started, err := c.Start(ctx)
	assert.NoError(err)
	assert.True(started.Started)
	assert.NotEmpty(started.RunID)
	<-pipeline.started
	assert.True(store.running())

	status, err := c.Status(ctx)
	assert.NoError(err)
	assert.True(status.Running)
	assert.NotZero(status.LastScanTime)

	stopped, err := c.Start(ctx)
	assert.NoError(err)
	assert.True(stopped.Stopped)
	assert.False(store.running())

	// The task has not reached its next batch boundary yet.
	_, err = c.Start(ctx)
	assert.ErrorIs(err, ErrSyncInProgress)

	close(pipeline.release)
	c.Wait()

	status, err = c.Status(ctx)
	assert.NoError(err)
	assert.False(status.Running)
	assert.Empty(status.LastError)
	assert.NotNil(status.LastRun)
	assert.Equal(started.RunID, status.LastRun.ID)
	assert.Equal(kvdb.RunStatusCancelled, status.LastRun.Status)
	assert.Equal(500, status.LastRun.FilesAdded)

	assert.Equal([]string{"/data"}, pipeline.opts.Roots)
	assert.True(pipeline.opts.DetailedScan)
	assert.Equal([]any{"true", "false"}, syncStatusEvents(recorder))
}

func TestCompletedSyncIsRecorded(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	store := &fakeStore{prefs: db.UserPreferences{DisallowedPaths: "Dropbox, Movies"}}
	policy := &fakePolicy{}
	runs := newRuns(t)

	var historyCalls atomic.Int32
	opts := Options{IndexHistory: func(ctx context.Context) error {
		historyCalls.Add(1)
		return nil
	}}
	pipeline := resultPipeline{result: index.Result{FilesAdded: 3, FilesRemoved: 1, FilesParsed: 2}}
	c := New(ctx, logger.New(), store, pipeline, runs, policy, nil, opts)

	started, err := c.Start(ctx)
	assert.NoError(err)
	c.Wait()

	assert.False(store.running())
	assert.Equal("Dropbox, Movies", policy.disallowed)
	assert.Equal(int32(1), historyCalls.Load())

	run, err := runs.Get(started.RunID)
	assert.NoError(err)
	assert.Equal(kvdb.RunStatusCompleted, run.Status)
	assert.Equal(TriggerManual, run.Trigger)
	assert.Equal(3, run.FilesAdded)
	assert.Equal(1, run.FilesRemoved)
	assert.Equal(2, run.FilesParsed)
	assert.False(run.FinishedAt.IsZero())

	status, err := c.Status(ctx)
	assert.NoError(err)
	assert.Equal(run.FinishedAt.Unix(), status.LastCompleted)

	listed, err := c.Runs(10)
	assert.NoError(err)
	assert.Len(listed, 1)
}

func TestFailedSyncReportsError(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	store := &fakeStore{}

	var historyCalls atomic.Int32
	opts := Options{IndexHistory: func(ctx context.Context) error {
		historyCalls.Add(1)
		return nil
	}}
	c := New(ctx, logger.New(), store, resultPipeline{err: errors.New("disk full")}, newRuns(t), nil, nil, opts)

	_, err := c.Start(ctx)
	assert.NoError(err)
	c.Wait()

	status, err := c.Status(ctx)
	assert.NoError(err)
	assert.False(status.Running)
	assert.Equal("disk full", status.LastError)
	assert.Equal(kvdb.RunStatusFailed, status.LastRun.Status)
	assert.Zero(status.LastCompleted)
	assert.Zero(historyCalls.Load())
	assert.False(store.running())
}

func TestStartIfIdleNeverCancels(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	store := &fakeStore{}
	pipeline := newGatedPipeline(store)
	runs := newRuns(t)
	c := New(ctx, logger.New(), store, pipeline, runs, nil, nil, Options{})

	started, err := c.StartIfIdle(ctx)
	assert.NoError(err)
	assert.True(started.Started)
	<-pipeline.started

	again, err := c.StartIfIdle(ctx)
	assert.NoError(err)
	assert.Equal(StartResult{}, again)
	assert.True(store.running())

	close(pipeline.release)
	c.Wait()

	run, err := runs.Get(started.RunID)
	assert.NoError(err)
	assert.Equal(TriggerScheduled, run.Trigger)
	assert.Equal(kvdb.RunStatusCompleted, run.Status)
	assert.Equal(600, run.FilesAdded)
}

func TestStatusFallsBackToStoredRuns(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	runs := newRuns(t)
	assert.NoError(runs.Save(kvdb.SyncRun{
		ID:        "previous",
		Status:    kvdb.RunStatusFailed,
		StartedAt: time.Now().Add(-time.Hour),
		Error:     "index locked",
	}))

	c := New(ctx, logger.New(), &fakeStore{}, resultPipeline{}, runs, nil, nil, Options{})
	status, err := c.Status(ctx)
	assert.NoError(err)
	assert.False(status.Running)
	assert.Equal("previous", status.LastRun.ID)
	assert.Equal("index locked", status.LastError)
}

func TestWaitWithoutTaskReturns(t *testing.T) {
	c := New(context.Background(), logger.New(), &fakeStore{}, resultPipeline{}, newRuns(t), nil, nil, Options{})
	c.Wait()
}
