package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/kvdb"
	"github.com/meghashyamc/buzee/events"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/services/index"
)

var (
	// ErrSyncInProgress is returned when a cancelled task has not finished winding down.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrCancelled      = index.ErrCancelled
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"

	keptRuns = 50
)

// Store is the app state the controller reads and flips.
type Store interface {
	GetAppData(ctx context.Context) (db.AppData, error)
	GetUserPreferences(ctx context.Context) (db.UserPreferences, error)
	SetScanRunning(ctx context.Context, running bool, startedAt int64) error
}

type Pipeline interface {
	Run(ctx context.Context, opts index.RunOptions) (index.Result, error)
}

type RunStore interface {
	Save(run kvdb.SyncRun) error
	List(limit int) ([]kvdb.SyncRun, error)
	Prune(keep int) error
	SetLastCompleted(at time.Time) error
	LastCompleted() (int64, error)
}

// ForbiddenSetter receives the user's disallowed path tokens before every run.
type ForbiddenSetter interface {
	SetUserForbidden(disallowedPaths string)
}

type Options struct {
	Roots []string
	// IndexHistory, when set, runs after a successful sweep.
	IndexHistory func(ctx context.Context) error
}

type StartResult struct {
	Started bool   `json:"started"`
	Stopped bool   `json:"stopped"`
	RunID   string `json:"run_id,omitempty"`
}

// Status times are Unix seconds. LastCompleted is zero until a sync runs to completion.
type Status struct {
	Running       bool          `json:"running"`
	LastScanTime  int64         `json:"last_scan_time"`
	LastCompleted int64         `json:"last_completed"`
	LastError     string        `json:"last_error,omitempty"`
	LastRun       *kvdb.SyncRun `json:"last_run,omitempty"`
}

// Controller owns the single background sync task. The scan_running flag in app data is
// both the "is a sync running" answer and the cancel signal the pipeline polls.
type Controller struct {
	logger   logger.Logger
	ctx      context.Context
	store    Store
	pipeline Pipeline
	runs     RunStore
	policy   ForbiddenSetter
	events   events.Emitter
	opts     Options
	now      func() time.Time

	mu      sync.Mutex
	done    chan struct{}
	lastErr error
	lastRun *kvdb.SyncRun
}

// New returns a controller whose tasks run under ctx; cancelling it aborts any sync.
func New(ctx context.Context, logger logger.Logger, store Store, pipeline Pipeline, runs RunStore,
	policy ForbiddenSetter, emitter events.Emitter, opts Options) *Controller {
	return &Controller{
		logger:   logger,
		ctx:      ctx,
		store:    store,
		pipeline: pipeline,
		runs:     runs,
		policy:   policy,
		events:   emitter,
		opts:     opts,
		now:      time.Now,
	}
}

// Start toggles the sync: it stops a running sync, or starts a new one.
func (c *Controller) Start(ctx context.Context) (StartResult, error) {
	return c.start(ctx, TriggerManual, true)
}

// StartIfIdle starts a sync unless one is running. It never cancels.
func (c *Controller) StartIfIdle(ctx context.Context) (StartResult, error) {
	return c.start(ctx, TriggerScheduled, false)
}

func (c *Controller) start(ctx context.Context, trigger string, toggle bool) (StartResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	appData, err := c.store.GetAppData(ctx)
	if err != nil {
		return StartResult{}, fmt.Errorf("failed to read app data: %w", err)
	}

	if appData.ScanRunning {
		if !toggle {
			return StartResult{}, nil
		}
		c.logger.Info("stopping running sync")
		if err := c.store.SetScanRunning(ctx, false, 0); err != nil {
			return StartResult{}, fmt.Errorf("failed to stop sync: %w", err)
		}
		return StartResult{Stopped: true}, nil
	}

	if c.taskAlive() {
		if !toggle {
			return StartResult{}, nil
		}
		c.logger.Warn("request to sync while the previous sync is still stopping")
		return StartResult{}, ErrSyncInProgress
	}

	startedAt := c.now()
	if err := c.store.SetScanRunning(ctx, true, startedAt.Unix()); err != nil {
		return StartResult{}, fmt.Errorf("failed to start sync: %w", err)
	}

	run := kvdb.SyncRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    kvdb.RunStatusRunning,
		StartedAt: startedAt.UTC(),
	}
	if err := c.runs.Save(run); err != nil {
		c.logger.Warn("could not record sync run", "run_id", run.ID, "err", err.Error())
	}

	c.done = make(chan struct{})
	c.emitStatus(true)
	c.logger.Info("sync started", "run_id", run.ID, "trigger", trigger)

	go c.run(run, c.done)
	return StartResult{Started: true, RunID: run.ID}, nil
}

// taskAlive reports whether a task goroutine has not yet finished. Callers hold mu.
func (c *Controller) taskAlive() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Controller) run(run kvdb.SyncRun, done chan struct{}) {
	result, err := c.execute(c.ctx)

	run.FinishedAt = c.now().UTC()
	run.FilesAdded = result.FilesAdded
	run.FilesRemoved = result.FilesRemoved
	run.FilesParsed = result.FilesParsed
	switch {
	case err == nil:
		run.Status = kvdb.RunStatusCompleted
	case errors.Is(err, ErrCancelled):
		run.Status = kvdb.RunStatusCancelled
	default:
		run.Status = kvdb.RunStatusFailed
		run.Error = err.Error()
		c.logger.Error("sync failed", "run_id", run.ID, "err", err.Error())
	}

	// The flag must be cleared even when the process context is gone.
	if clearErr := c.store.SetScanRunning(context.Background(), false, 0); clearErr != nil {
		c.logger.Error("failed to clear scan flag", "err", clearErr.Error())
	}

	if saveErr := c.runs.Save(run); saveErr != nil {
		c.logger.Warn("could not record sync run", "run_id", run.ID, "err", saveErr.Error())
	}
	if run.Status == kvdb.RunStatusCompleted {
		if markErr := c.runs.SetLastCompleted(run.FinishedAt); markErr != nil {
			c.logger.Warn("could not record completed sync time", "err", markErr.Error())
		}
	}
	if pruneErr := c.runs.Prune(keptRuns); pruneErr != nil {
		c.logger.Warn("could not prune sync runs", "err", pruneErr.Error())
	}

	c.mu.Lock()
	c.lastRun = &run
	if run.Status == kvdb.RunStatusFailed {
		c.lastErr = err
	} else {
		c.lastErr = nil
	}
	c.mu.Unlock()

	c.logger.Info("sync finished", "run_id", run.ID, "status", string(run.Status),
		"files_added", run.FilesAdded, "files_removed", run.FilesRemoved, "files_parsed", run.FilesParsed)
	c.emitStatus(false)
	close(done)
}

func (c *Controller) execute(ctx context.Context) (index.Result, error) {
	prefs, err := c.store.GetUserPreferences(ctx)
	if err != nil {
		return index.Result{}, fmt.Errorf("failed to read user preferences: %w", err)
	}
	if c.policy != nil {
		c.policy.SetUserForbidden(prefs.DisallowedPaths)
	}

	result, err := c.pipeline.Run(ctx, index.RunOptions{Roots: c.opts.Roots, DetailedScan: prefs.DetailedScan})
	if err != nil {
		return result, err
	}

	if c.opts.IndexHistory != nil {
		if err := c.opts.IndexHistory(ctx); err != nil {
			c.logger.Warn("could not index browser history", "err", err.Error())
		}
	}
	return result, nil
}

// Wait blocks until the current task, if any, has finished.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (c *Controller) Status(ctx context.Context) (Status, error) {
	appData, err := c.store.GetAppData(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read app data: %w", err)
	}

	c.mu.Lock()
	status := Status{
		Running:      appData.ScanRunning || c.taskAlive(),
		LastScanTime: appData.LastScanTime,
		LastRun:      c.lastRun,
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()

	if status.LastCompleted, err = c.runs.LastCompleted(); err != nil {
		c.logger.Warn("could not read completed sync time", "err", err.Error())
	}

	if status.LastRun == nil {
		runs, err := c.runs.List(1)
		if err != nil {
			c.logger.Warn("could not list sync runs", "err", err.Error())
		} else if len(runs) > 0 {
			status.LastRun = &runs[0]
			status.LastError = runs[0].Error
		}
	}
	return status, nil
}

// Runs lists past syncs, newest first.
func (c *Controller) Runs(limit int) ([]kvdb.SyncRun, error) {
	return c.runs.List(limit)
}

func (c *Controller) emitStatus(running bool) {
	if c.events == nil {
		return
	}
	payload := "false"
	if running {
		payload = "true"
	}
	c.events.Emit(events.Event{Name: events.SyncStatus, Payload: payload})
}
