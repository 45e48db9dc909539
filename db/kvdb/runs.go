package kvdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const lastCompletedKey = "last_completed_sync"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// SyncRun records one execution of the sync task.
type SyncRun struct {
	ID           string    `json:"id"`
	Trigger      string    `json:"trigger"`
	Status       RunStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	FilesAdded   int       `json:"files_added"`
	FilesRemoved int       `json:"files_removed"`
	FilesParsed  int       `json:"files_parsed"`
	Error        string    `json:"error,omitempty"`
}

// RunHistory persists sync runs in the runs bucket.
type RunHistory struct {
	db DB
}

func NewRunHistory(db DB) *RunHistory {
	return &RunHistory{db: db}
}

func (h *RunHistory) Save(run SyncRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode sync run: %w", err)
	}
	return h.db.Set(RunsBucket, run.ID, string(data))
}

func (h *RunHistory) Get(id string) (SyncRun, error) {
	value, err := h.db.Get(RunsBucket, id)
	if err != nil {
		return SyncRun{}, err
	}

	var run SyncRun
	if err := json.Unmarshal([]byte(value), &run); err != nil {
		return SyncRun{}, fmt.Errorf("failed to decode sync run %s: %w", id, err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less returns every run.
func (h *RunHistory) List(limit int) ([]SyncRun, error) {
	values, err := h.db.GetAll(RunsBucket)
	if err != nil {
		return nil, err
	}

	runs := make([]SyncRun, 0, len(values))
	for id, value := range values {
		var run SyncRun
		if err := json.Unmarshal([]byte(value), &run); err != nil {
			return nil, fmt.Errorf("failed to decode sync run %s: %w", id, err)
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Prune deletes all but the newest keep runs.
func (h *RunHistory) Prune(keep int) error {
	runs, err := h.List(0)
	if err != nil {
		return err
	}
	if len(runs) <= keep {
		return nil
	}
	for _, run := range runs[keep:] {
		if err := h.db.Delete(RunsBucket, run.ID); err != nil {
			return err
		}
	}
	return nil
}

// SetLastCompleted records when the most recent sync completed.
func (h *RunHistory) SetLastCompleted(at time.Time) error {
	return h.db.Set(MetaBucket, lastCompletedKey, strconv.FormatInt(at.Unix(), 10))
}

// LastCompleted returns the Unix time of the most recent completed sync, or 0 if none has.
func (h *RunHistory) LastCompleted() (int64, error) {
	value, err := h.db.Get(MetaBucket, lastCompletedKey)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	at, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to decode last completed sync %q: %w", value, err)
	}
	return at, nil
}
