package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
	"github.com/stretchr/testify/require"
)

type countingStarter struct {
	calls atomic.Int32
}

func (s *countingStarter) StartIfIdle(ctx context.Context) (StartResult, error) {
	s.calls.Add(1)
	return StartResult{Started: true, RunID: "run"}, nil
}

func TestSchedulerStartsSyncOnTick(t *testing.T) {
	tests := []struct {
		name      string
		automatic bool
		wantCalls bool
	}{
		{name: "automatic sync enabled", automatic: true, wantCalls: true},
		{name: "automatic sync disabled", automatic: false, wantCalls: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert := require.New(t)
			starter := &countingStarter{}
			store := &fakeStore{prefs: db.UserPreferences{AutomaticBackgroundSync: tc.automatic}}
			scheduler := NewScheduler(logger.New(), starter, store, 10*time.Millisecond)

			scheduler.Start(context.Background())
			if tc.wantCalls {
				assert.Eventually(func() bool { return starter.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
			} else {
				time.Sleep(60 * time.Millisecond)
				assert.Zero(starter.calls.Load())
			}
			scheduler.Stop()

			after := starter.calls.Load()
			time.Sleep(30 * time.Millisecond)
			assert.Equal(after, starter.calls.Load())
		})
	}
}

func TestSchedulerStopsWithContext(t *testing.T) {
	starter := &countingStarter{}
	store := &fakeStore{prefs: db.UserPreferences{AutomaticBackgroundSync: true}}
	scheduler := NewScheduler(logger.New(), starter, store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	cancel()
	scheduler.Stop()
}

func TestSchedulerWithoutIntervalDoesNothing(t *testing.T) {
	scheduler := NewScheduler(logger.New(), &countingStarter{}, &fakeStore{}, 0)
	scheduler.Start(context.Background())
	scheduler.Stop()
}
