package sync

import (
	"context"
	"sync"
	"time"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
)

type starter interface {
	StartIfIdle(ctx context.Context) (StartResult, error)
}

type preferencesReader interface {
	GetUserPreferences(ctx context.Context) (db.UserPreferences, error)
}

// Scheduler starts a sync every interval while automatic background sync is enabled.
// Ticks that find a sync running are skipped.
type Scheduler struct {
	logger   logger.Logger
	starter  starter
	prefs    preferencesReader
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(logger logger.Logger, starter starter, prefs preferencesReader, interval time.Duration) *Scheduler {
	return &Scheduler{
		logger:   logger,
		starter:  starter,
		prefs:    prefs,
		interval: interval,
	}
}

// Start runs the tick loop in the background until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.interval <= 0 {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)
	s.logger.Info("sync scheduler started", "interval", s.interval.String())
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	prefs, err := s.prefs.GetUserPreferences(ctx)
	if err != nil {
		s.logger.Warn("could not read preferences for scheduled sync", "err", err.Error())
		return
	}
	if !prefs.AutomaticBackgroundSync {
		return
	}

	result, err := s.starter.StartIfIdle(ctx)
	if err != nil {
		s.logger.Warn("scheduled sync did not start", "err", err.Error())
		return
	}
	if result.Started {
		s.logger.Info("scheduled sync started", "run_id", result.RunID)
	}
}
