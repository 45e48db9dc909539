package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/meghashyamc/buzee/config"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/db/kvdb"
	"github.com/meghashyamc/buzee/db/searchdb"
	"github.com/meghashyamc/buzee/events"
	"github.com/meghashyamc/buzee/extract"
	"github.com/meghashyamc/buzee/filetypes"
	"github.com/meghashyamc/buzee/history"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/pathpolicy"
	"github.com/meghashyamc/buzee/services/index"
	"github.com/meghashyamc/buzee/services/search"
	syncsvc "github.com/meghashyamc/buzee/services/sync"
)

const Version = "0.1.0"

// App holds every long-lived component. It is built once per process and passed to the
// commands and the HTTP bridge.
type App struct {
	Config *config.Config
	Logger logger.Logger

	Store     *docdb.Store
	SyncStore *docdb.Store
	Index     *searchdb.BleveDB
	KV        *kvdb.BoltDB
	Runs      *kvdb.RunHistory

	Filetypes *filetypes.Registry
	Policy    *pathpolicy.Policy
	Extractor *extract.Extractor
	History   *history.Reader
	Events    *events.Bus

	Indexer   *index.Service
	Sync      *syncsvc.Controller
	Scheduler *syncsvc.Scheduler
	Search    *search.Service

	closers []io.Closer
}

// New opens the stores under the configured app directory and wires the services. Tasks
// started by the sync controller run under ctx.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	if err := a.setupStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.setupServices(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) setupStorage(ctx context.Context) error {
	var err error

	a.Index, err = searchdb.New(a.Logger, a.Config.GetIndexPath())
	if err != nil {
		a.Logger.Error("error creating searchDB", "err", err.Error())
		return err
	}
	a.closers = append(a.closers, a.Index)

	a.Store, err = docdb.New(ctx, a.Logger, a.Config.GetDBPath(), docdb.WithChunkEraser(a.Index))
	if err != nil {
		a.Logger.Error("error creating document store", "err", err.Error())
		return err
	}
	a.closers = append(a.closers, a.Store)

	a.SyncStore, err = a.Store.OpenDirect()
	if err != nil {
		a.Logger.Error("error opening direct store connection", "err", err.Error())
		return err
	}
	a.closers = append(a.closers, a.SyncStore)

	a.KV, err = kvdb.New(a.Logger, a.Config.GetKVDBPath())
	if err != nil {
		a.Logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	a.closers = append(a.closers, a.KV)
	a.Runs = kvdb.NewRunHistory(a.KV)

	// A fresh index has none of the previously parsed content.
	if a.Index.Created() {
		a.Logger.Info("search index was created, marking every document for parsing")
		if err := a.Store.ResetAllParsed(ctx); err != nil {
			return fmt.Errorf("failed to reset parsed state: %w", err)
		}
	}

	// No task survives a restart.
	if err := a.Store.SetScanRunning(ctx, false, 0); err != nil {
		return fmt.Errorf("failed to reset scan flag: %w", err)
	}
	if err := a.Store.SetAppVersion(ctx, Version); err != nil {
		a.Logger.Warn("could not record app version", "err", err.Error())
	}

	return nil
}

func (a *App) setupServices(ctx context.Context) error {
	a.Filetypes = filetypes.New(a.Logger, a.Store)
	if err := a.Filetypes.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed file types: %w", err)
	}

	a.Policy = pathpolicy.New(a.Logger, a.Store, a.Config.GetForbiddenDirs())
	a.Events = events.NewBus(a.Logger)

	a.Extractor = extract.New(a.Logger, extract.Options{
		OCRCommand:    a.Config.GetOCRCommand(),
		PDFRasterizer: a.Config.GetPDFRasterizer(),
		OCRTimeout:    a.Config.GetOCRTimeout(),
	})

	home := a.Config.GetHistoryHome()
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	a.History = history.New(a.Logger, home)

	a.Indexer = index.New(a.Logger, a.SyncStore, a.Index, a.Extractor, a.Policy, a.Filetypes, a.Events)
	a.Search = search.New(a.Logger, a.Index, a.Store)

	opts := syncsvc.Options{Roots: a.Config.GetSyncRoots()}
	if a.Config.IsHistoryIndexingEnabled() {
		opts.IndexHistory = a.indexHistory
	}
	a.Sync = syncsvc.New(ctx, a.Logger, a.Store, a.Indexer, a.Runs, a.Policy, a.Events, opts)

	if a.Config.IsSchedulerEnabled() {
		a.Scheduler = syncsvc.NewScheduler(a.Logger, a.Sync, a.Store, a.Config.GetSyncInterval())
	}
	return nil
}

func (a *App) indexHistory(ctx context.Context) error {
	n, err := a.History.IndexInto(ctx, a.Index, time.Now().Unix())
	if err != nil {
		return err
	}
	a.Logger.Info("indexed browser history", "visits", n)
	return nil
}

// StartScheduler begins periodic background syncs when they are enabled.
func (a *App) StartScheduler(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Start(ctx)
	}
}

// Close stops the scheduler, clears a running sync and closes the stores in reverse order.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Sync != nil {
		if running, err := a.Store.IsScanRunning(context.Background()); err == nil && running {
			a.Logger.Info("stopping sync before shutdown")
			_ = a.Store.SetScanRunning(context.Background(), false, 0)
		}
		a.Sync.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
