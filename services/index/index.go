package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/db/searchdb"
	"github.com/meghashyamc/buzee/events"
	"github.com/meghashyamc/buzee/filetypes"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/pathpolicy"
)

var ErrCancelled = errors.New("sync cancelled")

// MetadataStore is what the pipeline needs from the relational store.
type MetadataStore interface {
	UpsertDocuments(ctx context.Context, docs []db.Document) (docdb.UpsertResult, error)
	DeleteByPaths(ctx context.Context, paths []string, contentOnly bool) (int, error)
	LocalPaths(ctx context.Context) ([]docdb.PathRow, error)
	FolderPaths(ctx context.Context) (map[string]bool, error)
	InsertFolders(ctx context.Context, paths []string, now int64) (int, error)
	ListUnparsed(ctx context.Context, fileTypes []string, filter docdb.SizeFilter) ([]db.Document, error)
	MarkParsed(ctx context.Context, ids []int64, parsedAt int64) error
	IsScanRunning(ctx context.Context) (bool, error)
}

// Indexer represents the search database operations needed while parsing content.
type Indexer interface {
	ReplaceByIDs(ctx context.Context, ids []int64, chunks []searchdb.Chunk) error
}

type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

const (
	metadataBatchSize = 500
)

type Service struct {
	logger    logger.Logger
	store     MetadataStore
	indexer   Indexer
	extractor TextExtractor
	policy    *pathpolicy.Policy
	filetypes *filetypes.Registry
	events    events.Emitter
	now       func() time.Time
}

func New(logger logger.Logger, store MetadataStore, indexer Indexer, extractor TextExtractor,
	policy *pathpolicy.Policy, registry *filetypes.Registry, emitter events.Emitter) *Service {
	return &Service{
		logger:    logger,
		store:     store,
		indexer:   indexer,
		extractor: extractor,
		policy:    policy,
		filetypes: registry,
		events:    emitter,
		now:       time.Now,
	}
}

type RunOptions struct {
	Roots []string
	// DetailedScan enables content extraction after the metadata sweep.
	DetailedScan bool
}

type Result struct {
	FilesSeen    int `json:"files_seen"`
	FilesAdded   int `json:"files_added"`
	FilesUpdated int `json:"files_updated"`
	FilesRemoved int `json:"files_removed"`
	FoldersAdded int `json:"folders_added"`
	FilesParsed  int `json:"files_parsed"`
}

// Run sweeps every root for metadata, reconciles the store with the filesystem and the
// ignore rules, then extracts content. It returns ErrCancelled when the scan flag is
// cleared or ctx ends; the partial result is still returned.
func (s *Service) Run(ctx context.Context, opts RunOptions) (Result, error) {
	var result Result

	if err := s.policy.Load(ctx); err != nil {
		return result, fmt.Errorf("failed to load path policy: %w", err)
	}

	if err := s.sweepMetadata(ctx, opts.Roots, &result); err != nil {
		return result, err
	}
	if err := s.reconcile(ctx, &result); err != nil {
		return result, err
	}
	if err := s.synthesizeFolders(ctx, &result); err != nil {
		return result, err
	}

	if !opts.DetailedScan {
		s.logger.Info("detailed scan disabled, skipping content extraction")
		return result, nil
	}

	parsed, err := s.parseContent(ctx)
	result.FilesParsed = parsed
	return result, err
}

// checkCancelled polls the cooperative cancel signal: the scan_running flag in app data.
func (s *Service) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	running, err := s.store.IsScanRunning(ctx)
	if err != nil {
		s.logger.Warn("could not read scan flag", "err", err.Error())
		return nil
	}
	if !running {
		return ErrCancelled
	}
	return nil
}

func (s *Service) emit(key string, count int) {
	if s.events == nil {
		return
	}
	s.events.Emit(events.Event{Name: events.FilesAdded, Key: key, Payload: count})
}
