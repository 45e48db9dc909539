package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/events"
	"github.com/meghashyamc/buzee/filetypes"
	"github.com/meghashyamc/buzee/pathpolicy"
)

// sweep holds the state of one metadata sweep across all roots.
type sweep struct {
	allowed   map[string]bool
	forbidden []string
	now       int64
	batch     []db.Document
	seen      int
}

func (s *Service) sweepMetadata(ctx context.Context, roots []string, result *Result) error {
	allowed, err := s.filetypes.AllowedExtensions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load allowed file types: %w", err)
	}

	sw := &sweep{
		allowed:   allowed,
		forbidden: s.policy.ForbiddenDirs(),
		now:       s.now().Unix(),
	}

	for _, root := range roots {
		root = filepath.Clean(root)
		s.logger.Info("sweeping folder", "root", root)
		if err := s.walkRoot(ctx, root, sw, result); err != nil {
			return err
		}
	}

	if err := s.flushBatch(ctx, sw, result); err != nil {
		return err
	}

	result.FilesSeen = sw.seen
	s.emit(events.KeyFilesAddedComplete, sw.seen)
	s.logger.Info("metadata sweep finished", "files", sw.seen, "inserted", result.FilesAdded, "updated", result.FilesUpdated)
	return nil
}

func (s *Service) walkRoot(ctx context.Context, root string, sw *sweep, result *Result) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				s.logger.Warn("skipping root that cannot be read", "root", root, "err", err.Error())
				return nil
			}
			s.logger.Error("could not walk through file or directory", "path", path, "err", err.Error())
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			// Skip hidden directories and directories under a forbidden token
			if strings.HasPrefix(info.Name(), ".") || pathpolicy.ContainsAny(path, sw.forbidden) {
				return filepath.SkipDir
			}
			return nil
		}

		doc, ok := s.createDocumentItem(path, info, sw)
		if !ok {
			return nil
		}

		sw.batch = append(sw.batch, doc)
		if len(sw.batch) < metadataBatchSize {
			return nil
		}
		if err := s.flushBatch(ctx, sw, result); err != nil {
			return err
		}
		s.emit(events.KeyFilesAdded, sw.seen)
		return s.checkCancelled(ctx)
	})
}

// createDocumentItem turns a walked file into a document row, or rejects it.
func (s *Service) createDocumentItem(path string, info os.FileInfo, sw *sweep) (db.Document, bool) {
	if !info.Mode().IsRegular() {
		return db.Document{}, false
	}

	name := info.Name()
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return db.Document{}, false
	}

	ext := filetypes.Normalize(filepath.Ext(name))
	if ext == "" || !sw.allowed[ext] {
		return db.Document{}, false
	}

	if s.policy.Classify(path) == pathpolicy.IgnoredForIndexing {
		return db.Document{}, false
	}

	times := fileTimes(info)
	size := info.Size()
	return db.Document{
		SourceDomain: db.SourceDomainLocal,
		Name:         name,
		Path:         path,
		Size:         &size,
		FileType:     ext,
		CreatedAt:    times.created.Unix(),
		LastModified: info.ModTime().Unix(),
		LastOpened:   times.accessed.Unix(),
		LastSynced:   sw.now,
	}, true
}

// flushBatch upserts the pending batch. A failed batch is logged and dropped so the
// rest of the sweep can go on.
func (s *Service) flushBatch(ctx context.Context, sw *sweep, result *Result) error {
	if len(sw.batch) == 0 {
		return nil
	}
	batch := sw.batch
	sw.batch = nil

	upserted, err := s.store.UpsertDocuments(ctx, batch)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		s.logger.Error("failed to store batch of files", "err", err.Error(), "batch_size", len(batch))
		return nil
	}

	sw.seen += len(batch)
	result.FilesAdded += upserted.Inserted
	result.FilesUpdated += upserted.Updated
	return nil
}
