package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/pathpolicy"
)

// reconcile removes rows whose files are gone or now ignored, and drops the content of
// rows ignored for content only.
func (s *Service) reconcile(ctx context.Context, result *Result) error {
	rows, err := s.store.LocalPaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local paths: %w", err)
	}

	var deleted, contentOnly []string
	for _, row := range rows {
		if _, err := os.Lstat(row.Path); errors.Is(err, os.ErrNotExist) {
			deleted = append(deleted, row.Path)
			continue
		}

		switch s.policy.Classify(row.Path) {
		case pathpolicy.IgnoredForIndexing:
			deleted = append(deleted, row.Path)
		case pathpolicy.IgnoredForContentOnly:
			if row.FileType != db.FileTypeFolder {
				contentOnly = append(contentOnly, row.Path)
			}
		}
	}

	if err := s.checkCancelled(ctx); err != nil {
		return err
	}

	if len(deleted) > 0 {
		s.logger.Info("removing deleted or ignored files", "count", len(deleted))
		n, err := s.store.DeleteByPaths(ctx, deleted, false)
		if err != nil {
			return fmt.Errorf("failed to remove deleted files: %w", err)
		}
		result.FilesRemoved += n
	}

	if len(contentOnly) > 0 {
		s.logger.Info("dropping content of files ignored for content", "count", len(contentOnly))
		if _, err := s.store.DeleteByPaths(ctx, contentOnly, true); err != nil {
			return fmt.Errorf("failed to drop ignored content: %w", err)
		}
	}

	return nil
}

// synthesizeFolders adds a folder row for the parent directory of every local file.
func (s *Service) synthesizeFolders(ctx context.Context, result *Result) error {
	rows, err := s.store.LocalPaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local paths: %w", err)
	}
	existing, err := s.store.FolderPaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	missing := map[string]bool{}
	for _, row := range rows {
		if row.FileType == db.FileTypeFolder {
			continue
		}
		dir := filepath.Dir(row.Path)
		if !existing[dir] {
			missing[dir] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}

	folders := make([]string, 0, len(missing))
	for dir := range missing {
		folders = append(folders, dir)
	}
	sort.Strings(folders)

	n, err := s.store.InsertFolders(ctx, folders, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert folders: %w", err)
	}
	result.FoldersAdded += n
	s.logger.Info("added folders", "count", n)
	return nil
}
