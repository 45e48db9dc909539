package docdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meghashyamc/buzee/db"
)

func listTable(list db.ListName) (string, error) {
	switch list {
	case db.ListIgnore:
		return "ignore_list", nil
	case db.ListAllow:
		return "allow_list", nil
	}
	return "", fmt.Errorf("unknown list %q", list)
}

func (s *Store) ListEntries(ctx context.Context, list db.ListName) ([]db.ListEntry, error) {
	table, err := listTable(list)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, is_folder, ignore_indexing, ignore_content FROM `+table+` ORDER BY path`)
	if err != nil {
		s.logger.Error("failed to read list", "err", err.Error(), "list", list)
		return nil, err
	}
	defer rows.Close()

	entries := []db.ListEntry{}
	for rows.Next() {
		var entry db.ListEntry
		if err := rows.Scan(&entry.Path, &entry.IsFolder, &entry.IgnoreIndexing, &entry.IgnoreContent); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ReconcileEntry writes entry to list and removes the same path from the other list in one
// transaction. Moving a path to the allow list schedules it for re-parsing.
func (s *Store) ReconcileEntry(ctx context.Context, list db.ListName, entry db.ListEntry) error {
	target, err := listTable(list)
	if err != nil {
		return err
	}
	other, err := listTable(list.Other())
	if err != nil {
		return err
	}

	err = s.runTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+target+` (path, is_folder, ignore_indexing, ignore_content) VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET is_folder = excluded.is_folder, ignore_indexing = excluded.ignore_indexing, ignore_content = excluded.ignore_content`,
			entry.Path, boolToInt(entry.IsFolder), boolToInt(entry.IgnoreIndexing), boolToInt(entry.IgnoreContent)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+other+` WHERE path = ?`, entry.Path); err != nil {
			return err
		}
		if list == db.ListAllow {
			return resetParsed(ctx, tx, entry.Path, entry.IsFolder)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to reconcile list entry", "err", err.Error(), "list", list, "path", entry.Path)
		return err
	}
	return nil
}

func (s *Store) RemoveEntry(ctx context.Context, list db.ListName, path string) error {
	table, err := listTable(list)
	if err != nil {
		return err
	}

	return s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE path = ?`, path)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Resource: string(list) + " list entry", Key: path}
		}
		return nil
	})
}
