package docdb

import (
	"context"
	"database/sql"

	"github.com/meghashyamc/buzee/db"
)

func (s *Store) Filetypes(ctx context.Context) ([]db.FiletypeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_type, file_type_category, file_type_allowed, added_by_user FROM file_types ORDER BY file_type`)
	if err != nil {
		s.logger.Error("failed to read file types", "err", err.Error())
		return nil, err
	}
	defer rows.Close()

	entries := []db.FiletypeEntry{}
	for rows.Next() {
		var entry db.FiletypeEntry
		if err := rows.Scan(&entry.FileType, &entry.Category, &entry.Allowed, &entry.AddedByUser); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SeedFiletypes inserts entries only when the table is empty, so user choices survive restarts.
func (s *Store) SeedFiletypes(ctx context.Context, entries []db.FiletypeEntry) (bool, error) {
	seeded := false
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_types`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO file_types (file_type, file_type_category, file_type_allowed, added_by_user) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, entry := range entries {
			if _, err := stmt.ExecContext(ctx, entry.FileType, entry.Category, boolToInt(entry.Allowed), boolToInt(entry.AddedByUser)); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		s.logger.Error("failed to seed file types", "err", err.Error())
		return false, err
	}
	return seeded, nil
}

// AddFiletype registers a user extension, allowing it if it was already known.
func (s *Store) AddFiletype(ctx context.Context, entry db.FiletypeEntry) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO file_types (file_type, file_type_category, file_type_allowed, added_by_user) VALUES (?, ?, 1, 1)
			ON CONFLICT(file_type) DO UPDATE SET file_type_category = excluded.file_type_category, file_type_allowed = 1`,
			entry.FileType, entry.Category)
		return err
	})
}

func (s *Store) SetFiletypeAllowed(ctx context.Context, fileType string, allowed bool) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE file_types SET file_type_allowed = ? WHERE file_type = ?`, boolToInt(allowed), fileType)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Resource: "file type", Key: fileType}
		}
		return nil
	})
}
