package docdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/meghashyamc/buzee/db"
)

const documentColumns = `id, source_domain, created_at, name, path, size, file_type, last_modified, last_opened,
	last_synced, last_parsed, is_pinned, frecency_rank, frecency_last_accessed, comment`

// frecencyHalfLife is the decay period of a document's open count.
const frecencyHalfLife = 7 * 24 * time.Hour

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (db.Document, error) {
	var (
		doc     db.Document
		size    sql.NullInt64
		comment sql.NullString
	)
	if err := row.Scan(&doc.ID, &doc.SourceDomain, &doc.CreatedAt, &doc.Name, &doc.Path, &size, &doc.FileType,
		&doc.LastModified, &doc.LastOpened, &doc.LastSynced, &doc.LastParsed, &doc.IsPinned,
		&doc.FrecencyRank, &doc.FrecencyLastAccessed, &comment); err != nil {
		return db.Document{}, err
	}
	if size.Valid {
		doc.Size = &size.Int64
	}
	if comment.Valid {
		doc.Comment = &comment.String
	}
	return doc, nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]db.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []db.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func nullableSize(size *int64) any {
	if size == nil {
		return nil
	}
	return *size
}

func sameSize(a *int64, b sql.NullInt64) bool {
	if a == nil {
		return !b.Valid
	}
	return b.Valid && *a == b.Int64
}

// UpsertDocuments writes a batch in one transaction. Rows keyed by (source_domain, path) are
// inserted when new and updated only when modification time, access time or size changed.
func (s *Store) UpsertDocuments(ctx context.Context, docs []db.Document) (UpsertResult, error) {
	var result UpsertResult
	if len(docs) == 0 {
		return result, nil
	}

	err := s.runTx(ctx, func(tx *sql.Tx) error {
		result = UpsertResult{}

		lookup, err := tx.PrepareContext(ctx, `SELECT id, last_modified, last_opened, size FROM document WHERE source_domain = ? AND path = ?`)
		if err != nil {
			return err
		}
		defer lookup.Close()

		insert, err := tx.PrepareContext(ctx, `INSERT INTO document
			(source_domain, created_at, name, path, size, file_type, last_modified, last_opened, last_synced, last_parsed, is_pinned, frecency_rank, frecency_last_accessed, comment)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer insert.Close()

		update, err := tx.PrepareContext(ctx, `UPDATE document
			SET name = ?, size = ?, file_type = ?, last_modified = ?, last_opened = ?, last_synced = ?, created_at = ?
			WHERE id = ?`)
		if err != nil {
			return err
		}
		defer update.Close()

		for _, doc := range docs {
			var (
				id           int64
				lastModified int64
				lastOpened   int64
				size         sql.NullInt64
			)
			err := lookup.QueryRowContext(ctx, doc.SourceDomain, doc.Path).Scan(&id, &lastModified, &lastOpened, &size)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := insert.ExecContext(ctx, doc.SourceDomain, doc.CreatedAt, doc.Name, doc.Path, nullableSize(doc.Size),
					doc.FileType, doc.LastModified, doc.LastOpened, doc.LastSynced, doc.LastParsed, boolToInt(doc.IsPinned),
					doc.FrecencyRank, doc.FrecencyLastAccessed, doc.Comment); err != nil {
					return fmt.Errorf("failed to insert %s: %w", doc.Path, err)
				}
				result.Inserted++
			case err != nil:
				return fmt.Errorf("failed to look up %s: %w", doc.Path, err)
			default:
				if lastModified == doc.LastModified && lastOpened == doc.LastOpened && sameSize(doc.Size, size) {
					continue
				}
				if _, err := update.ExecContext(ctx, doc.Name, nullableSize(doc.Size), doc.FileType, doc.LastModified,
					doc.LastOpened, doc.LastSynced, doc.CreatedAt, id); err != nil {
					return fmt.Errorf("failed to update %s: %w", doc.Path, err)
				}
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to upsert documents", "err", err.Error(), "batch_size", len(docs))
		return UpsertResult{}, err
	}

	return result, nil
}

// DeleteByPaths removes documents by path. Chunks are erased from the inverted index first. With
// contentOnly set, the document rows survive and only their full-text entries are dropped.
func (s *Store) DeleteByPaths(ctx context.Context, paths []string, contentOnly bool) (int, error) {
	deleted := 0
	for _, part := range splitStrings(paths, maxParamsPerStatement) {
		ids, err := s.idsForPaths(ctx, part)
		if err != nil {
			s.logger.Error("failed to resolve paths for deletion", "err", err.Error())
			return deleted, err
		}
		if len(ids) == 0 {
			continue
		}

		if s.eraser != nil {
			if err := s.eraser.DeleteByIDs(ctx, ids); err != nil {
				s.logger.Error("failed to erase chunks", "err", err.Error(), "count", len(ids))
				return deleted, fmt.Errorf("failed to erase chunks: %w", err)
			}
		}

		var query string
		if contentOnly {
			query = `DELETE FROM metadata_fts WHERE rowid IN (
				SELECT id FROM metadata WHERE source_table = 'document' AND source_id IN (` + placeholders(len(ids)) + `))`
		} else {
			query = `DELETE FROM document WHERE id IN (` + placeholders(len(ids)) + `)`
		}

		err = s.runTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, query, int64Args(ids)...)
			return err
		})
		if err != nil {
			s.logger.Error("failed to delete documents", "err", err.Error(), "content_only", contentOnly)
			return deleted, err
		}
		deleted += len(ids)
	}

	return deleted, nil
}

func (s *Store) idsForPaths(ctx context.Context, paths []string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM document WHERE path IN (`+placeholders(len(paths))+`)`, stringArgs(paths)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListUnparsed returns local documents of the given types whose content was never parsed or
// has changed since, smallest first.
func (s *Store) ListUnparsed(ctx context.Context, fileTypes []string, filter SizeFilter) ([]db.Document, error) {
	if len(fileTypes) == 0 {
		return []db.Document{}, nil
	}

	query := `SELECT ` + documentColumns + ` FROM document
		WHERE source_domain = ? AND file_type IN (` + placeholders(len(fileTypes)) + `)
		AND (last_parsed = 0 OR last_modified > last_parsed)`
	args := append([]any{db.SourceDomainLocal}, stringArgs(fileTypes)...)

	if filter.Min > 0 {
		query += ` AND size >= ?`
		args = append(args, filter.Min)
	}
	if filter.Max > 0 {
		query += ` AND size < ?`
		args = append(args, filter.Max)
	}
	query += ` ORDER BY size ASC, id ASC`

	docs, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list unparsed documents", "err", err.Error())
		return nil, err
	}
	return docs, nil
}

func (s *Store) MarkParsed(ctx context.Context, ids []int64, parsedAt int64) error {
	for _, part := range splitInt64s(ids, maxParamsPerStatement) {
		args := append([]any{parsedAt}, int64Args(part)...)
		err := s.runTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `UPDATE document SET last_parsed = ? WHERE id IN (`+placeholders(len(part))+`)`, args...)
			return err
		})
		if err != nil {
			s.logger.Error("failed to mark documents parsed", "err", err.Error())
			return err
		}
	}
	return nil
}

// ResetParsed schedules path, or every file under it when it is a folder, for re-parsing.
func (s *Store) ResetParsed(ctx context.Context, path string, isFolder bool) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		return resetParsed(ctx, tx, path, isFolder)
	})
}

// ResetAllParsed schedules every local file for re-parsing, used when the inverted index was rebuilt.
func (s *Store) ResetAllParsed(ctx context.Context) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE document SET last_parsed = 0 WHERE source_domain = ? AND file_type != ?`,
			db.SourceDomainLocal, db.FileTypeFolder)
		return err
	})
}

func resetParsed(ctx context.Context, tx *sql.Tx, path string, isFolder bool) error {
	if !isFolder {
		_, err := tx.ExecContext(ctx, `UPDATE document SET last_parsed = 0 WHERE path = ? AND file_type != ?`, path, db.FileTypeFolder)
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE document SET last_parsed = 0 WHERE (path = ? OR path LIKE ? ESCAPE '\') AND file_type != ?`,
		path, likePrefix(path), db.FileTypeFolder)
	return err
}

func likePrefix(path string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(path)
	return escaped + "%"
}

// Recent lists the most recently opened local files.
func (s *Store) Recent(ctx context.Context, fileTypes []string, page, limit int) ([]db.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM document WHERE file_type != ?`
	args := []any{db.FileTypeFolder}
	if len(fileTypes) > 0 {
		query += ` AND file_type IN (` + placeholders(len(fileTypes)) + `)`
		args = append(args, stringArgs(fileTypes)...)
	}
	query += ` ORDER BY last_opened DESC, last_modified DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, page*limit)

	docs, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list recent documents", "err", err.Error())
		return nil, err
	}
	return docs, nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (db.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM document WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Document{}, &NotFoundError{Resource: "document", Key: fmt.Sprint(id)}
	}
	return doc, err
}

func (s *Store) GetDocumentByPath(ctx context.Context, sourceDomain, path string) (db.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM document WHERE source_domain = ? AND path = ?`, sourceDomain, path)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Document{}, &NotFoundError{Resource: "document", Key: path}
	}
	return doc, err
}

// DocumentsBySourceIDs loads the documents for ids, keyed by id. Missing ids are absent from the map.
func (s *Store) DocumentsBySourceIDs(ctx context.Context, ids []int64) (map[int64]db.Document, error) {
	docs := make(map[int64]db.Document, len(ids))
	for _, part := range splitInt64s(ids, maxParamsPerStatement) {
		found, err := s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM document WHERE id IN (`+placeholders(len(part))+`)`, int64Args(part)...)
		if err != nil {
			s.logger.Error("failed to load documents", "err", err.Error())
			return nil, err
		}
		for _, doc := range found {
			docs[doc.ID] = doc
		}
	}
	return docs, nil
}

// LocalPaths lists every local row, folders included, for reconciliation against the filesystem.
func (s *Store) LocalPaths(ctx context.Context) ([]PathRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, file_type FROM document WHERE source_domain = ?`, db.SourceDomainLocal)
	if err != nil {
		s.logger.Error("failed to list local paths", "err", err.Error())
		return nil, err
	}
	defer rows.Close()

	var paths []PathRow
	for rows.Next() {
		var p PathRow
		if err := rows.Scan(&p.ID, &p.Path, &p.FileType); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// FolderPaths returns the set of synthesized folder rows.
func (s *Store) FolderPaths(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM document WHERE source_domain = ? AND file_type = ?`,
		db.SourceDomainLocal, db.FileTypeFolder)
	if err != nil {
		s.logger.Error("failed to list folders", "err", err.Error())
		return nil, err
	}
	defer rows.Close()

	folders := map[string]bool{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		folders[path] = true
	}
	return folders, rows.Err()
}

// InsertFolders adds folder rows for paths. Folders have no size and never need parsing.
func (s *Store) InsertFolders(ctx context.Context, paths []string, now int64) (int, error) {
	docs := make([]db.Document, 0, len(paths))
	for _, path := range paths {
		docs = append(docs, db.Document{
			SourceDomain: db.SourceDomainLocal,
			Name:         filepath.Base(path),
			Path:         path,
			FileType:     db.FileTypeFolder,
			CreatedAt:    now,
			LastSynced:   now,
			LastParsed:   now,
		})
	}

	result, err := s.UpsertDocuments(ctx, docs)
	if err != nil {
		return 0, err
	}
	return result.Inserted, nil
}

func (s *Store) CountDocuments(ctx context.Context, sourceDomain string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document WHERE source_domain = ?`, sourceDomain).Scan(&count)
	return count, err
}

// StatsByFiletype counts local documents per file type, most common first.
func (s *Store) StatsByFiletype(ctx context.Context) ([]db.FiletypeCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_type, COUNT(*) AS count FROM document
		WHERE source_domain = ? GROUP BY file_type ORDER BY count DESC, file_type ASC`, db.SourceDomainLocal)
	if err != nil {
		s.logger.Error("failed to collect file type stats", "err", err.Error())
		return nil, err
	}
	defer rows.Close()

	stats := []db.FiletypeCount{}
	for rows.Next() {
		var stat db.FiletypeCount
		if err := rows.Scan(&stat.FileType, &stat.Count); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// TitleMatches suggests up to limit distinct titles whose words start with the words of query.
func (s *Store) TitleMatches(ctx context.Context, query string, limit int) ([]string, error) {
	expr := PrefixExpression("title", Terms(query))
	if expr == "" {
		return []string{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT title FROM metadata_fts WHERE metadata_fts MATCH ? ORDER BY rank LIMIT ?`, expr, limit*4)
	if err != nil {
		s.logger.Error("failed to match titles", "err", err.Error(), "expr", expr)
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	titles := []string{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		if seen[title] {
			continue
		}
		seen[title] = true
		titles = append(titles, title)
		if len(titles) == limit {
			break
		}
	}
	return titles, rows.Err()
}

// MetadataMatches searches document titles, paths, comments and file types through metadata_fts.
func (s *Store) MetadataMatches(ctx context.Context, q MetadataQuery) ([]db.Document, error) {
	if q.Expression == "" {
		return []db.Document{}, nil
	}

	query := `SELECT d.id, d.source_domain, d.created_at, d.name, d.path, d.size, d.file_type, d.last_modified, d.last_opened,
		d.last_synced, d.last_parsed, d.is_pinned, d.frecency_rank, d.frecency_last_accessed, d.comment
		FROM metadata_fts f
		JOIN metadata m ON m.id = f.rowid
		JOIN document d ON d.id = m.source_id
		WHERE metadata_fts MATCH ? AND m.source_table = ?`
	args := []any{q.Expression, db.SourceTableDocument}

	if len(q.FileTypes) > 0 {
		query += ` AND d.file_type IN (` + placeholders(len(q.FileTypes)) + `)`
		args = append(args, stringArgs(q.FileTypes)...)
	}
	if len(q.ExcludeIDs) > 0 {
		query += ` AND d.id NOT IN (` + placeholders(len(q.ExcludeIDs)) + `)`
		args = append(args, int64Args(q.ExcludeIDs)...)
	}
	// Folders carry no modification time.
	if q.DateLimit != nil && (q.DateLimit.Start > 0 || q.DateLimit.End > 0) {
		query += ` AND d.file_type != ?`
		args = append(args, db.FileTypeFolder)
	}
	if q.DateLimit != nil && q.DateLimit.Start > 0 {
		query += ` AND d.last_modified >= ?`
		args = append(args, q.DateLimit.Start)
	}
	if q.DateLimit != nil && q.DateLimit.End > 0 {
		query += ` AND d.last_modified <= ?`
		args = append(args, q.DateLimit.End)
	}
	query += ` ORDER BY f.rank, d.id LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	docs, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to match metadata", "err", err.Error(), "expr", q.Expression)
		return nil, err
	}
	return docs, nil
}

func (s *Store) SetPinned(ctx context.Context, id int64, pinned bool) error {
	return s.updateOne(ctx, id, `UPDATE document SET is_pinned = ? WHERE id = ?`, boolToInt(pinned), id)
}

// SetComment replaces a document's comment. A nil comment clears it.
func (s *Store) SetComment(ctx context.Context, id int64, comment *string) error {
	return s.updateOne(ctx, id, `UPDATE document SET comment = ? WHERE id = ?`, comment, id)
}

// RecordOpen bumps the document's frecency. The previous rank decays with a one week half-life.
func (s *Store) RecordOpen(ctx context.Context, id int64, at time.Time) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		var (
			rank         float64
			lastAccessed int64
		)
		err := tx.QueryRowContext(ctx, `SELECT frecency_rank, frecency_last_accessed FROM document WHERE id = ?`, id).Scan(&rank, &lastAccessed)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Resource: "document", Key: fmt.Sprint(id)}
		}
		if err != nil {
			return err
		}

		now := at.Unix()
		_, err = tx.ExecContext(ctx, `UPDATE document SET frecency_rank = ?, frecency_last_accessed = ?, last_opened = ? WHERE id = ?`,
			decayedRank(rank, lastAccessed, now)+1, now, now, id)
		return err
	})
}

func decayedRank(rank float64, lastAccessed, now int64) float64 {
	if lastAccessed <= 0 || rank <= 0 {
		return 0
	}
	elapsed := float64(max(now-lastAccessed, 0))
	return rank * math.Pow(2, -elapsed/frecencyHalfLife.Seconds())
}

func (s *Store) updateOne(ctx context.Context, id int64, query string, args ...any) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return &NotFoundError{Resource: "document", Key: fmt.Sprint(id)}
		}
		return nil
	})
}
