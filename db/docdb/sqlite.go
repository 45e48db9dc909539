package docdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meghashyamc/buzee/logger"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	maxPoolConnections = 10
	busyTimeoutMillis  = 5000
	cacheSizeKiB       = -64000

	maxTxAttempts = 3

	// SQLite caps bound parameters per statement; IN lists are split below this.
	maxParamsPerStatement = 500
)

// ChunkEraser removes indexed body chunks for documents. The bleve index implements it.
type ChunkEraser interface {
	DeleteByIDs(ctx context.Context, ids []int64) error
}

type Store struct {
	db     *sql.DB
	path   string
	logger logger.Logger
	eraser ChunkEraser
}

type Option func(*Store)

// WithChunkEraser makes DeleteByPaths also remove the documents' chunks from the inverted index.
func WithChunkEraser(eraser ChunkEraser) Option {
	return func(s *Store) { s.eraser = eraser }
}

// New opens the pooled store at path, creating the schema when needed.
func New(ctx context.Context, logger logger.Logger, path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Error("failed to create database directory", "err", err.Error(), "path", path)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := open(logger, path, maxPoolConnections, opts...)
	if err != nil {
		return nil, err
	}

	if err := store.createSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

// OpenDirect opens a second handle on the same database restricted to a single connection.
// The sync task uses it so that sweeps never wait on the query pool.
func (s *Store) OpenDirect() (*Store, error) {
	return open(s.logger, s.path, 1, WithChunkEraser(s.eraser))
}

// SetChunkEraser attaches the inverted index once it has been opened.
func (s *Store) SetChunkEraser(eraser ChunkEraser) {
	s.eraser = eraser
}

func open(logger logger.Logger, path string, maxConns int, opts ...Option) (*Store, error) {
	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		logger.Error("failed to open database", "err", err.Error(), "path", path)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.Ping(); err != nil {
		db.Close()
		logger.Error("failed to ping database", "err", err.Error(), "path", path)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, path: path, logger: logger}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// dsn applies the pragmas on every connection the pool opens.
func dsn(path string) string {
	pragmas := []string{
		"foreign_keys(1)",
		"journal_mode(WAL)",
		fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis),
		"synchronous(NORMAL)",
		fmt.Sprintf("cache_size(%d)", cacheSizeKiB),
	}

	params := make([]string, len(pragmas))
	for i, p := range pragmas {
		params[i] = "_pragma=" + p
	}

	return "file:" + path + "?" + strings.Join(params, "&")
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			s.logger.Error("failed to create schema", "err", err.Error())
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// runTx executes fn inside a transaction, retrying when SQLite reports the database busy.
func (s *Store) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	var err error
	for attempt := range maxTxAttempts {
		if err = s.runTxOnce(ctx, fn); err == nil || !isBusy(err) {
			return err
		}
		s.logger.Warn("database busy, retrying transaction", "attempt", attempt+1, "err", err.Error())

		timer := time.NewTimer(time.Duration(100*(attempt+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("transaction cancelled during retry: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return err
}

func (s *Store) runTxOnce(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func int64Args(values []int64) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func splitInt64s(values []int64, size int) [][]int64 {
	var parts [][]int64
	for start := 0; start < len(values); start += size {
		parts = append(parts, values[start:min(start+size, len(values))])
	}
	return parts
}

func splitStrings(values []string, size int) [][]string {
	var parts [][]string
	for start := 0; start < len(values); start += size {
		parts = append(parts, values[start:min(start+size, len(values))])
	}
	return parts
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
