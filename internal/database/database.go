// Package database is the relational store behind the catalog: an embedded
// SQLite database accessed through database/sql with the pure-Go
// modernc.org/sqlite driver.
//
// Every statement commits on its own. Batch inserts run in one transaction
// and commit once. Errors are returned to the caller as-is (wrapped); this
// layer never retries.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
)

// ErrInvalidIdentifier is returned for table or column names that cannot be
// embedded in a statement.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether name is safe to embed as a table or column.
func ValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

type options struct {
	busyTimeoutMs int
	synchronous   string
	mkdirAll      bool
}

// Option customises Open.
type Option func(*options)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeoutMs = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: NORMAL.
func WithSynchronous(mode string) Option { return func(o *options) { o.synchronous = mode } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// Store executes statements against the catalog database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the SQLite database at path and applies
// the connection pragmas. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, logger *zap.Logger, opts ...Option) (*Store, error) {
	o := options{busyTimeoutMs: 10_000, synchronous: "NORMAL"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One shared connection, serialized by the driver. This also keeps a
	// ":memory:" database alive across calls.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeoutMs),
		fmt.Sprintf("PRAGMA synchronous = %s", o.synchronous),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// Execute runs a single statement.
func (s *Store) Execute(ctx context.Context, stmt string, args ...any) error {
	s.logger.Debug("sql exec", zap.String("sql", stmt))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	return nil
}

// FetchAll runs a query and returns every row. An empty result is an empty,
// non-nil slice.
func (s *Store) FetchAll(ctx context.Context, query string, args ...any) ([]catalog.Row, error) {
	_, rows, err := s.FetchAllOrdered(ctx, query, args...)
	return rows, err
}

// FetchAllOrdered is FetchAll plus the column names in result order, since
// the rows themselves are unordered maps.
func (s *Store) FetchAllOrdered(ctx context.Context, query string, args ...any) ([]string, []catalog.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}
	out := make([]catalog.Row, 0)
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(catalog.Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, out, nil
}

// InsertOrReplace upserts rows into table with one REPLACE statement built
// from the first row's columns. Rows are assumed to share that column set.
func (s *Store) InsertOrReplace(ctx context.Context, table string, rows []catalog.Row) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, columns, err := replaceStatement(table, rows[0])
	if err != nil {
		return err
	}
	s.logger.Debug("sql insert", zap.String("sql", stmt), zap.Int("rows", len(rows)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer prepared.Close() //nolint:errcheck

	args := make([]any, len(columns))
	for i, row := range rows {
		for j, col := range columns {
			args[j] = row[col]
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i, table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

func replaceStatement(table string, first catalog.Row) (string, []string, error) {
	if !ValidIdentifier(table) {
		return "", nil, fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}
	columns := make([]string, 0, len(first))
	for col := range first {
		if !ValidIdentifier(col) {
			return "", nil, fmt.Errorf("%w: column %q", ErrInvalidIdentifier, col)
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("insert into %s: row has no columns", table)
	}
	sort.Strings(columns)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	stmt := fmt.Sprintf("REPLACE INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ","), placeholders)
	return stmt, columns, nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
