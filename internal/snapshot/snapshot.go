// Package snapshot mirrors small reference tables into memory.
//
// A table is loaded on first access and then served from memory for the life
// of the process; later changes to the table are not seen unless the snapshot
// is explicitly invalidated.
package snapshot

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
	"github.com/JakeFAU/avmoo-catalog/internal/database"
	"github.com/JakeFAU/avmoo-catalog/internal/metrics"
)

// Fetcher runs a query and returns its rows.
type Fetcher interface {
	FetchAll(ctx context.Context, query string, args ...any) ([]catalog.Row, error)
}

// Predicate maps a column to its allowed values. A row matches when every
// column's value is one of the allowed values.
type Predicate map[string][]any

// Store holds table snapshots.
type Store struct {
	db     Fetcher
	logger *zap.Logger

	mu     sync.RWMutex
	tables map[string][]catalog.Row
}

// New builds an empty Store.
func New(db Fetcher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, tables: make(map[string][]catalog.Row)}
}

// EnsureLoaded loads table unless a snapshot already exists. The first load
// wins; there is no refresh.
func (s *Store) EnsureLoaded(ctx context.Context, table string) error {
	_, err := s.snapshot(ctx, table)
	return err
}

func (s *Store) snapshot(ctx context.Context, table string) ([]catalog.Row, error) {
	s.mu.RLock()
	rows, ok := s.tables[table]
	s.mu.RUnlock()
	if ok {
		return rows, nil
	}
	if !database.ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: table %q", database.ErrInvalidIdentifier, table)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rows, ok := s.tables[table]; ok {
		return rows, nil
	}
	rows, err := s.db.FetchAll(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", table, err)
	}
	rows = catalog.CloneRows(rows)
	s.tables[table] = rows
	metrics.ObserveSnapshotLoad(table, len(rows))
	s.logger.Debug("snapshot loaded", zap.String("table", table), zap.Int("rows", len(rows)))
	return rows, nil
}

// Filter returns copies of the rows of table matching every constraint of
// pred. An empty predicate matches nothing.
func (s *Store) Filter(ctx context.Context, table string, pred Predicate) ([]catalog.Row, error) {
	rows, err := s.snapshot(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Row, 0)
	for _, row := range rows {
		if pred.matches(row) {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

// FilterColumn is Filter projected onto one column.
func (s *Store) FilterColumn(ctx context.Context, table string, pred Predicate, column string) ([]any, error) {
	rows, err := s.snapshot(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0)
	for _, row := range rows {
		if pred.matches(row) {
			out = append(out, row[column])
		}
	}
	return out, nil
}

// Rows returns a copy of the whole snapshot of table.
func (s *Store) Rows(ctx context.Context, table string) ([]catalog.Row, error) {
	rows, err := s.snapshot(ctx, table)
	if err != nil {
		return nil, err
	}
	return catalog.CloneRows(rows), nil
}

// Loaded reports whether table has a snapshot.
func (s *Store) Loaded(table string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[table]
	return ok
}

// Invalidate drops the snapshots of the given tables, or of every table when
// none are given. The next access reloads from the database.
func (s *Store) Invalidate(tables ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tables) == 0 {
		for table := range s.tables {
			metrics.ForgetSnapshot(table)
		}
		s.tables = make(map[string][]catalog.Row)
		return
	}
	for _, table := range tables {
		if _, ok := s.tables[table]; ok {
			delete(s.tables, table)
			metrics.ForgetSnapshot(table)
		}
	}
}

// matches is false for an empty predicate.
func (p Predicate) matches(row catalog.Row) bool {
	if len(p) == 0 {
		return false
	}
	for column, allowed := range p {
		value, ok := row[column]
		if !ok || !contains(allowed, value) {
			return false
		}
	}
	return true
}

func contains(allowed []any, value any) bool {
	for _, a := range allowed {
		if equal(a, value) {
			return true
		}
	}
	return false
}

// equal compares scalars. Integers from the driver are int64, so plain ints
// in a predicate are widened before comparing.
func equal(a, b any) bool {
	if ai, ok := a.(int); ok {
		a = int64(ai)
	}
	if bi, ok := b.(int); ok {
		b = int64(bi)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}
