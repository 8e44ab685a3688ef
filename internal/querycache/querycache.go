// Package querycache memoizes query results keyed by the tables a query
// touches plus a checksum of its text.
//
// Entries are kept until they are explicitly invalidated. Writes through the
// database do not invalidate anything, so cached reads of a table that has
// since changed stay stale until Invalidate is called or the process
// restarts. Two different queries over the same tables whose checksums
// collide share an entry; that risk is accepted.
package querycache

import (
	"context"
	"fmt"
	"hash/crc32"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
	"github.com/JakeFAU/avmoo-catalog/internal/metrics"
)

var tableNamePattern = regexp.MustCompile(`av_[a-z]+`)

// Fetcher runs a query and returns its rows.
type Fetcher interface {
	FetchAll(ctx context.Context, query string, args ...any) ([]catalog.Row, error)
}

// Cache is a keyed result cache in front of a Fetcher.
type Cache struct {
	db      Fetcher
	enabled bool
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string][]catalog.Row
}

// New builds a Cache. enabled mirrors the website.use_cache setting; when it
// is false every Run goes straight to the database.
func New(db Fetcher, enabled bool, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		db:      db,
		enabled: enabled,
		logger:  logger,
		entries: make(map[string][]catalog.Row),
	}
}

// Enabled reports whether caching is switched on.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// TableNames returns the distinct av_* table names in query, sorted.
func TableNames(query string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, name := range tableNamePattern.FindAllString(query, -1) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeriveCacheKey returns "<tables joined by |>:<crc32 of the query>". Bound
// arguments, when present, are folded into the checksum so different values
// for the same statement get different keys.
func DeriveCacheKey(query string, args ...any) string {
	sum := crc32.NewIEEE()
	_, _ = sum.Write([]byte(query))
	for _, arg := range args {
		_, _ = sum.Write([]byte{0})
		_, _ = fmt.Fprintf(sum, "%v", arg)
	}
	return strings.Join(TableNames(query), "|") + ":" + strconv.FormatUint(uint64(sum.Sum32()), 10)
}

// Run executes query, serving it from the cache when caching is enabled and
// useCache is true. Only non-empty results are stored. Callers always get
// their own copy of the rows.
func (c *Cache) Run(ctx context.Context, query string, useCache bool, args ...any) ([]catalog.Row, error) {
	if !c.enabled || !useCache {
		metrics.ObserveCacheLookup(metrics.CacheBypass)
		c.logger.Debug("query executed", zap.String("sql", query))
		rows, err := c.db.FetchAll(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("run query: %w", err)
		}
		return rows, nil
	}

	key := DeriveCacheKey(query, args...)
	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		metrics.ObserveCacheLookup(metrics.CacheHit)
		c.logger.Debug("cache hit", zap.String("key", key))
		return catalog.CloneRows(cached), nil
	}

	metrics.ObserveCacheLookup(metrics.CacheMiss)
	c.logger.Debug("query executed", zap.String("key", key), zap.String("sql", query))
	rows, err := c.db.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	if len(rows) > 0 {
		c.mu.Lock()
		c.entries[key] = catalog.CloneRows(rows)
		size := len(c.entries)
		c.mu.Unlock()
		metrics.SetCacheEntries(size)
	}
	return catalog.CloneRows(rows), nil
}

// Invalidate drops every entry whose query touched one of tables.
func (c *Cache) Invalidate(tables ...string) int {
	if len(tables) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		drop[t] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if keyTouches(key, drop) {
			delete(c.entries, key)
			removed++
		}
	}
	metrics.SetCacheEntries(len(c.entries))
	if removed > 0 {
		c.logger.Info("query cache invalidated", zap.Strings("tables", tables), zap.Int("entries", removed))
	}
	return removed
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := len(c.entries)
	c.entries = make(map[string][]catalog.Row)
	metrics.SetCacheEntries(0)
	c.logger.Info("query cache cleared", zap.Int("entries", removed))
	return removed
}

// Len returns the number of cached result sets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func keyTouches(key string, tables map[string]struct{}) bool {
	prefix, _, _ := strings.Cut(key, ":")
	for _, name := range strings.Split(prefix, "|") {
		if _, ok := tables[name]; ok {
			return true
		}
	}
	return false
}
