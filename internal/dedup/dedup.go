// Package dedup works out which catalog records already exist locally for a
// page, so the scraper only fetches the gap.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
	"github.com/JakeFAU/avmoo-catalog/internal/metrics"
	"github.com/JakeFAU/avmoo-catalog/internal/snapshot"
	"github.com/JakeFAU/avmoo-catalog/internal/sqlescape"
)

// Fetcher runs a query and returns its rows.
type Fetcher interface {
	FetchAll(ctx context.Context, query string, args ...any) ([]catalog.Row, error)
}

// ReferenceLookup resolves values from in-memory reference tables.
type ReferenceLookup interface {
	FilterColumn(ctx context.Context, table string, pred snapshot.Predicate, column string) ([]any, error)
}

// Resolver builds page-type specific existence queries over av_list.
type Resolver struct {
	db     Fetcher
	refs   ReferenceLookup
	logger *zap.Logger
}

// New builds a Resolver.
func New(db Fetcher, refs ReferenceLookup, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{db: db, refs: refs, logger: logger}
}

// builder turns a keyword into a predicate over av_list. An empty clause
// means there is nothing to look up.
type builder func(ctx context.Context, r *Resolver, keyword string) (catalog.Clause, error)

func builderFor(pageType catalog.PageType) (builder, bool) {
	switch pageType {
	case catalog.PageTypeDirector, catalog.PageTypeStudio, catalog.PageTypeLabel, catalog.PageTypeSeries:
		return slugClause(string(pageType) + "_url"), true
	case catalog.PageTypeGenre:
		return genreClause, true
	case catalog.PageTypeStar:
		return starClause, true
	case catalog.PageTypeGroup:
		return groupClause, true
	case catalog.PageTypeSearch:
		return searchClause, true
	default:
		return nil, false
	}
}

// Clause returns the av_list predicate selecting the records shown on the
// page identified by pageType and keyword. The clause is empty for page
// types without a listing and for genre linkids that are not known locally.
func (r *Resolver) Clause(ctx context.Context, pageType catalog.PageType, keyword string) (catalog.Clause, error) {
	build, ok := builderFor(pageType)
	if !ok {
		return catalog.Clause{}, nil
	}
	return build(ctx, r, keyword)
}

// ExistingIDs returns the linkids of the records already stored for the page.
func (r *Resolver) ExistingIDs(ctx context.Context, pageType catalog.PageType, keyword string) (map[string]bool, error) {
	existing := make(map[string]bool)
	clause, err := r.Clause(ctx, pageType, keyword)
	if err != nil {
		return nil, err
	}
	if clause.Empty() {
		r.logger.Debug("no existence query for page",
			zap.String("page_type", string(pageType)), zap.String("keyword", keyword))
		return existing, nil
	}

	query := "SELECT DISTINCT av_list.linkid FROM av_list WHERE " + clause.SQL
	rows, err := r.db.FetchAll(ctx, query, clause.Args...)
	if err != nil {
		return nil, fmt.Errorf("lookup existing %s ids: %w", pageType, err)
	}
	for _, row := range rows {
		if id, ok := row["linkid"].(string); ok {
			existing[id] = true
		}
	}
	metrics.ObserveDedupLookup(string(pageType), len(existing))
	r.logger.Debug("existing ids resolved",
		zap.String("page_type", string(pageType)),
		zap.String("keyword", keyword),
		zap.Int("count", len(existing)))
	return existing, nil
}

// slugClause matches the per-facet URL slug column exactly.
func slugClause(column string) builder {
	return func(_ context.Context, _ *Resolver, keyword string) (catalog.Clause, error) {
		return catalog.Clause{SQL: "av_list." + column + " = ?", Args: []any{keyword}}, nil
	}
}

// genreClause resolves the genre linkid to its display name and matches it
// as a token of the pipe-delimited genre list.
func genreClause(ctx context.Context, r *Resolver, keyword string) (catalog.Clause, error) {
	names, err := r.refs.FilterColumn(ctx, catalog.TableGenre, snapshot.Predicate{"linkid": {keyword}}, "name")
	if err != nil {
		return catalog.Clause{}, fmt.Errorf("resolve genre %q: %w", keyword, err)
	}
	if len(names) == 0 {
		return catalog.Clause{}, nil
	}
	name := fmt.Sprint(names[0])
	return catalog.Clause{SQL: "av_list.genre LIKE " + sqlescape.Like("%|", name, "|%")}, nil
}

func starClause(_ context.Context, _ *Resolver, keyword string) (catalog.Clause, error) {
	return catalog.Clause{SQL: "av_list.stars_url LIKE " + sqlescape.Like("%", keyword, "%")}, nil
}

func groupClause(_ context.Context, _ *Resolver, keyword string) (catalog.Clause, error) {
	return catalog.Clause{SQL: "av_list.av_id LIKE " + sqlescape.Like("", keyword, "-%")}, nil
}

// searchClause ANDs one disjunction per space-separated token.
func searchClause(_ context.Context, _ *Resolver, keyword string) (catalog.Clause, error) {
	tokens := strings.Fields(keyword)
	if len(tokens) == 0 {
		return catalog.Clause{}, nil
	}
	parts := make([]string, 0, len(tokens))
	args := make([]any, 0, 3*len(tokens))
	for _, token := range tokens {
		contains := sqlescape.Like("%", token, "%")
		parts = append(parts, "(av_list.title LIKE "+contains+
			" OR av_list.director = ?"+
			" OR av_list.studio = ?"+
			" OR av_list.label = ?"+
			" OR av_list.series LIKE "+contains+
			" OR av_list.genre LIKE "+sqlescape.Like("%|", token, "|%")+
			" OR av_list.stars LIKE "+contains+")")
		args = append(args, token, token, token)
	}
	return catalog.Clause{SQL: strings.Join(parts, " AND "), Args: args}, nil
}
