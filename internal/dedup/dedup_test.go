package dedup

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
	"github.com/JakeFAU/avmoo-catalog/internal/database"
	"github.com/JakeFAU/avmoo-catalog/internal/snapshot"
)

type countingFetcher struct {
	inner Fetcher
	calls int
}

func (c *countingFetcher) FetchAll(ctx context.Context, query string, args ...any) ([]catalog.Row, error) {
	c.calls++
	return c.inner.FetchAll(ctx, query, args...)
}

func movie(linkid, avID, title string, extra catalog.Row) catalog.Row {
	row := catalog.Row{
		"linkid": linkid, "av_id": avID, "title": title,
		"director": "", "director_url": "", "studio": "", "studio_url": "",
		"label": "", "label_url": "", "series": "", "series_url": "",
		"genre": "", "stars": "", "stars_url": "",
	}
	for k, v := range extra {
		row[k] = v
	}
	return row
}

func newResolver(t *testing.T) (*Resolver, *countingFetcher) {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Bootstrap(ctx))

	require.NoError(t, db.InsertOrReplace(ctx, catalog.TableGenre, []catalog.Row{
		{"linkid": "g1", "name": "Drama", "title": "genre"},
		{"linkid": "g2", "name": "Comedy", "title": "genre"},
		{"linkid": "g3", "name": "Drama_x", "title": "genre"},
	}))
	require.NoError(t, db.InsertOrReplace(ctx, catalog.TableList, []catalog.Row{
		movie("l1", "ABC-001", "Summer Story", catalog.Row{
			"director": "Dir A", "director_url": "d1", "studio": "Studio X", "studio_url": "s1",
			"label": "Lab", "label_url": "lb1", "series": "Series One", "series_url": "se1",
			"genre": "|Drama|Comedy|", "stars": "|Alice|Bob|", "stars_url": "|st1|st2|",
		}),
		movie("l2", "ABC-002", "Winter 100%", catalog.Row{
			"director": "Dir B", "director_url": "d2", "studio_url": "s1",
			"genre": "|Drama_x|", "stars": "|Carol|", "stars_url": "|st3|",
		}),
		movie("l3", "ABCD-001", "Other", catalog.Row{"genre": "|Comedy|", "stars_url": "|st1|"}),
		movie("l4", "XABC-003", "Prefix", catalog.Row{"label": "o'neil", "label_url": "lb2"}),
		movie("l5", "ZZ-005", "Lookalike 1000", catalog.Row{"genre": "|DramaYx|"}),
	}))

	counter := &countingFetcher{inner: db}
	return New(counter, snapshot.New(db, nil), nil), counter
}

func ids(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for id, present := range m {
		if present {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func TestExistingIDs(t *testing.T) {
	t.Parallel()

	resolver, _ := newResolver(t)
	tests := []struct {
		name     string
		pageType catalog.PageType
		keyword  string
		want     []string
	}{
		{"director", catalog.PageTypeDirector, "d1", []string{"l1"}},
		{"studio", catalog.PageTypeStudio, "s1", []string{"l1", "l2"}},
		{"label", catalog.PageTypeLabel, "lb2", []string{"l4"}},
		{"series", catalog.PageTypeSeries, "se1", []string{"l1"}},
		{"series no match", catalog.PageTypeSeries, "se", []string{}},
		{"genre delimited", catalog.PageTypeGenre, "g1", []string{"l1"}},
		{"genre underscore escaped", catalog.PageTypeGenre, "g3", []string{"l2"}},
		{"genre unknown", catalog.PageTypeGenre, "nope", []string{}},
		{"star", catalog.PageTypeStar, "st1", []string{"l1", "l3"}},
		{"group prefix", catalog.PageTypeGroup, "ABC", []string{"l1", "l2"}},
		{"search title", catalog.PageTypeSearch, "Summer", []string{"l1"}},
		{"search percent literal", catalog.PageTypeSearch, "100%", []string{"l2"}},
		{"search tokens are anded", catalog.PageTypeSearch, "Alice  Summer", []string{"l1"}},
		{"search genre token", catalog.PageTypeSearch, "Comedy", []string{"l1", "l3"}},
		{"search exact director", catalog.PageTypeSearch, "Dir", []string{}},
		{"search quote", catalog.PageTypeSearch, "o'neil", []string{"l4"}},
		{"search empty", catalog.PageTypeSearch, "  ", []string{}},
		{"movie has no listing", catalog.PageTypeMovie, "l1", []string{}},
		{"unknown page type", catalog.PageType("actress"), "x", []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.ExistingIDs(context.Background(), tc.pageType, tc.keyword)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestGroupMatchesOnlyDashPrefix(t *testing.T) {
	t.Parallel()

	resolver, _ := newResolver(t)
	got, err := resolver.ExistingIDs(context.Background(), catalog.PageTypeGroup, "ABC")
	require.NoError(t, err)
	assert.NotContains(t, got, "l3", "ABCD-001 must not match group ABC")
	assert.NotContains(t, got, "l4", "XABC-003 must not match group ABC")
}

func TestSkippedLookupsDoNotQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver, counter := newResolver(t)

	_, err := resolver.ExistingIDs(ctx, catalog.PageTypeMovie, "l1")
	require.NoError(t, err)
	_, err = resolver.ExistingIDs(ctx, catalog.PageTypeSearch, "")
	require.NoError(t, err)
	_, err = resolver.ExistingIDs(ctx, catalog.PageTypeGenre, "unknown-linkid")
	require.NoError(t, err)
	assert.Zero(t, counter.calls)

	_, err = resolver.ExistingIDs(ctx, catalog.PageTypeStar, "st1")
	require.NoError(t, err)
	assert.Equal(t, 1, counter.calls)
}

func TestClauseShapes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver, _ := newResolver(t)

	clause, err := resolver.Clause(ctx, catalog.PageTypeStudio, "s'1")
	require.NoError(t, err)
	assert.Equal(t, "av_list.studio_url = ?", clause.SQL)
	assert.Equal(t, []any{"s'1"}, clause.Args)

	clause, err = resolver.Clause(ctx, catalog.PageTypeGroup, "A_B")
	require.NoError(t, err)
	assert.Equal(t, `av_list.av_id LIKE 'A/_B-%' ESCAPE '/'`, clause.SQL)
	assert.Empty(t, clause.Args)

	clause, err = resolver.Clause(ctx, catalog.PageTypeSearch, "a b")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "a", "a", "b", "b", "b"}, clause.Args)
	assert.Contains(t, clause.SQL, ") AND (")
	assert.Contains(t, clause.SQL, `av_list.genre LIKE '%|b|%' ESCAPE '/'`)
}
