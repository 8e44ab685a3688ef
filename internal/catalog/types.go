package catalog

// PageType is one of the catalog's navigation facets. It decides which
// column(s) a keyword is matched against.
type PageType string

// Page types recognized by the catalog. PageTypeNone is the sentinel used for
// URLs that do not match any facet.
const (
	PageTypeNone     PageType = ""
	PageTypeMovie    PageType = "movie"
	PageTypeStar     PageType = "star"
	PageTypeGenre    PageType = "genre"
	PageTypeSeries   PageType = "series"
	PageTypeStudio   PageType = "studio"
	PageTypeLabel    PageType = "label"
	PageTypeDirector PageType = "director"
	PageTypeSearch   PageType = "search"
	// PageTypeGroup lists every movie sharing an identifier prefix. It only
	// exists locally; the remote site has no such page.
	PageTypeGroup PageType = "group"
)

var remotePageTypes = map[PageType]struct{}{
	PageTypeMovie:    {},
	PageTypeStar:     {},
	PageTypeGenre:    {},
	PageTypeSeries:   {},
	PageTypeStudio:   {},
	PageTypeLabel:    {},
	PageTypeDirector: {},
	PageTypeSearch:   {},
}

// ParsePageType converts raw text into a PageType. The second return value
// reports whether the text names a known facet.
func ParsePageType(raw string) (PageType, bool) {
	pt := PageType(raw)
	if pt == PageTypeGroup {
		return pt, true
	}
	_, ok := remotePageTypes[pt]
	return pt, ok
}

// Remote reports whether the page type exists on the remote site.
func (p PageType) Remote() bool {
	_, ok := remotePageTypes[p]
	return ok
}

// Row is one catalog record: column name to scalar value. Values are the
// driver's scalar types (int64, float64, string, bool, nil); byte slices are
// normalized to strings by the store.
type Row map[string]any

// Clone returns a shallow copy of the row. Values are scalars so the copy is
// independent of the original.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRows copies a result set row by row.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Clause is a SQL predicate fragment together with its bound arguments.
type Clause struct {
	SQL  string
	Args []any
}

// Empty reports whether the clause carries no predicate.
func (c Clause) Empty() bool {
	return c.SQL == ""
}

// Reference tables mirrored in memory by the snapshot store.
const (
	TableList   = "av_list"
	TableGenre  = "av_genre"
	TableStars  = "av_stars"
	TableExtend = "av_extend"
)
