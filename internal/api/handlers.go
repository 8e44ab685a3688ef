package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
	"github.com/JakeFAU/avmoo-catalog/internal/catalogurl"
	"github.com/JakeFAU/avmoo-catalog/internal/database"
)

// referenceTables can be read whole through the API.
var referenceTables = map[string]struct{}{
	catalog.TableGenre:  {},
	catalog.TableStars:  {},
	catalog.TableExtend: {},
}

// importTables accept scraped rows.
var importTables = map[string]struct{}{
	catalog.TableList:   {},
	catalog.TableGenre:  {},
	catalog.TableStars:  {},
	catalog.TableExtend: {},
}

type listResponse struct {
	PageType string        `json:"page_type"`
	Keyword  string        `json:"keyword"`
	Page     int           `json:"page"`
	Items    []catalog.Row `json:"items"`
	Self     string        `json:"self"`
	Next     string        `json:"next,omitempty"`
	Remote   string        `json:"remote,omitempty"`
}

type planResponse struct {
	PageType string   `json:"page_type"`
	Keyword  string   `json:"keyword"`
	Page     int      `json:"page"`
	Existing []string `json:"existing"`
}

func (s *Server) listPage(w http.ResponseWriter, r *http.Request) {
	pageType, ok := catalog.ParsePageType(chi.URLParam(r, "pageType"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown page type")
		return
	}
	keyword := pathParam(r, "keyword")
	page := 1
	if raw := chi.URLParam(r, "page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page number")
			return
		}
		if n > 1 {
			page = n
		}
	}

	limit := s.website.PageLimit
	var clause catalog.Clause
	switch pageType {
	case catalog.PageTypeMovie:
		limit = 1
		clause = catalog.Clause{SQL: "av_list.linkid = ?", Args: []any{keyword}}
	default:
		if pageType == catalog.PageTypeGroup && s.website.GroupPageLimit > 0 {
			limit = s.website.GroupPageLimit
		}
		var err error
		clause, err = s.dedup.Clause(r.Context(), pageType, keyword)
		if err != nil {
			s.logger.Error("build listing clause", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to build listing")
			return
		}
	}
	if limit <= 0 {
		limit = 30
	}

	resp := listResponse{
		PageType: string(pageType),
		Keyword:  keyword,
		Page:     page,
		Items:    []catalog.Row{},
		Self:     s.codec.EncodeLocal(pageType, keyword, page),
	}
	if pageType.Remote() {
		resp.Remote = s.codec.Encode(pageType, keyword, page)
	}
	if !clause.Empty() {
		query := "SELECT * FROM av_list WHERE " + clause.SQL +
			" ORDER BY av_list.release_date DESC, av_list.linkid LIMIT ? OFFSET ?"
		args := append(append([]any{}, clause.Args...), limit, (page-1)*limit)
		rows, err := s.queries.Run(r.Context(), query, useCache(r), args...)
		if err != nil {
			s.logger.Error("run listing query", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load listing")
			return
		}
		resp.Items = rows
	}
	if pageType != catalog.PageTypeMovie && len(resp.Items) == limit {
		resp.Next = s.codec.EncodeLocal(pageType, keyword, page+1)
	}
	writeJSON(w, http.StatusOK, resp)
}

// groupOrders maps website.group_page_order_by to an ORDER BY expression.
var groupOrders = map[string]string{
	"count":  "count DESC, prefix",
	"prefix": "prefix",
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	order, ok := groupOrders[s.website.GroupPageOrderBy]
	if !ok {
		order = groupOrders["count"]
	}
	limit := s.website.GroupPageLimit
	if limit <= 0 {
		limit = 30
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page number")
			return
		}
		if n > 1 {
			page = n
		}
	}
	query := "SELECT substr(av_id, 1, instr(av_id, '-') - 1) AS prefix, COUNT(*) AS count " +
		"FROM av_list WHERE instr(av_id, '-') > 1 GROUP BY prefix ORDER BY " + order +
		" LIMIT ? OFFSET ?"
	rows, err := s.queries.Run(r.Context(), query, useCache(r), limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("run group query", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load groups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page, "groups": rows})
}

func (s *Server) getReference(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if _, ok := referenceTables[table]; !ok {
		writeError(w, http.StatusNotFound, "unknown reference table")
		return
	}
	rows, err := s.refs.Rows(r.Context(), table)
	if err != nil {
		s.logger.Error("load reference table", zap.String("table", table), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load reference table")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "rows": rows})
}

func (s *Server) planScrape(w http.ResponseWriter, r *http.Request) {
	target := catalogurl.Decode(r.URL.Query().Get("url"))
	if !target.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "not a catalog listing url")
		return
	}
	existing, err := s.dedup.ExistingIDs(r.Context(), target.PageType, target.Keyword)
	if err != nil {
		s.logger.Error("resolve existing ids", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to resolve existing records")
		return
	}
	page := target.Page
	if page < 1 {
		page = 1
	}
	ids := make([]string, 0, len(existing))
	for id := range existing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	writeJSON(w, http.StatusOK, planResponse{
		PageType: string(target.PageType),
		Keyword:  target.Keyword,
		Page:     page,
		Existing: ids,
	})
}

// importRows stores rows without touching the caches; callers invalidate
// explicitly once a scrape is done.
func (s *Server) importRows(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if _, ok := importTables[table]; !ok {
		writeError(w, http.StatusNotFound, "unknown table")
		return
	}
	var rows []catalog.Row
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.writer.InsertOrReplace(r.Context(), table, rows); err != nil {
		if errors.Is(err, database.ErrInvalidIdentifier) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("import rows", zap.String("table", table), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to import rows")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "rows": len(rows)})
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	tables := r.URL.Query()["table"]
	var dropped int
	if len(tables) == 0 {
		dropped = s.queries.InvalidateAll()
		s.refs.Invalidate()
	} else {
		dropped = s.queries.Invalidate(tables...)
		s.refs.Invalidate(tables...)
	}
	s.logger.Info("caches invalidated", zap.Strings("tables", tables), zap.Int("entries", dropped))
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables, "dropped": dropped})
}

// pathParam returns the decoded URL parameter. chi matches against RawPath
// when the request carried escapes that Path cannot represent.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}

func useCache(r *http.Request) bool {
	return r.URL.Query().Get("nocache") == ""
}

