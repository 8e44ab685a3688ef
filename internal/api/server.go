package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
	"github.com/JakeFAU/avmoo-catalog/internal/catalogurl"
	"github.com/JakeFAU/avmoo-catalog/internal/config"
	"github.com/JakeFAU/avmoo-catalog/internal/metrics"
)

// QueryRunner serves read queries, possibly from a cache.
type QueryRunner interface {
	Run(ctx context.Context, query string, useCache bool, args ...any) ([]catalog.Row, error)
	Invalidate(tables ...string) int
	InvalidateAll() int
}

// References exposes reference table snapshots.
type References interface {
	Rows(ctx context.Context, table string) ([]catalog.Row, error)
	Invalidate(tables ...string)
}

// Resolver maps a page to its av_list predicate and existing records.
type Resolver interface {
	Clause(ctx context.Context, pageType catalog.PageType, keyword string) (catalog.Clause, error)
	ExistingIDs(ctx context.Context, pageType catalog.PageType, keyword string) (map[string]bool, error)
}

// Importer writes scraped records.
type Importer interface {
	InsertOrReplace(ctx context.Context, table string, rows []catalog.Row) error
}

// Deps bundles what the server reads from and writes to.
type Deps struct {
	Queries    QueryRunner
	References References
	Resolver   Resolver
	Importer   Importer
	Codec      catalogurl.Codec
	Website    config.WebsiteConfig
	Logger     *zap.Logger
}

// Server wires HTTP handlers to the catalog services.
type Server struct {
	router  chi.Router
	queries QueryRunner
	refs    References
	dedup   Resolver
	writer  Importer
	codec   catalogurl.Codec
	website config.WebsiteConfig
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		queries: d.Queries,
		refs:    d.References,
		dedup:   d.Resolver,
		writer:  d.Importer,
		codec:   d.Codec,
		website: d.Website,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/groups", s.listGroups)
		r.Get("/reference/{table}", s.getReference)
		r.Get("/plan", s.planScrape)
		r.Get("/list/{pageType}/{keyword}", s.listPage)
		r.Get("/list/{pageType}/{keyword}/page/{page}", s.listPage)
		r.Post("/import/{table}", s.importRows)
		r.Post("/cache/invalidate", s.invalidate)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
