// Package app initializes and holds the long-lived catalog services.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/avmoo-catalog/internal/api"
	"github.com/JakeFAU/avmoo-catalog/internal/catalogurl"
	"github.com/JakeFAU/avmoo-catalog/internal/config"
	"github.com/JakeFAU/avmoo-catalog/internal/database"
	"github.com/JakeFAU/avmoo-catalog/internal/dedup"
	"github.com/JakeFAU/avmoo-catalog/internal/logging"
	"github.com/JakeFAU/avmoo-catalog/internal/querycache"
	"github.com/JakeFAU/avmoo-catalog/internal/snapshot"
)

// App holds the shared services. It is built once at startup; the caches
// live exactly as long as the App does.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *database.Store
	snapshots *snapshot.Store
	cache     *querycache.Cache
	dedup     *dedup.Resolver
	codec     catalogurl.Codec
}

// New opens the database named by cfg.Base.DBFile (relative paths resolve
// against baseDir), creates the schema and wires the caches on top of it.
// localAddr is the host:port the local site is served on.
func New(ctx context.Context, cfg config.Config, baseDir, localAddr string, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := cfg.Base.DBFile
	if path != ":memory:" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	logger.Info("opening database", zap.String("path", path))
	db, err := database.Open(ctx, path, logging.Named(logger, "db"), database.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}

	snaps := snapshot.New(db, logging.Named(logger, "snapshot"))
	a := &App{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		snapshots: snaps,
		cache:     querycache.New(db, cfg.Website.UseCache, logging.Named(logger, "cache")),
		dedup:     dedup.New(db, snaps, logging.Named(logger, "dedup")),
		codec: catalogurl.Codec{
			Site:      cfg.Base.AvmooSite,
			Country:   cfg.Base.Country,
			LocalAddr: localAddr,
		},
	}
	logger.Info("catalog services initialized",
		zap.Bool("use_cache", cfg.Website.UseCache),
		zap.String("site", cfg.Base.AvmooSite),
		zap.String("country", cfg.Base.CountryName))
	return a, nil
}

// Config returns the settings the App was built with.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Database returns the relational store.
func (a *App) Database() *database.Store { return a.db }

// Snapshots returns the reference table snapshots.
func (a *App) Snapshots() *snapshot.Store { return a.snapshots }

// Cache returns the query result cache.
func (a *App) Cache() *querycache.Cache { return a.cache }

// Dedup returns the existing-record resolver.
func (a *App) Dedup() *dedup.Resolver { return a.dedup }

// Codec returns the catalog URL codec.
func (a *App) Codec() catalogurl.Codec { return a.codec }

// SetSite switches the remote mirror used for URL building.
func (a *App) SetSite(site string) {
	a.cfg.Base.AvmooSite = site
	a.codec.Site = site
}

// APIServer builds the local read API over the App's services.
func (a *App) APIServer() *api.Server {
	return api.NewServer(api.Deps{
		Queries:    a.cache,
		References: a.snapshots,
		Resolver:   a.dedup,
		Importer:   a.db,
		Codec:      a.codec,
		Website:    a.cfg.Website,
		Logger:     logging.Named(a.logger, "api"),
	})
}

// Close releases the database.
func (a *App) Close() error {
	a.logger.Info("shutting down catalog services")
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
