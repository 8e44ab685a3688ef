package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/avmoo-catalog/internal/app"
	"github.com/JakeFAU/avmoo-catalog/internal/browser"
	"github.com/JakeFAU/avmoo-catalog/internal/catalogurl"
	"github.com/JakeFAU/avmoo-catalog/internal/config"
	"github.com/JakeFAU/avmoo-catalog/internal/logging"
	"github.com/JakeFAU/avmoo-catalog/internal/sitefinder"
)

func main() {
	cfgPath := flag.String("config", config.DefaultUserPath, "Path to the user config file")
	defaultPath := flag.String("default-config", config.DefaultDefaultPath, "Path to the shipped default config")
	addr := flag.String("addr", catalogurl.DefaultLocalAddr, "Listen address of the local site")
	discover := flag.Bool("discover-site", false, "Look up the current mirror and store it as base.avmoo_site")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	logger, err := logging.New(*dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	store := config.NewStore(*cfgPath, *defaultPath, logging.Named(logger, "config"))
	cfg, err := store.Load()
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, filepath.Dir(store.ResolvePath()), *addr, logger)
	if err != nil {
		logger.Fatal("init services failed", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close services failed", zap.Error(err))
		}
	}()

	if *discover {
		discoverSite(ctx, a, store, logger)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           a.APIServer().Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	if cfg.Website.AutoOpenSiteOnRun {
		browser.OpenAsync(a.Codec().Root(), logging.Named(logger, "browser"))
	}

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

// discoverSite refreshes base.avmoo_site. A failed lookup keeps the
// configured mirror.
func discoverSite(ctx context.Context, a *app.App, store *config.Store, logger *zap.Logger) {
	cfg := a.Config()
	finder := sitefinder.New(sitefinder.Config{
		UserAgent: cfg.Requests.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, logging.Named(logger, "site"))

	site, err := finder.Discover(ctx)
	if err != nil {
		logger.Warn("mirror discovery failed, keeping configured site",
			zap.String("site", cfg.Base.AvmooSite), zap.Error(err))
		return
	}
	if site == cfg.Base.AvmooSite {
		return
	}
	if err := store.SetOption("base", "avmoo_site", site); err != nil {
		logger.Warn("persist mirror failed", zap.Error(err))
	}
	a.SetSite(site)
}
