// Package sitefinder discovers the current mirror of the remote catalog from
// the redirect page that lists it.
package sitefinder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// DefaultSourceURL lists the live mirror.
const DefaultSourceURL = "https://tellme.pw/avmoo"

// mirrorSelector points at the first highlighted mirror link on the page.
const mirrorSelector = "h4 > strong > a[href]"

// ErrNotFound means the page was fetched but carried no mirror link.
var ErrNotFound = errors.New("mirror link not found")

// Config controls discovery requests.
type Config struct {
	SourceURL string
	UserAgent string
	Timeout   time.Duration
}

// Finder fetches and parses the mirror page.
type Finder struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Finder.
func New(cfg Config, logger *zap.Logger) *Finder {
	if cfg.SourceURL == "" {
		cfg.SourceURL = DefaultSourceURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{cfg: cfg, logger: logger}
}

// Discover returns the mirror root, without a trailing slash.
func (f *Finder) Discover(ctx context.Context) (string, error) {
	c := colly.NewCollector(colly.StdlibContext(ctx))
	if f.cfg.UserAgent != "" {
		c.UserAgent = f.cfg.UserAgent
	}
	c.SetRequestTimeout(f.cfg.Timeout)

	var (
		site     string
		fetchErr error
	)
	c.OnHTML(mirrorSelector, func(e *colly.HTMLElement) {
		if site == "" {
			site = e.Request.AbsoluteURL(e.Attr("href"))
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch %s (status %d): %w", f.cfg.SourceURL, status, err)
	})

	if err := c.Visit(f.cfg.SourceURL); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("visit %s: %w", f.cfg.SourceURL, err)
	}
	c.Wait()
	if fetchErr != nil {
		return "", fetchErr
	}
	if site == "" {
		return "", fmt.Errorf("%w at %s", ErrNotFound, f.cfg.SourceURL)
	}
	site = strings.TrimRight(site, "/")
	f.logger.Info("mirror discovered", zap.String("site", site))
	return site, nil
}
