// Package browser opens the local site in the user's browser.
package browser

import (
	"io"

	pkgbrowser "github.com/pkg/browser"
	"go.uber.org/zap"
)

// openURL is swapped in tests.
var openURL = pkgbrowser.OpenURL

func init() {
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
}

// OpenAsync opens url in a new browser tab without blocking the caller. A
// failure is logged and otherwise ignored. The returned channel is closed
// once the attempt finished.
func OpenAsync(url string, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("opening browser", zap.String("url", url))
		if err := openURL(url); err != nil {
			logger.Warn("open browser failed", zap.String("url", url), zap.Error(err))
		}
	}()
	return done
}
