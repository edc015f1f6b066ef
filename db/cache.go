package db

import (
	"context"

	"go.uber.org/zap"

	"go-extension-exporter/internal/browsers"
)

// CachedSource serves one browser's inventory from the cache while it is fresh and
// rescans through Source otherwise
type CachedSource struct {
	DB      *DB
	Browser browsers.Browser
	Source  browsers.Source
	// Refresh skips the cache lookup but still stores the new scan
	Refresh bool
	Log     *zap.Logger
}

// ListExtensions implements browsers.Source
func (c *CachedSource) ListExtensions(ctx context.Context) ([]browsers.Extension, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("browser", c.Browser.String()))

	if !c.Refresh {
		cached, err := c.DB.GetExtensions(c.Browser)
		if err != nil {
			log.Warn("failed to read inventory cache", zap.Error(err))
		} else if cached != nil {
			log.Debug("using cached inventory", zap.Int("count", len(cached)))
			return cached, nil
		}
	}

	exts, err := c.Source.ListExtensions(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.DB.UpdateExtensions(c.Browser, exts); err != nil {
		log.Warn("failed to update inventory cache", zap.Error(err))
	}
	return exts, nil
}
