package app

import (
	"fmt"

	"go.uber.org/zap"

	"go-extension-exporter/db"
	"go-extension-exporter/internal/browsers"
	"go-extension-exporter/internal/config"
)

// NewSource builds the inventory source described by cfg. A JSON dump wins over
// profile scanning. The returned close function releases the cache, if any.
func NewSource(cfg *config.Config, refresh bool, log *zap.Logger) (browsers.Source, func() error, error) {
	noop := func() error { return nil }
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.Source.Input != "" {
		log.Debug("reading inventory dump", zap.String("path", cfg.Source.Input))
		return browsers.FileSource{Path: cfg.Source.Input}, noop, nil
	}

	list := cfg.SourceBrowsers()
	if len(list) == 0 {
		list = browsers.All
	}

	if cfg.Cache.Path == "" {
		return browsers.NewProfileSource(list, log), noop, nil
	}

	cache, err := db.NewDB(cfg.Cache.Path, cfg.Cache.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open inventory cache: %w", err)
	}
	sources := make(browsers.MultiSource, 0, len(list))
	for _, b := range list {
		sources = append(sources, &db.CachedSource{
			DB:      cache,
			Browser: b,
			Source:  browsers.NewProfileSource([]browsers.Browser{b}, log),
			Refresh: refresh,
			Log:     log,
		})
	}
	return sources, cache.Close, nil
}
