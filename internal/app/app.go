// Package app wires configuration into the scrape service and its collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/browser"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/memstore"
	"github.com/pricelens/backend/internal/infrastructure/sprouts"
	"github.com/pricelens/backend/internal/infrastructure/sqlite"
	"github.com/pricelens/backend/internal/usecase"
)

// Store is a price store that can also serve full records
type Store interface {
	domain.PriceStore
	domain.RecordReader
	Close() error
}

// App holds the wired services
type App struct {
	ScrapeService *usecase.ScrapeService
	Store         Store
	Cache         *cache.MemoryCache

	closers []func() error
}

// New builds the application from cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	vocab := usecase.DefaultVocabulary()
	if path := cfg.Normalizer.VocabularyFile; path != "" {
		loaded, err := usecase.LoadVocabularyFile(path)
		if err != nil {
			return nil, err
		}
		vocab = loaded
		log.Printf("Vocabulary extended from %s", path)
	}

	policy, err := usecase.ParseRankingPolicy(cfg.Matching.Policy)
	if err != nil {
		return nil, err
	}

	a := &App{}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	a.Cache = cache.NewMemoryCache(cache.DefaultSweepInterval)
	a.closers = append(a.closers, a.Cache.Close)

	source, closeSource := newSource(cfg)
	if closeSource != nil {
		a.closers = append(a.closers, closeSource)
	}

	a.ScrapeService = usecase.NewScrapeService(source, store, a.Cache, serviceConfig(cfg, vocab, policy))

	log.Printf("Scraper: mode=%s, policy=%s, store=%s, cache TTL=%s", cfg.Scraper.Mode, policy, cfg.Store.Type, cfg.Cache.TTL)
	return a, nil
}

// Close releases the browser, the cache and the store, in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func serviceConfig(cfg *config.Config, vocab usecase.Vocabulary, policy usecase.RankingPolicy) usecase.ScrapeServiceConfig {
	return usecase.ScrapeServiceConfig{
		Vocabulary:         vocab,
		Policy:             policy,
		RequireCategory:    cfg.Scraper.RequireCategory,
		CacheTTL:           cfg.Cache.TTL,
		StoreTimeout:       cfg.Store.Timeout,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open price store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// newSource returns the configured candidate source and, for browser mode, a
// func shutting the browser down
func newSource(cfg *config.Config) (domain.CandidateSource, func() error) {
	if cfg.Scraper.Mode == "catalog" {
		client := sprouts.NewCatalogClient(sprouts.CatalogConfig{
			BaseURL:         cfg.Scraper.BaseURL,
			ShopID:          cfg.Catalog.ShopID,
			ZoneID:          cfg.Catalog.ZoneID,
			PostalCode:      cfg.Catalog.PostalCode,
			QueryHash:       cfg.Catalog.QueryHash,
			UserAgent:       cfg.Catalog.UserAgent,
			RequestsPerHour: cfg.Catalog.RequestsPerHour,
			TopN:            cfg.Scraper.TopN,
		})
		client.SetDebug(cfg.Scraper.EnableDebugLogging)
		return sprouts.NewCatalogSource(client), nil
	}

	pages := &lazyBrowser{config: browser.Config{
		Headless: cfg.Scraper.Headless,
		Bin:      cfg.Scraper.BrowserBin,
	}}
	source := sprouts.NewBrowserSource(pages.NewPage, sprouts.SessionConfig{
		BaseURL:                cfg.Scraper.BaseURL,
		ZipCode:                cfg.Scraper.ZipCode,
		TopN:                   cfg.Scraper.TopN,
		MaxScrolls:             cfg.Scraper.MaxScrolls,
		ScrollPause:            cfg.Scraper.ScrollPause,
		PopupTimeout:           cfg.Scraper.PopupTimeout,
		LocationTimeout:        cfg.Scraper.LocationTimeout,
		ItemListTimeout:        cfg.Scraper.ItemListTimeout,
		ItemListLoadAllTimeout: cfg.Scraper.ItemListLoadAllTimeout,
		ItemDetailTimeout:      cfg.Scraper.ItemDetailTimeout,
		EnableDebugLogging:     cfg.Scraper.EnableDebugLogging,
	})
	return source, pages.Close
}

// lazyBrowser launches the browser on the first page request
type lazyBrowser struct {
	mu      sync.Mutex
	config  browser.Config
	browser *browser.Browser
}

func (l *lazyBrowser) NewPage(ctx context.Context) (domain.PageDriver, error) {
	l.mu.Lock()
	if l.browser == nil {
		b, err := browser.Launch(l.config)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
		l.browser = b
	}
	b := l.browser
	l.mu.Unlock()

	return b.NewPage(ctx)
}

func (l *lazyBrowser) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.browser == nil {
		return nil
	}
	err := l.browser.Close()
	l.browser = nil
	return err
}
