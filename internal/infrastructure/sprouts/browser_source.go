package sprouts

import (
	"context"
	"fmt"
	"iter"

	"github.com/pricelens/backend/internal/domain"
)

// DriverFactory opens a fresh page for one scrape
type DriverFactory func(ctx context.Context) (domain.PageDriver, error)

// BrowserSource produces candidates by driving the storefront search page
type BrowserSource struct {
	newDriver DriverFactory
	config    SessionConfig
	sel       Selectors
}

// NewBrowserSource creates a browser-backed candidate source
func NewBrowserSource(newDriver DriverFactory, config SessionConfig) *BrowserSource {
	return &BrowserSource{
		newDriver: newDriver,
		config:    config,
		sel:       DefaultSelectors(),
	}
}

// WithSelectors replaces the page selectors
func (b *BrowserSource) WithSelectors(sel Selectors) *BrowserSource {
	b.sel = sel
	return b
}

// Name returns the storefront name
func (b *BrowserSource) Name() string {
	return StoreName
}

// Candidates opens a page, walks the search results and yields one listing per
// expanded item. Snapshots that do not parse are yielded as parse anomalies.
// The page is closed when the sequence ends.
func (b *BrowserSource) Candidates(ctx context.Context, query string, opts domain.ScrapeOptions) iter.Seq2[domain.RawProductText, error] {
	return func(yield func(domain.RawProductText, error) bool) {
		driver, err := b.newDriver(ctx)
		if err != nil {
			yield(domain.RawProductText{}, fmt.Errorf("failed to open browser page: %w", err))
			return
		}
		defer driver.Close()

		session := NewSession(driver, b.config, b.sel)
		for html, err := range session.Snapshots(ctx, query, opts.LoadAll) {
			if err != nil {
				yield(domain.RawProductText{}, err)
				return
			}
			if !yield(ParseSnapshot(html, b.sel)) {
				return
			}
		}
	}
}
