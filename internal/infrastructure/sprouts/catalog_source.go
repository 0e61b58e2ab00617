package sprouts

import (
	"context"
	"fmt"
	"iter"
	"log"

	"github.com/pricelens/backend/internal/domain"
)

// itemFetcher is the part of CatalogClient used by CatalogSource
type itemFetcher interface {
	SearchIDs(ctx context.Context, query string) ([]string, error)
	ItemDetails(ctx context.Context, ids []string) ([]CatalogItem, error)
}

// CatalogSource produces candidates from the search page ids and the catalog API
type CatalogSource struct {
	client itemFetcher
	topN   int
}

// NewCatalogSource creates a catalog-backed candidate source.
// Without LoadAll only the first topN ids are looked up.
func NewCatalogSource(client *CatalogClient) *CatalogSource {
	return &CatalogSource{client: client, topN: client.config.TopN}
}

// Name returns the storefront name
func (c *CatalogSource) Name() string {
	return StoreName
}

// Candidates yields one listing per catalog item, in search order. A search
// without ids ends with domain.ErrNotFound.
func (c *CatalogSource) Candidates(ctx context.Context, query string, opts domain.ScrapeOptions) iter.Seq2[domain.RawProductText, error] {
	return func(yield func(domain.RawProductText, error) bool) {
		ids, err := c.client.SearchIDs(ctx, query)
		if err != nil {
			yield(domain.RawProductText{}, err)
			return
		}
		if len(ids) == 0 {
			yield(domain.RawProductText{}, fmt.Errorf("%w: no search results for %q", domain.ErrNotFound, query))
			return
		}
		if !opts.LoadAll && c.topN > 0 && len(ids) > c.topN {
			ids = ids[:c.topN]
		}

		items, err := c.client.ItemDetails(ctx, ids)
		if err != nil {
			yield(domain.RawProductText{}, err)
			return
		}
		log.Printf("[CATALOG] %d items for %q", len(items), query)

		for _, item := range items {
			if !yield(MapToRawProduct(item), nil) {
				return
			}
		}
	}
}
