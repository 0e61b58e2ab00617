package sprouts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/pricelens/backend/internal/domain"
	"golang.org/x/time/rate"
)

const maxAttempts = 3

// CatalogConfig holds the catalog API settings
type CatalogConfig struct {
	BaseURL         string
	ShopID          string
	ZoneID          string
	PostalCode      string
	QueryHash       string
	UserAgent       string
	RequestsPerHour int
	TopN            int
}

// DefaultCatalogConfig returns the settings used when a field is left empty
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		BaseURL:         "https://shop.sprouts.com",
		ShopID:          "472984",
		ZoneID:          "1002",
		PostalCode:      "90001",
		QueryHash:       "c4fb5cd2b49248736ad7f78f71466560a38275b66e05d7b67447e210c74901d4",
		UserAgent:       "Mozilla/5.0",
		RequestsPerHour: 1000,
		TopN:            5,
	}
}

func (c CatalogConfig) withDefaults() CatalogConfig {
	d := DefaultCatalogConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.ShopID == "" {
		c.ShopID = d.ShopID
	}
	if c.ZoneID == "" {
		c.ZoneID = d.ZoneID
	}
	if c.PostalCode == "" {
		c.PostalCode = d.PostalCode
	}
	if c.QueryHash == "" {
		c.QueryHash = d.QueryHash
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.RequestsPerHour <= 0 {
		c.RequestsPerHour = d.RequestsPerHour
	}
	if c.TopN <= 0 {
		c.TopN = d.TopN
	}
	return c
}

// CatalogItem is one item of the catalog Items query
type CatalogItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	UnitSize string  `json:"unitSize"`
	Size     string  `json:"size"`
	Package  string  `json:"package"`
	Category string  `json:"category"`
	ImageURL string  `json:"imageUrl"`
}

type itemsResponse struct {
	Data struct {
		Items []CatalogItem `json:"items"`
	} `json:"data"`
}

// CatalogClient handles communication with the storefront search page and GraphQL API
type CatalogClient struct {
	http        *resty.Client
	config      CatalogConfig
	rateLimiter *rate.Limiter
	debug       bool
	backoff     func(attempt int) time.Duration
}

// NewCatalogClient creates a new catalog client
func NewCatalogClient(config CatalogConfig) *CatalogClient {
	config = config.withDefaults()

	// rate.Limit is requests per second
	limiter := rate.NewLimiter(rate.Limit(float64(config.RequestsPerHour)/3600), 10)

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", config.UserAgent)

	return &CatalogClient{
		http:        client,
		config:      config,
		rateLimiter: limiter,
		backoff:     exponentialBackoff,
	}
}

// SetDebug enables or disables debug logging
func (c *CatalogClient) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// SearchIDs returns the item ids listed on the search page for query
func (c *CatalogClient) SearchIDs(ctx context.Context, query string) ([]string, error) {
	log.Printf("[CATALOG] SearchIDs called with query: %q", query)

	body, err := c.get(ctx, "/search", map[string]string{"q": query})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var ids []string
	doc.Find(".product-grid__item").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("data-id"); ok && strings.TrimSpace(id) != "" {
			ids = append(ids, strings.TrimSpace(id))
		}
	})

	log.Printf("[CATALOG] Found %d item ids for query: %q", len(ids), query)
	return ids, nil
}

// ItemDetails fetches item details for ids through the persisted Items query
func (c *CatalogClient) ItemDetails(ctx context.Context, ids []string) ([]CatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	variables, err := json.Marshal(map[string]interface{}{
		"ids":        ids,
		"shopId":     c.config.ShopID,
		"zoneId":     c.config.ZoneID,
		"postalCode": c.config.PostalCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode variables: %w", err)
	}
	extensions, err := json.Marshal(map[string]interface{}{
		"persistedQuery": map[string]interface{}{
			"version":    1,
			"sha256Hash": c.config.QueryHash,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode extensions: %w", err)
	}

	body, err := c.get(ctx, "/graphql", map[string]string{
		"operationName": "Items",
		"variables":     string(variables),
		"extensions":    string(extensions),
	})
	if err != nil {
		return nil, err
	}

	var resp itemsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrCatalogAPIFailure, err)
	}

	if c.debug {
		log.Printf("[CATALOG] Items returned %d of %d requested", len(resp.Data.Items), len(ids))
	}
	return resp.Data.Items, nil
}

// get executes a GET request, retrying network failures and non-404 error statuses
func (c *CatalogClient) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			log.Printf("[CATALOG] Rate limiter error: %v", err)
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Printf("[CATALOG] Request error (attempt %d): %v", attempt, err)
			lastErr = fmt.Errorf("%w: %v", domain.ErrCatalogAPIFailure, err)
			continue
		}

		switch status := resp.StatusCode(); {
		case status == http.StatusOK:
			return resp.Body(), nil
		case status == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s returned 404", domain.ErrNotFound, path)
		default:
			log.Printf("[CATALOG] API error (attempt %d) - Status: %d, Body: %s", attempt, status, truncate(resp.String(), 200))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogAPIFailure, status)
			if status == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("%w: %w", domain.ErrRateLimited, lastErr)
			}
		}
	}

	log.Printf("[CATALOG] All retries failed for %s", path)
	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
