package sprouts

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// SessionConfig holds the storefront and timing settings of a browser session
type SessionConfig struct {
	BaseURL                string
	ZipCode                string
	TopN                   int
	MaxScrolls             int
	ScrollPause            time.Duration
	PopupTimeout           time.Duration
	LocationTimeout        time.Duration
	ItemListTimeout        time.Duration
	ItemListLoadAllTimeout time.Duration
	ItemDetailTimeout      time.Duration
	EnableDebugLogging     bool
}

// DefaultSessionConfig returns the settings used when a field is left zero
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		BaseURL:                "https://shop.sprouts.com",
		ZipCode:                "10024",
		TopN:                   5,
		MaxScrolls:             50,
		ScrollPause:            time.Second,
		PopupTimeout:           5 * time.Second,
		LocationTimeout:        20 * time.Second,
		ItemListTimeout:        10 * time.Second,
		ItemListLoadAllTimeout: 5 * time.Second,
		ItemDetailTimeout:      10 * time.Second,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.ZipCode == "" {
		c.ZipCode = d.ZipCode
	}
	if c.TopN <= 0 {
		c.TopN = d.TopN
	}
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = d.MaxScrolls
	}
	if c.ScrollPause < 0 {
		c.ScrollPause = 0
	}
	if c.PopupTimeout <= 0 {
		c.PopupTimeout = d.PopupTimeout
	}
	if c.LocationTimeout <= 0 {
		c.LocationTimeout = d.LocationTimeout
	}
	if c.ItemListTimeout <= 0 {
		c.ItemListTimeout = d.ItemListTimeout
	}
	if c.ItemListLoadAllTimeout <= 0 {
		c.ItemListLoadAllTimeout = d.ItemListLoadAllTimeout
	}
	if c.ItemDetailTimeout <= 0 {
		c.ItemDetailTimeout = d.ItemDetailTimeout
	}
	return c
}

// minLocationButtons is the number of dialog buttons present once the header has rendered
const minLocationButtons = 3

var pollInterval = 250 * time.Millisecond

// Session drives one search page through the fixed storefront sequence
type Session struct {
	driver domain.PageDriver
	config SessionConfig
	sel    Selectors
}

// NewSession creates a session over driver. The caller owns the driver.
func NewSession(driver domain.PageDriver, config SessionConfig, sel Selectors) *Session {
	return &Session{
		driver: driver,
		config: config.withDefaults(),
		sel:    sel,
	}
}

// SearchURL returns the search page URL for query
func (s *Session) SearchURL(query string) string {
	return fmt.Sprintf("%s/store/sprouts/s?k=%s", strings.TrimRight(s.config.BaseURL, "/"), url.QueryEscape(query))
}

// Snapshots yields the HTML of each expanded product detail panel, in list order.
// Popups, location switching and loading more results are best effort; their
// failures are logged. A missing result list ends the sequence with an error
// wrapping domain.ErrTimeout. An item that fails to expand ends the sequence
// with its error after the snapshots already yielded.
func (s *Session) Snapshots(ctx context.Context, query string, loadAll bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		pageURL := s.SearchURL(query)
		log.Printf("[SESSION] Opening %s (loadAll=%v)", pageURL, loadAll)

		if err := s.driver.Navigate(ctx, pageURL); err != nil {
			yield("", fmt.Errorf("failed to open search page: %w", err))
			return
		}

		if err := s.dismissCookieBanner(ctx); err != nil {
			log.Printf("[SESSION] No cookie popup found: %v", err)
		}
		if err := s.switchLocation(ctx); err != nil {
			log.Printf("[SESSION] Error switching location: %v", err)
		}
		if loadAll {
			if err := s.loadAll(ctx); err != nil {
				log.Printf("[SESSION] Error loading more results: %v", err)
			}
		}

		listTimeout := s.config.ItemListTimeout
		if loadAll {
			listTimeout = s.config.ItemListLoadAllTimeout
		}
		if err := s.driver.WaitForSelector(ctx, s.sel.Item, listTimeout); err != nil {
			yield("", fmt.Errorf("result list %s: %w", s.sel.Item, asTimeout(err)))
			return
		}

		count, err := s.driver.Count(ctx, s.sel.Item)
		if err != nil {
			yield("", fmt.Errorf("failed to count results: %w", err))
			return
		}
		n := count
		if !loadAll {
			n = min(count, s.config.TopN)
		}
		log.Printf("[SESSION] %d results listed, expanding %d", count, n)

		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			html, err := s.expand(ctx, i)
			if err != nil {
				yield("", fmt.Errorf("failed to expand item %d: %w", i, err))
				return
			}
			if !yield(html, nil) {
				return
			}

			if err := s.closeDetail(ctx); err != nil {
				yield("", fmt.Errorf("failed to close item %d: %w", i, err))
				return
			}
		}
	}
}

func (s *Session) dismissCookieBanner(ctx context.Context) error {
	if err := s.driver.WaitForSelector(ctx, s.sel.CookieBanner, s.config.PopupTimeout); err != nil {
		return err
	}
	if err := s.driver.Click(ctx, s.sel.CookieBanner); err != nil {
		return err
	}
	s.debugf("Cookie popup dismissed")
	return nil
}

func (s *Session) switchLocation(ctx context.Context) error {
	count, err := s.waitForCount(ctx, s.sel.LocationButton, minLocationButtons, s.config.LocationTimeout)
	if err != nil {
		return err
	}
	if err := s.driver.ClickNth(ctx, s.sel.LocationButton, count-1); err != nil {
		return err
	}

	if err := s.waitAndClick(ctx, s.sel.ChangeStore, s.config.PopupTimeout); err != nil {
		return err
	}

	if err := s.driver.WaitForSelector(ctx, s.sel.ZipInput, s.config.LocationTimeout); err != nil {
		return err
	}
	if err := s.driver.Type(ctx, s.sel.ZipInput, s.config.ZipCode); err != nil {
		return err
	}

	if err := s.waitAndClick(ctx, s.sel.LocationResult, s.config.PopupTimeout); err != nil {
		return err
	}
	if err := s.waitAndClick(ctx, s.sel.StoreResult, s.config.PopupTimeout); err != nil {
		return err
	}

	log.Printf("[SESSION] Location switched to %s", s.config.ZipCode)
	return nil
}

// loadAll scrolls until the page stops growing, presses "load more" and scrolls again
func (s *Session) loadAll(ctx context.Context) error {
	if err := s.scrollToEnd(ctx); err != nil {
		return err
	}
	if err := s.waitAndClick(ctx, s.sel.LoadMore, s.config.LocationTimeout); err != nil {
		return err
	}
	return s.scrollToEnd(ctx)
}

func (s *Session) scrollToEnd(ctx context.Context) error {
	previous := -1
	for i := 0; i < s.config.MaxScrolls; i++ {
		height, err := s.driver.ScrollToBottom(ctx)
		if err != nil {
			return err
		}
		if height == previous {
			s.debugf("Page height settled at %d after %d scrolls", height, i)
			return nil
		}
		previous = height

		if err := sleep(ctx, s.config.ScrollPause); err != nil {
			return err
		}
	}
	s.debugf("Stopped scrolling after %d scrolls", s.config.MaxScrolls)
	return nil
}

func (s *Session) expand(ctx context.Context, index int) (string, error) {
	if err := s.driver.ClickNth(ctx, s.sel.Item, index); err != nil {
		return "", err
	}
	if err := s.driver.WaitForSelector(ctx, s.sel.Name, s.config.ItemDetailTimeout); err != nil {
		return "", err
	}
	return s.driver.HTML(ctx)
}

func (s *Session) closeDetail(ctx context.Context) error {
	if err := s.driver.Click(ctx, s.sel.CloseDetail); err != nil {
		return err
	}
	return s.driver.WaitForSelector(ctx, s.sel.Item, s.config.ItemListTimeout)
}

func (s *Session) waitAndClick(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.driver.WaitForSelector(ctx, selector, timeout); err != nil {
		return err
	}
	return s.driver.Click(ctx, selector)
}

// waitForCount polls until at least n elements match selector
func (s *Session) waitForCount(ctx context.Context, selector string, n int, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		count, err := s.driver.Count(ctx, selector)
		if err != nil {
			return 0, err
		}
		if count >= n {
			return count, nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("%w: %d of %d %s after %s", domain.ErrTimeout, count, n, selector, timeout)
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return 0, err
		}
	}
}

func (s *Session) debugf(format string, args ...interface{}) {
	if s.config.EnableDebugLogging {
		log.Printf("[SESSION] "+format, args...)
	}
}

// asTimeout makes sure a failed required wait reports domain.ErrTimeout
func asTimeout(err error) error {
	if errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
