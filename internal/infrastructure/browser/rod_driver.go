// Package browser implements domain.PageDriver on a Chromium instance controlled through go-rod.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pricelens/backend/internal/domain"
)

const defaultChromiumBin = "/usr/bin/chromium-browser"

// Config holds the browser launch settings
type Config struct {
	Headless bool
	// Bin is the browser executable; empty uses the system Chromium when
	// present and otherwise lets rod download one
	Bin            string
	ViewportWidth  int
	ViewportHeight int
}

// Browser is a launched browser shared by all scrape pages
type Browser struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	config   Config
}

// Launch starts a browser and connects to it
func Launch(config Config) (*Browser, error) {
	if config.ViewportWidth <= 0 {
		config.ViewportWidth = 1280
	}
	if config.ViewportHeight <= 0 {
		config.ViewportHeight = 900
	}

	l := launcher.New().
		Headless(config.Headless).
		NoSandbox(true).
		Leakless(false)

	bin := config.Bin
	if bin == "" {
		if _, err := os.Stat(defaultChromiumBin); err == nil {
			bin = defaultChromiumBin
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.Printf("[BROWSER] Launched (headless=%v, bin=%q)", config.Headless, bin)
	return &Browser{launcher: l, browser: b, config: config}, nil
}

// NewPage opens a blank page. It matches the page factory used by the browser candidate source.
func (b *Browser) NewPage(ctx context.Context) (domain.PageDriver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil, errors.New("browser is closed")
	}

	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.config.ViewportWidth,
		Height:            b.config.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	// Detach the page from the creating context; each call scopes its own
	return &Page{page: page.Context(context.Background())}, nil
}

// Close shuts the browser down
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

// Page is a domain.PageDriver over one browser tab
type Page struct {
	page *rod.Page
}

// Navigate opens url and waits for the load event
func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return mapError(err)
	}
	return mapError(page.WaitLoad())
}

// WaitForSelector waits until selector matches an element
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	if _, err := page.Element(selector); err != nil {
		return fmt.Errorf("%s: %w", selector, mapError(err))
	}
	return nil
}

// Count returns the number of elements matching selector right now
func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, mapError(err)
	}
	return len(els), nil
}

// Click clicks the first element matching selector
func (p *Page) Click(ctx context.Context, selector string) error {
	el, err := p.first(ctx, selector)
	if err != nil {
		return err
	}
	return mapError(el.Click(proto.InputMouseButtonLeft, 1))
}

// ClickNth clicks the index-th element matching selector. The click is
// dispatched from script so elements hidden behind overlays still receive it.
func (p *Page) ClickNth(ctx context.Context, selector string, index int) error {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return mapError(err)
	}
	if index < 0 || index >= len(els) {
		return fmt.Errorf("no element %d for %s (found %d)", index, selector, len(els))
	}
	_, err = els[index].Eval(`() => this.click()`)
	return mapError(err)
}

// Type focuses the first element matching selector and types text into it
func (p *Page) Type(ctx context.Context, selector, text string) error {
	el, err := p.first(ctx, selector)
	if err != nil {
		return err
	}
	return mapError(el.Input(text))
}

// HTML returns the current document markup
func (p *Page) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	return html, mapError(err)
}

// ScrollToBottom scrolls the window to the end of the document and returns its height
func (p *Page) ScrollToBottom(ctx context.Context) (int, error) {
	res, err := p.page.Context(ctx).Eval(`() => {
		window.scrollTo(0, document.body.scrollHeight);
		return document.body.scrollHeight;
	}`)
	if err != nil {
		return 0, mapError(err)
	}
	return res.Value.Int(), nil
}

// Close closes the tab
func (p *Page) Close() error {
	return p.page.Close()
}

func (p *Page) first(ctx context.Context, selector string) (*rod.Element, error) {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, mapError(err)
	}
	if !has {
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	return el, nil
}

// mapError reports expired waits as domain.ErrTimeout
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
