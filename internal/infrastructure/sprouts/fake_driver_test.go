package sprouts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// fakeDriver simulates the storefront search page
type fakeDriver struct {
	mu  sync.Mutex
	sel Selectors

	items    []string       // names of the listed products
	present  map[string]int // element counts for the other selectors
	heights  []int
	expandAt map[int]error // ClickNth errors on the item list

	opened  int
	scrolls int
	typed   map[string]string
	calls   []string
	closed  bool
}

func newFakeDriver(items ...string) *fakeDriver {
	sel := DefaultSelectors()
	return &fakeDriver{
		sel:   sel,
		items: items,
		present: map[string]int{
			sel.CookieBanner:   1,
			sel.LocationButton: 4,
			sel.ChangeStore:    1,
			sel.ZipInput:       1,
			sel.LocationResult: 1,
			sel.StoreResult:    1,
			sel.LoadMore:       1,
			sel.CloseDetail:    1,
		},
		heights:  []int{900, 1800, 1800},
		expandAt: map[int]error{},
		opened:   -1,
		typed:    map[string]string{},
	}
}

func (f *fakeDriver) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) count(selector string) int {
	switch selector {
	case f.sel.Item:
		return len(f.items)
	case f.sel.Name:
		if f.opened >= 0 {
			return 1
		}
		return 0
	default:
		return f.present[selector]
	}
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate %s", url)
	return nil
}

func (f *fakeDriver) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("wait %s", selector)
	if f.count(selector) == 0 {
		return fmt.Errorf("%w: %s after %s", domain.ErrTimeout, selector, timeout)
	}
	return nil
}

func (f *fakeDriver) Count(ctx context.Context, selector string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count(selector), nil
}

func (f *fakeDriver) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("click %s", selector)
	if f.count(selector) == 0 {
		return errors.New("element not found: " + selector)
	}
	if selector == f.sel.CloseDetail {
		f.opened = -1
	}
	return nil
}

func (f *fakeDriver) ClickNth(ctx context.Context, selector string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("click %s[%d]", selector, index)
	if index >= f.count(selector) {
		return fmt.Errorf("no element %d for %s", index, selector)
	}
	if selector == f.sel.Item {
		if err := f.expandAt[index]; err != nil {
			return err
		}
		f.opened = index
	}
	return nil
}

func (f *fakeDriver) Type(ctx context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("type %s", selector)
	f.typed[selector] = text
	return nil
}

func (f *fakeDriver) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.opened < 0 {
		return "<html><body></body></html>", nil
	}
	return detailHTML(f.items[f.opened]), nil
}

func (f *fakeDriver) ScrollToBottom(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("scroll")
	h := f.heights[min(f.scrolls, len(f.heights)-1)]
	f.scrolls++
	return h, nil
}

func (f *fakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeDriver) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeDriver) countCalls(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func detailHTML(name string) string {
	return `<html><body>
<div class="e-l0tco0">
  <div class="ic-image-zoomer"><img src="https://images.example.com/` + name + `.jpg"></div>
  <span class="e-1q8o1gj">` + name + `</span>
  <span class="e-ceqez7">Current price: $3.99 Original price: $4.99</span>
  <div class="e-k008qs">(est.) 1 lb • $3.99/lb</div>
  <div class="e-10j5a5k">Digital coupon</div>
</div>
<div class="e-13d259n"><span>Organic</span></div>
<div class="e-13d259n"><span>Sprouts Brand</span></div>
</body></html>`
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		TopN:                   5,
		MaxScrolls:             10,
		PopupTimeout:           time.Millisecond,
		LocationTimeout:        time.Millisecond,
		ItemListTimeout:        time.Millisecond,
		ItemListLoadAllTimeout: time.Millisecond,
		ItemDetailTimeout:      time.Millisecond,
	}
}
