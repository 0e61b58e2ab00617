package sprouts

import (
	"context"
	"errors"
	"testing"

	"github.com/pricelens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s *Session, ctx context.Context, query string, loadAll bool) ([]string, error) {
	t.Helper()
	var (
		pages   []string
		lastErr error
	)
	for html, err := range s.Snapshots(ctx, query, loadAll) {
		if err != nil {
			lastErr = err
			continue
		}
		pages = append(pages, html)
	}
	return pages, lastErr
}

func TestSession_SearchURL(t *testing.T) {
	s := NewSession(newFakeDriver(), SessionConfig{BaseURL: "https://shop.example.com/"}, DefaultSelectors())
	assert.Equal(t, "https://shop.example.com/store/sprouts/s?k=garlic+powder", s.SearchURL("garlic powder"))
	assert.Equal(t, "https://shop.example.com/store/sprouts/s?k=mac+%26+cheese", s.SearchURL("mac & cheese"))
}

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession(newFakeDriver(), SessionConfig{}, DefaultSelectors())
	d := DefaultSessionConfig()

	assert.Equal(t, d.BaseURL, s.config.BaseURL)
	assert.Equal(t, "10024", s.config.ZipCode)
	assert.Equal(t, 5, s.config.TopN)
	assert.Equal(t, 50, s.config.MaxScrolls)
	assert.Equal(t, d.ItemListTimeout, s.config.ItemListTimeout)
}

func TestSession_Snapshots_TopN(t *testing.T) {
	driver := newFakeDriver("a", "b", "c", "d", "e", "f", "g")
	sel := DefaultSelectors()
	s := NewSession(driver, testSessionConfig(), sel)

	pages, err := collect(t, s, context.Background(), "garlic", false)
	require.NoError(t, err)
	require.Len(t, pages, 5)

	for i, name := range []string{"a", "b", "c", "d", "e"} {
		raw, err := ParseSnapshot(pages[i], sel)
		require.NoError(t, err)
		assert.Equal(t, name, raw.NameRaw, "snapshots follow list order")
	}

	assert.True(t, driver.called("navigate https://shop.sprouts.com/store/sprouts/s?k=garlic"))
	assert.True(t, driver.called("click .trustarc-banner-close"))
	assert.True(t, driver.called("click "+sel.LocationButton+"[3]"), "the last location button is used")
	assert.Equal(t, "10024", driver.typed[sel.ZipInput])
	assert.True(t, driver.called("click "+sel.StoreResult))
	assert.Equal(t, 0, driver.countCalls("scroll"), "no scrolling without load-all")
	assert.Equal(t, 5, driver.countCalls("click "+sel.CloseDetail))
}

func TestSession_Snapshots_FewerItemsThanTopN(t *testing.T) {
	driver := newFakeDriver("a", "b")
	s := NewSession(driver, testSessionConfig(), DefaultSelectors())

	pages, err := collect(t, s, context.Background(), "garlic", false)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestSession_Snapshots_LoadAll(t *testing.T) {
	driver := newFakeDriver("a", "b", "c", "d", "e", "f", "g")
	sel := DefaultSelectors()
	s := NewSession(driver, testSessionConfig(), sel)

	pages, err := collect(t, s, context.Background(), "garlic", true)
	require.NoError(t, err)
	assert.Len(t, pages, 7, "load-all expands every listed item")
	assert.True(t, driver.called("click "+sel.LoadMore))
	// 900, 1800, 1800 settles after three scrolls; the second pass sees 1800 twice
	assert.Equal(t, 5, driver.countCalls("scroll"))
}

func TestSession_Snapshots_MaxScrolls(t *testing.T) {
	driver := newFakeDriver("a")
	driver.heights = []int{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000, 1100, 1200}
	cfg := testSessionConfig()
	cfg.MaxScrolls = 3
	s := NewSession(driver, cfg, DefaultSelectors())

	_, err := collect(t, s, context.Background(), "garlic", true)
	require.NoError(t, err)
	assert.Equal(t, 6, driver.countCalls("scroll"), "each scroll pass stops at the limit")
}

func TestSession_Snapshots_OptionalStepsFailSilently(t *testing.T) {
	driver := newFakeDriver("a", "b")
	sel := DefaultSelectors()
	delete(driver.present, sel.CookieBanner)
	driver.present[sel.LocationButton] = 2
	delete(driver.present, sel.LoadMore)
	s := NewSession(driver, testSessionConfig(), sel)

	pages, err := collect(t, s, context.Background(), "garlic", true)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.False(t, driver.called("click "+sel.CookieBanner))
	assert.Empty(t, driver.typed, "location switch is skipped with too few header buttons")
}

func TestSession_Snapshots_NoResultList(t *testing.T) {
	driver := newFakeDriver()
	s := NewSession(driver, testSessionConfig(), DefaultSelectors())

	pages, err := collect(t, s, context.Background(), "unobtainium", false)
	assert.Empty(t, pages)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestSession_Snapshots_ExpandFailureEndsSequence(t *testing.T) {
	driver := newFakeDriver("a", "b", "c", "d")
	driver.expandAt[2] = errors.New("element detached")
	s := NewSession(driver, testSessionConfig(), DefaultSelectors())

	pages, err := collect(t, s, context.Background(), "garlic", false)
	assert.Len(t, pages, 2, "snapshots before the failure are kept")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element detached")
}

func TestSession_Snapshots_StopsWhenConsumerStops(t *testing.T) {
	driver := newFakeDriver("a", "b", "c")
	sel := DefaultSelectors()
	s := NewSession(driver, testSessionConfig(), sel)

	for _, err := range s.Snapshots(context.Background(), "garlic", false) {
		require.NoError(t, err)
		break
	}
	assert.Equal(t, 1, driver.countCalls("click "+sel.Item))
}

func TestSession_Snapshots_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := newFakeDriver("a", "b")
	s := NewSession(driver, testSessionConfig(), DefaultSelectors())

	pages, err := collect(t, s, ctx, "garlic", false)
	assert.Empty(t, pages)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsTimeout(t *testing.T) {
	assert.ErrorIs(t, asTimeout(context.DeadlineExceeded), domain.ErrTimeout)
	assert.ErrorIs(t, asTimeout(domain.ErrTimeout), domain.ErrTimeout)
	assert.NotErrorIs(t, asTimeout(errors.New("boom")), domain.ErrTimeout)
}
