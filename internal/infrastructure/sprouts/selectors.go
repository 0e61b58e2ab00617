// Package sprouts scrapes product listings from the Sprouts online storefront,
// either by driving a browser through the search page or through its catalog API.
package sprouts

// StoreName identifies the storefront in history entries and cache keys
const StoreName = "sprouts"

// Selectors holds the CSS selectors of the storefront pages.
// The class names are generated by the storefront build and change from time to time.
type Selectors struct {
	// Product detail panel
	Container     string
	Name          string
	Deal          string
	PriceBlock    string
	QuantityBlock string
	Tag           string
	Image         string

	// Popups and location switching
	CookieBanner   string
	LocationButton string
	ChangeStore    string
	ZipInput       string
	LocationResult string
	StoreResult    string

	// Result list
	LoadMore    string
	Item        string
	CloseDetail string
}

// DefaultSelectors returns the selectors of the current storefront build
func DefaultSelectors() Selectors {
	return Selectors{
		Container:     ".e-l0tco0",
		Name:          "span.e-1q8o1gj",
		Deal:          "div.e-10j5a5k",
		PriceBlock:    "span.e-ceqez7",
		QuantityBlock: "div.e-k008qs",
		Tag:           "div.e-13d259n span",
		Image:         "div.ic-image-zoomer > img",

		CookieBanner:   ".trustarc-banner-close",
		LocationButton: "button.e-w2av07[aria-haspopup='dialog']",
		ChangeStore:    "button.e-1wlht9u",
		ZipInput:       "input.e-t267xt",
		LocationResult: "button.e-616lx5",
		StoreResult:    "button.e-17shihj",

		LoadMore:    "span.e-1evx3ij",
		Item:        "a.e-nn60uq",
		CloseDetail: "button.e-10bwqtf",
	}
}
