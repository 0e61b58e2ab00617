package sprouts

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricelens/backend/internal/domain"
)

// ParseSnapshot extracts the raw listing strings from the HTML of an
// expanded product detail panel. A snapshot without the detail container or
// without a product name returns an error wrapping domain.ErrParseAnomaly.
func ParseSnapshot(html string, sel Selectors) (domain.RawProductText, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.RawProductText{}, fmt.Errorf("%w: %v", domain.ErrParseAnomaly, err)
	}

	container := doc.Find(sel.Container).First()
	if container.Length() == 0 {
		return domain.RawProductText{}, fmt.Errorf("%w: no %s element", domain.ErrParseAnomaly, sel.Container)
	}

	raw := domain.RawProductText{
		NameRaw:          text(container.Find(sel.Name)),
		DealRaw:          text(container.Find(sel.Deal)),
		PriceBlockRaw:    text(container.Find(sel.PriceBlock)),
		QuantityBlockRaw: text(container.Find(sel.QuantityBlock)),
	}
	if raw.NameRaw == "" {
		return domain.RawProductText{}, fmt.Errorf("%w: empty product name", domain.ErrParseAnomaly)
	}

	if src, ok := container.Find(sel.Image).First().Attr("src"); ok {
		raw.ImageURL = strings.TrimSpace(src)
	}

	// Badges are rendered outside the panel on some layouts
	doc.Find(sel.Tag).Each(func(_ int, s *goquery.Selection) {
		if tag := strings.TrimSpace(s.Text()); tag != "" {
			raw.TagTextList = append(raw.TagTextList, tag)
		}
	})

	return raw, nil
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.First().Text())
}
