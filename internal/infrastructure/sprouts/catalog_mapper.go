package sprouts

import (
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// MapToRawProduct converts a catalog item into the raw listing strings the
// normalizer expects. The price is rendered as a price block so API and page
// listings parse the same way. The price is written unrounded; a missing
// price yields an empty block.
func MapToRawProduct(item CatalogItem) domain.RawProductText {
	raw := domain.RawProductText{
		NameRaw:   strings.TrimSpace(item.Name),
		SizeRaw:   firstNonEmpty(item.UnitSize, item.Size, item.Package),
		ImageURL:  strings.TrimSpace(item.ImageURL),
		ProductID: strings.TrimSpace(item.ID),
		Category:  strings.TrimSpace(item.Category),
	}
	if item.Price > 0 {
		raw.PriceBlockRaw = "Current price: $" + strconv.FormatFloat(item.Price, 'f', -1, 64)
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
