package sprouts

import (
	"testing"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapToRawProduct(t *testing.T) {
	tests := []struct {
		name     string
		item     CatalogItem
		expected domain.RawProductText
	}{
		{
			name: "unit size preferred",
			item: CatalogItem{ID: "101", Name: " Organic Garlic ", Price: 0.99, UnitSize: "1 each", Size: "3 oz", Category: "Produce", ImageURL: "https://images.example.com/101.jpg"},
			expected: domain.RawProductText{
				NameRaw:       "Organic Garlic",
				SizeRaw:       "1 each",
				PriceBlockRaw: "Current price: $0.99",
				ProductID:     "101",
				Category:      "Produce",
				ImageURL:      "https://images.example.com/101.jpg",
			},
		},
		{
			name:     "package fallback",
			item:     CatalogItem{ID: "7", Name: "Hummus", Price: 4.5, Package: "10 oz"},
			expected: domain.RawProductText{NameRaw: "Hummus", SizeRaw: "10 oz", PriceBlockRaw: "Current price: $4.5", ProductID: "7"},
		},
		{
			name:     "sub-cent price is not rounded",
			item:     CatalogItem{ID: "9", Name: "Saffron", Price: 12.999, Size: "0.02 oz"},
			expected: domain.RawProductText{NameRaw: "Saffron", SizeRaw: "0.02 oz", PriceBlockRaw: "Current price: $12.999", ProductID: "9"},
		},
		{
			name:     "missing price leaves the block empty",
			item:     CatalogItem{ID: "8", Name: "Mystery"},
			expected: domain.RawProductText{NameRaw: "Mystery", ProductID: "8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapToRawProduct(tt.item))
		})
	}
}

func TestMapToRawProduct_PriceSurvivesParsing(t *testing.T) {
	for _, price := range []float64{0.99, 4.5, 12.999, 1234.5678} {
		raw := MapToRawProduct(CatalogItem{ID: "1", Name: "Garlic", Price: price})

		info, err := usecase.ParsePriceInfo(raw.PriceBlockRaw)
		require.NoError(t, err, raw.PriceBlockRaw)
		assert.Equal(t, price, info.CurrentPrice, raw.PriceBlockRaw)
	}
}
