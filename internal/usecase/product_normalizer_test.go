package usecase

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pricelens/backend/internal/domain"
)

func newTestProductNormalizer() *ProductNormalizer {
	vocab := DefaultVocabulary()
	return NewProductNormalizer(NewNameNormalizer(vocab, false), vocab.IgnoredTags)
}

func TestProductNormalizer_Normalize(t *testing.T) {
	p := newTestProductNormalizer()

	t.Run("normalizes a full listing", func(t *testing.T) {
		raw := domain.RawProductText{
			NameRaw:          "  Organic   Garlic ",
			PriceBlockRaw:    "Current price: $0.79 Original price: $0.99",
			QuantityBlockRaw: "(est.) 1 each • $0.79/each",
			TagTextList:      []string{"Sprouts Brand", "Organic", "organic", "New", " Vegan "},
			ImageURL:         " https://images.example.com/garlic.jpg ",
			ProductID:        "12345",
			Category:         "Produce",
		}

		got, err := p.Normalize(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got.Title != "Organic Garlic" {
			t.Errorf("Title = %q, want %q", got.Title, "Organic Garlic")
		}
		if got.Name.CanonicalName != "garlic" {
			t.Errorf("CanonicalName = %q, want garlic", got.Name.CanonicalName)
		}
		if got.QuantityText != "1 each" || got.UnitPriceText != "$0.79/each" {
			t.Errorf("quantity = %q, unit price = %q", got.QuantityText, got.UnitPriceText)
		}
		if got.SizeText != "1 each" {
			t.Errorf("SizeText = %q, want %q", got.SizeText, "1 each")
		}
		if got.Size == nil || got.Size.Unit != domain.UnitEach {
			t.Errorf("Size = %+v, want each", got.Size)
		}
		if got.PricePerUnit == nil || *got.PricePerUnit != 0.79 {
			t.Errorf("PricePerUnit = %v, want 0.79", got.PricePerUnit)
		}
		if got.Deal != "20.2% [Original Price: 0.99]" {
			t.Errorf("Deal = %q", got.Deal)
		}
		if diff := cmp.Diff([]string{"organic", "vegan"}, got.Tags); diff != "" {
			t.Errorf("Tags mismatch (-want +got):\n%s", diff)
		}
		if got.ImageURL != "https://images.example.com/garlic.jpg" {
			t.Errorf("ImageURL = %q", got.ImageURL)
		}
		if got.ProductID != "12345" || got.Category != "Produce" {
			t.Errorf("ProductID = %q, Category = %q", got.ProductID, got.Category)
		}
	})

	t.Run("prefers explicit size text", func(t *testing.T) {
		got, err := p.Normalize(domain.RawProductText{
			NameRaw:          "Whole Milk",
			SizeRaw:          "64 fl oz",
			PriceBlockRaw:    "$4.00",
			QuantityBlockRaw: "1 each",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.SizeText != "64 fl oz" {
			t.Errorf("SizeText = %q, want 64 fl oz", got.SizeText)
		}
		if got.PricePerUnit == nil || *got.PricePerUnit != 4.0/64 {
			t.Errorf("PricePerUnit = %v, want %v", got.PricePerUnit, 4.0/64)
		}
	})

	t.Run("falls back to the ounce size in the name", func(t *testing.T) {
		got, err := p.Normalize(domain.RawProductText{
			NameRaw:       "Diced Tomatoes 14.5 oz",
			PriceBlockRaw: "$1.99",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.SizeText != "14.5 oz" {
			t.Errorf("SizeText = %q, want 14.5 oz", got.SizeText)
		}
		if got.PricePerUnit == nil || math.Abs(*got.PricePerUnit-1.99/14.5) > 1e-9 {
			t.Errorf("PricePerUnit = %v, want %v", got.PricePerUnit, 1.99/14.5)
		}
		if got.Deal != "" {
			t.Errorf("Deal = %q, want empty", got.Deal)
		}
	})

	t.Run("leaves price per unit empty without a size", func(t *testing.T) {
		got, err := p.Normalize(domain.RawProductText{NameRaw: "Garlic Bulb", PriceBlockRaw: "$0.50"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Size != nil || got.PricePerUnit != nil || got.SizeText != "" {
			t.Errorf("size = %+v, ppu = %v, text = %q", got.Size, got.PricePerUnit, got.SizeText)
		}
		if got.Tags != nil {
			t.Errorf("Tags = %v, want nil", got.Tags)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := p.Normalize(domain.RawProductText{NameRaw: "  ", PriceBlockRaw: "$1.00"})
		if !errors.Is(err, domain.ErrParseAnomaly) {
			t.Errorf("error = %v, want ErrParseAnomaly", err)
		}
	})

	t.Run("rejects missing price", func(t *testing.T) {
		_, err := p.Normalize(domain.RawProductText{NameRaw: "Garlic", PriceBlockRaw: "Out of stock"})
		if !errors.Is(err, domain.ErrParseAnomaly) {
			t.Errorf("error = %v, want ErrParseAnomaly", err)
		}
	})
}
