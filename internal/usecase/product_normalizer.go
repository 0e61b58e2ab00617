package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// ProductNormalizer turns the scraped strings of one listing into a NormalizedProduct
type ProductNormalizer struct {
	names       *NameNormalizer
	ignoredTags map[string]bool
}

// NewProductNormalizer creates a product normalizer
func NewProductNormalizer(names *NameNormalizer, ignoredTags []string) *ProductNormalizer {
	ignored := make(map[string]bool, len(ignoredTags))
	for _, t := range ignoredTags {
		ignored[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &ProductNormalizer{
		names:       names,
		ignoredTags: ignored,
	}
}

// Normalize parses one listing. A listing without a name or a current price
// returns an error wrapping domain.ErrParseAnomaly.
func (p *ProductNormalizer) Normalize(raw domain.RawProductText) (*domain.NormalizedProduct, error) {
	title := strings.TrimSpace(multiSpacePattern.ReplaceAllString(raw.NameRaw, " "))
	if title == "" {
		return nil, fmt.Errorf("%w: empty product name", domain.ErrParseAnomaly)
	}

	price, err := ParsePriceInfo(raw.PriceBlockRaw)
	if err != nil {
		return nil, err
	}

	name := p.names.NormalizeName(title)
	quantity, unitPrice := ParseQuantityBlock(raw.QuantityBlockRaw)

	// Size comes from the explicit size text, then the quantity text, then the name
	size := ParseSizeUnit(raw.SizeRaw)
	if size == nil {
		size = ParseSizeUnit(quantity)
	}
	if size == nil && name.SizeUnit == domain.UnitOz && name.SizeValue != nil {
		size = &domain.SizeSpec{Value: *name.SizeValue, Unit: domain.UnitOz}
	}

	sizeText := strings.TrimSpace(raw.SizeRaw)
	if sizeText == "" {
		sizeText = quantity
	}
	if sizeText == "" {
		sizeText = FormatSize(size)
	}

	return &domain.NormalizedProduct{
		Title:         title,
		Name:          name,
		Size:          size,
		SizeText:      sizeText,
		Price:         price,
		QuantityText:  quantity,
		UnitPriceText: unitPrice,
		PricePerUnit:  ToPricePerUnit(price.CurrentPrice, size),
		Deal:          FormatDeal(price, raw.DealRaw),
		Tags:          p.cleanTags(raw.TagTextList),
		ImageURL:      strings.TrimSpace(raw.ImageURL),
		ProductID:     strings.TrimSpace(raw.ProductID),
		Category:      strings.TrimSpace(raw.Category),
	}, nil
}

// cleanTags lowercases, drops ignored badges and returns a sorted set
func (p *ProductNormalizer) cleanTags(tags []string) []string {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || p.ignoredTags[t] {
			continue
		}
		set[t] = true
	}
	if len(set) == 0 {
		return nil
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
