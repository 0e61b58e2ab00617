package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

var (
	// Matches a dollar amount like "$3.99" or "$1,299.00"
	dollarAmountPattern = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d+)?)`)

	// Matches an explicit percentage like "20%" or "12.5 %"
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

const originalPriceMarker = "original price"

// ParsePriceInfo parses a storefront price block such as
// "Current price: $3.99 Original price: $4.99". A block without a current
// price is a parse anomaly.
func ParsePriceInfo(raw string) (domain.PriceInfo, error) {
	lower := strings.ToLower(raw)

	currentPart, originalPart := lower, ""
	if idx := strings.Index(lower, originalPriceMarker); idx >= 0 {
		currentPart = lower[:idx]
		originalPart = lower[idx+len(originalPriceMarker):]
	}

	current, ok := firstDollarAmount(currentPart)
	if !ok || current <= 0 {
		return domain.PriceInfo{}, fmt.Errorf("%w: no current price in %q", domain.ErrParseAnomaly, raw)
	}

	info := domain.PriceInfo{CurrentPrice: current}

	original, ok := firstDollarAmount(originalPart)
	if !ok || original <= current {
		return info, nil
	}

	percent, ok := explicitPercent(dollarAmountPattern.ReplaceAllString(originalPart, " "))
	if !ok {
		percent = discountPercent(current, original)
	}

	info.OriginalPrice = &original
	info.PercentOff = &percent
	return info, nil
}

// ParsePrice parses a bare dollar string such as "$3.99" or "3.99"
func ParsePrice(s string) (float64, bool) {
	if v, ok := firstDollarAmount(s); ok {
		return v, true
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil || math.IsNaN(v) || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseQuantityBlock splits a quantity block like "(est.) 1 lb • $3.99/lb"
// into the quantity text and the unit-price text.
func ParseQuantityBlock(raw string) (quantity, unitPrice string) {
	text := raw
	if idx := strings.LastIndex(text, ")"); idx >= 0 {
		text = text[idx+1:]
	}

	parts := strings.SplitN(text, "•", 2)
	quantity = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		unitPrice = strings.TrimSpace(parts[1])
	}
	return quantity, unitPrice
}

// FormatDeal renders a discount as "20% [Original Price: 4.99]".
// Without a discount the scraped deal text is kept.
func FormatDeal(price domain.PriceInfo, dealRaw string) string {
	if price.OriginalPrice == nil || price.PercentOff == nil {
		return strings.TrimSpace(dealRaw)
	}
	return fmt.Sprintf("%s%% [Original Price: %.2f]", formatNumber(*price.PercentOff), *price.OriginalPrice)
}

func firstDollarAmount(s string) (float64, bool) {
	m := dollarAmountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func explicitPercent(s string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 || v >= 100 {
		return 0, false
	}
	return v, true
}

// discountPercent is rounded to one decimal, falling back to the exact value
// when rounding would reach 0 or 100.
func discountPercent(current, original float64) float64 {
	exact := (original - current) / original * 100
	rounded := math.Round(exact*10) / 10
	if rounded <= 0 || rounded >= 100 {
		return exact
	}
	return rounded
}
