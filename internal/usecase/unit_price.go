package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Conversion constants to ounces / fluid ounces
const (
	ouncesPerPound     = 16.0
	gramsPerOunce      = 28.3495
	millilitersPerFlOz = 29.5735
)

// sizeUnitPattern matches the first "<number><unit>" pair in free text
var sizeUnitPattern = regexp.MustCompile(
	`(?i)(\d[\d,]*(?:\.\d+)?|\.\d+)\s*(fl\.?\s*oz|ounces?|oz|pounds?|lbs?|kg|grams?|g|ml|liters?|litres?|l|each|ea|count|ct)\b`,
)

// sizeUnitAliases maps matched unit text onto a SizeUnit
var sizeUnitAliases = map[string]domain.SizeUnit{
	"oz": domain.UnitOz, "ounce": domain.UnitOz, "ounces": domain.UnitOz,
	"lb": domain.UnitLb, "lbs": domain.UnitLb, "pound": domain.UnitLb, "pounds": domain.UnitLb,
	"g": domain.UnitG, "gram": domain.UnitG, "grams": domain.UnitG,
	"kg": domain.UnitKg,
	"ml": domain.UnitMl,
	"l": domain.UnitL, "liter": domain.UnitL, "liters": domain.UnitL, "litre": domain.UnitL, "litres": domain.UnitL,
	"each": domain.UnitEach, "ea": domain.UnitEach,
	"ct": domain.UnitCt, "count": domain.UnitCt,
}

// ParseSizeUnit extracts the first size from free text such as "16 oz" or "1.5 lb bag".
// Returns nil when no size is present or the value is not positive.
func ParseSizeUnit(text string) *domain.SizeSpec {
	m := sizeUnitPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || value <= 0 {
		return nil
	}

	unitText := strings.ToLower(m[2])
	var unit domain.SizeUnit
	if strings.HasPrefix(unitText, "fl") {
		unit = domain.UnitFlOz
	} else {
		unit = sizeUnitAliases[unitText]
	}

	return &domain.SizeSpec{Value: value, Unit: unit}
}

// ToPricePerUnit converts a price for a package size into price per ounce
// (fluid ounce for volumes), or per item for each/count sizes.
// Returns nil when the price is not positive, the size is absent, or the unit is unknown.
func ToPricePerUnit(price float64, size *domain.SizeSpec) *float64 {
	if !(price > 0) || size == nil || !(size.Value > 0) {
		return nil
	}

	var perUnit float64
	switch size.Unit {
	case domain.UnitOz, domain.UnitFlOz:
		perUnit = price / size.Value
	case domain.UnitLb:
		perUnit = price / (size.Value * ouncesPerPound)
	case domain.UnitG:
		perUnit = price / (size.Value / gramsPerOunce)
	case domain.UnitKg:
		perUnit = price / (size.Value * 1000 / gramsPerOunce)
	case domain.UnitMl:
		perUnit = price / (size.Value / millilitersPerFlOz)
	case domain.UnitL:
		perUnit = price / (size.Value * 1000 / millilitersPerFlOz)
	case domain.UnitEach:
		perUnit = price
	case domain.UnitCt:
		perUnit = price / size.Value
	default:
		return nil
	}

	return &perUnit
}

// FormatSize renders a size as "16 oz" / "12 fl oz"
func FormatSize(size *domain.SizeSpec) string {
	if size == nil {
		return ""
	}
	unit := string(size.Unit)
	if size.Unit == domain.UnitFlOz {
		unit = "fl oz"
	}
	return formatNumber(size.Value) + " " + unit
}
