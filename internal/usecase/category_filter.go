package usecase

import (
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// IsAllowedCategory reports whether the lowercased text contains any
// allow-list term as a substring.
func IsAllowedCategory(text string, allowList []string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)
	for _, term := range allowList {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(t, term) {
			return true
		}
	}
	return false
}

// CategoryFilter drops candidates outside the food categories
type CategoryFilter struct {
	allowList       []string
	requireCategory bool
}

// NewCategoryFilter creates a filter. When requireCategory is false,
// candidates without any category text are kept.
func NewCategoryFilter(allowList []string, requireCategory bool) *CategoryFilter {
	return &CategoryFilter{
		allowList:       allowList,
		requireCategory: requireCategory,
	}
}

// Allow reports whether a candidate passes the filter
func (f *CategoryFilter) Allow(product *domain.NormalizedProduct) bool {
	if product.Category == "" {
		return !f.requireCategory
	}
	return IsAllowedCategory(product.Category, f.allowList)
}

// Run returns the candidates that pass the filter, in order
func (f *CategoryFilter) Run(products []*domain.NormalizedProduct) []*domain.NormalizedProduct {
	kept := make([]*domain.NormalizedProduct, 0, len(products))
	for _, p := range products {
		if f.Allow(p) {
			kept = append(kept, p)
		}
	}
	return kept
}
