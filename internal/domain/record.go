package domain

import "time"

// LatestFields carries the fields of an ingredient's latest snapshot.
// A nil field is left untouched by a merge upsert unless its Clear flag is
// set, in which case the stored value is removed.
type LatestFields struct {
	Title         *string    `json:"title,omitempty"`
	CanonicalName *string    `json:"canonicalName,omitempty"`
	Price         *float64   `json:"price,omitempty"`
	Size          *string    `json:"size,omitempty"`
	PricePerUnit  *float64   `json:"pricePerUnit,omitempty"`
	ProductID     *string    `json:"productId,omitempty"`
	ImageURL      *string    `json:"imageUrl,omitempty"`
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`

	ClearPricePerUnit bool `json:"-"`
	ClearProductID    bool `json:"-"`
	ClearImageURL     bool `json:"-"`
}

// HistoryEntry is one immutable price observation
type HistoryEntry struct {
	Store        string    `json:"store"`
	Price        float64   `json:"price"`
	Size         string    `json:"size"`
	PricePerUnit *float64  `json:"pricePerUnit,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// SameObservation reports whether two entries carry the same price and size.
// Prices are compared in cents.
func (e HistoryEntry) SameObservation(other HistoryEntry) bool {
	return PriceCents(e.Price) == PriceCents(other.Price) && e.Size == other.Size
}

// PriceCents rounds a dollar price to whole cents
func PriceCents(p float64) int64 {
	if p < 0 {
		return int64(p*100 - 0.5)
	}
	return int64(p*100 + 0.5)
}

// IngredientRecord is the persisted state for one ingredient key
type IngredientRecord struct {
	IngredientKey string         `json:"ingredientKey"`
	Latest        LatestFields   `json:"latest"`
	PriceHistory  []HistoryEntry `json:"priceHistory"` // oldest first
}
