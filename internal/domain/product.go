package domain

// SizeUnit is a unit recognized in free-text package sizes
type SizeUnit string

const (
	UnitOz   SizeUnit = "oz"
	UnitFlOz SizeUnit = "fl_oz"
	UnitLb   SizeUnit = "lb"
	UnitG    SizeUnit = "g"
	UnitKg   SizeUnit = "kg"
	UnitMl   SizeUnit = "ml"
	UnitL    SizeUnit = "l"
	UnitEach SizeUnit = "each"
	UnitCt   SizeUnit = "ct"

	// UnitInch only appears in names ("10-inch pie crust") and never in a SizeSpec
	UnitInch SizeUnit = "inch"
)

// RawProductText holds the scraped strings for one listing
type RawProductText struct {
	NameRaw          string   `json:"nameRaw"`
	SizeRaw          string   `json:"sizeRaw,omitempty"`
	PriceBlockRaw    string   `json:"priceBlockRaw"`
	QuantityBlockRaw string   `json:"quantityBlockRaw,omitempty"`
	DealRaw          string   `json:"dealRaw,omitempty"`
	TagTextList      []string `json:"tagTextList,omitempty"`
	ImageURL         string   `json:"imageUrl,omitempty"`
	ProductID        string   `json:"productId,omitempty"`
	Category         string   `json:"category,omitempty"`
}

// CanonicalName is a product name with size, pack, preparation and descriptor noise removed
type CanonicalName struct {
	CanonicalName string   `json:"canonicalName"`
	Tags          []string `json:"tags"`
	SizeValue     *float64 `json:"sizeValue"`
	SizeUnit      SizeUnit `json:"sizeUnit,omitempty"`
	Preparation   []string `json:"preparation"`

	// SizeAmbiguous is set when both an inch and an ounce token were found;
	// SizeValue/SizeUnit then hold the ounce value and both tags are kept.
	SizeAmbiguous bool `json:"sizeAmbiguous,omitempty"`
}

// SizeSpec is a parsed package size. Value is always > 0.
type SizeSpec struct {
	Value float64  `json:"value"`
	Unit  SizeUnit `json:"unit"`
}

// PriceInfo holds the parsed price block.
// OriginalPrice and PercentOff are either both set or both nil.
type PriceInfo struct {
	CurrentPrice  float64  `json:"currentPrice"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	PercentOff    *float64 `json:"percentOff,omitempty"`
}

// NormalizedProduct is the canonical record for one candidate of a scrape pass
type NormalizedProduct struct {
	Title         string        `json:"title"`
	Name          CanonicalName `json:"name"`
	Size          *SizeSpec     `json:"size,omitempty"`
	SizeText      string        `json:"sizeText,omitempty"`
	Price         PriceInfo     `json:"price"`
	QuantityText  string        `json:"quantityText,omitempty"`
	UnitPriceText string        `json:"unitPriceText,omitempty"`
	PricePerUnit  *float64      `json:"pricePerUnit,omitempty"` // price per ounce, or per each/count
	Deal          string        `json:"deal,omitempty"`
	Tags          []string      `json:"tags,omitempty"` // sorted, unique
	ImageURL      string        `json:"imageUrl,omitempty"`
	ProductID     string        `json:"productId,omitempty"`
	Category      string        `json:"category,omitempty"`
}

// ScrapeRequest represents a price lookup for one ingredient
type ScrapeRequest struct {
	Ingredient   string `json:"ingredient" binding:"required"`
	LoadAll      bool   `json:"loadAll,omitempty"`
	ForceRefresh bool   `json:"forceRefresh,omitempty"`
}

// ScrapeOptions is passed to candidate sources
type ScrapeOptions struct {
	LoadAll bool
}

// ScrapeResult is the outcome of one scrape invocation
type ScrapeResult struct {
	RunID         string             `json:"runId"`
	IngredientKey string             `json:"ingredientKey"`
	Best          *NormalizedProduct `json:"best"`
	Candidates    int                `json:"candidates"`
	Skipped       int                `json:"skipped"`
	Partial       bool               `json:"partial,omitempty"`
	HistoryAdded  bool               `json:"historyAdded"`
	Source        string             `json:"source"` // "scrape" or "cache"
}
