package domain

import (
	"context"
	"iter"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PageDriver is the browser automation capability driven by a scrape session.
// Waits fail with an error wrapping ErrTimeout when the timeout elapses.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Count(ctx context.Context, selector string) (int, error)
	Click(ctx context.Context, selector string) error
	ClickNth(ctx context.Context, selector string, index int) error
	Type(ctx context.Context, selector, text string) error
	HTML(ctx context.Context) (string, error)
	// ScrollToBottom scrolls the document and returns its height afterwards
	ScrollToBottom(ctx context.Context) (int, error)
	Close() error
}

// CandidateSource produces raw listings for a query. The sequence is finite
// and not restartable. An error wrapping ErrParseAnomaly concerns a single
// candidate; any other error ends the sequence.
type CandidateSource interface {
	Name() string
	Candidates(ctx context.Context, query string, opts ScrapeOptions) iter.Seq2[RawProductText, error]
}

// PriceStore persists the latest snapshot and the price history per ingredient
type PriceStore interface {
	GetLastHistoryEntry(ctx context.Context, ingredientKey string) (*HistoryEntry, error)
	UpsertLatest(ctx context.Context, ingredientKey string, fields LatestFields) error
	AppendHistory(ctx context.Context, ingredientKey string, entry HistoryEntry) error
}

// ConditionalHistoryAppender is implemented by stores that can append a
// history entry only when it differs from the most recent one, atomically.
type ConditionalHistoryAppender interface {
	AppendHistoryIfChanged(ctx context.Context, ingredientKey string, entry HistoryEntry) (bool, error)
}

// RecordReader reads full ingredient records
type RecordReader interface {
	GetRecord(ctx context.Context, ingredientKey string) (*IngredientRecord, error)
}
