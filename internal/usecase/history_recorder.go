package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// HistoryRecorder persists the latest snapshot of an ingredient and appends
// price history only when price or size changed.
type HistoryRecorder struct {
	store              domain.PriceStore
	storeName          string
	locks              *keyedMutex
	enableDebugLogging bool
}

// NewHistoryRecorder creates a recorder writing entries tagged with storeName
func NewHistoryRecorder(store domain.PriceStore, storeName string, enableDebugLogging bool) *HistoryRecorder {
	return &HistoryRecorder{
		store:              store,
		storeName:          storeName,
		locks:              newKeyedMutex(),
		enableDebugLogging: enableDebugLogging,
	}
}

// RecordObservation merge-upserts the latest fields and appends a history
// entry when no prior entry exists or the prior price or size differs.
// Returns whether a history entry was appended.
func (r *HistoryRecorder) RecordObservation(
	ctx context.Context,
	ingredientKey string,
	product *domain.NormalizedProduct,
	now time.Time,
) (bool, error) {
	if ingredientKey == "" || product == nil {
		return false, domain.ErrInvalidRequest
	}

	if err := r.store.UpsertLatest(ctx, ingredientKey, LatestFieldsFrom(product, now)); err != nil {
		return false, fmt.Errorf("%w: upsert latest for %s: %v", domain.ErrStoreFailure, ingredientKey, err)
	}

	entry := domain.HistoryEntry{
		Store:        r.storeName,
		Price:        product.Price.CurrentPrice,
		Size:         product.SizeText,
		PricePerUnit: product.PricePerUnit,
		Timestamp:    now,
	}

	var appended bool
	var err error
	if appender, ok := r.store.(domain.ConditionalHistoryAppender); ok {
		appended, err = appender.AppendHistoryIfChanged(ctx, ingredientKey, entry)
	} else {
		appended, err = r.appendIfChanged(ctx, ingredientKey, entry)
	}
	if err != nil {
		return false, fmt.Errorf("%w: append history for %s: %v", domain.ErrStoreFailure, ingredientKey, err)
	}

	if r.enableDebugLogging {
		log.Printf("[RECORD] %s price=%.2f size=%q appended=%v", ingredientKey, entry.Price, entry.Size, appended)
	}

	return appended, nil
}

// appendIfChanged is the read-compare-append fallback, serialized per key
// within this process.
func (r *HistoryRecorder) appendIfChanged(ctx context.Context, ingredientKey string, entry domain.HistoryEntry) (bool, error) {
	unlock := r.locks.Lock(ingredientKey)
	defer unlock()

	last, err := r.store.GetLastHistoryEntry(ctx, ingredientKey)
	if err != nil {
		return false, err
	}
	if last != nil && last.SameObservation(entry) {
		return false, nil
	}

	if err := r.store.AppendHistory(ctx, ingredientKey, entry); err != nil {
		return false, err
	}
	return true, nil
}

// LatestFieldsFrom builds the merge fields for a product observed at now.
// Per-unit price and identifiers belong to the observed product, so when it
// has none the stored ones are cleared rather than kept.
func LatestFieldsFrom(product *domain.NormalizedProduct, now time.Time) domain.LatestFields {
	fields := domain.LatestFields{
		Title:             &product.Title,
		CanonicalName:     &product.Name.CanonicalName,
		Price:             &product.Price.CurrentPrice,
		Size:              &product.SizeText,
		PricePerUnit:      product.PricePerUnit,
		LastUpdated:       &now,
		ClearPricePerUnit: product.PricePerUnit == nil,
		ClearProductID:    product.ProductID == "",
		ClearImageURL:     product.ImageURL == "",
	}
	if product.ProductID != "" {
		fields.ProductID = &product.ProductID
	}
	if product.ImageURL != "" {
		fields.ImageURL = &product.ImageURL
	}
	return fields
}

// keyedMutex hands out one mutex per key and forgets it when unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns its unlock function
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
