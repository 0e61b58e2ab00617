// Package memstore keeps ingredient records in process memory.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/pricelens/backend/internal/domain"
)

// Store is an in-memory domain.PriceStore. History appends are atomic with
// respect to the last entry, so it also implements domain.ConditionalHistoryAppender.
type Store struct {
	mu      sync.RWMutex
	records map[string]*domain.IngredientRecord
}

// New creates an empty store
func New() *Store {
	return &Store{records: make(map[string]*domain.IngredientRecord)}
}

// GetLastHistoryEntry returns the newest history entry by timestamp, or nil
func (s *Store) GetLastHistoryEntry(ctx context.Context, ingredientKey string) (*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[ingredientKey]
	if !ok || len(rec.PriceHistory) == 0 {
		return nil, nil
	}
	last := cloneEntry(rec.PriceHistory[len(rec.PriceHistory)-1])
	return &last, nil
}

// UpsertLatest merges the non-nil fields onto the stored snapshot and drops
// the fields flagged for clearing
func (s *Store) UpsertLatest(ctx context.Context, ingredientKey string, fields domain.LatestFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(ingredientKey)
	if err := mergo.Merge(&rec.Latest, cloneLatest(fields),
		mergo.WithOverride,
		mergo.WithoutDereference,
		mergo.WithTransformers(timeTransformer{}),
	); err != nil {
		return fmt.Errorf("merge latest for %s: %w", ingredientKey, err)
	}

	if fields.ClearPricePerUnit && fields.PricePerUnit == nil {
		rec.Latest.PricePerUnit = nil
	}
	if fields.ClearProductID && fields.ProductID == nil {
		rec.Latest.ProductID = nil
	}
	if fields.ClearImageURL && fields.ImageURL == nil {
		rec.Latest.ImageURL = nil
	}
	return nil
}

// AppendHistory appends an entry unconditionally
func (s *Store) AppendHistory(ctx context.Context, ingredientKey string, entry domain.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(ingredientKey)
	insertHistory(rec, entry)
	return nil
}

// AppendHistoryIfChanged appends entry unless the newest entry has the same price and size
func (s *Store) AppendHistoryIfChanged(ctx context.Context, ingredientKey string, entry domain.HistoryEntry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(ingredientKey)
	if n := len(rec.PriceHistory); n > 0 && rec.PriceHistory[n-1].SameObservation(entry) {
		return false, nil
	}
	insertHistory(rec, entry)
	return true, nil
}

// GetRecord returns a copy of the record or domain.ErrRecordNotFound
func (s *Store) GetRecord(ctx context.Context, ingredientKey string) (*domain.IngredientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[ingredientKey]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	out := &domain.IngredientRecord{
		IngredientKey: rec.IngredientKey,
		Latest:        cloneLatest(rec.Latest),
		PriceHistory:  make([]domain.HistoryEntry, len(rec.PriceHistory)),
	}
	for i, e := range rec.PriceHistory {
		out.PriceHistory[i] = cloneEntry(e)
	}
	return out, nil
}

// IngredientKeys lists stored keys in order
func (s *Store) IngredientKeys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

// record returns the record for key, creating it. Callers hold the write lock.
func (s *Store) record(ingredientKey string) *domain.IngredientRecord {
	rec, ok := s.records[ingredientKey]
	if !ok {
		rec = &domain.IngredientRecord{IngredientKey: ingredientKey}
		s.records[ingredientKey] = rec
	}
	return rec
}

// insertHistory keeps history ordered by timestamp; an entry goes after
// any entries with the same timestamp
func insertHistory(rec *domain.IngredientRecord, entry domain.HistoryEntry) {
	i := sort.Search(len(rec.PriceHistory), func(i int) bool {
		return rec.PriceHistory[i].Timestamp.After(entry.Timestamp)
	})
	rec.PriceHistory = slices.Insert(rec.PriceHistory, i, cloneEntry(entry))
}

// timeTransformer replaces a set *time.Time instead of descending into it
type timeTransformer struct{}

func (timeTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf((*time.Time)(nil)) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && !src.IsNil() {
			dst.Set(src)
		}
		return nil
	}
}

func cloneLatest(f domain.LatestFields) domain.LatestFields {
	return domain.LatestFields{
		Title:         clonePtr(f.Title),
		CanonicalName: clonePtr(f.CanonicalName),
		Price:         clonePtr(f.Price),
		Size:          clonePtr(f.Size),
		PricePerUnit:  clonePtr(f.PricePerUnit),
		ProductID:     clonePtr(f.ProductID),
		ImageURL:      clonePtr(f.ImageURL),
		LastUpdated:   clonePtr(f.LastUpdated),
	}
}

func cloneEntry(e domain.HistoryEntry) domain.HistoryEntry {
	e.PricePerUnit = clonePtr(e.PricePerUnit)
	return e
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
