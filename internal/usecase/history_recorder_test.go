package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

func observed(price float64, size string) *domain.NormalizedProduct {
	return &domain.NormalizedProduct{
		Title:    "Organic Garlic",
		Name:     domain.CanonicalName{CanonicalName: "garlic"},
		Price:    domain.PriceInfo{CurrentPrice: price},
		SizeText: size,
	}
}

func TestHistoryRecorder_Dedup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		next       *domain.NormalizedProduct
		wantAppend bool
	}{
		{name: "identical observation", next: observed(3.99, "16 oz"), wantAppend: false},
		{name: "float noise below a cent", next: observed(3.9900000001, "16 oz"), wantAppend: false},
		{name: "price changed", next: observed(4.49, "16 oz"), wantAppend: true},
		{name: "size changed", next: observed(3.99, "24 oz"), wantAppend: true},
	}

	stores := map[string]func() (domain.PriceStore, *MockPriceStore){
		"read-compare-append": func() (domain.PriceStore, *MockPriceStore) {
			s := NewMockPriceStore()
			return s, s
		},
		"conditional append": func() (domain.PriceStore, *MockPriceStore) {
			s := NewMockConditionalStore()
			return s, s.MockPriceStore
		},
	}

	for storeName, newStore := range stores {
		for _, tc := range testCases {
			t.Run(storeName+"/"+tc.name, func(t *testing.T) {
				store, backing := newStore()
				backing.history["garlic"] = []domain.HistoryEntry{
					{Store: "sprouts", Price: 3.99, Size: "16 oz", Timestamp: now.Add(-time.Hour)},
				}
				r := NewHistoryRecorder(store, "sprouts", false)

				appended, err := r.RecordObservation(ctx, "garlic", tc.next, now)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if appended != tc.wantAppend {
					t.Errorf("appended = %v, want %v", appended, tc.wantAppend)
				}

				wantLen := 1
				if tc.wantAppend {
					wantLen = 2
				}
				if got := backing.historyLen("garlic"); got != wantLen {
					t.Errorf("history length = %d, want %d", got, wantLen)
				}
				if backing.upsertCalls != 1 {
					t.Errorf("upsertCalls = %d, want 1", backing.upsertCalls)
				}
			})
		}
	}
}

func TestHistoryRecorder_RecordObservation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first observation appends", func(t *testing.T) {
		store := NewMockPriceStore()
		r := NewHistoryRecorder(store, "sprouts", false)

		appended, err := r.RecordObservation(ctx, "garlic", observed(0.79, "1 each"), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !appended {
			t.Error("expected history entry to be appended")
		}

		entry := store.history["garlic"][0]
		if entry.Store != "sprouts" || entry.Price != 0.79 || entry.Size != "1 each" || !entry.Timestamp.Equal(now) {
			t.Errorf("entry = %+v", entry)
		}

		latest := store.latest["garlic"]
		if latest.Title == nil || *latest.Title != "Organic Garlic" {
			t.Errorf("latest title = %v", latest.Title)
		}
		if latest.LastUpdated == nil || !latest.LastUpdated.Equal(now) {
			t.Errorf("latest lastUpdated = %v", latest.LastUpdated)
		}
	})

	t.Run("uses conditional append when available", func(t *testing.T) {
		store := NewMockConditionalStore()
		r := NewHistoryRecorder(store, "sprouts", false)

		if _, err := r.RecordObservation(ctx, "garlic", observed(0.79, "1 each"), now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.conditionalCalls != 1 {
			t.Errorf("conditionalCalls = %d, want 1", store.conditionalCalls)
		}
		if store.getCalls != 0 {
			t.Errorf("getCalls = %d, want 0", store.getCalls)
		}
	})

	t.Run("rejects empty key", func(t *testing.T) {
		r := NewHistoryRecorder(NewMockPriceStore(), "sprouts", false)
		if _, err := r.RecordObservation(ctx, "", observed(1, ""), now); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("rejects nil product", func(t *testing.T) {
		r := NewHistoryRecorder(NewMockPriceStore(), "sprouts", false)
		if _, err := r.RecordObservation(ctx, "garlic", nil, now); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("wraps upsert failure", func(t *testing.T) {
		store := NewMockPriceStore()
		store.upsertError = errors.New("disk full")
		r := NewHistoryRecorder(store, "sprouts", false)

		_, err := r.RecordObservation(ctx, "garlic", observed(1, ""), now)
		if !errors.Is(err, domain.ErrStoreFailure) {
			t.Errorf("error = %v, want ErrStoreFailure", err)
		}
		if store.historyLen("garlic") != 0 {
			t.Error("expected no history after upsert failure")
		}
	})

	t.Run("wraps read failure", func(t *testing.T) {
		store := NewMockPriceStore()
		store.getError = errors.New("connection reset")
		r := NewHistoryRecorder(store, "sprouts", false)

		_, err := r.RecordObservation(ctx, "garlic", observed(1, ""), now)
		if !errors.Is(err, domain.ErrStoreFailure) {
			t.Errorf("error = %v, want ErrStoreFailure", err)
		}
	})

	t.Run("wraps append failure", func(t *testing.T) {
		store := NewMockConditionalStore()
		store.appendError = errors.New("constraint failed")
		r := NewHistoryRecorder(store, "sprouts", false)

		_, err := r.RecordObservation(ctx, "garlic", observed(1, ""), now)
		if !errors.Is(err, domain.ErrStoreFailure) {
			t.Errorf("error = %v, want ErrStoreFailure", err)
		}
	})
}

func TestHistoryRecorder_ConcurrentSameObservation(t *testing.T) {
	store := NewMockPriceStore()
	r := NewHistoryRecorder(store, "sprouts", false)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.RecordObservation(context.Background(), "garlic", observed(3.99, "16 oz"), now); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.historyLen("garlic"); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
	if len(r.locks.locks) != 0 {
		t.Errorf("expected key locks to be released, %d left", len(r.locks.locks))
	}
}

func TestLatestFieldsFrom(t *testing.T) {
	now := time.Now()
	ppu := 0.25

	t.Run("clears product fields the observation lacks", func(t *testing.T) {
		fields := LatestFieldsFrom(observed(3.99, "16 oz"), now)
		if fields.ProductID != nil || fields.ImageURL != nil || fields.PricePerUnit != nil {
			t.Errorf("expected nil optional fields, got %+v", fields)
		}
		if !fields.ClearPricePerUnit || !fields.ClearProductID || !fields.ClearImageURL {
			t.Errorf("expected clear flags for absent fields, got %+v", fields)
		}
		if fields.Price == nil || *fields.Price != 3.99 {
			t.Errorf("Price = %v, want 3.99", fields.Price)
		}
		if fields.CanonicalName == nil || *fields.CanonicalName != "garlic" {
			t.Errorf("CanonicalName = %v, want garlic", fields.CanonicalName)
		}
	})

	t.Run("carries identifiers when present", func(t *testing.T) {
		p := observed(3.99, "16 oz")
		p.ProductID = "123"
		p.ImageURL = "https://images.example.com/1.jpg"
		p.PricePerUnit = &ppu

		fields := LatestFieldsFrom(p, now)
		if fields.ProductID == nil || *fields.ProductID != "123" {
			t.Errorf("ProductID = %v", fields.ProductID)
		}
		if fields.ImageURL == nil || fields.PricePerUnit == nil {
			t.Errorf("expected image and price per unit, got %+v", fields)
		}
		if fields.ClearPricePerUnit || fields.ClearProductID || fields.ClearImageURL {
			t.Errorf("expected no clear flags, got %+v", fields)
		}
	})
}
