package usecase

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockPriceStore is an in-memory domain.PriceStore without conditional append
type MockPriceStore struct {
	mu          sync.Mutex
	latest      map[string]domain.LatestFields
	history     map[string][]domain.HistoryEntry
	upsertError error
	appendError error
	getError    error
	upsertCalls int
	getCalls    int
	// checkContext makes every call fail once its context is done
	checkContext bool
}

func NewMockPriceStore() *MockPriceStore {
	return &MockPriceStore{
		latest:  make(map[string]domain.LatestFields),
		history: make(map[string][]domain.HistoryEntry),
	}
}

func (m *MockPriceStore) GetLastHistoryEntry(ctx context.Context, key string) (*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if err := m.err(ctx, m.getError); err != nil {
		return nil, err
	}
	entries := m.history[key]
	if len(entries) == 0 {
		return nil, nil
	}
	last := entries[len(entries)-1]
	return &last, nil
}

func (m *MockPriceStore) UpsertLatest(ctx context.Context, key string, fields domain.LatestFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if err := m.err(ctx, m.upsertError); err != nil {
		return err
	}
	m.latest[key] = fields
	return nil
}

func (m *MockPriceStore) AppendHistory(ctx context.Context, key string, entry domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err(ctx, m.appendError); err != nil {
		return err
	}
	m.history[key] = append(m.history[key], entry)
	return nil
}

func (m *MockPriceStore) historyLen(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[key])
}

func (m *MockPriceStore) err(ctx context.Context, configured error) error {
	if m.checkContext && ctx.Err() != nil {
		return ctx.Err()
	}
	return configured
}

// MockConditionalStore adds an atomic conditional append to MockPriceStore
type MockConditionalStore struct {
	*MockPriceStore
	conditionalCalls int
}

func NewMockConditionalStore() *MockConditionalStore {
	return &MockConditionalStore{MockPriceStore: NewMockPriceStore()}
}

func (m *MockConditionalStore) AppendHistoryIfChanged(ctx context.Context, key string, entry domain.HistoryEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditionalCalls++
	if m.appendError != nil {
		return false, m.appendError
	}
	entries := m.history[key]
	if len(entries) > 0 && entries[len(entries)-1].SameObservation(entry) {
		return false, nil
	}
	m.history[key] = append(entries, entry)
	return true, nil
}

type sourceItem struct {
	raw domain.RawProductText
	err error
}

// MockCandidateSource replays a canned sequence of listings
type MockCandidateSource struct {
	items    []sourceItem
	calls    int
	lastOpts domain.ScrapeOptions
}

func (m *MockCandidateSource) Name() string {
	return "mock"
}

func (m *MockCandidateSource) Candidates(ctx context.Context, query string, opts domain.ScrapeOptions) iter.Seq2[domain.RawProductText, error] {
	m.calls++
	m.lastOpts = opts
	return func(yield func(domain.RawProductText, error) bool) {
		for _, item := range m.items {
			if !yield(item.raw, item.err) {
				return
			}
		}
	}
}

func listing(name, price, category string) sourceItem {
	return sourceItem{raw: domain.RawProductText{
		NameRaw:          name,
		PriceBlockRaw:    price,
		QuantityBlockRaw: "16 oz",
		Category:         category,
	}}
}

func failure(err error) sourceItem {
	return sourceItem{err: err}
}
