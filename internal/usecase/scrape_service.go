package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pricelens/backend/internal/domain"
)

// ScrapeServiceConfig holds configuration for the scrape service
type ScrapeServiceConfig struct {
	Vocabulary         Vocabulary
	Policy             RankingPolicy
	RequireCategory    bool
	StoreName          string
	CacheTTL           time.Duration
	StoreTimeout       time.Duration
	EnableDebugLogging bool
}

// ScrapeService drives one candidate source through
// normalize -> filter -> select -> record for an ingredient query.
type ScrapeService struct {
	source             domain.CandidateSource
	cache              domain.CacheRepository
	normalizer         *ProductNormalizer
	filter             *CategoryFilter
	selector           *CandidateSelector
	recorder           *HistoryRecorder
	cacheTTL           time.Duration
	storeTimeout       time.Duration
	now                func() time.Time
	enableDebugLogging bool
}

// NewScrapeService creates a new scrape service with dependencies
func NewScrapeService(
	source domain.CandidateSource,
	store domain.PriceStore,
	cache domain.CacheRepository,
	config ScrapeServiceConfig,
) *ScrapeService {
	names := NewNameNormalizer(config.Vocabulary, config.EnableDebugLogging)

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 48 * time.Hour
	}

	storeTimeout := config.StoreTimeout
	if storeTimeout == 0 {
		storeTimeout = 10 * time.Second
	}

	storeName := config.StoreName
	if storeName == "" {
		storeName = source.Name()
	}

	return &ScrapeService{
		source:     source,
		cache:      cache,
		normalizer: NewProductNormalizer(names, config.Vocabulary.IgnoredTags),
		filter:     NewCategoryFilter(config.Vocabulary.AllowedCategories, config.RequireCategory),
		selector: NewCandidateSelector(NewRelevanceScorer(names), SelectorConfig{
			Policy:             config.Policy,
			EnableDebugLogging: config.EnableDebugLogging,
		}),
		recorder:           NewHistoryRecorder(store, storeName, config.EnableDebugLogging),
		cacheTTL:           cacheTTL,
		storeTimeout:       storeTimeout,
		now:                time.Now,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Scrape looks up the best product for an ingredient.
// Flow: check cache -> collect candidates -> normalize -> filter -> select -> record -> cache.
//
// Candidates collected before a terminal source error (timeout, cancellation)
// are still used; the result is then marked Partial. When recording fails the
// result is returned together with an error wrapping domain.ErrStoreFailure.
func (s *ScrapeService) Scrape(ctx context.Context, request *domain.ScrapeRequest) (*domain.ScrapeResult, error) {
	if request == nil || strings.TrimSpace(request.Ingredient) == "" {
		return nil, domain.ErrInvalidRequest
	}

	key := domain.IngredientKey(request.Ingredient)
	cacheKey := s.generateCacheKey(key)

	if !request.ForceRefresh {
		if cached, err := s.getFromCache(ctx, cacheKey); err == nil && cached != nil {
			cached.Source = "cache"
			return cached, nil
		}
	}

	runID := uuid.NewString()
	log.Printf("[SCRAPE] run=%s ingredient=%q source=%s loadAll=%v", runID, request.Ingredient, s.source.Name(), request.LoadAll)

	products, skipped, sourceErr := s.collect(ctx, runID, request)
	if sourceErr != nil {
		if len(products) == 0 {
			log.Printf("[SCRAPE] run=%s failed with no candidates: %v", runID, sourceErr)
			return nil, sourceErr
		}
		log.Printf("[SCRAPE] run=%s stopped early, continuing with %d candidates: %v", runID, len(products), sourceErr)
	}

	kept := s.filter.Run(products)
	if s.enableDebugLogging {
		log.Printf("[SCRAPE] run=%s %d candidates, %d after category filter, %d skipped", runID, len(products), len(kept), skipped)
	}

	best := s.selector.SelectBest(request.Ingredient, kept)
	if best == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, request.Ingredient)
	}

	result := &domain.ScrapeResult{
		RunID:         runID,
		IngredientKey: key,
		Best:          best,
		Candidates:    len(kept),
		Skipped:       skipped,
		Partial:       sourceErr != nil,
		Source:        "scrape",
	}

	// Recording outlives a cancelled scrape so partial results are kept
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	appended, err := s.recorder.RecordObservation(recordCtx, key, best, s.now())
	if err != nil {
		log.Printf("[SCRAPE] run=%s store failure: %v", runID, err)
		return result, err
	}
	result.HistoryAdded = appended

	if !result.Partial {
		if err := s.setInCache(recordCtx, cacheKey, result); err != nil {
			log.Printf("[SCRAPE] run=%s cache write failed: %v", runID, err)
		}
	}

	log.Printf("[SCRAPE] run=%s best=%q price=%.2f historyAdded=%v", runID, best.Title, best.Price.CurrentPrice, appended)
	return result, nil
}

// collect drains the candidate source. Parse anomalies skip one candidate;
// any other error ends collection and is returned.
func (s *ScrapeService) collect(
	ctx context.Context,
	runID string,
	request *domain.ScrapeRequest,
) ([]*domain.NormalizedProduct, int, error) {
	var products []*domain.NormalizedProduct
	skipped := 0

	opts := domain.ScrapeOptions{LoadAll: request.LoadAll}
	for raw, err := range s.source.Candidates(ctx, request.Ingredient, opts) {
		if err != nil {
			if errors.Is(err, domain.ErrParseAnomaly) {
				skipped++
				log.Printf("[SCRAPE] run=%s skipping candidate: %v", runID, err)
				continue
			}
			return products, skipped, err
		}

		product, err := s.normalizer.Normalize(raw)
		if err != nil {
			skipped++
			log.Printf("[SCRAPE] run=%s skipping candidate %q: %v", runID, raw.NameRaw, err)
			continue
		}
		products = append(products, product)
	}

	return products, skipped, nil
}

// generateCacheKey creates a cache key from the ingredient key.
// Format: "scrape:{source}:{ingredient_key}"
func (s *ScrapeService) generateCacheKey(ingredientKey string) string {
	return fmt.Sprintf("scrape:%s:%s", s.source.Name(), ingredientKey)
}

// getFromCache retrieves a previous scrape result from cache
func (s *ScrapeService) getFromCache(ctx context.Context, key string) (*domain.ScrapeResult, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if result, ok := value.(*domain.ScrapeResult); ok {
		copied := *result
		return &copied, nil
	}

	// The memory cache stores JSON-decoded values
	data, err := json.Marshal(value)
	if err != nil {
		return nil, domain.ErrCacheMiss
	}
	var result domain.ScrapeResult
	if err := json.Unmarshal(data, &result); err != nil || result.Best == nil {
		return nil, domain.ErrCacheMiss
	}
	return &result, nil
}

// setInCache stores a scrape result in cache
func (s *ScrapeService) setInCache(ctx context.Context, key string, result *domain.ScrapeResult) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, result, s.cacheTTL)
}
