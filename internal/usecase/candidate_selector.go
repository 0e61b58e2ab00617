package usecase

import (
	"fmt"
	"log"

	"github.com/pricelens/backend/internal/domain"
)

// RankingPolicy names how the representative product is chosen
type RankingPolicy string

const (
	// PolicyFirst keeps the first candidate in scrape order
	PolicyFirst RankingPolicy = "first"
	// PolicyPrice prefers the lowest price per unit; candidates without one rank last
	PolicyPrice RankingPolicy = "price"
	// PolicyRelevance prefers the candidate whose canonical name best matches the query
	PolicyRelevance RankingPolicy = "relevance"
)

// ParseRankingPolicy validates a policy name; empty means PolicyFirst
func ParseRankingPolicy(s string) (RankingPolicy, error) {
	switch RankingPolicy(s) {
	case "", PolicyFirst:
		return PolicyFirst, nil
	case PolicyPrice, PolicyRelevance:
		return RankingPolicy(s), nil
	}
	return "", fmt.Errorf("unknown ranking policy %q", s)
}

// Comparator orders two candidates: negative when a should be preferred over b
type Comparator func(a, b *domain.NormalizedProduct) int

// SelectBest returns the preferred candidate, or nil for an empty list.
// With a nil comparator the first candidate wins. Ties keep scrape order.
func SelectBest(candidates []*domain.NormalizedProduct, compare Comparator) *domain.NormalizedProduct {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	if compare == nil {
		return best
	}
	for _, c := range candidates[1:] {
		if compare(c, best) < 0 {
			best = c
		}
	}
	return best
}

// ByPricePerUnit prefers the lower price per unit; missing values rank last
func ByPricePerUnit(a, b *domain.NormalizedProduct) int {
	switch {
	case a.PricePerUnit == nil && b.PricePerUnit == nil:
		return 0
	case a.PricePerUnit == nil:
		return 1
	case b.PricePerUnit == nil:
		return -1
	case *a.PricePerUnit < *b.PricePerUnit:
		return -1
	case *a.PricePerUnit > *b.PricePerUnit:
		return 1
	}
	return 0
}

// ByRelevance prefers the higher relevance score for the query
func ByRelevance(scorer *RelevanceScorer, query string) Comparator {
	scores := make(map[*domain.NormalizedProduct]float64)
	score := func(p *domain.NormalizedProduct) float64 {
		if s, ok := scores[p]; ok {
			return s
		}
		s, _ := scorer.Score(query, p)
		scores[p] = s
		return s
	}
	return func(a, b *domain.NormalizedProduct) int {
		sa, sb := score(a), score(b)
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return 0
	}
}

// SelectorConfig holds configuration for the candidate selector
type SelectorConfig struct {
	Policy             RankingPolicy
	EnableDebugLogging bool
}

// CandidateSelector picks the representative product for an ingredient query
type CandidateSelector struct {
	policy             RankingPolicy
	scorer             *RelevanceScorer
	enableDebugLogging bool
}

// NewCandidateSelector creates a selector; an empty policy means PolicyFirst
func NewCandidateSelector(scorer *RelevanceScorer, config SelectorConfig) *CandidateSelector {
	policy := config.Policy
	if policy == "" {
		policy = PolicyFirst
	}
	return &CandidateSelector{
		policy:             policy,
		scorer:             scorer,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Policy returns the configured ranking policy
func (s *CandidateSelector) Policy() RankingPolicy {
	return s.policy
}

// SelectBest applies the configured policy to the candidates
func (s *CandidateSelector) SelectBest(query string, candidates []*domain.NormalizedProduct) *domain.NormalizedProduct {
	var compare Comparator
	switch s.policy {
	case PolicyPrice:
		compare = ByPricePerUnit
	case PolicyRelevance:
		if s.scorer != nil {
			compare = ByRelevance(s.scorer, query)
		}
	}

	best := SelectBest(candidates, compare)

	if s.enableDebugLogging && best != nil {
		log.Printf("[SELECT] Policy %s picked %q out of %d candidates", s.policy, best.Title, len(candidates))
	}

	return best
}
