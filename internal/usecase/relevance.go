package usecase

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/pricelens/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// Scoring weights
const (
	queryCoverageWeight = 0.60 // share of query tokens found in the candidate name
	nameCoverageWeight  = 0.20 // share of candidate tokens found in the query
	jaccardWeight       = 0.20
	tokenScoreShare     = 80.0 // token overlap contributes up to 80 points
	similarityShare     = 20.0 // Jaro-Winkler similarity contributes up to 20 points
	substringMatchBonus = 10.0 // query is a substring of the candidate name or vice versa
)

// stopWords are dropped before token comparison
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true,
	"oz": true, "fl": true, "ct": true, "per": true,
}

// RelevanceScorer rates how well a candidate's canonical name matches an ingredient query
type RelevanceScorer struct {
	names *NameNormalizer
}

// NewRelevanceScorer creates a scorer that canonicalizes queries with names
func NewRelevanceScorer(names *NameNormalizer) *RelevanceScorer {
	return &RelevanceScorer{names: names}
}

// Score returns a 0-100 relevance score and the matched tokens
func (r *RelevanceScorer) Score(query string, product *domain.NormalizedProduct) (float64, []string) {
	queryName := r.names.NormalizeName(query).CanonicalName
	if queryName == "" {
		queryName = strings.ToLower(strings.TrimSpace(query))
	}
	candidateName := product.Name.CanonicalName
	if candidateName == "" {
		candidateName = strings.ToLower(product.Title)
	}

	queryTokens := tokenize(queryName)
	candidateTokens := tokenize(candidateName)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return 0, nil
	}

	queryMatched, matchedTokens := findIntersection(queryTokens, candidateTokens)
	queryCoverage := float64(queryMatched) / float64(len(queryTokens))

	candidateMatched, _ := findIntersection(candidateTokens, queryTokens)
	nameCoverage := float64(candidateMatched) / float64(len(candidateTokens))

	jaccard := float64(queryMatched) / float64(findUnion(queryTokens, candidateTokens))

	tokenScore := queryCoverage*queryCoverageWeight + nameCoverage*nameCoverageWeight + jaccard*jaccardWeight
	score := tokenScore*tokenScoreShare + matchr.JaroWinkler(queryName, candidateName, false)*similarityShare

	if len(queryName) > 3 && (strings.Contains(candidateName, queryName) || strings.Contains(queryName, candidateName)) {
		score += substringMatchBonus
	}

	if score > 100 {
		score = 100
	}

	return score, matchedTokens
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words and single-character tokens.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 || stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// findIntersection returns the count of tokens2 entries present in tokens1 and the matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
