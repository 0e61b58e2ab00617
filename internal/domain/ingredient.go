package domain

import "strings"

// IngredientKey derives the stable record identity from an ingredient query:
// lowercased, whitespace runs collapsed and joined with underscores.
func IngredientKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), "_")
}
