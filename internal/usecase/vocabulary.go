package usecase

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the word lists used by name normalization and filtering.
// It is passed to constructors so tests and locales can swap lists.
type Vocabulary struct {
	// PreparationWords are extracted into CanonicalName.Preparation, in this order
	PreparationWords []string `yaml:"preparation_words"`

	// DescriptorWords are stripped as whole words (packaging, dietary, freshness, cooking state)
	DescriptorWords []string `yaml:"descriptor_words"`

	// Synonyms fold a full canonical name onto another
	Synonyms map[string]string `yaml:"synonyms"`

	// AllowedCategories are substrings that mark a category as food
	AllowedCategories []string `yaml:"allowed_categories"`

	// IgnoredTags are storefront badges dropped from product tags
	IgnoredTags []string `yaml:"ignored_tags"`
}

// DefaultVocabulary returns the built-in English vocabulary
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		PreparationWords: []string{
			"diced", "sliced", "shredded", "minced", "chopped", "grated",
			"drained", "peeled", "crushed", "rinsed", "halved", "cubed",
		},
		DescriptorWords: []string{
			// freshness / ripeness / size
			"organic", "fresh", "premium", "frozen", "large", "small", "medium",
			"extra large", "extra small", "ripe", "soft", "hard", "mature", "baby", "young",
			// units and packaging
			"each", "lb", "lbs", "tsp", "tbsp", "tablespoon", "tablespoons",
			"teaspoon", "teaspoons", "cup", "cups", "pack", "bottle", "bottles",
			"can", "cans", "jar", "jars", "container", "containers", "bag", "bags",
			"box", "boxes", "slice", "slices", "loaf", "loaves", "piece", "pieces",
			// dietary
			"unsalted", "salted", "lightly salted", "low-fat", "fat-free", "reduced-fat",
			"whole", "skim", "2%", "1%", "non-dairy", "gluten-free", "vegan",
			"vegetarian", "kosher", "halal", "all-natural", "sweetened", "unsweetened",
			// cooking state
			"powdered", "granulated", "ground", "dried", "cooked", "uncooked", "raw",
			"boneless", "skinless", "smoked", "honey-roasted", "marinated", "pre-cooked",
		},
		Synonyms: map[string]string{
			"pie shell":         "pie crust",
			"pie shells":        "pie crust",
			"green bell pepper": "bell pepper",
			"red bell pepper":   "bell pepper",
		},
		AllowedCategories: []string{
			"produce", "fruit", "vegetable", "dairy", "egg", "cheese", "meat",
			"poultry", "seafood", "bakery", "bread", "deli", "frozen", "pantry",
			"canned", "baking", "spice", "herb", "condiment", "sauce", "pasta",
			"grain", "rice", "bean", "snack", "beverage", "breakfast", "cereal",
			"bulk", "nut", "oil", "grocery",
		},
		IgnoredTags: []string{"sprouts brand", "new"},
	}
}

// LoadVocabularyFile reads a YAML file and merges it onto the defaults.
// Lists are appended (duplicates skipped) and synonym entries override.
func LoadVocabularyFile(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return vocab, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var extra Vocabulary
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return vocab, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	return vocab.Extend(extra), nil
}

// Extend returns a copy of v with the entries of extra added
func (v Vocabulary) Extend(extra Vocabulary) Vocabulary {
	out := Vocabulary{
		PreparationWords:  appendUnique(v.PreparationWords, extra.PreparationWords),
		DescriptorWords:   appendUnique(v.DescriptorWords, extra.DescriptorWords),
		AllowedCategories: appendUnique(v.AllowedCategories, extra.AllowedCategories),
		IgnoredTags:       appendUnique(v.IgnoredTags, extra.IgnoredTags),
		Synonyms:          make(map[string]string, len(v.Synonyms)+len(extra.Synonyms)),
	}
	for k, s := range v.Synonyms {
		out.Synonyms[k] = s
	}
	for k, s := range extra.Synonyms {
		out.Synonyms[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func appendUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, w := range list {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
