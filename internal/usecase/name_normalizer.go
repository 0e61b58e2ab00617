package usecase

import (
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
	"golang.org/x/text/unicode/norm"
)

// Compiled regex patterns for name normalization
var (
	// Matches inch sizes like "10-inch", "9 inch", `9"`
	inchSizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?(?:-inch|inch|")`)

	// Matches ounce sizes like "14.5 oz", "16 ounces". Longest alternative first
	// so "ounces" is consumed whole.
	ounceSizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?(?:ounces|ounce|oz)`)

	// Matches "pack of 6"
	packOfPattern = regexp.MustCompile(`pack of (\d+)`)

	// Matches a parenthesized span and its content
	parenthesizedPattern = regexp.MustCompile(`\([^)]*\)`)

	// Matches any decimal digit run, including non-ASCII digits
	digitRunPattern = regexp.MustCompile(`\p{Nd}+`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// quoteFolder maps typographic inch marks onto a plain double quote
var quoteFolder = strings.NewReplacer("“", `"`, "”", `"`, "″", `"`, "′′", `"`)

// maxStripPasses bounds the prep/descriptor/digit loop
const maxStripPasses = 4

type prepPattern struct {
	word    string
	pattern *regexp.Regexp
}

// NameNormalizer converts raw product names into canonical names
type NameNormalizer struct {
	prepPatterns       []prepPattern
	descriptorPattern  *regexp.Regexp
	synonyms           map[string]string
	enableDebugLogging bool
}

// NewNameNormalizer creates a normalizer over the given vocabulary
func NewNameNormalizer(vocab Vocabulary, enableDebugLogging bool) *NameNormalizer {
	n := &NameNormalizer{
		synonyms:           make(map[string]string, len(vocab.Synonyms)),
		enableDebugLogging: enableDebugLogging,
	}

	for _, word := range vocab.PreparationWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		n.prepPatterns = append(n.prepPatterns, prepPattern{
			word:    word,
			pattern: wholeWordPattern([]string{word}),
		})
	}

	n.descriptorPattern = wholeWordPattern(vocab.DescriptorWords)

	for from, to := range vocab.Synonyms {
		n.synonyms[strings.ToLower(from)] = strings.ToLower(to)
	}

	return n
}

// NormalizeName converts a raw scraped name into a CanonicalName.
// Empty input yields the empty result; it never fails.
func (n *NameNormalizer) NormalizeName(raw string) domain.CanonicalName {
	result := domain.CanonicalName{
		Tags:        []string{},
		Preparation: []string{},
	}
	if strings.TrimSpace(raw) == "" {
		return result
	}

	// Step 1: Fold compatibility forms and lowercase
	name := strings.ToLower(quoteFolder.Replace(norm.NFKC.String(raw)))

	// Step 2: Extract at most one inch size
	var sawInch bool
	if value, rest, ok := extractSize(name, inchSizePattern); ok {
		result.SizeValue = &value
		result.SizeUnit = domain.UnitInch
		result.Tags = append(result.Tags, "size:"+formatNumber(value)+"inch")
		name = rest
		sawInch = true
	}

	// Step 3: Extract at most one ounce size; it takes the single size slot
	if value, rest, ok := extractSize(name, ounceSizePattern); ok {
		result.SizeValue = &value
		result.SizeUnit = domain.UnitOz
		result.Tags = append(result.Tags, "size:"+formatNumber(value)+"oz")
		result.SizeAmbiguous = sawInch
		name = rest
	}

	// Step 4: Extract "pack of N"
	if loc := packOfPattern.FindStringSubmatchIndex(name); loc != nil {
		result.Tags = append(result.Tags, "pack:"+name[loc[2]:loc[3]])
		name = name[:loc[0]] + name[loc[1]:]
	}

	// Step 5: Remove parenthesized spans and any unbalanced parenthesis
	name = parenthesizedPattern.ReplaceAllString(name, "")
	name = strings.NewReplacer("(", "", ")", "").Replace(name)

	// Steps 6-9: strip preparation words, descriptors and digits, then collapse
	// whitespace. Digit removal can expose a word ("organic5"), so repeat
	// until nothing changes.
	found := make(map[string]bool)
	for pass := 0; pass < maxStripPasses; pass++ {
		before := name
		for _, prep := range n.prepPatterns {
			if prep.pattern.MatchString(name) {
				found[prep.word] = true
				name = prep.pattern.ReplaceAllString(name, "")
			}
		}
		if n.descriptorPattern != nil {
			name = n.descriptorPattern.ReplaceAllString(name, "")
		}
		name = digitRunPattern.ReplaceAllString(name, "")
		name = strings.TrimSpace(multiSpacePattern.ReplaceAllString(name, " "))
		if name == before {
			break
		}
	}

	// Preparation is reported in vocabulary order
	for _, prep := range n.prepPatterns {
		if found[prep.word] {
			result.Preparation = append(result.Preparation, prep.word)
		}
	}

	// Step 10: Fold near-duplicate names
	if synonym, ok := n.synonyms[name]; ok {
		name = synonym
	}

	result.CanonicalName = name

	if n.enableDebugLogging {
		log.Printf("[NORMALIZE] Input: %q → Output: %q tags=%v prep=%v", raw, name, result.Tags, result.Preparation)
	}

	return result
}

// extractSize removes the first match of pattern from s and returns its numeric value
func extractSize(s string, pattern *regexp.Regexp) (float64, string, bool) {
	loc := pattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return 0, s, false
	}
	value, err := strconv.ParseFloat(s[loc[2]:loc[3]], 64)
	if err != nil {
		return 0, s, false
	}
	return value, s[:loc[0]] + s[loc[1]:], true
}

// wholeWordPattern builds a case-insensitive alternation of terms matched as
// whole words. A word boundary is only required on an edge that is itself a
// word character, so terms like "2%" still match. Longer terms come first.
func wholeWordPattern(terms []string) *regexp.Regexp {
	var cleaned []string
	seen := make(map[string]bool)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		cleaned = append(cleaned, term)
	}
	if len(cleaned) == 0 {
		return nil
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		return len(cleaned[i]) > len(cleaned[j])
	})

	alternatives := make([]string, len(cleaned))
	for i, term := range cleaned {
		var b strings.Builder
		if isWordByte(term[0]) {
			b.WriteString(`\b`)
		}
		b.WriteString(regexp.QuoteMeta(term))
		if isWordByte(term[len(term)-1]) {
			b.WriteString(`\b`)
		}
		alternatives[i] = b.String()
	}

	return regexp.MustCompile(`(?i)(?:` + strings.Join(alternatives, "|") + `)`)
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
