package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Compiled regex patterns for attribute extraction. They run on folded
// (lowercase, accent-stripped) titles that still carry punctuation.
var (
	// Matches storage sizes like "128gb", "256 go", "1tb"
	capacityPattern = regexp.MustCompile(`(\d+)\s*(gb|go|tb)\b`)

	// Matches what follows a size when it describes memory, e.g. " ram", " de ram"
	ramSuffixPattern = regexp.MustCompile(`^\s*(?:de\s+)?ram\b`)

	// Matches memory sizes like "8gb ram", "4 go de ram"
	ramPattern = regexp.MustCompile(`(\d+)\s*(?:gb|go)\s*(?:de\s+)?ram\b`)

	// Matches screen sizes like `6.5"`, "15,6 pouces", "13 inch"
	screenPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:inch(?:es)?\b|pouces?\b|"|''|”)`)
)

// AttributeExtractor pulls structured facets and a brand guess out of titles
type AttributeExtractor struct {
	brands     []wordTable
	categories []wordTable
	colors     []string
}

// wordTable is a canonical name with its folded surface forms, longest first
type wordTable struct {
	name     string
	variants []string
}

// NewAttributeExtractor builds an extractor from the given vocabulary
func NewAttributeExtractor(vocab Vocabulary) *AttributeExtractor {
	brands := make([]wordTable, 0, len(vocab.Brands))
	for _, b := range vocab.Brands {
		brands = append(brands, newWordTable(b.Name, b.Variants))
	}

	categories := make([]wordTable, 0, len(vocab.Categories))
	for _, c := range vocab.Categories {
		categories = append(categories, newWordTable(c.Name, c.Variants))
	}

	colors := make([]string, 0, len(vocab.Colors))
	for _, c := range vocab.Colors {
		if folded := strings.TrimSpace(foldWords(c)); folded != "" {
			colors = append(colors, folded)
		}
	}

	return &AttributeExtractor{
		brands:     brands,
		categories: categories,
		colors:     colors,
	}
}

func newWordTable(name string, variants []string) wordTable {
	folded := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)
	for _, v := range append([]string{name}, variants...) {
		f := strings.TrimSpace(foldWords(v))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		folded = append(folded, f)
	}
	sort.SliceStable(folded, func(i, j int) bool {
		return len(folded[i]) > len(folded[j])
	})
	return wordTable{name: strings.ToLower(strings.TrimSpace(name)), variants: folded}
}

// lookup returns the first table with a variant contained in padded text.
// wholeWord requires the variant to sit on word boundaries.
func lookup(tables []wordTable, padded string, wholeWord bool) string {
	for _, t := range tables {
		for _, v := range t.variants {
			needle := v
			if wholeWord {
				needle = " " + v + " "
			}
			if strings.Contains(padded, needle) {
				return t.name
			}
		}
	}
	return ""
}

// GuessBrand returns the canonical brand named in the title, or "" when none matches
func (e *AttributeExtractor) GuessBrand(title string) string {
	if title == "" {
		return ""
	}
	return lookup(e.brands, foldWords(title), true)
}

// NormalizeCategory maps a free-form category onto the canonical taxonomy.
// Category terms match as substrings so plurals like "tablettes" still map.
// Unknown categories are returned unchanged; an empty input stays empty.
func (e *AttributeExtractor) NormalizeCategory(category string) string {
	if strings.TrimSpace(category) == "" {
		return ""
	}
	if canonical := lookup(e.categories, foldWords(category), false); canonical != "" {
		return canonical
	}
	return category
}

// Extract returns the facets found in the title. Missing facets stay absent.
func (e *AttributeExtractor) Extract(title string) domain.AttributeSet {
	var attrs domain.AttributeSet
	if title == "" {
		return attrs
	}

	lower := foldText(title)

	attrs.CapacityGB = extractCapacity(lower)

	if m := ramPattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			attrs.RAMGB = &v
		}
	}

	if m := screenPattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64); err == nil {
			attrs.ScreenInches = &v
		}
	}

	padded := foldWords(title)
	for _, c := range e.colors {
		if strings.Contains(padded, " "+c+" ") {
			attrs.Color = c
			break
		}
	}

	return attrs
}

// extractCapacity returns the first storage size in the text, in GB.
// Sizes immediately followed by "ram" describe memory and are skipped.
func extractCapacity(lower string) *int {
	for _, loc := range capacityPattern.FindAllStringSubmatchIndex(lower, -1) {
		if ramSuffixPattern.MatchString(lower[loc[1]:]) {
			continue
		}
		v, err := strconv.Atoi(lower[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		if lower[loc[4]:loc[5]] == "tb" {
			v *= 1024
		}
		return &v
	}
	return nil
}
