package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes free-text product titles into comparable token sequences
type Normalizer struct {
	promoWords map[string]struct{}
}

// NewNormalizer creates a normalizer that drops the given promotional words
func NewNormalizer(promoWords []string) *Normalizer {
	set := make(map[string]struct{}, len(promoWords))
	for _, w := range promoWords {
		w = foldText(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return &Normalizer{promoWords: set}
}

// Normalize returns the title lowercased, accent-stripped, split on
// non-alphanumeric runs, with promotional words removed and single-space joined.
// An empty title yields an empty string.
func (n *Normalizer) Normalize(title string) string {
	return strings.Join(n.Tokens(title), " ")
}

// Tokens returns the normalized token sequence of a title
func (n *Normalizer) Tokens(title string) []string {
	if title == "" {
		return nil
	}

	words := splitAlphanumeric(foldText(title))
	tokens := words[:0]
	for _, w := range words {
		if _, promo := n.promoWords[w]; promo {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// TokenSet returns the distinct normalized tokens of a title
func (n *Normalizer) TokenSet(title string) map[string]struct{} {
	tokens := n.Tokens(title)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// foldText strips diacritics and lowercases. strings.ToLower uses Unicode
// case mapping, not the process locale.
func foldText(s string) string {
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripper, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// splitAlphanumeric splits on every run of characters that are neither letters nor digits
func splitAlphanumeric(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// foldWords folds text and rejoins its alphanumeric words with single spaces,
// padded so whole-word lookups can use " word " containment.
func foldWords(s string) string {
	return " " + strings.Join(splitAlphanumeric(foldText(s)), " ") + " "
}
