package normalizer

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	digits     = regexp.MustCompile(`\d+`)

	defaultNormalizer = New(DefaultPolicy())
)

// Policy is the table of tokens stripped before comparison.
// Units are only removed when they directly follow a digit run,
// stop words are removed as standalone tokens.
type Policy struct {
	Units     []string
	StopWords []string
}

// DefaultPolicy returns the unit and stop-word lists tuned for supplier item names.
func DefaultPolicy() Policy {
	return Policy{
		Units: []string{"kg", "g", "ml", "l", "gram", "grams", "liter", "liters", "pack", "packs"},
		StopWords: []string{
			"pack", "packs", "extra", "virgin", "full", "cream", "peeled",
			"long", "grain", "red", "white", "unslt", "unsalted",
		},
	}
}

type Normalizer struct {
	quantity  *regexp.Regexp
	stopWords map[string]struct{}
}

// New compiles the policy. Empty lists disable the corresponding step.
func New(p Policy) *Normalizer {
	n := &Normalizer{
		stopWords: make(map[string]struct{}, len(p.StopWords)),
	}

	for _, w := range p.StopWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			n.stopWords[w] = struct{}{}
		}
	}

	units := make([]string, 0, len(p.Units))
	for _, u := range p.Units {
		u = strings.ToLower(strings.TrimSpace(u))
		if u != "" {
			units = append(units, regexp.QuoteMeta(u))
		}
	}

	if len(units) > 0 {
		// Longest first, otherwise "g" would eat the head of "grams".
		sort.SliceStable(units, func(i, j int) bool { return len(units[i]) > len(units[j]) })
		n.quantity = regexp.MustCompile(`\d+\s*(?:` + strings.Join(units, "|") + `)`)
	}

	return n
}

// Normalize reduces surface variation of an item name: case, whitespace,
// quantities with units, bare numbers and stop words.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(norm.NFKC.String(text))
	text = collapse(text)

	if n.quantity != nil {
		text = n.quantity.ReplaceAllString(text, "")
	}
	text = digits.ReplaceAllString(text, "")

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, stop := n.stopWords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}

	return collapse(strings.Join(kept, " "))
}

// Normalize applies the default policy.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// Default returns the normalizer built from DefaultPolicy.
func Default() *Normalizer {
	return defaultNormalizer
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
