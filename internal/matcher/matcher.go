package matcher

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"github.com/spigell/ingredient-matcher/internal/normalizer"
)

// DefaultThreshold is the minimum fuzzy score (0-100) accepted as a match.
const DefaultThreshold = 60

// Entry is a canonical record as the matcher sees it.
type Entry struct {
	ID   int
	Name string
}

// Candidate pairs a canonical entry with its normalized name.
type Candidate struct {
	Normalized string
	ID         int
	Name       string
}

// Result is the outcome of a single match. Found is false for "no usable
// match", in which case Confidence is always 0.
type Result struct {
	IngredientID int
	Found        bool
	Confidence   float64
}

// ID returns the matched ingredient id and whether there is one.
func (r Result) ID() (int, bool) {
	return r.IngredientID, r.Found
}

// Matcher holds a normalized canonical set. It is read-only after New and
// safe for concurrent use.
type Matcher struct {
	normalizer *normalizer.Normalizer
	candidates []Candidate
}

// New normalizes every entry once, keeping the original order.
// A nil normalizer means the default policy.
func New(n *normalizer.Normalizer, entries []Entry) *Matcher {
	if n == nil {
		n = normalizer.Default()
	}

	return &Matcher{
		normalizer: n,
		candidates: Prepare(n, entries),
	}
}

// Prepare builds the candidate sequence for the given entries.
func Prepare(n *normalizer.Normalizer, entries []Entry) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, Candidate{
			Normalized: n.Normalize(e.Name),
			ID:         e.ID,
			Name:       e.Name,
		})
	}
	return candidates
}

// Len returns the number of candidates.
func (m *Matcher) Len() int {
	return len(m.candidates)
}

// Candidates returns a copy of the prepared candidates.
func (m *Matcher) Candidates() []Candidate {
	out := make([]Candidate, len(m.candidates))
	copy(out, m.candidates)
	return out
}

// FindBestMatch returns the canonical entry closest to rawName.
// An exact match of normalized forms wins with confidence 1. Otherwise the
// highest TokenSortRatio is accepted when it reaches threshold. Ties go to
// the entry that comes first in the canonical set.
func (m *Matcher) FindBestMatch(rawName string, threshold float64) Result {
	if rawName == "" {
		return Result{}
	}

	normalized := m.normalizer.Normalize(rawName)

	for _, c := range m.candidates {
		if c.Normalized == normalized {
			return Result{IngredientID: c.ID, Found: true, Confidence: 1.0}
		}
	}

	best := -1
	bestScore := 0.0
	for i, c := range m.candidates {
		score := TokenSortRatio(normalized, c.Normalized)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	// A zero score is never a match, even with threshold 0.
	if best == -1 || bestScore <= 0 || bestScore < threshold {
		return Result{}
	}

	return Result{
		IngredientID: m.candidates[best].ID,
		Found:        true,
		Confidence:   bestScore / 100.0,
	}
}

// FindBestMatch is the one-shot form: it prepares entries with the default
// policy and matches a single raw name.
func FindBestMatch(rawName string, entries []Entry, threshold float64) Result {
	if rawName == "" {
		return Result{}
	}
	return New(nil, entries).FindBestMatch(rawName, threshold)
}

// TokenSortRatio scores two strings in [0, 100] independently of word order:
// tokens of each side are sorted and rejoined, then compared by
// 2*LCS / (len(a)+len(b)).
func TokenSortRatio(a, b string) float64 {
	a = sortTokens(a)
	b = sortTokens(b)

	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	lcs := edlib.LCS(a, b)
	return 100 * float64(2*lcs) / float64(total)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
