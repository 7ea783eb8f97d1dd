package catalog

import (
	"fmt"
	"time"

	"github.com/spigell/ingredient-matcher/internal/matcher"
	"github.com/spigell/ingredient-matcher/internal/normalizer"
	"github.com/spigell/ingredient-matcher/internal/tables"
)

const (
	IDColumn   = "ingredient_id"
	NameColumn = "name"
)

// Ingredient is a canonical ingredient record.
type Ingredient struct {
	ID   int    `csv:"ingredient_id" json:"ingredient_id"`
	Name string `csv:"name" json:"name"`
}

// Load reads the canonical ingredient table.
func Load(path string) ([]Ingredient, error) {
	table, err := tables.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading canonical ingredients: %w", err)
	}

	if err := table.Require(IDColumn, NameColumn); err != nil {
		return nil, err
	}

	ingredients := make([]Ingredient, 0, table.Len())
	if err := table.Decode(&ingredients); err != nil {
		return nil, err
	}

	return ingredients, nil
}

// Snapshot is an immutable, prepared canonical set.
type Snapshot struct {
	Source   string
	LoadedAt time.Time

	ingredients []Ingredient
	byID        map[int]string
	matcher     *matcher.Matcher
}

// NewSnapshot normalizes the ingredients once. The slice is copied.
func NewSnapshot(source string, n *normalizer.Normalizer, ingredients []Ingredient) *Snapshot {
	owned := make([]Ingredient, len(ingredients))
	copy(owned, ingredients)

	entries := make([]matcher.Entry, 0, len(owned))
	byID := make(map[int]string, len(owned))
	for _, ing := range owned {
		entries = append(entries, matcher.Entry{ID: ing.ID, Name: ing.Name})
		// duplicate ids keep the first name
		if _, ok := byID[ing.ID]; !ok {
			byID[ing.ID] = ing.Name
		}
	}

	return &Snapshot{
		Source:      source,
		LoadedAt:    time.Now().UTC(),
		ingredients: owned,
		byID:        byID,
		matcher:     matcher.New(n, entries),
	}
}

// Match runs the matcher against this snapshot.
func (s *Snapshot) Match(rawName string, threshold float64) matcher.Result {
	return s.matcher.FindBestMatch(rawName, threshold)
}

func (s *Snapshot) Len() int {
	return len(s.ingredients)
}

// Name returns the canonical name for id.
func (s *Snapshot) Name(id int) (string, bool) {
	name, ok := s.byID[id]
	return name, ok
}

// Ingredients returns a copy of the canonical records in load order.
func (s *Snapshot) Ingredients() []Ingredient {
	out := make([]Ingredient, len(s.ingredients))
	copy(out, s.ingredients)
	return out
}
