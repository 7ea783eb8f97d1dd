package evaluation

import (
	"strings"

	"github.com/spigell/ingredient-matcher/internal/batch"
	"github.com/spigell/ingredient-matcher/internal/catalog"
)

// DefaultHighConfidence is the confidence precision@1 is computed over.
const DefaultHighConfidence = 0.6

// Words too generic to prove a match on their own.
var ignoredNameWords = map[string]struct{}{
	"whole":       {},
	"all-purpose": {},
	"unsalted":    {},
	"granulated":  {},
}

// Row is one evaluated match joined with its supplier and canonical names.
type Row struct {
	ItemID         string  `json:"item_id"`
	RawName        string  `json:"raw_name"`
	IngredientID   int     `json:"ingredient_id,omitempty"`
	IngredientName string  `json:"name,omitempty"`
	Confidence     float64 `json:"confidence"`
	Correct        bool    `json:"is_correct"`
}

// Report holds coverage and precision@1 in percent.
type Report struct {
	Total          int     `json:"total_items"`
	Matched        int     `json:"matched_items"`
	Coverage       float64 `json:"coverage"`
	HighConfidence int     `json:"high_confidence"`
	Correct        int     `json:"correct_matches"`
	Precision      float64 `json:"precision"`
	Threshold      float64 `json:"threshold"`
	Rows           []Row   `json:"rows"`
}

// Evaluate scores a match table without ground truth. A match counts as
// correct when a significant word of the canonical name occurs in the raw name.
// Coverage is the share of items with a positive confidence, precision the
// share of correct matches among those with confidence >= highConfidence.
func Evaluate(matches []batch.Match, items []batch.RawItem, ingredients []catalog.Ingredient, highConfidence float64) Report {
	rawNames := make(map[string]string, len(items))
	for _, item := range items {
		if _, ok := rawNames[item.ItemID]; !ok {
			rawNames[item.ItemID] = item.RawName
		}
	}

	names := make(map[int]string, len(ingredients))
	for _, ing := range ingredients {
		if _, ok := names[ing.ID]; !ok {
			names[ing.ID] = ing.Name
		}
	}

	report := Report{Total: len(matches), Threshold: highConfidence}
	for _, m := range matches {
		row := Row{
			ItemID:     m.ItemID,
			RawName:    m.RawName,
			Confidence: m.Result.Confidence,
		}
		if raw, ok := rawNames[m.ItemID]; ok {
			row.RawName = raw
		}

		name, known := "", false
		if m.Result.Found {
			row.IngredientID = m.Result.IngredientID
			name, known = names[m.Result.IngredientID]
			row.IngredientName = name
		}

		row.Correct = known && plausible(row.RawName, name)

		if m.Result.Confidence > 0 {
			report.Matched++
		}
		if m.Result.Confidence >= highConfidence {
			report.HighConfidence++
			if row.Correct {
				report.Correct++
			}
		}

		report.Rows = append(report.Rows, row)
	}

	report.Coverage = percent(report.Matched, report.Total)
	report.Precision = percent(report.Correct, report.HighConfidence)

	return report
}

func plausible(rawName, ingredientName string) bool {
	if rawName == "" || ingredientName == "" {
		return false
	}

	raw := strings.ToLower(rawName)
	for _, word := range strings.Fields(strings.ToLower(ingredientName)) {
		if _, ignored := ignoredNameWords[word]; ignored {
			continue
		}
		if strings.Contains(raw, word) {
			return true
		}
	}

	return false
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
