package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/ingredient-matcher/internal/catalog"
	"github.com/spigell/ingredient-matcher/internal/logger"
	"github.com/spigell/ingredient-matcher/internal/matcher"
	"github.com/spigell/ingredient-matcher/internal/tables"
)

const (
	ItemIDColumn       = "item_id"
	RawNameColumn      = "raw_name"
	IngredientIDColumn = "ingredient_id"
	ConfidenceColumn   = "confidence"
)

// RawItem is a supplier item row.
type RawItem struct {
	ItemID  string `csv:"item_id"`
	RawName string `csv:"raw_name"`
}

// Match joins a supplier item with its match result.
type Match struct {
	ItemID  string
	RawName string
	Result  matcher.Result
}

// Summary counts the outcome of a run.
type Summary struct {
	Total     int
	Matched   int
	Exact     int
	Unmatched int
}

// Summarize counts matched, exact and unmatched rows.
func Summarize(matches []Match) Summary {
	s := Summary{Total: len(matches)}
	for _, m := range matches {
		switch {
		case !m.Result.Found:
			s.Unmatched++
		case m.Result.Confidence == 1.0:
			s.Matched++
			s.Exact++
		default:
			s.Matched++
		}
	}
	return s
}

// Runner matches a table of supplier items against a canonical snapshot.
type Runner struct {
	Workers   int
	Threshold float64
	Logger    *zap.Logger
}

// Run matches every item and returns results in input order. Items are split
// into contiguous shards, one per worker; each worker writes only its own
// range of the output.
func (r *Runner) Run(ctx context.Context, snap *catalog.Snapshot, items []RawItem) ([]Match, error) {
	if snap == nil {
		return nil, errors.New("canonical snapshot is required")
	}

	log := logger.WithFields(r.Logger, zap.String("source", snap.Source))

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(items) {
		workers = len(items)
	}

	out := make([]Match, len(items))
	if len(items) == 0 {
		return out, nil
	}

	shard := (len(items) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(items); start += shard {
		end := min(start+shard, len(items))

		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				item := items[i]
				res := snap.Match(item.RawName, r.Threshold)
				out[i] = Match{ItemID: item.ItemID, RawName: item.RawName, Result: res}

				log.Debug("item matched", append([]zap.Field{zap.String("item_id", item.ItemID)}, logger.MatchFields(item.RawName, res)...)...)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("matching items: %w", err)
	}

	summary := Summarize(out)
	log.Info("batch matching finished",
		zap.Int("items", summary.Total),
		zap.Int("matched", summary.Matched),
		zap.Int("exact", summary.Exact),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("workers", workers),
	)

	return out, nil
}

// ReadItems loads the supplier item table.
func ReadItems(path string) ([]RawItem, error) {
	table, err := tables.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading supplier items: %w", err)
	}

	if err := table.Require(ItemIDColumn, RawNameColumn); err != nil {
		return nil, err
	}

	items := make([]RawItem, 0, table.Len())
	if err := table.Decode(&items); err != nil {
		return nil, err
	}

	return items, nil
}

// Records renders matches as output table rows. An absent ingredient id is
// written as an empty cell.
func Records(matches []Match) [][]string {
	records := make([][]string, 0, len(matches))
	for _, m := range matches {
		id := ""
		if m.Result.Found {
			id = strconv.Itoa(m.Result.IngredientID)
		}

		records = append(records, []string{
			m.ItemID,
			id,
			strconv.FormatFloat(m.Result.Confidence, 'f', -1, 64),
		})
	}
	return records
}

// WriteMatches writes the match table to path.
func WriteMatches(path string, matches []Match) error {
	headers := []string{ItemIDColumn, IngredientIDColumn, ConfidenceColumn}
	if err := tables.WriteFile(path, headers, Records(matches)); err != nil {
		return fmt.Errorf("writing matches: %w", err)
	}
	return nil
}

// ReadMatches loads a match table written by WriteMatches.
func ReadMatches(path string) ([]Match, error) {
	table, err := tables.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}

	if err := table.Require(ItemIDColumn, IngredientIDColumn, ConfidenceColumn); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, table.Len())
	for i, row := range table.Rows {
		m := Match{ItemID: row[ItemIDColumn]}

		if raw := row[ConfidenceColumn]; raw != "" {
			conf, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: confidence: %w", path, i+1, err)
			}
			m.Result.Confidence = conf
		}

		if raw := row[IngredientIDColumn]; raw != "" {
			id, err := parseID(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: ingredient id: %w", path, i+1, err)
			}
			m.Result.IngredientID = id
			m.Result.Found = true
		}

		matches = append(matches, m)
	}

	return matches, nil
}

// parseID accepts "12" as well as "12.0", the form pandas writes for
// integer columns with missing values.
func parseID(raw string) (int, error) {
	if id, err := strconv.Atoi(raw); err == nil {
		return id, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return int(f), nil
}
