package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/ingredient-matcher/internal/catalog"
)

func sampleSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot("memory", nil, []catalog.Ingredient{
		{ID: 1, Name: "Tomato"},
		{ID: 2, Name: "Onion"},
		{ID: 3, Name: "Garlic"},
		{ID: 4, Name: "Whole Milk"},
		{ID: 5, Name: "Olive Oil"},
	})
}

func sampleItems() []RawItem {
	return []RawItem{
		{ItemID: "s1", RawName: "TOMATOES 1kg pack"},
		{ItemID: "s2", RawName: "onion red 500g"},
		{ItemID: "s3", RawName: "gralic"},
		{ItemID: "s4", RawName: "Random Item XYZ"},
		{ItemID: "s5", RawName: ""},
		{ItemID: "s6", RawName: "extra virgin olive oil 1l"},
		{ItemID: "s7", RawName: "Whole Milk 2 liters"},
	}
}

func TestRunPreservesOrderForAnyWorkerCount(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	snap := sampleSnapshot()
	items := sampleItems()

	sequential, err := (&Runner{Workers: 1, Threshold: 60}).Run(context.Background(), snap, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, workers := range []int{0, 2, 3, 7, 32} {
		got, err := (&Runner{Workers: workers, Threshold: 60}).Run(context.Background(), snap, items)
		if err != nil {
			t.Fatalf("workers=%d: unexpected error: %v", workers, err)
		}

		if len(got) != len(items) {
			t.Fatalf("workers=%d: expected %d results, got %d", workers, len(items), len(got))
		}

		for i := range got {
			if got[i] != sequential[i] {
				t.Fatalf("workers=%d: row %d differs: %+v vs %+v", workers, i, got[i], sequential[i])
			}
			if got[i].ItemID != items[i].ItemID {
				t.Fatalf("workers=%d: row %d out of order", workers, i)
			}
		}
	}
}

func TestRunResults(t *testing.T) {
	t.Parallel()

	got, err := (&Runner{Workers: 2, Threshold: 60}).Run(context.Background(), sampleSnapshot(), sampleItems())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]int{"s1": 1, "s2": 2, "s3": 3, "s6": 5, "s7": 4}
	for _, m := range got {
		id, ok := m.Result.ID()
		want, expectMatch := expected[m.ItemID]
		if ok != expectMatch {
			t.Fatalf("%s: expected matched=%v, got %+v", m.ItemID, expectMatch, m.Result)
		}
		if ok && id != want {
			t.Fatalf("%s: expected ingredient %d, got %d", m.ItemID, want, id)
		}
	}

	summary := Summarize(got)
	if summary.Total != 7 || summary.Matched != 5 || summary.Unmatched != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Exact != 3 {
		t.Fatalf("expected 3 exact matches, got %+v", summary)
	}
}

func TestRunLogsSummary(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	runner := &Runner{Workers: 2, Threshold: 60, Logger: zap.New(core)}

	if _, err := runner.Run(context.Background(), sampleSnapshot(), sampleItems()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("batch matching finished").All()
	if len(entries) != 1 {
		t.Fatalf("expected summary log entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["items"] != int64(7) || ctx["unmatched"] != int64(2) {
		t.Fatalf("unexpected summary fields: %v", ctx)
	}
}

func TestRunEmptyAndCanceled(t *testing.T) {
	t.Parallel()

	runner := &Runner{Workers: 4, Threshold: 60}

	got, err := runner.Run(context.Background(), sampleSnapshot(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty output, got %v, %v", got, err)
	}

	if _, err := runner.Run(context.Background(), nil, sampleItems()); err == nil {
		t.Fatalf("expected error without snapshot")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Run(ctx, sampleSnapshot(), sampleItems()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTablesRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	itemsPath := filepath.Join(dir, "supplier_items.csv")
	content := "item_id,raw_name\ns1,TOMATOES 1kg pack\ns2,\"Olive Oil, extra virgin\"\ns3,\n"
	if err := os.WriteFile(itemsPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	items, err := ReadItems(itemsPath)
	if err != nil {
		t.Fatalf("read items: %v", err)
	}
	if len(items) != 3 || items[1].RawName != "Olive Oil, extra virgin" {
		t.Fatalf("unexpected items: %+v", items)
	}

	matches, err := (&Runner{Workers: 2, Threshold: 60}).Run(context.Background(), sampleSnapshot(), items)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	outPath := filepath.Join(dir, "matches.csv")
	if err := WriteMatches(outPath, matches); err != nil {
		t.Fatalf("write matches: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	// "oil," keeps its comma after normalization, so s2 is a fuzzy match too.
	expected := fmt.Sprintf("item_id,ingredient_id,confidence\ns1,1,%s\ns2,5,%s\ns3,,0\n",
		strconv.FormatFloat(matches[0].Result.Confidence, 'f', -1, 64),
		strconv.FormatFloat(matches[1].Result.Confidence, 'f', -1, 64),
	)
	if string(data) != expected {
		t.Fatalf("unexpected output:\n%s\nexpected:\n%s", data, expected)
	}

	back, err := ReadMatches(outPath)
	if err != nil {
		t.Fatalf("read matches: %v", err)
	}
	for i := range back {
		if back[i].ItemID != matches[i].ItemID || back[i].Result != matches[i].Result {
			t.Fatalf("row %d: expected %+v, got %+v", i, matches[i], back[i])
		}
	}
}

func TestReadMatchesAcceptsFloatIDs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "matches.csv")
	if err := os.WriteFile(path, []byte("item_id,ingredient_id,confidence\na,3.0,0.83\nb,,0.0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	matches, err := ReadMatches(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !matches[0].Result.Found || matches[0].Result.IngredientID != 3 {
		t.Fatalf("unexpected first row: %+v", matches[0])
	}
	if matches[1].Result.Found || matches[1].Result.Confidence != 0 {
		t.Fatalf("unexpected second row: %+v", matches[1])
	}
}

func TestReadItemsMissingColumns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "items.csv")
	if err := os.WriteFile(path, []byte("id,name\n1,x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := ReadItems(path); err == nil {
		t.Fatalf("expected missing columns error")
	}
}
